// Package cli implements the adaptived command tree.
package cli

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:           "adaptived",
	Short:         "Adaptive protocol selection daemon for the proxy data plane",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// BuildInfo carries build-time version metadata set via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var buildInfo = BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

// SetBuildInfo records the binary's build metadata for the version command.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
