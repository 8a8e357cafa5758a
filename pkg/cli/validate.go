package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config-file>",
	Short: "Validate a configuration file without starting the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		engineCfg, err := cfg.EngineConfig()
		if err != nil {
			return err
		}
		if err := engineCfg.Validate(); err != nil {
			return err
		}
		fmt.Printf("%s is valid (initial protocol %s, %d supported)\n",
			args[0], engineCfg.InitialProtocol, len(engineCfg.Supported))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
