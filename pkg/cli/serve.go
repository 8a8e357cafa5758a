package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/adaptive"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/admin"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/config"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

var (
	serveConfigPath string
	serveAddr       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the adaptation engine and its admin API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Admin.Addr = serveAddr
		}

		log := logging.New(logging.Config{
			Level:  logging.ParseLevel(cfg.Logging.Level),
			Format: logging.ParseFormat(cfg.Logging.Format),
		})

		engineCfg, err := cfg.EngineConfig()
		if err != nil {
			return err
		}
		engine, err := adaptive.New(engineCfg,
			adaptive.WithLogger(logging.Component(log, "engine")))
		if err != nil {
			return err
		}
		defer engine.Close()

		srv := admin.New(engine,
			admin.WithAddr(cfg.Admin.Addr),
			admin.WithAPIKey(cfg.Admin.APIKey),
			admin.WithLogger(logging.Component(log, "admin")))
		if err := srv.Start(); err != nil {
			return err
		}

		log.Info("adaptived started",
			"version", buildInfo.Version,
			"initialProtocol", engine.Current().String())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func loadConfig() (*config.File, error) {
	if serveConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(serveConfigPath)
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to the YAML configuration file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Admin API listen address (overrides the config file)")
	rootCmd.AddCommand(serveCmd)
}
