package main

import (
	"os"

	"github.com/formvoice/core/internal/config"
	"github.com/formvoice/core/internal/pkg/nativelog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootArgs struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "formvoice",
		Short:         "Form builder and invoice template server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rootArgs.ConfigPath, "config", config.DefaultConfigPath, "path to YAML config file")
	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

// newLogger builds the console + daily file logger, falling back to zap's
// production logger when the log directory is unusable.
func newLogger(cfg *config.AppConfig) *zap.Logger {
	logger, err := nativelog.NewZapLogger(nativelog.Options{Dir: cfg.LogDir(), Debug: cfg.IsDev()})
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	return logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger, _ := zap.NewProduction()
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
