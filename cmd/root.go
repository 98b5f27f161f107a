package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/config"
	"github.com/sells-group/zipmap/internal/format"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zipmap",
	Short: "Interactive ZIP3 spending map dashboard",
	Long:  "Serves a US map where selecting a state reveals its 3-digit ZIP regions and selecting a region shows its properties and monthly spending.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := format.SetLocale(cfg.Format.Locale); err != nil {
			zap.L().Warn("falling back to default locale", zap.String("locale", cfg.Format.Locale), zap.Error(err))
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
