package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DucAnhBoDoi/Music-App/config"
	"github.com/DucAnhBoDoi/Music-App/logger"
	"github.com/DucAnhBoDoi/Music-App/server"
)

var rootCmd = &cobra.Command{
	Use:   "music-app",
	Short: "Music-App is a headless music playback daemon.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
