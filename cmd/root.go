package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/server"
)

var rootCmd = &cobra.Command{
	Use:   "jukejoy",
	Short: "JukeJoy is a multi-tenant jukebox catalog service.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(os.Getenv("LOG_LEVEL")),
			OutputPath: os.Getenv("LOG_FILE"),
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
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
