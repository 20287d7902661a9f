package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DucAnhBoDoi/Music-App/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playback daemon",
	Long:  `Start the playback engine with its HTTP control API and live state stream.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
