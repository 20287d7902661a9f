package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/DucAnhBoDoi/Music-App/config"
	"github.com/DucAnhBoDoi/Music-App/core/catalog"
)

var chartLimit int

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Print the current top tracks",
	Long:  `Fetch the catalog chart and print it, one track per line. Useful for checking connectivity without starting the daemon.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		client := catalog.NewClient(cfg.DeezerAPIURL,
			&http.Client{Timeout: cfg.CatalogTimeout}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tracks, err := client.FetchChart(ctx, chartLimit)
		if err != nil {
			log.Fatalf("failed to fetch chart: %v", err)
		}

		for i, t := range tracks {
			fmt.Printf("%2d. %s - %s\n", i+1, t.Artist, t.Title)
		}
	},
}

func init() {
	chartCmd.Flags().IntVarP(&chartLimit, "limit", "n", 25, "number of tracks to fetch")
	rootCmd.AddCommand(chartCmd)
}
