package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tripfriend_bot/internal/destinations"
	"tripfriend_bot/internal/directory"
)

var (
	indexURL   string
	useBrowser bool
	timeout    time.Duration
)

func init() {
	fetchCmd.Flags().StringVar(&indexURL, "url", directory.DefaultIndexURL, "destinations index page")
	fetchCmd.Flags().BoolVar(&useBrowser, "browser", false, "render the index page in headless Chrome")
	fetchCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "page load timeout")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Scrapes the destinations index and writes the city table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src := newSource(indexURL, useBrowser, timeout)

		table, err := directory.Scrape(cmd.Context(), src, indexURL, log)
		if err != nil {
			return err
		}
		if err := destinations.Save(tablePath, table); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "saved %d destinations to %s\n", table.Len(), tablePath)
		return nil
	},
}

func newSource(url string, browser bool, timeout time.Duration) directory.Source {
	if browser {
		return directory.NewBrowserSource(url, timeout)
	}
	return directory.NewHTTPSource(url, timeout)
}
