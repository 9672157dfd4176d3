package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var tablePath string

var log = slog.New(slog.NewTextHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "destinations",
	Short: "destinations manages the city table used by the excursion bot.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tablePath, "file", "f", "./data/destinations.json", "path of the destinations file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
