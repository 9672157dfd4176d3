package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tripfriend_bot/internal/destinations"
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(lookupCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every city in the destinations file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cities, err := destinations.Load(tablePath)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"City", "URL"})
		t.AppendRows(cityRows(cities))
		t.AppendFooter(table.Row{"Total", cities.Len()})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <city>",
	Short: "Resolves a city name the way the bot does.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cities, err := destinations.Load(tablePath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeLookup(cities, args[0]))
		return nil
	},
}

func cityRows(cities *destinations.Table) []table.Row {
	names := cities.Names()
	rows := make([]table.Row, 0, len(names))
	for _, name := range names {
		url, _ := cities.Lookup(name)
		rows = append(rows, table.Row{name, url})
	}
	return rows
}

func describeLookup(cities *destinations.Table, name string) string {
	if url, ok := cities.Lookup(name); ok {
		return url
	}
	if guess, ok := cities.Suggest(name); ok {
		return fmt.Sprintf("%q not found, did you mean %q?", name, guess)
	}
	return fmt.Sprintf("%q not found", name)
}
