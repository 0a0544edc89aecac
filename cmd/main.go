package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stock-dashboard",
	Short: "A CLI for managing the stock watchlist dashboard",
	Long:  `Stock Dashboard is a local watchlist service: spreadsheet import, favorites, filtering and chart data over an embedded database.`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
