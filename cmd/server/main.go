package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stylist-gateway",
	Short: "Chat gateway that grounds a fashion assistant in catalog, weather and conversation context",
	Long: `stylist-gateway accepts chat turns (text and/or an image), resolves the caller's
location and forecast, composes a prompt around the product catalog and the
recent conversation, and returns the model's reply.

Run 'stylist-gateway serve' to start the HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(
		newServeCmd(),
		newCatalogCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
