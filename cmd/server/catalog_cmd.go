package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"afaq.com/stylist-gateway/internal/catalog"
	"afaq.com/stylist-gateway/internal/config"
)

func newCatalogCmd() *cobra.Command {
	var linkBase string

	cmd := &cobra.Command{
		Use:   "catalog [path]",
		Short: "Normalize a product catalog and print the listing injected into prompts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			path := cfg.CatalogPath
			if len(args) == 1 {
				path = args[0]
			}
			if linkBase == "" {
				linkBase = cfg.CatalogLinkBase
			}

			cat, err := catalog.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, cat.Render(linkBase))
			fmt.Fprintf(out, "\n%d products\n", cat.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&linkBase, "link-base", "", "base URL for product links (default CATALOG_LINK_BASE)")
	return cmd
}
