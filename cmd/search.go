package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xhad/docchat/internal/models"
	"github.com/xhad/docchat/pkg/store"
)

func searchCMD(opts *globalOptions) *cobra.Command {
	var (
		k          int
		categories []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the indexed chunks closest to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var search store.SearchOptions
			for _, name := range categories {
				c, ok := models.ParseCategory(name)
				if !ok {
					return fmt.Errorf("unknown category: %s", name)
				}
				search.Categories = append(search.Categories, c)
			}

			results, err := a.index.Search(ctx, args[0], k, search)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if asJSON {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			printResults(results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 4, "number of results")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to categories (texts, titles, headers, footers, tables)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}
