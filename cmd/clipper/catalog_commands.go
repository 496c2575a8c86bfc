package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and edit the remote catalog",
	}
	cmd.AddCommand(newCatalogCategoriesCommand(ctx))
	cmd.AddCommand(newCatalogPutCategoryCommand(ctx))
	cmd.AddCommand(newCatalogClipsCommand(ctx))
	cmd.AddCommand(newCatalogDumpCommand(ctx))
	return cmd
}

func newCatalogCategoriesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories and their display names",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireCatalog(cmd.Context())
			if err != nil {
				return err
			}
			categories := client.Categories()
			if asJSON {
				return writeJSON(cmd, categories)
			}
			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, "No categories")
				return nil
			}
			var rows [][]string
			for _, tag := range slices.Sorted(maps.Keys(categories)) {
				names := categories[tag]
				for _, loc := range slices.Sorted(maps.Keys(names)) {
					rows = append(rows, []string{tag, localeLabel(loc), names[loc]})
				}
			}
			fmt.Fprintln(out, renderTable([]string{"Category", "Locale", "Name"}, rows, nil, 0))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newCatalogPutCategoryCommand(ctx *commandContext) *cobra.Command {
	var nameFlags []string
	cmd := &cobra.Command{
		Use:   "put-category <tag>",
		Short: "Create or replace a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(nameFlags)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, sessionOptions{catalog: true}, func(s *session) error {
				if err := s.ctrl.PutCategory(cmd.Context(), args[0], names); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Category %s: %s\n", args[0], formatNames(names))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&nameFlags, "name", nil, "Display name as loc=Name (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCatalogClipsCommand(ctx *commandContext) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "clips",
		Short: "List published clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireCatalog(cmd.Context())
			if err != nil {
				return err
			}
			doc := client.Document()
			var rows [][]string
			for _, id := range slices.Sorted(maps.Keys(doc.Clips)) {
				entry := doc.Clips[id]
				if category != "" && entry.Category != category {
					continue
				}
				rows = append(rows, []string{id, entry.Category, formatNames(entry.Names), formatPublishTime(entry.PublishTime)})
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No published clips")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Category", "Names", "Published"}, rows, nil, 50))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list clips in this category")
	return cmd
}

func newCatalogDumpCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the full catalog document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.requireCatalog(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, client.Document())
		},
	}
}
