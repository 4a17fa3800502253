package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func componentsCmd() *cobra.Command {
	var (
		category string
		search   string
	)

	cmd := &cobra.Command{
		Use:     "components",
		Aliases: []string{"palette", "comp"},
		Short:   "Browse the component palette",
		Long: `List the components that can be placed on a canvas.

  cloudcanvas components
  cloudcanvas components --category Database
  cloudcanvas components --search lambda`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()

			defs, err := loadCatalog().List(ctx)
			if err != nil {
				ui.Bad.Printf("  Failed to load components: %v\n", err)
				os.Exit(1)
			}

			ui.Banner("components")
			printCategoryTabs(category)

			shown := catalog.Filter(defs, category, search)
			if len(shown) == 0 {
				fmt.Println("  No components match.")
				return
			}

			var rows [][]string
			for _, d := range shown {
				rows = append(rows, []string{
					d.ID,
					ui.Brand.Sprint(d.Name),
					catalog.CategoryOf(d),
					catalog.Summary(d),
					ui.Money.Sprint(catalog.Estimate(d)),
				})
			}
			ui.Table([]string{"ID", "Name", "Category", "Spec", "Estimate"}, rows)
			fmt.Printf("\n  %d of %d components\n", len(shown), len(defs))
			fmt.Println(ui.Subtle.Sprint("  Place one: cloudcanvas node add <id>"))
		},
	}

	cmd.Flags().StringVar(&category, "category", "All", "Palette tab: "+strings.Join(catalog.Categories, ", "))
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name or description")

	cmd.AddCommand(componentsShowCmd())
	return cmd
}

func printCategoryTabs(active string) {
	tabs := make([]string, 0, len(catalog.Categories))
	for _, c := range catalog.Categories {
		if strings.EqualFold(c, active) || (active == "" && c == "All") {
			tabs = append(tabs, ui.Brand.Sprintf("[%s]", c))
			continue
		}
		tabs = append(tabs, ui.Subtle.Sprint(c))
	}
	fmt.Printf("  %s\n\n", strings.Join(tabs, "  "))
}

func componentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "show <id>",
		Short:             "Show a component's defaults and pricing",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: componentCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()

			def, err := loadCatalog().Get(ctx, args[0])
			if errors.Is(err, catalog.ErrComponentNotFound) {
				ui.Bad.Printf("  Component %q not found\n", args[0])
				os.Exit(1)
			}
			if err != nil {
				ui.Bad.Printf("  Failed to load component: %v\n", err)
				os.Exit(1)
			}

			ui.Banner(def.Name)
			fmt.Printf("  ID:        %s\n", def.ID)
			fmt.Printf("  Provider:  %s\n", def.Provider)
			fmt.Printf("  Category:  %s\n", catalog.CategoryOf(def))
			fmt.Printf("  Spec:      %s\n", catalog.Summary(def))
			fmt.Printf("  Estimate:  %s\n", ui.Money.Sprint(catalog.Estimate(def)))
			if def.Description != "" {
				fmt.Printf("\n  %s\n", def.Description)
			}

			if len(def.Config) > 0 {
				fmt.Println()
				fmt.Println("  Defaults:")
				for _, k := range sortedAnyKeys(def.Config) {
					fmt.Printf("    %-18s %v\n", k, def.Config[k])
				}
			}
			if len(def.Pricing) > 0 {
				fmt.Println()
				fmt.Println("  Pricing:")
				keys := make([]string, 0, len(def.Pricing))
				for k := range def.Pricing {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("    %-18s %g\n", k, def.Pricing[k])
				}
			}

			fields := loadSchemas().Fields(def.ID, def.Category, def.Config)
			if len(fields) > 0 {
				fmt.Println()
				fmt.Println("  Editable fields:")
				for _, f := range fields {
					line := fmt.Sprintf("    %-18s %s", f.Key, f.Type)
					if len(f.Options) > 0 {
						line += " " + ui.Subtle.Sprint(strings.Join(f.Options, "|"))
					}
					fmt.Println(line)
				}
			}
		},
	}
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
