package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/config"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func schemasCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the field schemas used by the configuration panel",
		Long: `List the field schemas the configuration panel uses to label and check
component settings. Add your own as TOML files under the schemas
directory of your config; they override the built-in ones.`,
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("schemas")
			all := loadSchemas().All()
			if len(all) == 0 {
				fmt.Println("  No schemas loaded. Fields are inferred from component defaults.")
				return
			}

			var rows [][]string
			for _, s := range all {
				target := s.ComponentID
				if target == "" {
					target = ui.Subtle.Sprint("category " + s.Category)
				}
				keys := make([]string, 0, len(s.Fields))
				for _, f := range s.Fields {
					keys = append(keys, f.Key)
				}
				rows = append(rows, []string{target, s.Summary, strings.Join(keys, ", ")})
			}
			ui.Table([]string{"Applies to", "Summary", "Fields"}, rows)

			if verbose {
				for _, s := range all {
					name := s.ComponentID
					if name == "" {
						name = s.Category
					}
					fmt.Printf("\n  %s\n", ui.Brand.Sprint(name))
					for _, f := range s.Fields {
						line := fmt.Sprintf("    %-18s %-7s", f.Key, f.Type)
						if len(f.Options) > 0 {
							line += " " + strings.Join(f.Options, "|")
						}
						if f.Validate != "" {
							line += " " + ui.Subtle.Sprint(f.Validate)
						}
						fmt.Println(line)
					}
				}
			}

			fmt.Printf("\n  User schemas: %s\n", filepath.Join(config.ConfigDir(), "schemas"))
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show every field")
	return cmd
}
