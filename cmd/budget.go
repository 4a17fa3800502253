package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/budget"
	"github.com/msalah0e/cloudcanvas/internal/panels"
	"github.com/msalah0e/cloudcanvas/internal/state"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Monthly spending limits for your designs",
	}

	cmd.AddCommand(
		budgetShowCmd(),
		budgetSetCmd(),
		budgetResetCmd(),
	)

	return cmd
}

func budgetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"status"},
		Short:   "Show configured limits",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("budget")
			b := budget.Load()

			if b.MonthlyLimit == 0 && len(b.PerCategory) == 0 && len(b.PerWorkspace) == 0 {
				fmt.Println("  No budget limits configured.")
				fmt.Println("  Set one: cloudcanvas budget set --monthly 200")
				return
			}

			if b.MonthlyLimit > 0 {
				fmt.Printf("  Monthly:  %s (warn at %.0f%%)\n", panels.FormatUSD(b.MonthlyLimit), b.AlertAt*100)
			}
			if current := state.Current(); current != "" {
				if l := b.Limit(current); l > 0 {
					fmt.Printf("  Open workspace limit: %s\n", panels.FormatUSD(l))
				}
			}

			printLimits("By category:", b.PerCategory)
			printLimits("By workspace:", b.PerWorkspace)
			fmt.Println(ui.Subtle.Sprint("\n  Check the open canvas: cloudcanvas cost"))
		},
	}
}

func printLimits(title string, limits map[string]float64) {
	if len(limits) == 0 {
		return
	}
	keys := make([]string, 0, len(limits))
	for k := range limits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println("  " + title)
	for _, k := range keys {
		fmt.Printf("    %-20s %s\n", k, panels.FormatUSD(limits[k]))
	}
}

func budgetSetCmd() *cobra.Command {
	var (
		monthly   float64
		alertAt   float64
		category  string
		workspace string
	)

	cmd := &cobra.Command{
		Use:   "set [amount]",
		Short: "Set budget limits",
		Long: `Set budget limits in USD per month.

  cloudcanvas budget set --monthly 200
  cloudcanvas budget set --category Database 80
  cloudcanvas budget set --workspace <id> 50
  cloudcanvas budget set --alert-at 0.9`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			b := budget.Load()
			changed := false

			if monthly > 0 {
				b.MonthlyLimit = monthly
				changed = true
				ui.Good.Printf("  %s Monthly limit set to %s\n", ui.StatusIcon(true), panels.FormatUSD(monthly))
			}
			if alertAt > 0 {
				if alertAt > 1 {
					ui.Bad.Println("  --alert-at is a fraction between 0 and 1")
					os.Exit(1)
				}
				b.AlertAt = alertAt
				changed = true
				ui.Good.Printf("  %s Warning at %.0f%% of the limit\n", ui.StatusIcon(true), alertAt*100)
			}

			if category != "" || workspace != "" {
				if len(args) == 0 {
					ui.Bad.Println("  Amount is required")
					os.Exit(1)
				}
				limit, err := strconv.ParseFloat(args[0], 64)
				if err != nil || limit < 0 {
					ui.Bad.Printf("  Invalid amount: %s\n", args[0])
					os.Exit(1)
				}
				if category != "" {
					b.PerCategory[category] = limit
					ui.Good.Printf("  %s Limit for %s set to %s/month\n", ui.StatusIcon(true), category, panels.FormatUSD(limit))
				}
				if workspace != "" {
					b.PerWorkspace[workspace] = limit
					ui.Good.Printf("  %s Limit for workspace %s set to %s/month\n", ui.StatusIcon(true), workspace, panels.FormatUSD(limit))
				}
				changed = true
			}

			if !changed {
				cmd.Help()
				return
			}
			if err := budget.Save(b); err != nil {
				ui.Bad.Printf("  Failed to save budget: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().Float64Var(&monthly, "monthly", 0, "Monthly limit in USD for every workspace")
	cmd.Flags().Float64Var(&alertAt, "alert-at", 0, "Warn at this fraction of the limit")
	cmd.Flags().StringVar(&category, "category", "", "Set a per-category monthly limit")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Set a limit for one workspace")
	return cmd
}

func budgetResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all budget limits",
		Run: func(cmd *cobra.Command, args []string) {
			b := &budget.Budget{
				AlertAt:      0.8,
				PerCategory:  make(map[string]float64),
				PerWorkspace: make(map[string]float64),
			}
			if err := budget.Save(b); err != nil {
				ui.Bad.Printf("  Failed to reset budget: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Budget limits cleared\n", ui.StatusIcon(true))
		},
	}
}
