package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/budget"
	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/panels"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func costCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Estimate the monthly cost of the open workspace",
		Long: `Ask the backend's cost calculator for the open canvas and break the
estimate down by component and category. Limits set with
'cloudcanvas budget set' are checked against the total.`,
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return showCost(ctx, b, panels.NewCostPanel(loadClient(), panels.WithCostLogger(loadLogger()), panels.WithCostTimeout(loadConfig().Timeout())), strict)
			})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit 1 when a budget limit is exceeded")
	return cmd
}

func showCost(ctx context.Context, b *board, panel *panels.CostPanel, strict bool) error {
	bd, err := panel.Refresh(ctx, b.store.CostNodes())
	if err != nil {
		return errors.Annotate(err, "cost calculation failed")
	}

	ui.Banner("cost")
	fmt.Printf("  Total: %s / month\n\n", ui.Money.Sprint(panels.FormatUSD(bd.TotalCost)))
	if len(bd.Items) == 0 {
		fmt.Println("  Nothing on the canvas yet.")
		return nil
	}

	var rows [][]string
	for _, it := range bd.Items {
		rows = append(rows, []string{it.ComponentName, panels.FormatUSD(it.Cost)})
	}
	ui.Table([]string{"Component", "Monthly"}, rows)

	cats := panels.ByCategory(bd.Items, categoryResolver(ctx, b))
	byCategory := make(map[string]float64, len(cats))
	fmt.Println()
	fmt.Println("  By category:")
	for _, c := range cats {
		byCategory[c.Category] = c.Cost
		share := 0.0
		if bd.TotalCost > 0 {
			share = c.Cost / bd.TotalCost
		}
		fmt.Printf("    %-12s %s %9s %3.0f%%\n", c.Category, ui.Info.Sprint(ui.Bar(share, 20)), panels.FormatUSD(c.Cost), share*100)
	}

	ws, _ := b.store.Workspace()
	bgt := budget.Load()
	status := bgt.Evaluate(ws.ID, bd.TotalCost, byCategory)
	if status.MonthlyLimit > 0 {
		icon := ui.StatusIcon(true)
		switch {
		case status.IsOverBudget:
			icon = ui.StatusIcon(false)
		case status.IsNearBudget:
			icon = ui.WarnIcon()
		}
		fmt.Printf("\n  Budget: %s %s / %s (%.0f%%)\n", icon,
			panels.FormatUSD(status.MonthlyCost), panels.FormatUSD(status.MonthlyLimit), status.PercentUsed)
		fmt.Printf("          %s\n", ui.Bar(status.PercentUsed/100, 30))
	}
	if err := bgt.Check(ws.ID, bd.TotalCost, byCategory); err != nil {
		ui.Warn.Printf("\n  %s %v\n", ui.WarnIcon(), err)
		if strict {
			os.Exit(1)
		}
	}
	return nil
}

// categoryResolver places breakdown items into palette categories using
// the catalog, matching on component id, then node id, then name.
func categoryResolver(ctx context.Context, b *board) func(panels.Item) string {
	defs, err := loadCatalog().List(ctx)
	if err != nil {
		log := loadLogger()
		log.Debug().Err(err).Msg("categories unavailable, defaulting to Compute")
		return nil
	}
	byID := make(map[string]string, len(defs))
	byName := make(map[string]string, len(defs))
	for _, d := range defs {
		byID[d.ID] = catalog.CategoryOf(d)
		byName[d.Name] = catalog.CategoryOf(d)
	}
	return func(it panels.Item) string {
		if cat, ok := byID[it.ComponentID]; ok {
			return cat
		}
		if n, ok := b.store.Node(it.NodeID); ok {
			if cat, ok := byID[n.ComponentID]; ok {
				return cat
			}
		}
		return byName[it.ComponentName]
	}
}
