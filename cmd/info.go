package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/panels"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarise the architecture on the open canvas",
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return showInfo(ctx, b, panels.NewInfoPanel(loadCatalog(), panels.WithInfoLogger(loadLogger())))
			})
		},
	}
}

func showInfo(ctx context.Context, b *board, panel *panels.InfoPanel) error {
	info, err := panel.Refresh(ctx, b.store.Nodes(), b.store.Edges())
	if err != nil {
		return err
	}

	ws, _ := b.store.Workspace()
	ui.Banner("architecture")
	fmt.Printf("  Workspace:   %s\n", ui.Brand.Sprint(ws.Name))
	fmt.Printf("  Components:  %d\n", info.Nodes)
	fmt.Printf("  Connections: %d\n", info.Edges)

	if len(info.Categories) > 0 {
		fmt.Println()
		fmt.Println("  By category:")
		for _, c := range info.Categories {
			name := c.Category
			if name == panels.UnknownCategory {
				name = ui.Warn.Sprint(name)
			}
			fmt.Printf("    %-12s %d\n", name, c.Count)
		}
	}
	if len(info.Components) > 0 {
		fmt.Printf("\n  Uses: %s\n", strings.Join(info.Components, ", "))
	}
	return nil
}
