package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/activity"
	"github.com/msalah0e/cloudcanvas/internal/state"
	"github.com/msalah0e/cloudcanvas/internal/ui"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "List, create and open workspaces",
	}

	cmd.AddCommand(
		workspaceListCmd(),
		workspaceCreateCmd(),
		workspaceOpenCmd(),
		workspaceShowCmd(),
		workspaceCloseCmd(),
	)

	return cmd
}

func workspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your workspaces",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("workspaces")
			if err := printWorkspaces(); err != nil {
				ui.Bad.Printf("  Failed to list workspaces: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func printWorkspaces() error {
	ctx, cancel := commandContext()
	defer cancel()

	list, err := workspace.NewAPI(loadClient()).List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("  No workspaces yet.")
		fmt.Println("  Create one: cloudcanvas workspace create <name>")
		return nil
	}

	current := state.Current()
	var rows [][]string
	for _, ws := range list {
		mark := " "
		if ws.ID == current {
			mark = ui.Good.Sprint("*")
		}
		updated := "-"
		if !ws.UpdatedAt.IsZero() {
			updated = ws.UpdatedAt.Local().Format("Jan 02 15:04")
		}
		rows = append(rows, []string{mark, ws.ID, ui.Brand.Sprint(ws.Name), updated})
	}
	ui.Table([]string{"", "ID", "Name", "Updated"}, rows)
	fmt.Printf("\n  %d workspaces\n", len(list))
	return nil
}

func workspaceCreateCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty workspace",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				ui.Bad.Println("  Workspace name is required")
				os.Exit(1)
			}

			ctx, cancel := commandContext()
			defer cancel()
			ws, err := workspace.NewAPI(loadClient()).Create(ctx, name)
			if err != nil {
				ui.Bad.Printf("  Failed to create workspace: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Created %s (%s)\n", ui.StatusIcon(true), ui.Brand.Sprint(ws.Name), ws.ID)

			if open {
				if err := state.Open(ws.ID, ws.Name); err != nil {
					ui.Warn.Printf("  Could not remember the open workspace: %v\n", err)
					return
				}
				record(activity.ActionOpen, ws.ID, "", ws.Name, nil)
				fmt.Println("  Opened. Add a component: cloudcanvas node add <componentId>")
			}
		},
	}

	cmd.Flags().BoolVar(&open, "open", true, "Open the new workspace")
	return cmd
}

func workspaceOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "open <id>",
		Short:             "Open a workspace for editing",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: workspaceCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			id := args[0]
			ctx, cancel := commandContext()
			defer cancel()

			b, err := openBoard(ctx, id)
			if err != nil {
				reportLoadError(id, err)
				if errors.Is(err, workspace.ErrNotFound) {
					fmt.Println()
					_ = printWorkspaces()
				}
				os.Exit(1)
			}
			defer b.Close()

			ws, _ := b.store.Workspace()
			if err := state.Open(id, ws.Name); err != nil {
				ui.Bad.Printf("  Could not remember the open workspace: %v\n", err)
				os.Exit(1)
			}
			record(activity.ActionOpen, id, "", ws.Name, nil)

			ui.Good.Printf("  %s Opened %s\n", ui.StatusIcon(true), ui.Brand.Sprint(ws.Name))
			fmt.Printf("  %d components, %d connections\n", len(b.store.Nodes()), len(b.store.Edges()))
		},
	}
}

func workspaceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the nodes and connections of the open workspace",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := commandContext()
			defer cancel()

			b := mustOpenBoard(ctx)
			defer b.Close()
			printBoard(b)
		},
	}
}

func printBoard(b *board) {
	ws, _ := b.store.Workspace()
	ui.Banner(ws.Name)

	nodes := b.store.Nodes()
	if len(nodes) == 0 {
		fmt.Println("  The canvas is empty.")
		fmt.Println("  Add a component: cloudcanvas node add <componentId>")
		return
	}

	var rows [][]string
	for _, n := range nodes {
		rows = append(rows, []string{
			shortID(n.ID),
			ui.Brand.Sprint(n.Label),
			n.ComponentID,
			fmt.Sprintf("%.0f, %.0f", n.Position.X, n.Position.Y),
			fmt.Sprintf("%d", len(n.Overrides)),
		})
	}
	ui.Table([]string{"Node", "Label", "Component", "Position", "Overrides"}, rows)

	edges := b.store.Edges()
	if len(edges) > 0 {
		labels := make(map[string]string, len(nodes))
		for _, n := range nodes {
			labels[n.ID] = n.Label
		}
		fmt.Println()
		fmt.Println("  Connections:")
		for _, e := range edges {
			fmt.Printf("    %s %s %s\n", labels[e.Source], ui.Subtle.Sprint("->"), labels[e.Target])
		}
	}

	if vp, ok := b.ctrl.Viewport(); ok {
		fmt.Printf("\n  %s\n", ui.Subtle.Sprintf("Viewport x=%.0f y=%.0f zoom=%.2f", vp.X, vp.Y, vp.Zoom))
	}
}

func workspaceCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the open workspace",
		Run: func(cmd *cobra.Command, args []string) {
			if err := state.Close(); err != nil {
				ui.Bad.Printf("  Failed to close workspace: %v\n", err)
				os.Exit(1)
			}
			ui.Good.Printf("  %s Closed\n", ui.StatusIcon(true))
		},
	}
}
