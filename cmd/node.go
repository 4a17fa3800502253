package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/activity"
	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/canvas"
	"github.com/msalah0e/cloudcanvas/internal/editor"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "node",
		Aliases: []string{"nodes"},
		Short:   "Place, move, configure and remove components on the canvas",
	}

	cmd.AddCommand(
		nodeAddCmd(),
		nodeMoveCmd(),
		nodeConfigCmd(),
		nodeSetCmd(),
		nodeRemoveCmd(),
	)

	return cmd
}

// withBoard runs fn against the open workspace and exits 1 when it fails.
func withBoard(fn func(ctx context.Context, b *board) error) {
	ctx, cancel := commandContext()
	defer cancel()

	b := mustOpenBoard(ctx)
	defer b.Close()
	if err := fn(ctx, b); err != nil {
		ui.Bad.Printf("  %v\n", err)
		os.Exit(1)
	}
}

func nodeAddCmd() *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "add <componentId>",
		Short: "Drop a component onto the canvas",
		Long: `Drop a component from the palette onto the open canvas.

--x and --y are screen coordinates on the canvas; they are mapped through
the current viewport (see cloudcanvas view).

  cloudcanvas node add aws-ec2
  cloudcanvas node add aws-s3 --x 420 --y 180`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: componentCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return addNode(ctx, b, args[0], canvas.Point{X: x, Y: y})
			})
		},
	}

	cmd.Flags().Float64Var(&x, "x", 100, "Drop point x on screen")
	cmd.Flags().Float64Var(&y, "y", 100, "Drop point y on screen")
	return cmd
}

func addNode(ctx context.Context, b *board, componentID string, at canvas.Point) error {
	def, err := loadCatalog().Get(ctx, componentID)
	if errors.Is(err, catalog.ErrComponentNotFound) {
		return errors.Errorf("component %q not found, see cloudcanvas components", componentID)
	}
	if err != nil {
		return err
	}

	dt, err := canvas.DragStart(def)
	if err != nil {
		return err
	}
	node, err := b.ctrl.Drop(ctx, canvas.DropEvent{Data: dt, Client: at, Bounds: canvasBounds})
	if node == nil && err == nil {
		return errors.New("drop ignored, the canvas is not ready")
	}
	record(activity.ActionAdd, b.id, node.ID, def.ID, err)
	if reportSave(err) {
		ui.Good.Printf("  %s Placed %s as %s at %.0f, %.0f\n", ui.StatusIcon(true),
			ui.Brand.Sprint(node.Label), shortID(node.ID), node.Position.X, node.Position.Y)
	}
	return nil
}

func nodeMoveCmd() *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "move <nodeId> --x <x> --y <y>",
		Short: "Drag a node to a new screen position",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return moveNode(ctx, b, args[0], canvas.Point{X: x, Y: y})
			})
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "Screen x")
	cmd.Flags().Float64Var(&y, "y", 0, "Screen y")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}

func moveNode(ctx context.Context, b *board, ref string, to canvas.Point) error {
	n, err := b.node(ref)
	if err != nil {
		return err
	}
	vp, _ := b.ctrl.Viewport()
	pos := vp.Project(to, canvasBounds)

	err = b.ctrl.MoveNode(ctx, n.ID, pos)
	record(activity.ActionMove, b.id, n.ID, fmt.Sprintf("%.0f,%.0f", pos.X, pos.Y), err)
	if reportSave(err) {
		ui.Good.Printf("  %s Moved %s to %.0f, %.0f\n", ui.StatusIcon(true), ui.Brand.Sprint(n.Label), pos.X, pos.Y)
	}
	return nil
}

func nodeConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "config <nodeId>",
		Aliases: []string{"show"},
		Short:   "Show a node's configuration panel",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return showNodeConfig(ctx, b, args[0])
			})
		},
	}
}

func openEditor(ctx context.Context, b *board, ref string) (*editor.View, error) {
	n, err := b.node(ref)
	if err != nil {
		return nil, err
	}
	view, err := b.editor.Open(ctx, n.ID)
	if errors.Is(err, editor.ErrUnknownNode) {
		return nil, errors.NotFoundf("node %q", ref)
	}
	return view, err
}

func showNodeConfig(ctx context.Context, b *board, ref string) error {
	view, err := openEditor(ctx, b, ref)
	if view == nil {
		return err
	}
	printView(view)
	return err
}

func printView(v *editor.View) {
	ui.Banner(v.Node.Label)
	fmt.Printf("  Node:      %s\n", v.Node.ID)
	fmt.Printf("  Component: %s\n", v.Node.ComponentID)

	switch v.State {
	case editor.StateNotFound:
		fmt.Println()
		ui.Warn.Printf("  %s %s\n", ui.WarnIcon(), v.Message)
		fmt.Println("  The node can still be moved or removed.")
		return
	case editor.StateError:
		fmt.Println()
		ui.Bad.Printf("  %s %s\n", ui.StatusIcon(false), v.Message)
		return
	case editor.StateLoading:
		fmt.Println("  Loading...")
		return
	}

	fmt.Printf("  Category:  %s\n", catalog.CategoryOf(v.Definition))
	fmt.Printf("  Spec:      %s\n\n", catalog.Summary(v.Definition))

	var rows [][]string
	for _, f := range v.Fields {
		value := fmt.Sprint(v.Effective[f.Key])
		if _, ok := v.Node.Overrides[f.Key]; ok && fmt.Sprint(v.Definition.Config[f.Key]) != value {
			value = ui.Info.Sprint(value)
		}
		hint := string(f.Type)
		if len(f.Options) > 0 {
			hint = strings.Join(f.Options, "|")
		}
		rows = append(rows, []string{f.Key, f.DisplayLabel(), value, ui.Subtle.Sprint(hint)})
	}
	ui.Table([]string{"Key", "Field", "Value", "Accepts"}, rows)
	fmt.Println(ui.Subtle.Sprint("\n  Change a value: cloudcanvas node set " + shortID(v.Node.ID) + " key=value"))
}

func nodeSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <nodeId> key=value...",
		Short: "Edit configuration fields of a node",
		Long: `Edit one or more configuration fields. Values are checked against the
field's type and constraints; nothing is written if any value is invalid.

  cloudcanvas node set node-1a2b instanceType=t3.small hoursPerMonth=365`,
		Args: cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return setNodeFields(ctx, b, args[0], args[1:])
			})
		},
	}
}

func parseAssignments(pairs []string) (map[string]string, error) {
	edits := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NotValidf("assignment %q (want key=value)", p)
		}
		edits[key] = value
	}
	return edits, nil
}

func setNodeFields(ctx context.Context, b *board, ref string, pairs []string) error {
	edits, err := parseAssignments(pairs)
	if err != nil {
		return err
	}
	view, err := openEditor(ctx, b, ref)
	if err != nil {
		return err
	}
	if view.State != editor.StateReady {
		return errors.Errorf("%s: %s", view.Node.Label, view.Message)
	}

	err = b.editor.SetFields(ctx, edits)
	var fe *editor.FieldError
	if errors.As(err, &fe) {
		return errors.Errorf("%v (nothing was changed)", fe)
	}
	record(activity.ActionConfig, b.id, view.Node.ID, strings.Join(pairs, " "), err)
	if reportSave(err) {
		ui.Good.Printf("  %s Updated %s\n", ui.StatusIcon(true), ui.Brand.Sprint(view.Node.Label))
	}
	return nil
}

func nodeRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <nodeId>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a node and its connections",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			confirm := promptConfirmer(os.Stdin, os.Stdout)
			if yes {
				confirm = editor.ConfirmFunc(func(string) bool { return true })
			}
			withBoard(func(ctx context.Context, b *board) error {
				return removeNode(ctx, b, args[0], confirm)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func removeNode(ctx context.Context, b *board, ref string, confirm editor.Confirmer) error {
	view, err := openEditor(ctx, b, ref)
	if view == nil {
		return err
	}
	deleted, err := b.editor.Delete(ctx, confirm)
	if !deleted {
		if err == nil {
			fmt.Println("  Kept.")
		}
		return err
	}
	record(activity.ActionDelete, b.id, view.Node.ID, view.Node.ComponentID, err)
	if reportSave(err) {
		ui.Good.Printf("  %s Removed %s\n", ui.StatusIcon(true), ui.Brand.Sprint(view.Node.Label))
	}
	return nil
}

// promptConfirmer asks on out and reads a y/N answer from in.
func promptConfirmer(in io.Reader, out io.Writer) editor.Confirmer {
	reader := bufio.NewReader(in)
	return editor.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "  %s [y/N] ", prompt)
		answer, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

// nodeLabel is used by commands that only have an id at hand.
func nodeLabel(b *board, id string) string {
	if n, ok := b.store.Node(id); ok {
		return n.Label
	}
	return id
}
