package cmd

import (
	"context"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/activity"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <source> <target>",
		Short: "Draw a connection between two nodes",
		Long: `Draw an arrow from one node to another. Connections are part of the
picture only; they do not change cost or configuration and are kept on
this machine.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			withBoard(func(ctx context.Context, b *board) error {
				return connectNodes(b, args[0], args[1])
			})
		},
	}
}

func connectNodes(b *board, sourceRef, targetRef string) error {
	src, err := b.node(sourceRef)
	if err != nil {
		return err
	}
	dst, err := b.node(targetRef)
	if err != nil {
		return err
	}

	edge, ok := b.ctrl.Connect(src.ID, dst.ID)
	if !ok {
		if src.ID == dst.ID {
			return errors.New("a node cannot connect to itself")
		}
		return errors.AlreadyExistsf("connection %s -> %s", src.Label, dst.Label)
	}
	record(activity.ActionConnect, b.id, src.ID, dst.ID, nil)
	ui.Good.Printf("  %s Connected %s -> %s\n", ui.StatusIcon(true),
		ui.Brand.Sprint(nodeLabel(b, edge.Source)), ui.Brand.Sprint(nodeLabel(b, edge.Target)))
	return nil
}
