package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/canvas"
	"github.com/msalah0e/cloudcanvas/internal/state"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Pan and zoom the canvas",
		Run: func(cmd *cobra.Command, args []string) {
			id := currentWorkspace()
			vp, ok := state.Viewport(id)
			if !ok {
				vp = canvas.DefaultViewport()
			}
			printViewport(vp)
		},
	}

	cmd.AddCommand(viewSetCmd(), viewResetCmd())
	return cmd
}

func printViewport(vp canvas.Viewport) {
	fmt.Printf("  Pan:  %.0f, %.0f\n", vp.X, vp.Y)
	fmt.Printf("  Zoom: %.2f\n", vp.Zoom)
	origin := vp.Project(canvas.Point{}, canvasBounds)
	fmt.Println(ui.Subtle.Sprintf("  Screen origin shows %.0f, %.0f on the canvas", origin.X, origin.Y))
}

func viewSetCmd() *cobra.Command {
	var x, y, zoom float64

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the pan offset and zoom",
		Run: func(cmd *cobra.Command, args []string) {
			id := currentWorkspace()
			vp, ok := state.Viewport(id)
			if !ok {
				vp = canvas.DefaultViewport()
			}
			if cmd.Flags().Changed("x") {
				vp.X = x
			}
			if cmd.Flags().Changed("y") {
				vp.Y = y
			}
			if cmd.Flags().Changed("zoom") {
				if zoom <= 0 {
					ui.Bad.Println("  Zoom must be greater than zero")
					os.Exit(1)
				}
				vp.Zoom = zoom
			}
			if err := state.SetViewport(id, vp); err != nil {
				ui.Bad.Printf("  Failed to store viewport: %v\n", err)
				os.Exit(1)
			}
			printViewport(vp)
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "Pan offset x")
	cmd.Flags().Float64Var(&y, "y", 0, "Pan offset y")
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "Zoom factor")
	return cmd
}

func viewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset pan and zoom",
		Run: func(cmd *cobra.Command, args []string) {
			id := currentWorkspace()
			vp := canvas.DefaultViewport()
			if err := state.SetViewport(id, vp); err != nil {
				ui.Bad.Printf("  Failed to store viewport: %v\n", err)
				os.Exit(1)
			}
			printViewport(vp)
		},
	}
}
