package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/msalah0e/cloudcanvas/internal/activity"
	"github.com/msalah0e/cloudcanvas/internal/canvas"
	"github.com/msalah0e/cloudcanvas/internal/editor"
	"github.com/msalah0e/cloudcanvas/internal/panels"
	"github.com/msalah0e/cloudcanvas/internal/state"
	"github.com/msalah0e/cloudcanvas/internal/ui"
)

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [workspaceId]",
		Short: "Interactive canvas session",
		Long: `Open a workspace and edit it interactively. The cost estimate in the
prompt follows every change. Type 'help' for the list of gestures.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: workspaceCompletionFunc,
		Run: func(cmd *cobra.Command, args []string) {
			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				id = currentWorkspace()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			b, err := openBoard(ctx, id)
			if err != nil {
				reportLoadError(id, err)
				os.Exit(1)
			}
			defer b.Close()

			ws, _ := b.store.Workspace()
			if err := state.Open(id, ws.Name); err != nil {
				log := loadLogger()
				log.Warn().Err(err).Msg("storing open workspace")
			}
			record(activity.ActionOpen, id, "", ws.Name, nil)

			sh := newShell(b, bufio.NewScanner(os.Stdin))
			stopCost := sh.cost.Watch(ctx, b.store, sh.onCost)
			defer stopCost()
			stopInfo := sh.info.Watch(ctx, b.store, nil)
			defer stopInfo()

			ui.Banner(ws.Name)
			fmt.Println(ui.Subtle.Sprint("  Type 'help' for commands, 'quit' to leave."))
			sh.run(ctx)
		},
	}
}

type shell struct {
	board *board
	in    *bufio.Scanner
	cost  *panels.CostPanel
	info  *panels.InfoPanel

	mu      sync.Mutex
	total   string
	costErr error
}

func newShell(b *board, in *bufio.Scanner) *shell {
	log := loadLogger()
	return &shell{
		board: b,
		in:    in,
		cost:  panels.NewCostPanel(loadClient(), panels.WithCostLogger(log), panels.WithCostTimeout(loadConfig().Timeout())),
		info:  panels.NewInfoPanel(loadCatalog(), panels.WithInfoLogger(log)),
		total: "...",
	}
}

func (s *shell) onCost(bd panels.Breakdown, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, panels.ErrSuperseded) {
		return
	}
	s.costErr = err
	if err == nil {
		s.total = panels.FormatUSD(bd.TotalCost)
	}
}

func (s *shell) prompt() string {
	s.mu.Lock()
	total := s.total
	if s.costErr != nil {
		total += "?"
	}
	s.mu.Unlock()

	ws, _ := s.board.store.Workspace()
	return fmt.Sprintf("%s %s> ", ui.Brand.Sprint(ws.Name), ui.Money.Sprint(total))
}

func (s *shell) confirm(prompt string) bool {
	fmt.Printf("  %s [y/N] ", prompt)
	if !s.in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s.in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *shell) run(ctx context.Context) {
	for {
		fmt.Print(s.prompt())
		if !s.in.Scan() {
			fmt.Println()
			return
		}
		fields := strings.Fields(s.in.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" || fields[0] == "q" {
			return
		}
		if err := s.exec(ctx, fields[0], fields[1:]); err != nil {
			ui.Bad.Printf("  %v\n", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, verb string, args []string) error {
	b := s.board
	switch verb {
	case "help", "?":
		printShellHelp()
	case "show", "ls":
		printBoard(b)
	case "palette", "components":
		defs, err := loadCatalog().List(ctx)
		if err != nil {
			return err
		}
		for _, d := range defs {
			fmt.Printf("  %-18s %s\n", d.ID, ui.Subtle.Sprint(d.Name))
		}
	case "add":
		if len(args) != 1 && len(args) != 3 {
			return errors.New("usage: add <componentId> [x y]")
		}
		at := canvas.Point{X: 100, Y: 100}
		if len(args) == 3 {
			p, err := parsePoint(args[1], args[2])
			if err != nil {
				return err
			}
			at = p
		}
		return addNode(ctx, b, args[0], at)
	case "move":
		if len(args) != 3 {
			return errors.New("usage: move <node> <x> <y>")
		}
		p, err := parsePoint(args[1], args[2])
		if err != nil {
			return err
		}
		return moveNode(ctx, b, args[0], p)
	case "open", "config":
		if len(args) != 1 {
			return errors.New("usage: open <node>")
		}
		return showNodeConfig(ctx, b, args[0])
	case "set":
		if len(args) == 0 {
			return errors.New("usage: set [node] key=value...")
		}
		// Without a node the open panel's node is edited.
		if strings.Contains(args[0], "=") {
			view, ok := b.editor.Current()
			if !ok {
				return errors.New("no component open, use: open <node>")
			}
			return setNodeFields(ctx, b, view.Node.ID, args)
		}
		if len(args) < 2 {
			return errors.New("usage: set [node] key=value...")
		}
		return setNodeFields(ctx, b, args[0], args[1:])
	case "close":
		b.editor.Close()
	case "rm", "delete":
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		} else if view, ok := b.editor.Current(); ok {
			ref = view.Node.ID
		} else {
			return errors.New("usage: rm <node>")
		}
		return removeNode(ctx, b, ref, editor.ConfirmFunc(s.confirm))
	case "connect":
		if len(args) != 2 {
			return errors.New("usage: connect <source> <target>")
		}
		return connectNodes(b, args[0], args[1])
	case "cost":
		return showCost(ctx, b, s.cost, false)
	case "info":
		info := s.info.Current()
		fmt.Printf("  %d components, %d connections\n", info.Nodes, info.Edges)
		for _, c := range info.Categories {
			fmt.Printf("    %-12s %d\n", c.Category, c.Count)
		}
	case "view":
		vp, _ := b.ctrl.Viewport()
		if len(args) == 0 {
			printViewport(vp)
			return nil
		}
		if len(args) != 3 {
			return errors.New("usage: view [x y zoom]")
		}
		nums, err := parseFloats(args...)
		if err != nil {
			return err
		}
		if nums[2] <= 0 {
			return errors.New("zoom must be greater than zero")
		}
		vp = canvas.Viewport{X: nums[0], Y: nums[1], Zoom: nums[2]}
		b.ctrl.SetViewport(&vp)
		if err := state.SetViewport(b.id, vp); err != nil {
			return err
		}
		printViewport(vp)
	case "reload":
		if err := b.store.Load(ctx, b.id); err != nil {
			return err
		}
		b.store.RestoreEdges(state.Edges(b.id))
		fmt.Printf("  Reloaded, %d components\n", len(b.store.Nodes()))
	case "save":
		err := b.store.Save(ctx)
		record(activity.ActionSave, b.id, "", "", err)
		if reportSave(err) {
			ui.Good.Printf("  %s Saved\n", ui.StatusIcon(true))
		}
	default:
		return errors.Errorf("unknown command %q, type 'help'", verb)
	}
	return nil
}

func parsePoint(x, y string) (canvas.Point, error) {
	nums, err := parseFloats(x, y)
	if err != nil {
		return canvas.Point{}, err
	}
	return canvas.Point{X: nums[0], Y: nums[1]}, nil
}

func parseFloats(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, r := range raw {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return nil, errors.NotValidf("number %q", r)
		}
		out[i] = v
	}
	return out, nil
}

func printShellHelp() {
	rows := [][]string{
		{"show", "list nodes and connections"},
		{"palette", "list placeable components"},
		{"add <component> [x y]", "drop a component at screen x,y"},
		{"move <node> <x> <y>", "drag a node"},
		{"open <node>", "open the configuration panel"},
		{"set [node] key=value...", "edit fields of a node or the open panel"},
		{"close", "close the panel"},
		{"rm [node]", "remove a node (asks first)"},
		{"connect <a> <b>", "draw a connection"},
		{"cost", "cost breakdown"},
		{"info", "architecture summary"},
		{"view [x y zoom]", "show or set pan and zoom"},
		{"reload", "reload from the backend"},
		{"save", "save again"},
		{"quit", "leave the shell"},
	}
	ui.Table([]string{"Command", "Does"}, rows)
}
