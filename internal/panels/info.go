package panels

import (
	"context"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

// UnknownCategory groups nodes whose component is no longer in the catalog.
const UnknownCategory = "Unknown"

// Source is the store surface the panels read.
type Source interface {
	Nodes() []workspace.Node
	Edges() []workspace.Edge
	CostNodes() []workspace.CostNode
	Subscribe(fn func(workspace.Change)) (cancel func())
}

// ComponentSource resolves component definitions.
type ComponentSource interface {
	Get(ctx context.Context, id string) (catalog.ComponentDefinition, error)
}

// CategoryCount is the number of nodes in one category.
type CategoryCount struct {
	Category string
	Count    int
}

// Info summarises the canvas.
type Info struct {
	Nodes      int
	Edges      int
	Categories []CategoryCount
	// Components lists distinct component names, sorted.
	Components []string
}

// InfoPanel derives the architecture summary from the store and catalog.
type InfoPanel struct {
	components ComponentSource
	logger     zerolog.Logger

	mu      sync.Mutex
	ticket  uint64
	current Info
}

// InfoOption configures an InfoPanel.
type InfoOption func(*InfoPanel)

// WithInfoLogger sets the diagnostic logger.
func WithInfoLogger(l zerolog.Logger) InfoOption {
	return func(p *InfoPanel) { p.logger = l }
}

func NewInfoPanel(components ComponentSource, opts ...InfoOption) *InfoPanel {
	p := &InfoPanel{components: components, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refresh recomputes the summary for the given graph. Lookups that fail
// for reasons other than a missing component abort the refresh and leave
// the previous summary in place.
func (p *InfoPanel) Refresh(ctx context.Context, nodes []workspace.Node, edges []workspace.Edge) (Info, error) {
	return p.compute(ctx, p.nextTicket(), nodes, edges)
}

func (p *InfoPanel) nextTicket() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticket++
	return p.ticket
}

func (p *InfoPanel) compute(ctx context.Context, ticket uint64, nodes []workspace.Node, edges []workspace.Edge) (Info, error) {
	counts := map[string]int{}
	names := map[string]struct{}{}
	defs := map[string]catalog.ComponentDefinition{}
	missing := map[string]bool{}
	for _, n := range nodes {
		def, ok := defs[n.ComponentID]
		if !ok && !missing[n.ComponentID] {
			d, err := p.components.Get(ctx, n.ComponentID)
			switch {
			case errors.Is(err, catalog.ErrComponentNotFound):
				missing[n.ComponentID] = true
			case err != nil:
				p.logger.Error().Err(err).Str("componentId", n.ComponentID).Msg("summarising canvas")
				return p.Current(), errors.Annotatef(err, "looking up %q", n.ComponentID)
			default:
				def, ok = d, true
				defs[n.ComponentID] = d
			}
		}
		if !ok {
			counts[UnknownCategory]++
			names[n.Label] = struct{}{}
			continue
		}
		counts[catalog.CategoryOf(def)]++
		names[def.Name] = struct{}{}
	}

	info := Info{Nodes: len(nodes), Edges: len(edges)}
	for cat, n := range counts {
		info.Categories = append(info.Categories, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(info.Categories, func(i, j int) bool {
		a, b := info.Categories[i], info.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	for name := range names {
		if name != "" {
			info.Components = append(info.Components, name)
		}
	}
	sort.Strings(info.Components)

	p.mu.Lock()
	defer p.mu.Unlock()
	if ticket == p.ticket {
		p.current = info
	}
	return info, nil
}

// Current returns the last computed summary.
func (p *InfoPanel) Current() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := p.current
	cp.Categories = append([]CategoryCount(nil), p.current.Categories...)
	cp.Components = append([]string(nil), p.current.Components...)
	return cp
}

// Watch recomputes the summary after every change in src.
func (p *InfoPanel) Watch(ctx context.Context, src Source, onUpdate func(Info, error)) (cancel func()) {
	refresh := func() {
		nodes, edges := src.Nodes(), src.Edges()
		ticket := p.nextTicket()
		go func() {
			info, err := p.compute(ctx, ticket, nodes, edges)
			if onUpdate != nil {
				onUpdate(info, err)
			}
		}()
	}
	unsubscribe := src.Subscribe(func(workspace.Change) { refresh() })
	refresh()
	return unsubscribe
}
