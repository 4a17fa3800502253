// Package panels computes the canvas side panels: the monthly cost
// breakdown and the architecture summary.
package panels

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

// CostPath is the cost calculation endpoint.
const CostPath = "/api/cost/calculate"

// ErrSuperseded is returned by Refresh when a newer node list was requested
// while the call was in flight. The result is cached but not shown.
const ErrSuperseded = errors.ConstError("cost request superseded")

// maxCached bounds the number of breakdowns kept per panel.
const maxCached = 64

// DefaultCostTimeout bounds one shared cost request.
const DefaultCostTimeout = 15 * time.Second

// CostCalculator is the request surface the cost panel needs.
// *apiclient.Client satisfies it.
type CostCalculator interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Item is one line of a breakdown.
type Item struct {
	NodeID        string  `json:"nodeId,omitempty"`
	ComponentID   string  `json:"componentId,omitempty"`
	ComponentName string  `json:"componentName"`
	Cost          float64 `json:"cost"`
}

// Breakdown is the calculator's answer for one node list.
type Breakdown struct {
	TotalCost float64 `json:"total_cost"`
	Items     []Item  `json:"breakdown"`
}

func (b Breakdown) clone() Breakdown {
	b.Items = append([]Item{}, b.Items...)
	return b
}

// CategoryTotal is the summed cost of one category.
type CategoryTotal struct {
	Category string
	Cost     float64
}

// ByCategory sums items per category, largest first. Items categoryOf
// cannot place are counted as Compute.
func ByCategory(items []Item, categoryOf func(Item) string) []CategoryTotal {
	sums := map[string]float64{}
	for _, it := range items {
		cat := ""
		if categoryOf != nil {
			cat = categoryOf(it)
		}
		if cat == "" {
			cat = "Compute"
		}
		sums[cat] += it.Cost
	}
	out := make([]CategoryTotal, 0, len(sums))
	for cat, cost := range sums {
		out = append(out, CategoryTotal{Category: cat, Cost: cost})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost > out[j].Cost
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// FormatUSD renders an amount the way the panel shows it.
func FormatUSD(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// CostPanel fetches cost breakdowns for node lists. It makes at most one
// request per distinct list: equal lists are answered from its cache and
// concurrent refreshes of the same list share one request.
type CostPanel struct {
	api     CostCalculator
	logger  zerolog.Logger
	timeout time.Duration
	flight  singleflight.Group

	mu      sync.Mutex
	want    string
	current Breakdown
	shown   bool
	loading int
	cache   map[string]Breakdown
	order   []string
}

// CostOption configures a CostPanel.
type CostOption func(*CostPanel)

// WithCostLogger sets the diagnostic logger.
func WithCostLogger(l zerolog.Logger) CostOption {
	return func(p *CostPanel) { p.logger = l }
}

// WithCostTimeout bounds each shared request. A shared request runs
// detached from the callers' contexts, so this is what stops it.
func WithCostTimeout(d time.Duration) CostOption {
	return func(p *CostPanel) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewCostPanel returns a panel showing an empty breakdown.
func NewCostPanel(api CostCalculator, opts ...CostOption) *CostPanel {
	p := &CostPanel{
		api:     api,
		logger:  zerolog.Nop(),
		timeout: DefaultCostTimeout,
		current: Breakdown{Items: []Item{}},
		cache:   make(map[string]Breakdown),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Refresh shows the breakdown for nodes. An empty list shows a zero total
// without a request. On failure the previous breakdown stays on display.
func (p *CostPanel) Refresh(ctx context.Context, nodes []workspace.CostNode) (Breakdown, error) {
	key, err := CostKey(nodes)
	if err != nil {
		return Breakdown{}, errors.Trace(err)
	}
	if b, done := p.begin(key); done {
		return b, nil
	}
	return p.fetch(ctx, key, nodes)
}

// Current returns the breakdown on display and whether one has been shown.
func (p *CostPanel) Current() (Breakdown, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.clone(), p.shown
}

// Loading reports whether a request is in flight.
func (p *CostPanel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading > 0
}

// Watch refreshes the panel after every node change in src. onUpdate, if
// non-nil, runs after each refresh that is not superseded.
func (p *CostPanel) Watch(ctx context.Context, src Source, onUpdate func(Breakdown, error)) (cancel func()) {
	refresh := func() {
		nodes := src.CostNodes()
		key, err := CostKey(nodes)
		if err != nil {
			p.logger.Error().Err(err).Msg("encoding cost request")
			return
		}
		if b, done := p.begin(key); done {
			if onUpdate != nil {
				onUpdate(b, nil)
			}
			return
		}
		go func() {
			b, err := p.fetch(ctx, key, nodes)
			if errors.Is(err, ErrSuperseded) {
				return
			}
			if onUpdate != nil {
				onUpdate(b, err)
			}
		}()
	}
	unsubscribe := src.Subscribe(func(c workspace.Change) {
		if c.Kind == workspace.ChangeEdges {
			return
		}
		refresh()
	})
	refresh()
	return unsubscribe
}

// begin records key as the wanted list. It reports done when the answer
// is already known.
func (p *CostPanel) begin(key string) (Breakdown, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.want = key
	if key == emptyKey {
		p.current = Breakdown{Items: []Item{}}
		p.shown = true
		return p.current.clone(), true
	}
	if b, ok := p.cache[key]; ok {
		p.current = b
		p.shown = true
		return b.clone(), true
	}
	return Breakdown{}, false
}

func (p *CostPanel) fetch(ctx context.Context, key string, nodes []workspace.CostNode) (Breakdown, error) {
	p.mu.Lock()
	p.loading++
	p.mu.Unlock()

	// The shared request outlives any one caller: a caller whose context
	// ends stops waiting, the others still get the answer.
	ch := p.flight.DoChan(key, func() (any, error) {
		p.mu.Lock()
		b, ok := p.cache[key]
		p.mu.Unlock()
		if ok {
			return b, nil
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		var resp Breakdown
		body := map[string]any{"nodes": nodes}
		if err := p.api.Post(callCtx, CostPath, body, &resp); err != nil {
			return nil, err
		}
		if resp.Items == nil {
			resp.Items = []Item{}
		}
		p.mu.Lock()
		p.remember(key, resp)
		p.mu.Unlock()
		return resp, nil
	})

	var (
		v   any
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading--
	if err != nil {
		p.logger.Error().Err(err).Int("nodes", len(nodes)).Msg("calculating cost")
		return p.current.clone(), errors.Annotate(err, "calculating cost")
	}
	b := v.(Breakdown)
	if p.want != key {
		p.logger.Debug().Msg("discarding superseded cost breakdown")
		return b.clone(), errors.Trace(ErrSuperseded)
	}
	p.current = b
	p.shown = true
	return b.clone(), nil
}

func (p *CostPanel) remember(key string, b Breakdown) {
	if _, ok := p.cache[key]; !ok {
		p.order = append(p.order, key)
	}
	p.cache[key] = b
	for len(p.order) > maxCached {
		delete(p.cache, p.order[0])
		p.order = p.order[1:]
	}
}

const emptyKey = "[]"

// CostKey is the canonical encoding of a node list. Two lists get the same
// key exactly when they are structurally equal; nil and empty overrides
// are the same value.
func CostKey(nodes []workspace.CostNode) (string, error) {
	norm := make([]workspace.CostNode, len(nodes))
	for i, n := range nodes {
		if n.ConfigOverrides == nil {
			n.ConfigOverrides = map[string]any{}
		}
		norm[i] = n
	}
	data, err := json.Marshal(norm)
	if err != nil {
		return "", errors.Annotate(err, "encoding node list")
	}
	return string(data), nil
}
