package workspace

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/msalah0e/cloudcanvas/internal/catalog"
	"github.com/msalah0e/cloudcanvas/internal/parallel"
)

// Labeler resolves a component id to its display name.
type Labeler interface {
	Label(ctx context.Context, componentID string) string
}

// ChangeKind says what kind of mutation a Change describes.
type ChangeKind int

const (
	ChangeLoaded ChangeKind = iota
	ChangeNodes
	ChangeEdges
	ChangeSaved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeLoaded:
		return "loaded"
	case ChangeNodes:
		return "nodes"
	case ChangeEdges:
		return "edges"
	case ChangeSaved:
		return "saved"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind ChangeKind
	// Removed lists node ids that no longer exist.
	Removed []string
	// Rekeyed maps old node ids to the ids the server assigned.
	Rekeyed map[string]string
}

// Store owns the node and edge lists of the open workspace. All methods
// are safe for concurrent use; network calls never hold the lock.
type Store struct {
	remote      Remote
	labels      Labeler
	newID       func() string
	concurrency int
	logger      zerolog.Logger

	mu    sync.Mutex
	ws    *Workspace
	nodes []Node
	edges []Edge
	// rev counts local node mutations. Edges are not persisted, so edge
	// edits leave it alone.
	rev uint64
	// issued and applied order save round-trips by issue time.
	issued  uint64
	applied uint64

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithConcurrency bounds label lookups during Load.
func WithConcurrency(n int) StoreOption {
	return func(s *Store) { s.concurrency = n }
}

// NewStore returns an empty store. labels may be nil, in which case
// unlabeled nodes show their component id.
func NewStore(remote Remote, labels Labeler, opts ...StoreOption) *Store {
	s := &Store{
		remote:      remote,
		labels:      labels,
		newID:       func() string { return "node-" + uuid.NewString() },
		concurrency: parallel.DefaultConcurrency,
		logger:      zerolog.Nop(),
		subs:        make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store's contents with the workspace id. On failure the
// previous contents are kept and the error matches ErrNotFound or
// ErrTransientFetch.
func (s *Store) Load(ctx context.Context, id string) error {
	ws, err := s.remote.Get(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("workspaceId", id).Msg("loading workspace")
		return classifyLoad(err, id)
	}

	labels, err := parallel.Map(ctx, ws.Nodes, s.concurrency, func(ctx context.Context, n Node) (string, error) {
		switch {
		case n.Label != "":
			return n.Label, nil
		case s.labels != nil:
			return s.labels.Label(ctx, n.ComponentID), nil
		}
		return n.ComponentID, nil
	})
	if err != nil {
		return classifyLoad(err, id)
	}

	nodes := make([]Node, len(ws.Nodes))
	for i, n := range ws.Nodes {
		n = n.clone()
		n.Label = labels[i]
		nodes[i] = n
	}
	nodes = dedupNodes(nodes)

	s.mu.Lock()
	var removed []string
	for _, n := range s.nodes {
		if indexOf(nodes, n.ID) < 0 {
			removed = append(removed, n.ID)
		}
	}
	s.ws = &Workspace{ID: ws.ID, Name: ws.Name, UpdatedAt: ws.UpdatedAt}
	s.nodes = nodes
	s.edges = nil
	s.rev++
	// Echoes of saves issued against the previous contents are stale now.
	s.applied = s.issued
	s.mu.Unlock()

	s.logger.Debug().Str("workspaceId", id).Int("nodes", len(nodes)).Msg("workspace loaded")
	s.notify(Change{Kind: ChangeLoaded, Removed: removed})
	return nil
}

// AddNode places a new node for def at pos and returns the updated list.
func (s *Store) AddNode(def catalog.ComponentDefinition, pos Position) []Node {
	s.mu.Lock()
	node := Node{
		ID:          s.uniqueID(),
		ComponentID: def.ID,
		Label:       def.Name,
		Position:    pos,
		Overrides:   map[string]any{},
	}
	if node.Label == "" {
		node.Label = def.ID
	}
	s.nodes = append(s.nodes, node)
	s.rev++
	out := cloneNodes(s.nodes)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeNodes})
	return out
}

// UpdateNodePosition moves a node. It reports false for unknown ids.
func (s *Store) UpdateNodePosition(id string, pos Position) bool {
	s.mu.Lock()
	i := indexOf(s.nodes, id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.nodes[i].Position = pos
	s.rev++
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeNodes})
	return true
}

// SetNodeConfig replaces one node's override map with a copy of
// overrides. Unknown ids are ignored.
func (s *Store) SetNodeConfig(id string, overrides map[string]any) bool {
	s.mu.Lock()
	i := indexOf(s.nodes, id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug().Str("nodeId", id).Msg("config update for unknown node ignored")
		return false
	}
	next := maps.Clone(overrides)
	if next == nil {
		next = map[string]any{}
	}
	s.nodes[i].Overrides = next
	s.rev++
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeNodes})
	return true
}

// RemoveNode deletes a node and every edge touching it.
func (s *Store) RemoveNode(id string) bool {
	s.mu.Lock()
	i := indexOf(s.nodes, id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.nodes = append(s.nodes[:i:i], s.nodes[i+1:]...)
	s.edges = pruneEdges(s.edges, s.nodes)
	s.rev++
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeNodes, Removed: []string{id}})
	return true
}

// AddEdge connects source to target. Self-loops, duplicates and edges to
// unknown nodes are rejected.
func (s *Store) AddEdge(source, target string, marker *Marker) (Edge, bool) {
	if source == "" || source == target {
		return Edge{}, false
	}

	s.mu.Lock()
	if indexOf(s.nodes, source) < 0 || indexOf(s.nodes, target) < 0 {
		s.mu.Unlock()
		return Edge{}, false
	}
	id := EdgeID(source, target)
	for _, e := range s.edges {
		if e.ID == id {
			s.mu.Unlock()
			return Edge{}, false
		}
	}
	edge := Edge{ID: id, Source: source, Target: target, MarkerEnd: marker}.clone()
	s.edges = append(s.edges, edge)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeEdges})
	return edge.clone(), true
}

// RemoveEdge deletes an edge by id.
func (s *Store) RemoveEdge(id string) bool {
	s.mu.Lock()
	for i, e := range s.edges {
		if e.ID == id {
			s.edges = append(s.edges[:i:i], s.edges[i+1:]...)
			s.mu.Unlock()
			s.notify(Change{Kind: ChangeEdges})
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// RestoreEdges adds previously saved edges, skipping any that would break
// the edge invariants. It returns how many were kept.
func (s *Store) RestoreEdges(edges []Edge) int {
	kept := 0
	for _, e := range edges {
		if _, ok := s.AddEdge(e.Source, e.Target, e.MarkerEnd); ok {
			kept++
		}
	}
	return kept
}

// Save sends the node list to the backend as a full replacement. On
// success the store adopts the server's copy; on failure nothing changes
// and the error matches ErrPersistence.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.ws == nil {
		s.mu.Unlock()
		return errors.WithType(errors.Trace(ErrNoWorkspace), ErrPersistence)
	}
	s.issued++
	seq := s.issued
	id := s.ws.ID
	rev := s.rev
	payload := cloneNodes(s.nodes)
	s.mu.Unlock()

	echo, err := s.remote.Replace(ctx, id, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("workspaceId", id).Uint64("seq", seq).Msg("saving workspace")
		return errors.WithType(errors.Annotatef(err, "saving workspace %q", id), ErrPersistence)
	}

	s.reconcile(seq, id, rev, payload, echo)
	return nil
}

// reconcile folds a save echo into the store. Echoes older than one
// already applied are dropped. When the nodes changed locally after the
// save was issued only the id mapping is taken from the echo.
func (s *Store) reconcile(seq uint64, id string, rev uint64, payload []Node, echo *Workspace) {
	s.mu.Lock()
	if s.ws == nil || s.ws.ID != id || seq <= s.applied {
		s.mu.Unlock()
		s.logger.Debug().Str("workspaceId", id).Uint64("seq", seq).Msg("discarding stale save response")
		return
	}
	s.applied = seq

	if echo.Name != "" {
		s.ws.Name = echo.Name
	}
	if !echo.UpdatedAt.IsZero() {
		s.ws.UpdatedAt = echo.UpdatedAt
	}

	var rekeyed map[string]string
	var removed []string
	if echo.Nodes != nil && uniqueIDs(echo.Nodes) {
		rekeyed = rekeyMap(payload, echo.Nodes)
		if s.rev == rev {
			next := make([]Node, len(echo.Nodes))
			for i, n := range echo.Nodes {
				n = n.clone()
				if n.Label == "" {
					n.Label = labelFor(n, payload, i)
				}
				next[i] = n
			}
			for _, n := range s.nodes {
				if _, moved := rekeyed[n.ID]; !moved && indexOf(next, n.ID) < 0 {
					removed = append(removed, n.ID)
				}
			}
			s.nodes = next
		} else {
			for i := range s.nodes {
				if nid, ok := rekeyed[s.nodes[i].ID]; ok && indexOf(s.nodes, nid) < 0 {
					s.nodes[i].ID = nid
				}
			}
		}
		s.edges = pruneEdges(rekeyEdges(s.edges, rekeyed), s.nodes)
	} else if echo.Nodes != nil {
		s.logger.Warn().Str("workspaceId", id).Msg("save response has duplicate node ids, keeping local nodes")
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSaved, Removed: removed, Rekeyed: rekeyed})
}

// Workspace returns the open workspace with a copy of its nodes.
func (s *Store) Workspace() (Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return Workspace{}, false
	}
	ws := *s.ws
	ws.Nodes = cloneNodes(s.nodes)
	return ws, true
}

// Nodes returns a copy of the node list.
func (s *Store) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneNodes(s.nodes)
}

// Edges returns a copy of the edge list.
func (s *Store) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = e.clone()
	}
	return out
}

// Node returns one node by id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.nodes, id); i >= 0 {
		return s.nodes[i].clone(), true
	}
	return Node{}, false
}

// CostNodes returns the node list in the shape the cost endpoint expects.
func (s *Store) CostNodes() []CostNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CostNode, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = CostNode{
			NodeID:          n.ID,
			ComponentID:     n.ComponentID,
			ConfigOverrides: n.clone().Overrides,
		}
	}
	return out
}

// Revision counts node mutations since the store was created.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Subscribe registers fn to run after every change. Callbacks run outside
// the store lock and may call back into the store.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// uniqueID must be called with s.mu held.
func (s *Store) uniqueID() string {
	base := s.newID()
	id := base
	for n := 2; indexOf(s.nodes, id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func indexOf(nodes []Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}

func uniqueIDs(nodes []Node) bool {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || seen[n.ID] {
			return false
		}
		seen[n.ID] = true
	}
	return true
}

// dedupNodes drops later nodes that reuse an earlier id.
func dedupNodes(nodes []Node) []Node {
	seen := make(map[string]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out
}

// rekeyMap pairs sent and echoed nodes by position and records every id
// the server changed.
func rekeyMap(sent, echoed []Node) map[string]string {
	var m map[string]string
	for i := 0; i < len(sent) && i < len(echoed); i++ {
		if sent[i].ID != echoed[i].ID && sent[i].ComponentID == echoed[i].ComponentID {
			if m == nil {
				m = make(map[string]string)
			}
			m[sent[i].ID] = echoed[i].ID
		}
	}
	return m
}

func labelFor(n Node, sent []Node, i int) string {
	if i < len(sent) && sent[i].ComponentID == n.ComponentID && sent[i].Label != "" {
		return sent[i].Label
	}
	return n.ComponentID
}

func rekeyEdges(edges []Edge, m map[string]string) []Edge {
	if len(m) == 0 {
		return edges
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if nid, ok := m[e.Source]; ok {
			e.Source = nid
		}
		if nid, ok := m[e.Target]; ok {
			e.Target = nid
		}
		e.ID = EdgeID(e.Source, e.Target)
		out = append(out, e)
	}
	return out
}

func pruneEdges(edges []Edge, nodes []Node) []Edge {
	out := edges[:0:0]
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if indexOf(nodes, e.Source) < 0 || indexOf(nodes, e.Target) < 0 || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}
