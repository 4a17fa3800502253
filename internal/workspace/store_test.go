package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/cloudcanvas/internal/apiclient"
	"github.com/msalah0e/cloudcanvas/internal/catalog"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeRemote keeps workspaces in memory. Replace echoes the payload unless
// replaceFn is set.
type fakeRemote struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	getErr     error
	replaceFn  func(id string, nodes []Node) (*Workspace, error)
	replaces   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{workspaces: map[string]*Workspace{}}
}

func (f *fakeRemote) List(context.Context) ([]Workspace, error) { return nil, nil }

func (f *fakeRemote) Create(_ context.Context, name string) (*Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws := &Workspace{ID: fmt.Sprintf("ws-%d", len(f.workspaces)+1), Name: name, Nodes: []Node{}}
	f.workspaces[ws.ID] = ws
	return ws, nil
}

func (f *fakeRemote) Get(_ context.Context, id string) (*Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	ws, ok := f.workspaces[id]
	if !ok {
		return nil, errors.WithType(errors.Errorf("GET /api/workspaces/%s: status 404", id), errors.NotFound)
	}
	cp := *ws
	cp.Nodes = cloneNodes(ws.Nodes)
	return &cp, nil
}

func (f *fakeRemote) Replace(_ context.Context, id string, nodes []Node) (*Workspace, error) {
	f.mu.Lock()
	f.replaces++
	fn := f.replaceFn
	f.mu.Unlock()
	if fn != nil {
		return fn(id, nodes)
	}
	return &Workspace{ID: id, Nodes: cloneNodes(nodes)}, nil
}

type mapLabeler map[string]string

func (m mapLabeler) Label(_ context.Context, id string) string {
	if l, ok := m[id]; ok {
		return l
	}
	return id
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("node-%d", n)
	}
}

var (
	ec2 = catalog.ComponentDefinition{ID: "aws-ec2", Name: "EC2", Category: "Compute",
		Config: map[string]any{"instanceType": "t3.micro", "hoursPerMonth": 730}}
	s3 = catalog.ComponentDefinition{ID: "aws-s3", Name: "S3", Category: "Storage"}
)

func loadedStore(t *testing.T, remote *fakeRemote, nodes ...Node) *Store {
	t.Helper()
	remote.workspaces["ws-1"] = &Workspace{ID: "ws-1", Name: "prod", Nodes: nodes}
	s := NewStore(remote, mapLabeler{"aws-ec2": "EC2", "aws-s3": "S3"}, WithIDGenerator(sequentialIDs()))
	require.NoError(t, s.Load(context.Background(), "ws-1"))
	return s
}

func snapshot(t *testing.T, s *Store) string {
	t.Helper()
	data, err := json.Marshal(struct {
		Nodes []Node
		Edges []Edge
	}{s.Nodes(), s.Edges()})
	require.NoError(t, err)
	return string(data)
}

func TestLoad_ResolvesLabelsAndDefaults(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote,
		Node{ID: "a", ComponentID: "aws-ec2", Position: Position{X: 5, Y: 6}},
		Node{ID: "b", ComponentID: "aws-s3", Label: "Logs bucket"},
		Node{ID: "c", ComponentID: "retired-component"},
	)

	nodes := s.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "EC2", nodes[0].Label)
	assert.Equal(t, "Logs bucket", nodes[1].Label)
	assert.Equal(t, "retired-component", nodes[2].Label)
	assert.NotNil(t, nodes[2].Overrides)

	ws, ok := s.Workspace()
	require.True(t, ok)
	assert.Equal(t, "prod", ws.Name)
}

func TestLoad_NotFoundKeepsState(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote, Node{ID: "a", ComponentID: "aws-ec2"})
	before := snapshot(t, s)

	err := s.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, before, snapshot(t, s))
}

func TestLoad_TransientFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.getErr = errors.New("connection refused")
	s := NewStore(remote, nil)

	err := s.Load(context.Background(), "ws-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransientFetch))
	assert.False(t, errors.Is(err, ErrNotFound))
	_, ok := s.Workspace()
	assert.False(t, ok)
}

func TestAddNode(t *testing.T) {
	s := loadedStore(t, newFakeRemote(), Node{ID: "node-1", ComponentID: "aws-s3"})

	nodes := s.AddNode(ec2, Position{X: 10, Y: 20})
	require.Len(t, nodes, 2)
	assert.Equal(t, "node-1", nodes[0].ID, "existing node untouched")
	added := nodes[1]
	assert.NotEqual(t, "node-1", added.ID, "generator collision resolved")
	assert.Equal(t, "aws-ec2", added.ComponentID)
	assert.Equal(t, "EC2", added.Label)
	assert.Equal(t, Position{X: 10, Y: 20}, added.Position)
	assert.Empty(t, added.Overrides)
}

func TestAddRemoveSequencesKeepInvariants(t *testing.T) {
	s := loadedStore(t, newFakeRemote())
	defs := []catalog.ComponentDefinition{ec2, s3}

	for i := 0; i < 30; i++ {
		nodes := s.AddNode(defs[i%2], Position{X: float64(i)})
		if len(nodes) >= 2 {
			s.AddEdge(nodes[len(nodes)-2].ID, nodes[len(nodes)-1].ID, nil)
		}
		if i%3 == 0 {
			s.RemoveNode(nodes[0].ID)
		}

		ids := map[string]bool{}
		for _, n := range s.Nodes() {
			require.False(t, ids[n.ID], "duplicate id %s", n.ID)
			ids[n.ID] = true
		}
		for _, e := range s.Edges() {
			require.True(t, ids[e.Source] && ids[e.Target], "dangling edge %s", e.ID)
		}
	}
}

func TestRemoveNode_PrunesEdges(t *testing.T) {
	s := loadedStore(t, newFakeRemote(),
		Node{ID: "a", ComponentID: "aws-ec2"},
		Node{ID: "b", ComponentID: "aws-s3"},
		Node{ID: "c", ComponentID: "aws-s3"},
	)
	_, ok := s.AddEdge("a", "b", &Marker{Type: MarkerArrowClosed})
	require.True(t, ok)
	_, ok = s.AddEdge("b", "c", nil)
	require.True(t, ok)
	_, ok = s.AddEdge("a", "c", nil)
	require.True(t, ok)

	require.True(t, s.RemoveNode("b"))
	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "e-a-c", edges[0].ID)

	assert.False(t, s.RemoveNode("b"))
}

func TestAddEdge_Rejections(t *testing.T) {
	s := loadedStore(t, newFakeRemote(),
		Node{ID: "a", ComponentID: "aws-ec2"},
		Node{ID: "b", ComponentID: "aws-s3"},
	)

	e, ok := s.AddEdge("a", "b", &Marker{Type: MarkerArrowClosed})
	require.True(t, ok)
	assert.Equal(t, "e-a-b", e.ID)
	assert.Equal(t, MarkerArrowClosed, e.MarkerEnd.Type)

	_, ok = s.AddEdge("a", "b", nil)
	assert.False(t, ok, "duplicate")
	_, ok = s.AddEdge("a", "a", nil)
	assert.False(t, ok, "self edge")
	_, ok = s.AddEdge("a", "ghost", nil)
	assert.False(t, ok, "unknown target")

	_, ok = s.AddEdge("b", "a", nil)
	assert.True(t, ok, "reverse direction is a different edge")

	assert.True(t, s.RemoveEdge("e-a-b"))
	assert.False(t, s.RemoveEdge("e-a-b"))
}

func TestSetNodeConfig(t *testing.T) {
	s := loadedStore(t, newFakeRemote(),
		Node{ID: "a", ComponentID: "aws-ec2"},
		Node{ID: "b", ComponentID: "aws-ec2", Overrides: map[string]any{"hoursPerMonth": 100}},
	)

	overrides := map[string]any{"instanceType": "t3.small"}
	require.True(t, s.SetNodeConfig("a", overrides))
	overrides["instanceType"] = "mutated after the call"

	a, _ := s.Node("a")
	b, _ := s.Node("b")
	assert.Equal(t, map[string]any{"instanceType": "t3.small"}, a.Overrides)
	assert.Equal(t, map[string]any{"hoursPerMonth": 100}, b.Overrides, "other nodes untouched")

	before := snapshot(t, s)
	assert.False(t, s.SetNodeConfig("ghost", map[string]any{"x": 1}))
	assert.Equal(t, before, snapshot(t, s), "unknown id is a silent miss")

	eff := EffectiveConfig(ec2.Config, a.Overrides)
	assert.Equal(t, map[string]any{"instanceType": "t3.small", "hoursPerMonth": 730}, eff)
}

func TestEffectiveConfig(t *testing.T) {
	defaults := map[string]any{"instanceType": "t3.micro", "hoursPerMonth": 730}

	assert.Equal(t, defaults, EffectiveConfig(defaults, map[string]any{}))
	assert.Equal(t, defaults, EffectiveConfig(defaults, nil))

	eff := EffectiveConfig(defaults, map[string]any{"hoursPerMonth": 100, "extra": true})
	assert.Equal(t, 100, eff["hoursPerMonth"])
	assert.Equal(t, true, eff["extra"])
	assert.Equal(t, 730, defaults["hoursPerMonth"], "defaults not modified")
}

func TestSave_FailureLeavesStateIdentical(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote, Node{ID: "a", ComponentID: "aws-ec2"})
	s.AddNode(s3, Position{X: 1, Y: 2})
	s.AddEdge("a", s.Nodes()[1].ID, nil)
	before := snapshot(t, s)

	remote.replaceFn = func(string, []Node) (*Workspace, error) {
		return nil, errors.WithType(errors.New("503"), apiclient.ErrTransientFetch)
	}
	err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, before, snapshot(t, s))
}

func TestSave_WithoutWorkspace(t *testing.T) {
	s := NewStore(newFakeRemote(), nil)
	err := s.Save(context.Background())
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, ErrNoWorkspace))
}

func TestSave_AdoptsEcho(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote, Node{ID: "a", ComponentID: "aws-ec2"})
	remote.replaceFn = func(id string, nodes []Node) (*Workspace, error) {
		out := cloneNodes(nodes)
		out[0].Position = Position{X: 42, Y: 42}
		return &Workspace{ID: id, Name: "renamed", Nodes: out}, nil
	}

	require.NoError(t, s.Save(context.Background()))
	n, _ := s.Node("a")
	assert.Equal(t, Position{X: 42, Y: 42}, n.Position)
	assert.Equal(t, "EC2", n.Label)
	ws, _ := s.Workspace()
	assert.Equal(t, "renamed", ws.Name)
}

func TestSave_EchoWithoutNodesKeepsLocal(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote, Node{ID: "a", ComponentID: "aws-ec2"})
	remote.replaceFn = func(id string, _ []Node) (*Workspace, error) {
		return &Workspace{ID: id}, nil
	}
	before := snapshot(t, s)

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, before, snapshot(t, s))
}

func TestSave_RekeysNodesAndEdges(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote,
		Node{ID: "a", ComponentID: "aws-ec2"},
		Node{ID: "b", ComponentID: "aws-s3"},
	)
	s.AddEdge("a", "b", &Marker{Type: MarkerArrowClosed})
	remote.replaceFn = func(id string, nodes []Node) (*Workspace, error) {
		out := cloneNodes(nodes)
		out[1].ID = "srv-b"
		return &Workspace{ID: id, Nodes: out}, nil
	}

	var got Change
	cancel := s.Subscribe(func(c Change) {
		if c.Kind == ChangeSaved {
			got = c
		}
	})
	defer cancel()

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, map[string]string{"b": "srv-b"}, got.Rekeyed)
	_, ok := s.Node("srv-b")
	assert.True(t, ok)
	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "e-a-srv-b", edges[0].ID)
	assert.Equal(t, "srv-b", edges[0].Target)
}

func TestSave_OutOfOrderCompletionKeepsLatestIssued(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote, Node{ID: "a", ComponentID: "aws-ec2"})

	release := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	var calls int
	var mu sync.Mutex
	remote.replaceFn = func(id string, nodes []Node) (*Workspace, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		<-release[n]
		out := cloneNodes(nodes)
		out[0].Overrides = map[string]any{"response": n}
		return &Workspace{ID: id, Nodes: out}, nil
	}

	s.UpdateNodePosition("a", Position{X: 1})
	first := make(chan error)
	go func() { first <- s.Save(context.Background()) }()
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return calls == 1 }, timeout, tick)

	second := make(chan error)
	go func() { second <- s.Save(context.Background()) }()
	require.Eventually(t, func() bool { mu.Lock(); defer mu.Unlock(); return calls == 2 }, timeout, tick)

	close(release[2])
	require.NoError(t, <-second)
	close(release[1])
	require.NoError(t, <-first)

	n, _ := s.Node("a")
	assert.Equal(t, map[string]any{"response": 2}, n.Overrides)
}

func TestSave_LocalEditsSurviveOlderEcho(t *testing.T) {
	remote := newFakeRemote()
	s := loadedStore(t, remote, Node{ID: "a", ComponentID: "aws-ec2"})

	release := make(chan struct{})
	started := make(chan struct{})
	remote.replaceFn = func(id string, nodes []Node) (*Workspace, error) {
		close(started)
		<-release
		out := cloneNodes(nodes)
		out[0].ID = "srv-a"
		return &Workspace{ID: id, Nodes: out}, nil
	}

	done := make(chan error)
	go func() { done <- s.Save(context.Background()) }()
	<-started
	s.SetNodeConfig("a", map[string]any{"instanceType": "t3.medium"})
	close(release)
	require.NoError(t, <-done)

	n, ok := s.Node("srv-a")
	require.True(t, ok, "id follows the server")
	assert.Equal(t, map[string]any{"instanceType": "t3.medium"}, n.Overrides, "local edit kept")
}

func TestCostNodes(t *testing.T) {
	s := loadedStore(t, newFakeRemote(),
		Node{ID: "a", ComponentID: "aws-ec2", Overrides: map[string]any{"hoursPerMonth": 10}},
	)
	cost := s.CostNodes()
	require.Len(t, cost, 1)
	assert.Equal(t, CostNode{NodeID: "a", ComponentID: "aws-ec2", ConfigOverrides: map[string]any{"hoursPerMonth": 10}}, cost[0])

	data, err := json.Marshal(cost)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"nodeId":"a","componentId":"aws-ec2","configOverrides":{"hoursPerMonth":10}}]`, string(data))
}

func TestSubscribe_Cancel(t *testing.T) {
	s := loadedStore(t, newFakeRemote())
	var kinds []ChangeKind
	cancel := s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	nodes := s.AddNode(ec2, Position{})
	s.RemoveNode(nodes[0].ID)
	cancel()
	cancel()
	s.AddNode(ec2, Position{})

	assert.Equal(t, []ChangeKind{ChangeNodes, ChangeNodes}, kinds)
}

func TestRestoreEdges(t *testing.T) {
	s := loadedStore(t, newFakeRemote(),
		Node{ID: "a", ComponentID: "aws-ec2"},
		Node{ID: "b", ComponentID: "aws-s3"},
	)
	kept := s.RestoreEdges([]Edge{
		{ID: "e-a-b", Source: "a", Target: "b"},
		{ID: "e-a-gone", Source: "a", Target: "gone"},
		{ID: "e-a-b", Source: "a", Target: "b"},
	})
	assert.Equal(t, 1, kept)
	assert.Len(t, s.Edges(), 1)
}
