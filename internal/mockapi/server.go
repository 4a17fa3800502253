// Package mockapi is an in-memory implementation of the cloudcanvas REST
// backend for local development and tests.
package mockapi

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

// Server holds the catalog and workspaces in memory.
type Server struct {
	logger   zerolog.Logger
	secret   []byte
	now      func() time.Time
	newID    func() string
	rekey    bool
	validate *validator.Validate
	latency  time.Duration

	mu         sync.RWMutex
	components []Component
	byID       map[string]Component
	workspaces map[string]*Workspace
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSecret requires an HS256 bearer token signed with secret on every
// /api route.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator replaces the workspace and node id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

// WithComponents replaces the seeded catalog.
func WithComponents(defs []Component) Option {
	return func(s *Server) { s.components = defs }
}

// WithServerNodeIDs makes the backend assign its own id to every node it
// has not stored before, the way a database-backed server would.
func WithServerNodeIDs() Option {
	return func(s *Server) { s.rekey = true }
}

// WithLatency delays every /api response.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// New returns a server seeded with DefaultComponents and no workspaces.
func New(opts ...Option) *Server {
	s := &Server{
		logger:     zerolog.Nop(),
		now:        time.Now,
		newID:      uuid.NewString,
		validate:   validator.New(),
		components: DefaultComponents(),
		workspaces: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]Component, len(s.components))
	for _, c := range s.components {
		s.byID[c.ID] = c
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	s.routes(r)
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	engine := gin.New()
	s.routes(engine)
	router, err := graceful.New(engine, graceful.WithAddr(addr))
	if err != nil {
		return errors.Trace(err)
	}
	defer router.Close()

	s.logger.Info().Str("addr", addr).Msg("mock backend listening")
	if err := router.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Annotatef(err, "serving on %s", addr)
	}
	return nil
}

func (s *Server) routes(r *gin.Engine) {
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(s.auth(), s.delay())
	{
		api.GET("/auth/me", s.me)

		api.GET("/components", s.listComponents)
		api.GET("/components/:id", s.getComponent)

		api.GET("/workspaces", s.listWorkspaces)
		api.POST("/workspaces", s.createWorkspace)
		api.GET("/workspaces/:id", s.getWorkspace)
		api.PUT("/workspaces/:id", s.replaceNodes)

		api.POST("/cost/calculate", s.calculateCost)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) delay() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func (s *Server) listComponents(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"components": s.components})
}

func (s *Server) getComponent(c *gin.Context) {
	s.mu.RLock()
	comp, ok := s.byID[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, apiError{Detail: "Component not found"})
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (s *Server) listWorkspaces(c *gin.Context) {
	s.mu.RLock()
	out := make([]WorkspaceSummary, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		out = append(out, WorkspaceSummary{ID: ws.ID, Name: ws.Name, NodeCount: len(ws.Nodes), UpdatedAt: ws.UpdatedAt})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	c.JSON(http.StatusOK, gin.H{"workspaces": out})
}

func (s *Server) createWorkspace(c *gin.Context) {
	var req createWorkspaceRequest
	if !s.bind(c, &req) {
		return
	}
	ws := &Workspace{
		ID:        s.newID(),
		Name:      strings.TrimSpace(req.Name),
		Nodes:     []Node{},
		UpdatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	s.workspaces[ws.ID] = ws
	s.mu.Unlock()

	s.logger.Info().Str("workspaceId", ws.ID).Str("name", ws.Name).Msg("workspace created")
	c.JSON(http.StatusCreated, ws)
}

func (s *Server) getWorkspace(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, apiError{Detail: "Workspace not found"})
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) replaceNodes(c *gin.Context) {
	var req replaceNodesRequest
	if !s.bind(c, &req) {
		return
	}

	seen := make(map[string]bool, len(req.Nodes))
	for _, n := range req.Nodes {
		if seen[n.NodeID] {
			c.JSON(http.StatusBadRequest, apiError{Detail: "duplicate nodeId " + n.NodeID})
			return
		}
		seen[n.NodeID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, apiError{Detail: "Workspace not found"})
		return
	}

	known := make(map[string]bool, len(ws.Nodes))
	for _, n := range ws.Nodes {
		known[n.NodeID] = true
	}
	nodes := make([]Node, len(req.Nodes))
	for i, n := range req.Nodes {
		if s.rekey && !known[n.NodeID] {
			n.NodeID = "n-" + s.newID()
		}
		if n.ConfigOverrides == nil {
			n.ConfigOverrides = map[string]any{}
		}
		if n.ComponentName == "" {
			n.ComponentName = s.byID[n.ComponentID].Name
		}
		nodes[i] = n
	}
	ws.Nodes = nodes
	ws.UpdatedAt = s.now().UTC()

	s.logger.Debug().Str("workspaceId", ws.ID).Int("nodes", len(nodes)).Msg("workspace saved")
	c.JSON(http.StatusOK, ws)
}

func (s *Server) calculateCost(c *gin.Context) {
	var req costRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := CostResponse{Breakdown: make([]CostItem, 0, len(req.Nodes))}
	for _, n := range req.Nodes {
		comp, ok := s.byID[n.ComponentID]
		if !ok {
			continue
		}
		cost := Estimate(comp, n.ConfigOverrides)
		resp.Breakdown = append(resp.Breakdown, CostItem{
			NodeID:        n.NodeID,
			ComponentID:   comp.ID,
			ComponentName: comp.Name,
			Cost:          cost,
		})
		resp.TotalCost += cost
	}
	resp.TotalCost = roundCents(resp.TotalCost)
	c.JSON(http.StatusOK, resp)
}

// bind decodes and validates the JSON body, answering 400 on failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Detail: err.Error()})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Detail: err.Error()})
		return false
	}
	return true
}

// Workspace returns a copy of a stored workspace.
func (s *Server) Workspace(id string) (Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return Workspace{}, false
	}
	cp := *ws
	cp.Nodes = append([]Node(nil), ws.Nodes...)
	return cp, true
}

// DeleteComponent removes a component from the catalog, leaving any
// nodes that reference it in place.
func (s *Server) DeleteComponent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	out := s.components[:0:0]
	for _, c := range s.components {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.components = out
	return true
}
