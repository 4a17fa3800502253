package catalog

import (
	"context"
	"net/url"
	"sync"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/msalah0e/cloudcanvas/internal/apiclient"
	"github.com/msalah0e/cloudcanvas/internal/cache"
	"github.com/msalah0e/cloudcanvas/internal/parallel"
)

// ErrComponentNotFound is returned when the backend has no definition for
// an id. It also satisfies errors.Is(err, errors.NotFound).
const ErrComponentNotFound = errors.ConstError("component not found")

const listPath = "/api/components"

// Getter is the part of the request client the catalog needs.
type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

// Client fetches component definitions and memoizes the full list.
type Client struct {
	api    Getter
	cache  *cache.Store
	logger zerolog.Logger

	mu   sync.Mutex
	list []ComponentDefinition
	byID map[string]ComponentDefinition
}

// Option configures a Client.
type Option func(*Client)

// WithCache persists the component list between runs.
func WithCache(s *cache.Store) Option {
	return func(c *Client) { c.cache = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a catalog client on top of api.
func NewClient(api Getter, opts ...Option) *Client {
	c := &Client{api: api, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Components []ComponentDefinition `json:"components"`
}

// List returns every available definition.
func (c *Client) List(ctx context.Context) ([]ComponentDefinition, error) {
	c.mu.Lock()
	if c.list != nil {
		out := cloneAll(c.list)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	var resp listResponse
	if c.cache != nil && c.cache.Get(listPath, &resp.Components) {
		c.logger.Debug().Int("count", len(resp.Components)).Msg("component list served from cache")
	} else {
		if err := c.api.Get(ctx, listPath, &resp); err != nil {
			return nil, errors.Annotate(err, "listing components")
		}
		if resp.Components == nil {
			resp.Components = []ComponentDefinition{}
		}
		if c.cache != nil {
			if err := c.cache.Put(listPath, resp.Components); err != nil {
				c.logger.Warn().Err(err).Msg("caching component list")
			}
		}
	}

	c.mu.Lock()
	c.list = resp.Components
	c.byID = make(map[string]ComponentDefinition, len(resp.Components))
	for _, d := range resp.Components {
		if d.valid() {
			c.byID[d.ID] = d
		}
	}
	out := cloneAll(c.list)
	c.mu.Unlock()
	return out, nil
}

// Get fetches one definition. A 404 or an empty record yields
// ErrComponentNotFound; other failures match apiclient.ErrTransientFetch.
func (c *Client) Get(ctx context.Context, id string) (ComponentDefinition, error) {
	c.mu.Lock()
	if d, ok := c.byID[id]; ok {
		c.mu.Unlock()
		return d.clone(), nil
	}
	c.mu.Unlock()

	var def ComponentDefinition
	err := c.api.Get(ctx, listPath+"/"+url.PathEscape(id), &def)
	switch {
	case apiclient.IsNotFound(err):
		return ComponentDefinition{}, notFound(id)
	case err != nil:
		return ComponentDefinition{}, errors.Annotatef(err, "fetching component %q", id)
	case !def.valid():
		return ComponentDefinition{}, notFound(id)
	}
	return def, nil
}

// GetMany fetches several definitions concurrently. Missing ids are left
// out of the result; the first transient failure is returned.
func (c *Client) GetMany(ctx context.Context, ids []string, concurrency int) ([]ComponentDefinition, error) {
	results := parallel.Collect(ctx, ids, concurrency, c.Get)

	defs := make([]ComponentDefinition, 0, len(ids))
	for _, r := range results {
		switch {
		case r.Err == nil:
			defs = append(defs, r.Value)
		case errors.Is(r.Err, ErrComponentNotFound):
			continue
		default:
			return nil, r.Err
		}
	}
	return defs, nil
}

// Label returns the display name for a component id, falling back to the
// id itself when the definition cannot be fetched.
func (c *Client) Label(ctx context.Context, id string) string {
	def, err := c.Get(ctx, id)
	if err != nil || def.Name == "" {
		c.logger.Debug().Err(err).Str("componentId", id).Msg("label falls back to component id")
		return id
	}
	return def.Name
}

func notFound(id string) error {
	return errors.WithType(errors.WithType(errors.Errorf("component %q", id), ErrComponentNotFound), errors.NotFound)
}

func cloneAll(defs []ComponentDefinition) []ComponentDefinition {
	out := make([]ComponentDefinition, len(defs))
	for i, d := range defs {
		out[i] = d.clone()
	}
	return out
}
