package registry

// Registry maps components to their field schemas.
type Registry struct {
	schemas     []Schema
	byComponent map[string]*Schema
	byCategory  map[string]*Schema
}

// New creates a registry from a list of schemas. Later schemas win.
func New(schemas []Schema) *Registry {
	r := &Registry{
		schemas:     schemas,
		byComponent: make(map[string]*Schema, len(schemas)),
		byCategory:  make(map[string]*Schema),
	}
	for i := range r.schemas {
		s := &r.schemas[i]
		if s.ComponentID != "" {
			r.byComponent[s.ComponentID] = s
		} else if s.Category != "" {
			r.byCategory[s.Category] = s
		}
	}
	return r
}

// All returns all schemas in the registry.
func (r *Registry) All() []Schema {
	return r.schemas
}

// Lookup finds the schema for a component id, falling back to the
// category-wide schema.
func (r *Registry) Lookup(componentID, category string) (Schema, bool) {
	if r == nil {
		return Schema{}, false
	}
	if s, ok := r.byComponent[componentID]; ok {
		return *s, true
	}
	if s, ok := r.byCategory[category]; ok {
		return *s, true
	}
	return Schema{}, false
}

// Fields returns the editable fields for a component. Without a schema the
// fields are inferred from the component's default configuration.
func (r *Registry) Fields(componentID, category string, defaults map[string]any) []Field {
	if s, ok := r.Lookup(componentID, category); ok && len(s.Fields) > 0 {
		return s.Fields
	}
	return Infer(defaults)
}
