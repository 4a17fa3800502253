package catalog

import "maps"

// ComponentDefinition is one entry of the backend's component catalog.
// Definitions are immutable once fetched.
type ComponentDefinition struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Provider    string             `json:"provider"`
	Category    string             `json:"category"`
	Config      map[string]any     `json:"config"`
	Pricing     map[string]float64 `json:"pricing"`
	Icon        string             `json:"icon,omitempty"`
	Description string             `json:"description,omitempty"`
}

// Defaults returns a copy of the definition's default configuration.
func (d ComponentDefinition) Defaults() map[string]any {
	if d.Config == nil {
		return map[string]any{}
	}
	return maps.Clone(d.Config)
}

func (d ComponentDefinition) clone() ComponentDefinition {
	d.Config = maps.Clone(d.Config)
	d.Pricing = maps.Clone(d.Pricing)
	return d
}

func (d ComponentDefinition) valid() bool {
	return d.ID != "" && d.Name != ""
}
