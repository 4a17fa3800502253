package canvas

import "github.com/msalah0e/cloudcanvas/internal/workspace"

// Point is a position in client (screen) coordinates.
type Point struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// Rect is the canvas element's bounding box in client coordinates.
type Rect struct {
	Left   float64 `json:"left" toml:"left"`
	Top    float64 `json:"top" toml:"top"`
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Viewport is the renderer's pan and zoom transform.
type Viewport struct {
	X    float64 `json:"x" toml:"x"`
	Y    float64 `json:"y" toml:"y"`
	Zoom float64 `json:"zoom" toml:"zoom"`
}

// DefaultViewport is the identity transform.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// Project converts a client point inside bounds into graph coordinates.
func (v Viewport) Project(client Point, bounds Rect) workspace.Position {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return workspace.Position{
		X: ((client.X - bounds.Left) - v.X) / zoom,
		Y: ((client.Y - bounds.Top) - v.Y) / zoom,
	}
}

// Unproject is the inverse of Project.
func (v Viewport) Unproject(p workspace.Position, bounds Rect) Point {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Point{
		X: p.X*zoom + v.X + bounds.Left,
		Y: p.Y*zoom + v.Y + bounds.Top,
	}
}
