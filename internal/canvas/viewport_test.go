package canvas

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/cloudcanvas/internal/workspace"
)

func TestProject(t *testing.T) {
	bounds := Rect{Left: 240, Top: 64, Width: 1024, Height: 768}
	tests := []struct {
		name   string
		vp     Viewport
		client Point
		want   workspace.Position
	}{
		{"identity", DefaultViewport(), Point{X: 340, Y: 164}, workspace.Position{X: 100, Y: 100}},
		{"panned", Viewport{X: -50, Y: 25, Zoom: 1}, Point{X: 340, Y: 164}, workspace.Position{X: 150, Y: 75}},
		{"zoomed", Viewport{Zoom: 0.5}, Point{X: 340, Y: 164}, workspace.Position{X: 200, Y: 200}},
		{"zero zoom treated as one", Viewport{}, Point{X: 250, Y: 70}, workspace.Position{X: 10, Y: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.vp.Project(tt.client, bounds)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)

			back := tt.vp.Unproject(got, bounds)
			assert.InDelta(t, tt.client.X, back.X, 1e-9)
			assert.InDelta(t, tt.client.Y, back.Y, 1e-9)
		})
	}
}

func TestDragPayload(t *testing.T) {
	dt, err := DragStart(ec2)
	require.NoError(t, err)
	assert.Equal(t, "move", dt.EffectAllowed)
	assert.Empty(t, dt.GetData("text/plain"))

	def, err := DecodePayload(dt)
	require.NoError(t, err)
	assert.Equal(t, "aws-ec2", def.ID)
	assert.Equal(t, "t3.micro", def.Config["instanceType"])

	_, err = DecodePayload(&DataTransfer{})
	assert.True(t, errors.Is(err, ErrNoPayload))

	noID := &DataTransfer{}
	noID.SetData(PayloadMIME, `{"name":"Nameless"}`)
	_, err = DecodePayload(noID)
	assert.True(t, errors.Is(err, ErrNoPayload))
}
