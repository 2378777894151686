package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loomengine/loom/pkg/domain"
)

func TestGrid_CellAt(t *testing.T) {
	g := DefaultGrid()
	v := DefaultViewport()

	assert.Equal(t, domain.Position{Col: 0, Row: 0}, g.CellAt(v, 0, 0))
	assert.Equal(t, domain.Position{Col: 0, Row: 0}, g.CellAt(v, 159, 119))
	assert.Equal(t, domain.Position{Col: 1, Row: 1}, g.CellAt(v, 160, 120))
	assert.Equal(t, domain.Position{Col: 2, Row: 1}, g.CellAt(v, 400, 130))
}

func TestGrid_CellAtWithPanAndZoom(t *testing.T) {
	g := DefaultGrid()
	v := Viewport{PanX: 50, PanY: 30, Zoom: 2}

	// the cell under a pointer is computed on transformed coordinates:
	// (px - pan) / (cellSize * zoom)
	assert.Equal(t, domain.Position{Col: 0, Row: 0}, g.CellAt(v, 50, 30))
	assert.Equal(t, domain.Position{Col: 1, Row: 0}, g.CellAt(v, 50+320, 30))
	assert.Equal(t, domain.Position{Col: 0, Row: 1}, g.CellAt(v, 50, 30+240))

	// left of the pan origin lands in negative cells, not cell 0
	assert.Equal(t, domain.Position{Col: -1, Row: -1}, g.CellAt(v, 49, 29))
}

func TestGrid_CellAtZeroZoomFallsBackToIdentity(t *testing.T) {
	g := DefaultGrid()
	v := Viewport{Zoom: 0}
	assert.Equal(t, domain.Position{Col: 1, Row: 0}, g.CellAt(v, 165, 5))
}

func TestGrid_CellAtRoundTripsCellOrigin(t *testing.T) {
	g := DefaultGrid()
	v := Viewport{PanX: -37, PanY: 12, Zoom: 1.5}

	for _, pos := range []domain.Position{{Col: 0, Row: 0}, {Col: 3, Row: 7}, {Col: 31, Row: 31}} {
		x, y := g.CellOrigin(v, pos)
		// a point just inside the cell's origin maps back to the cell
		assert.Equal(t, pos, g.CellAt(v, x+1, y+1))
	}
}

func TestGrid_ClampAndInBounds(t *testing.T) {
	g := DefaultGrid()

	assert.True(t, g.InBounds(domain.Position{Col: 0, Row: 0}))
	assert.True(t, g.InBounds(domain.Position{Col: 31, Row: 31}))
	assert.False(t, g.InBounds(domain.Position{Col: 32, Row: 0}))
	assert.False(t, g.InBounds(domain.Position{Col: 0, Row: -1}))

	assert.Equal(t, domain.Position{Col: 0, Row: 0}, g.Clamp(domain.Position{Col: -5, Row: -1}))
	assert.Equal(t, domain.Position{Col: 31, Row: 31}, g.Clamp(domain.Position{Col: 99, Row: 32}))
	assert.Equal(t, domain.Position{Col: 4, Row: 5}, g.Clamp(domain.Position{Col: 4, Row: 5}))
}

func TestGrid_NodeBoxCenteredInCell(t *testing.T) {
	g := DefaultGrid()
	box := g.NodeBox(DefaultViewport(), domain.Position{Col: 0, Row: 0})

	assert.Equal(t, float64((DefaultCellWidth-NodeWidth)/2), box.X)
	assert.Equal(t, float64((DefaultCellHeight-NodeHeight)/2), box.Y)
	assert.Equal(t, float64(NodeWidth), box.W)
	assert.Equal(t, float64(NodeHeight), box.H)

	// zoom scales both offset and size
	zoomed := g.NodeBox(Viewport{Zoom: 2}, domain.Position{Col: 0, Row: 0})
	assert.Equal(t, box.X*2, zoomed.X)
	assert.Equal(t, box.W*2, zoomed.W)
}

func TestGrid_HitSocket(t *testing.T) {
	g := DefaultGrid()
	v := DefaultViewport()
	pos := domain.Position{Col: 0, Row: 0}
	box := g.NodeBox(v, pos)
	midY := box.Y + box.H/2

	port, ok := g.HitSocket(v, pos, box.X, midY)
	assert.True(t, ok)
	assert.Equal(t, domain.PortInput, port)

	port, ok = g.HitSocket(v, pos, box.X+box.W, midY)
	assert.True(t, ok)
	assert.Equal(t, domain.PortOutput, port)

	// just inside the radius still hits
	port, ok = g.HitSocket(v, pos, box.X+box.W+SocketHitRadius-1, midY)
	assert.True(t, ok)
	assert.Equal(t, domain.PortOutput, port)

	// the node center is no socket
	_, ok = g.HitSocket(v, pos, box.X+box.W/2, midY)
	assert.False(t, ok)

	// outside the radius misses
	_, ok = g.HitSocket(v, pos, box.X-SocketHitRadius-1, midY)
	assert.False(t, ok)
}

func TestBox_Contains(t *testing.T) {
	b := Box{X: 10, Y: 10, W: 20, H: 20}
	assert.True(t, b.Contains(10, 10))
	assert.True(t, b.Contains(29, 29))
	assert.False(t, b.Contains(30, 30))
	assert.False(t, b.Contains(9, 15))
}
