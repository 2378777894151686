// Package canvas maps between pixel space (subject to pan and zoom) and
// the discrete grid the nodes live on, and owns drag-to-move semantics.
//
// The coordinate functions are pure so hit-testing and placement logic
// can be unit-tested without a real pointer device.
package canvas

import (
	"math"

	"github.com/loomengine/loom/pkg/domain"
)

// Rendering contract. These are part of the interface, not cosmetics:
// hit-testing depends on them.
const (
	// DefaultCellWidth and DefaultCellHeight are the grid cell size in
	// pixels at zoom 1.
	DefaultCellWidth  = 160
	DefaultCellHeight = 120

	// NodeWidth and NodeHeight are the node box size in pixels at zoom 1.
	// Nodes are smaller than their cell and centered within it.
	NodeWidth  = 120
	NodeHeight = 80

	// SocketHitRadius is the click-target radius around the input socket
	// (left edge midpoint) and output socket (right edge midpoint).
	SocketHitRadius = 12
)

// Grid holds the cell constants and the bounded placement area.
type Grid struct {
	CellWidth  int
	CellHeight int
	Cols       int
	Rows       int
}

// DefaultGrid returns the standard 32x32 bounded grid.
func DefaultGrid() Grid {
	return Grid{CellWidth: DefaultCellWidth, CellHeight: DefaultCellHeight, Cols: 32, Rows: 32}
}

// InBounds reports whether a cell lies within the bounded grid.
func (g Grid) InBounds(pos domain.Position) bool {
	return pos.Col >= 0 && pos.Row >= 0 && pos.Col < g.Cols && pos.Row < g.Rows
}

// Clamp snaps a cell into the bounded grid.
func (g Grid) Clamp(pos domain.Position) domain.Position {
	if pos.Col < 0 {
		pos.Col = 0
	}
	if pos.Row < 0 {
		pos.Row = 0
	}
	if pos.Col >= g.Cols {
		pos.Col = g.Cols - 1
	}
	if pos.Row >= g.Rows {
		pos.Row = g.Rows - 1
	}
	return pos
}

// Viewport is the pan offset and zoom factor applied to the canvas.
type Viewport struct {
	PanX float64
	PanY float64
	Zoom float64
}

// DefaultViewport is the identity transform.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// zoom guards against an unset or degenerate factor.
func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// Box is an axis-aligned pixel rectangle.
type Box struct {
	X, Y, W, H float64
}

// Contains reports whether a pixel point lies inside the box.
func (b Box) Contains(px, py float64) bool {
	return px >= b.X && px < b.X+b.W && py >= b.Y && py < b.Y+b.H
}

// CellAt converts a pointer pixel position to the grid cell under it:
// col = floor((px - panX) / (cellWidth * zoom)), analogously for row.
func (g Grid) CellAt(v Viewport, px, py float64) domain.Position {
	z := v.zoom()
	return domain.Position{
		Col: int(math.Floor((px - v.PanX) / (float64(g.CellWidth) * z))),
		Row: int(math.Floor((py - v.PanY) / (float64(g.CellHeight) * z))),
	}
}

// CellOrigin returns the top-left pixel of a cell under the viewport
// transform.
func (g Grid) CellOrigin(v Viewport, pos domain.Position) (float64, float64) {
	z := v.zoom()
	x := v.PanX + float64(pos.Col)*float64(g.CellWidth)*z
	y := v.PanY + float64(pos.Row)*float64(g.CellHeight)*z
	return x, y
}

// NodeBox returns the pixel rectangle of the node body within its cell,
// centered, scaled by zoom.
func (g Grid) NodeBox(v Viewport, pos domain.Position) Box {
	z := v.zoom()
	cx, cy := g.CellOrigin(v, pos)
	return Box{
		X: cx + (float64(g.CellWidth)-NodeWidth)/2*z,
		Y: cy + (float64(g.CellHeight)-NodeHeight)/2*z,
		W: NodeWidth * z,
		H: NodeHeight * z,
	}
}

// socketCenter returns the pixel center of a node's socket. Inputs sit on
// the left edge midpoint, outputs on the right.
func (g Grid) socketCenter(v Viewport, pos domain.Position, port string) (float64, float64) {
	box := g.NodeBox(v, pos)
	y := box.Y + box.H/2
	if port == domain.PortInput {
		return box.X, y
	}
	return box.X + box.W, y
}

// HitSocket tests a pointer position against a node's input and output
// sockets. It returns domain.PortInput or domain.PortOutput and true when
// the point falls within the socket hit radius (scaled by zoom). Inputs
// win ties; the sockets sit on opposite edges so a tie requires a node
// narrower than the hit radius.
func (g Grid) HitSocket(v Viewport, pos domain.Position, px, py float64) (string, bool) {
	radius := SocketHitRadius * v.zoom()
	for _, port := range []string{domain.PortInput, domain.PortOutput} {
		cx, cy := g.socketCenter(v, pos, port)
		if math.Hypot(px-cx, py-cy) <= radius {
			return port, true
		}
	}
	return "", false
}
