package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/domain"
)

// GraphAccess is the slice of the graph store the placement manager needs.
type GraphAccess interface {
	Node(id string) (domain.Node, bool)
	Nodes() []domain.Node
	OccupiedBy(pos domain.Position) (string, bool)
	UpdateNodePosition(ctx context.Context, nodeID string, pos domain.Position) error
}

type dragState struct {
	nodeID    string
	start     domain.Position
	candidate domain.Position
}

// Placement enforces cell occupancy while nodes are dragged and picks
// free cells for new nodes. At most one drag is active at a time; pointer
// listeners are expected to be registered only between BeginDrag and
// EndDrag/CancelDrag.
type Placement struct {
	mu     sync.Mutex
	grid   Grid
	view   Viewport
	store  GraphAccess
	logger *slog.Logger
	drag   *dragState
}

// Option configures the Placement manager.
type Option func(*Placement)

// WithLogger configures a logger for drag lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Placement) {
		p.logger = logger
	}
}

// WithViewport sets the initial viewport transform.
func WithViewport(v Viewport) Option {
	return func(p *Placement) {
		p.view = v
	}
}

// NewPlacement creates a placement manager over the given store and grid.
func NewPlacement(store GraphAccess, grid Grid, opts ...Option) *Placement {
	p := &Placement{
		grid:   grid,
		view:   DefaultViewport(),
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Grid returns the grid constants.
func (p *Placement) Grid() Grid {
	return p.grid
}

// Viewport returns the current viewport transform.
func (p *Placement) Viewport() Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// SetViewport updates the pan/zoom transform. Pan and zoom do not affect
// an active drag's start cell, only how subsequent pointer positions map
// to cells.
func (p *Placement) SetViewport(v Viewport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = v
}

// Dragging reports the node currently being dragged, if any.
func (p *Placement) Dragging() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drag == nil {
		return "", false
	}
	return p.drag.nodeID, true
}

// BeginDrag captures the node's starting cell. A second BeginDrag while
// one is active returns domain.ErrDragActive (single active drag).
func (p *Placement) BeginDrag(nodeID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drag != nil {
		return domain.ErrDragActive
	}
	node, ok := p.store.Node(nodeID)
	if !ok {
		return domain.ErrNodeNotFound
	}
	p.drag = &dragState{nodeID: nodeID, start: node.Position, candidate: node.Position}
	p.logger.Debug("drag started", "node_id", nodeID, "col", node.Position.Col, "row", node.Position.Row)
	return nil
}

// DragTo recomputes the candidate cell from a pointer position, clamped
// into the grid bounds. Valid only while a drag is active.
func (p *Placement) DragTo(px, py float64) (domain.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drag == nil {
		return domain.Position{}, domain.ErrNoDrag
	}
	p.drag.candidate = p.grid.Clamp(p.grid.CellAt(p.view, px, py))
	return p.drag.candidate, nil
}

// CancelDrag abandons the drag without committing anything.
func (p *Placement) CancelDrag() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drag = nil
}

// EndDrag commits the move. If the candidate equals the start cell the
// interaction was a plain click: no move, no request. If the candidate is
// occupied by another node the move is rejected with
// domain.ErrCellOccupied, the position reverts, and no remote update is
// issued. The drag always ends, whatever the outcome.
func (p *Placement) EndDrag(ctx context.Context) (bool, error) {
	p.mu.Lock()
	drag := p.drag
	p.drag = nil
	p.mu.Unlock()

	if drag == nil {
		return false, domain.ErrNoDrag
	}
	if drag.candidate == drag.start {
		return false, nil
	}
	if holder, taken := p.store.OccupiedBy(drag.candidate); taken && holder != drag.nodeID {
		p.logger.Debug("drag rejected, cell occupied",
			"node_id", drag.nodeID, "col", drag.candidate.Col, "row", drag.candidate.Row, "holder", holder)
		return false, fmt.Errorf("cannot move node %s: %w", drag.nodeID, domain.ErrCellOccupied)
	}

	if err := p.store.UpdateNodePosition(ctx, drag.nodeID, drag.candidate); err != nil {
		return false, err
	}
	return true, nil
}

// FirstFreeCell scans cells row-major from (0,0) within the grid bounds
// and returns the first unoccupied one, or domain.ErrGridFull when the
// bound is exhausted. Callers placing a new node may fall back to (0,0)
// and surface the error.
func (p *Placement) FirstFreeCell() (domain.Position, error) {
	occupied := make(map[domain.Position]struct{})
	for _, n := range p.store.Nodes() {
		occupied[n.Position] = struct{}{}
	}
	for row := 0; row < p.grid.Rows; row++ {
		for col := 0; col < p.grid.Cols; col++ {
			pos := domain.Position{Col: col, Row: row}
			if _, taken := occupied[pos]; !taken {
				return pos, nil
			}
		}
	}
	return domain.Position{}, domain.ErrGridFull
}
