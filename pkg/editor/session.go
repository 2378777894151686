// Package editor assembles the per-workflow editing session: the graph
// store, the connection gesture, grid placement, node context resolution,
// and the sync bridge, behind one lifecycle (Open/Close).
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/bridge"
	"github.com/loomengine/loom/pkg/canvas"
	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/gesture"
	"github.com/loomengine/loom/pkg/graph"
	"github.com/loomengine/loom/pkg/ports"
)

// Session is one open workflow view. It owns the store and the
// interaction state machines for that view; all mutations of the local
// graph flow through it.
type Session struct {
	workflowID string
	store      *graph.Store
	resolver   *graph.Resolver
	gesture    *gesture.Controller
	placement  *canvas.Placement
	logger     *slog.Logger
	notify     NoticeSink

	mu          sync.Mutex
	selectedID  string
	selectedCtx *domain.NodeContext

	stop     context.CancelFunc
	done     chan struct{}
	closeOne sync.Once
}

// Option configures a Session at Open time.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	grid   canvas.Grid
	view   canvas.Viewport
	notify NoticeSink
}

// WithLogger configures the session logger, shared with its components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithGrid overrides the default grid constants.
func WithGrid(grid canvas.Grid) Option {
	return func(s *settings) {
		s.grid = grid
	}
}

// WithViewport sets the initial pan/zoom transform.
func WithViewport(view canvas.Viewport) Option {
	return func(s *settings) {
		s.view = view
	}
}

// WithNoticeSink registers the sink for transient notifications.
func WithNoticeSink(sink NoticeSink) Option {
	return func(s *settings) {
		s.notify = sink
	}
}

// Open fetches the catalog and initial graph state, subscribes to the
// workflow's change feed, and returns a live session. Close releases the
// subscription.
func Open(ctx context.Context, remote ports.Remote, feed ports.ChangeFeed, workflowID string, opts ...Option) (*Session, error) {
	cfg := settings{
		logger: logging.NewNop(),
		grid:   canvas.DefaultGrid(),
		view:   canvas.DefaultViewport(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := graph.NewStore(remote, workflowID, graph.WithLogger(cfg.logger))
	if err := store.Refresh(ctx, graph.AllScopes...); err != nil {
		return nil, fmt.Errorf("failed to open workflow %s: %w", workflowID, err)
	}

	s := &Session{
		workflowID: workflowID,
		store:      store,
		resolver:   graph.NewResolver(store),
		logger:     cfg.logger,
		notify:     cfg.notify,
		done:       make(chan struct{}),
	}
	s.gesture = gesture.NewController(store, gesture.WithLogger(cfg.logger))
	s.placement = canvas.NewPlacement(store, cfg.grid,
		canvas.WithLogger(cfg.logger), canvas.WithViewport(cfg.view))

	br := bridge.New(feed, store, selection{s}, bridge.WithLogger(cfg.logger))

	// The bridge outlives the Open call; it stops when the session closes.
	runCtx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go func() {
		defer close(s.done)
		if err := br.Run(runCtx); err != nil {
			cfg.logger.Warn("sync bridge stopped", "err", err)
		}
	}()

	return s, nil
}

// Close unsubscribes from the change feed and stops the bridge.
// Idempotent.
func (s *Session) Close() {
	s.closeOne.Do(func() {
		s.stop()
		<-s.done
	})
}

// WorkflowID returns the workflow this session edits.
func (s *Session) WorkflowID() string {
	return s.workflowID
}

// Store exposes the session's graph store.
func (s *Session) Store() *graph.Store {
	return s.store
}

// Placement exposes the canvas placement manager.
func (s *Session) Placement() *canvas.Placement {
	return s.placement
}

// Gesture exposes the connection gesture controller.
func (s *Session) Gesture() *gesture.Controller {
	return s.gesture
}

// Context resolves the direct predecessors/successors of any node.
func (s *Session) Context(nodeID string) domain.NodeContext {
	return s.resolver.Context(nodeID)
}

func (s *Session) emit(level NoticeLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Debug("notice", "level", string(level), "message", msg)
	if s.notify != nil {
		s.notify(Notice{Level: level, Message: msg})
	}
}

// --- selection ---

// Select marks a node as the current selection and resolves its context.
func (s *Session) Select(nodeID string) (domain.NodeContext, error) {
	if _, ok := s.store.Node(nodeID); !ok {
		return domain.NodeContext{}, domain.ErrNodeNotFound
	}
	nodeCtx := s.resolver.Context(nodeID)

	s.mu.Lock()
	s.selectedID = nodeID
	s.selectedCtx = &nodeCtx
	s.mu.Unlock()
	return nodeCtx, nil
}

// Selected returns the cached context of the selected node, if any.
func (s *Session) Selected() (domain.NodeContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedCtx == nil {
		return domain.NodeContext{}, false
	}
	return *s.selectedCtx, true
}

// ClearSelection drops the selection and its context.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selectedID = ""
	s.selectedCtx = nil
	s.mu.Unlock()
}

// selection adapts the session to the bridge's Selection port.
type selection struct {
	s *Session
}

func (a selection) Current() (domain.NodeContext, bool) {
	return a.s.Selected()
}

func (a selection) Invalidate() {
	a.s.mu.Lock()
	nodeID := a.s.selectedID
	a.s.mu.Unlock()
	if nodeID == "" {
		return
	}
	nodeCtx := a.s.resolver.Context(nodeID)
	a.s.mu.Lock()
	if a.s.selectedID == nodeID {
		a.s.selectedCtx = &nodeCtx
	}
	a.s.mu.Unlock()
}

func (a selection) Clear() {
	a.s.ClearSelection()
	a.s.emit(NoticeInfo, "the selected node was deleted in another session")
}

// --- graph mutations ---

// AddNode places a new node of the given module type on the first free
// cell (row-major from the origin). Failures surface as notices and are
// returned.
func (s *Session) AddNode(ctx context.Context, moduleType, checkpointName string) (domain.Node, error) {
	if _, known := s.store.Catalog().Lookup(moduleType); !known {
		s.emit(NoticeError, "unknown module type %q", moduleType)
		return domain.Node{}, fmt.Errorf("unknown module type %q", moduleType)
	}

	pos, err := s.placement.FirstFreeCell()
	if err != nil {
		s.emit(NoticeError, "no space left on the canvas")
		return domain.Node{}, err
	}

	node, err := s.store.AddNode(ctx, domain.NodeDraft{
		ModuleType:     moduleType,
		CheckpointName: checkpointName,
		Position:       pos,
	})
	if err != nil {
		s.emit(NoticeError, "could not add node: %v", err)
		return domain.Node{}, err
	}
	return node, nil
}

// DeleteNode removes a node; the remote cascades its connections. A
// deleted selection is cleared locally right away rather than waiting for
// the push notification.
func (s *Session) DeleteNode(ctx context.Context, nodeID string) error {
	if err := s.store.DeleteNode(ctx, nodeID); err != nil {
		s.emit(NoticeError, "could not delete node: %v", err)
		return err
	}
	s.mu.Lock()
	if s.selectedID == nodeID {
		s.selectedID = ""
		s.selectedCtx = nil
	}
	s.mu.Unlock()
	return nil
}

// DeleteConnection removes a connection.
func (s *Session) DeleteConnection(ctx context.Context, connectionID string) error {
	if err := s.store.DeleteConnection(ctx, connectionID); err != nil {
		s.emit(NoticeError, "could not delete connection: %v", err)
		return err
	}
	return nil
}

// --- gesture wiring ---

// ClickOutput feeds an output-socket click to the gesture machine and
// surfaces the resulting notice, if any.
func (s *Session) ClickOutput(nodeID string) gesture.Effect {
	return s.surfaceGesture(s.gesture.ClickOutput(nodeID))
}

// ClickInput feeds an input-socket click to the gesture machine.
func (s *Session) ClickInput(nodeID string) gesture.Effect {
	return s.surfaceGesture(s.gesture.ClickInput(nodeID))
}

// CancelGesture discards the in-progress gesture without any request.
func (s *Session) CancelGesture() gesture.Effect {
	return s.surfaceGesture(s.gesture.Cancel())
}

// ConfirmConnection accepts the pending pair and issues the creation
// request, surfacing success or failure as a notice.
func (s *Session) ConfirmConnection(ctx context.Context) (domain.Connection, error) {
	conn, effect, err := s.gesture.Confirm(ctx)
	if effect.Kind != gesture.EffectSubmit {
		return domain.Connection{}, nil
	}
	if err != nil {
		s.emit(NoticeError, "could not create connection: %v", err)
		return domain.Connection{}, err
	}
	s.emit(NoticeInfo, "connected %s to %s", conn.SourceNodeID, conn.TargetNodeID)
	return conn, nil
}

func (s *Session) surfaceGesture(effect gesture.Effect) gesture.Effect {
	switch effect.Kind {
	case gesture.EffectCancelled:
		s.emit(NoticeInfo, "connection cancelled")
	case gesture.EffectRejectSelfLoop:
		s.emit(NoticeWarn, "%v", domain.ErrSelfLoop)
	}
	return effect
}

// --- drag wiring ---

// BeginDrag starts moving a node.
func (s *Session) BeginDrag(nodeID string) error {
	if err := s.placement.BeginDrag(nodeID); err != nil {
		s.emit(NoticeWarn, "cannot start drag: %v", err)
		return err
	}
	return nil
}

// DragTo updates the candidate cell from a pointer position.
func (s *Session) DragTo(px, py float64) (domain.Position, error) {
	return s.placement.DragTo(px, py)
}

// EndDrag commits or reverts the move, surfacing a rejected drop.
func (s *Session) EndDrag(ctx context.Context) (bool, error) {
	moved, err := s.placement.EndDrag(ctx)
	if err != nil {
		s.emit(NoticeWarn, "move rejected: %v", err)
	}
	return moved, err
}
