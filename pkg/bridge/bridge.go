// Package bridge keeps the local graph store converging to server state
// when changes originate from other sessions. It consumes the
// per-workflow push channel and triggers scoped refreshes; it never
// merges remote deltas field-by-field, it refetches the invalidated
// scopes whole (simplicity over bandwidth, workflows are small).
package bridge

import (
	"context"
	"log/slog"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/graph"
	"github.com/loomengine/loom/pkg/ports"
)

// Selection is the slice of the editor session the bridge needs: the
// currently selected node's cached context, invalidation, and clearing
// when the selected node is deleted remotely.
type Selection interface {
	// Current returns the cached context of the selected node, if any.
	Current() (domain.NodeContext, bool)

	// Invalidate recomputes the selected node's context.
	Invalidate()

	// Clear drops the selection and its context.
	Clear()
}

// Bridge subscribes to the change feed of the store's workflow and
// applies the invalidation policy per event.
type Bridge struct {
	feed      ports.ChangeFeed
	store     *graph.Store
	selection Selection
	logger    *slog.Logger
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithLogger configures a logger for feed handling.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// New creates a bridge between a change feed and a graph store.
// selection may be nil when no selection tracking is wanted (e.g. a
// headless watcher).
func New(feed ports.ChangeFeed, store *graph.Store, selection Selection, opts ...Option) *Bridge {
	b := &Bridge{
		feed:      feed,
		store:     store,
		selection: selection,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run subscribes and processes events until the context is cancelled or
// the feed closes. The subscription is released on return; callers close
// the workflow view simply by cancelling the context.
func (b *Bridge) Run(ctx context.Context) error {
	events, unsubscribe, err := b.feed.Subscribe(ctx, b.store.WorkflowID())
	if err != nil {
		return err
	}
	defer unsubscribe()

	b.logger.Debug("sync bridge subscribed", "workflow_id", b.store.WorkflowID())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			b.handle(ctx, event)
		}
	}
}

// handle refreshes nodes, connections, and the aggregate descriptor on
// every event, then reconciles the selection: a remote delete of the
// selected node clears it; a change touching the selection's neighborhood
// recomputes its context.
func (b *Bridge) handle(ctx context.Context, event domain.ChangeEvent) {
	b.logger.Debug("remote change received", "type", string(event.Type), "node_id", event.NodeID)

	if err := b.store.Refresh(ctx, graph.ScopeNodes, graph.ScopeConnections, graph.ScopeGraph); err != nil {
		// Recoverable: the next event or user action refetches again.
		b.logger.Warn("refresh after remote change failed", "err", err)
		return
	}

	if b.selection == nil {
		return
	}
	current, ok := b.selection.Current()
	if !ok {
		return
	}

	if event.Type == domain.ChangeNodeDeleted && event.NodeID == current.NodeID {
		b.logger.Info("selected node deleted remotely, clearing selection", "node_id", current.NodeID)
		b.selection.Clear()
		return
	}
	if current.Mentions(event.NodeID) {
		b.selection.Invalidate()
	}
}
