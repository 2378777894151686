// Package graph holds the authoritative-for-this-session view of one
// workflow: its nodes, connections, and the read-only module catalog.
//
// The store is a cache over the remote persistence service. It never
// applies a mutation optimistically: every entry point checks local
// preconditions, issues the remote call, and on success refetches the
// affected scopes, so the exposed graph always reflects last-confirmed
// server state.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/ports"
)

// Store owns the in-memory node/connection collections for the lifetime
// of an open workflow view. No other component writes to them directly.
type Store struct {
	remote     ports.Remote
	workflowID string
	logger     *slog.Logger

	mu      sync.Mutex
	nodes   []domain.Node
	conns   []domain.Connection
	catalog domain.Catalog
	desc    domain.GraphDescriptor

	// version bumps on every applied refresh. Consumers (notably the
	// context resolver) key memoized derivations on it.
	version uint64

	// Stale-response guard: refreshes are ticketed per scope at issue
	// time; a result whose ticket is older than the last applied one for
	// the same scope is discarded, not applied.
	seq     uint64
	applied map[Scope]uint64
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for refresh and mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store bound to one workflow on the given remote.
func NewStore(remote ports.Remote, workflowID string, opts ...Option) *Store {
	s := &Store{
		remote:     remote,
		workflowID: workflowID,
		logger:     logging.NewNop(),
		applied:    make(map[Scope]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WorkflowID returns the workflow this store is bound to.
func (s *Store) WorkflowID() string {
	return s.workflowID
}

// Version returns the current store version. It changes whenever a
// refresh is applied, never on a discarded stale result.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Nodes returns a copy of the current node list.
func (s *Store) Nodes() []domain.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Node returns one node by ID.
func (s *Store) Node(id string) (domain.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return domain.Node{}, false
}

// Connections returns a copy of the current connection list.
func (s *Store) Connections() []domain.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Connection, len(s.conns))
	copy(out, s.conns)
	return out
}

// Catalog returns the module catalog fetched at open.
func (s *Store) Catalog() domain.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Descriptor returns the last fetched aggregate graph descriptor.
func (s *Store) Descriptor() domain.GraphDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// OccupiedBy returns the ID of the node holding a grid cell, if any.
func (s *Store) OccupiedBy(pos domain.Position) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.Position == pos {
			return n.ID, true
		}
	}
	return "", false
}

// Refresh re-pulls the given scopes from the remote and applies each
// result unless a newer result for the same scope already landed. The
// first fetch error aborts the remaining scopes.
func (s *Store) Refresh(ctx context.Context, scopes ...Scope) error {
	for _, scope := range scopes {
		if err := s.refreshOne(ctx, scope); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) refreshOne(ctx context.Context, scope Scope) error {
	ticket := s.issue()

	switch scope {
	case ScopeNodes:
		nodes, err := s.remote.ListNodes(ctx, s.workflowID)
		if err != nil {
			return fmt.Errorf("failed to refresh nodes: %w", err)
		}
		s.apply(scope, ticket, func() { s.nodes = nodes })
	case ScopeConnections:
		conns, err := s.remote.ListConnections(ctx, s.workflowID)
		if err != nil {
			return fmt.Errorf("failed to refresh connections: %w", err)
		}
		s.apply(scope, ticket, func() { s.conns = conns })
	case ScopeGraph:
		desc, err := s.remote.Graph(ctx, s.workflowID)
		if err != nil {
			return fmt.Errorf("failed to refresh graph descriptor: %w", err)
		}
		s.apply(scope, ticket, func() { s.desc = desc })
	case ScopeModules:
		modules, err := s.remote.Modules(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh module catalog: %w", err)
		}
		s.apply(scope, ticket, func() { s.catalog = domain.NewCatalog(modules) })
	default:
		return fmt.Errorf("unknown refresh scope %q", scope)
	}
	return nil
}

func (s *Store) issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store) apply(scope Scope, ticket uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.applied[scope] {
		s.logger.Debug("discarding stale refresh result",
			"scope", scope, "ticket", ticket, "applied", s.applied[scope])
		return
	}
	s.applied[scope] = ticket
	set()
	s.version++
}

// AddNode creates a node at the given cell. The cell must be free; the
// check runs locally before any network call.
func (s *Store) AddNode(ctx context.Context, draft domain.NodeDraft) (domain.Node, error) {
	if holder, taken := s.OccupiedBy(draft.Position); taken {
		return domain.Node{}, fmt.Errorf("cell (%d,%d) held by node %s: %w",
			draft.Position.Col, draft.Position.Row, holder, domain.ErrCellOccupied)
	}

	node, err := s.remote.CreateNode(ctx, s.workflowID, draft)
	if err != nil {
		return domain.Node{}, fmt.Errorf("failed to create node: %w", err)
	}

	s.logger.Info("node created", "node_id", node.ID, "module_type", node.ModuleType)
	if err := s.Refresh(ctx, ScopeNodes, ScopeGraph); err != nil {
		return node, err
	}
	return node, nil
}

// UpdateNodePosition moves a node to a new cell. The target cell must be
// free of any other node.
func (s *Store) UpdateNodePosition(ctx context.Context, nodeID string, pos domain.Position) error {
	if _, ok := s.Node(nodeID); !ok {
		return domain.ErrNodeNotFound
	}
	if holder, taken := s.OccupiedBy(pos); taken && holder != nodeID {
		return fmt.Errorf("cell (%d,%d) held by node %s: %w", pos.Col, pos.Row, holder, domain.ErrCellOccupied)
	}

	if _, err := s.remote.UpdateNode(ctx, nodeID, domain.NodePatch{Position: &pos}); err != nil {
		return fmt.Errorf("failed to move node %s: %w", nodeID, err)
	}

	s.logger.Info("node moved", "node_id", nodeID, "col", pos.Col, "row", pos.Row)
	return s.Refresh(ctx, ScopeNodes, ScopeGraph)
}

// UpdateNodeConfig replaces a node's opaque config payload.
func (s *Store) UpdateNodeConfig(ctx context.Context, nodeID string, config map[string]any) error {
	if _, ok := s.Node(nodeID); !ok {
		return domain.ErrNodeNotFound
	}
	if _, err := s.remote.UpdateNode(ctx, nodeID, domain.NodePatch{Config: &config}); err != nil {
		return fmt.Errorf("failed to update node %s config: %w", nodeID, err)
	}
	return s.Refresh(ctx, ScopeNodes)
}

// UpdateNodeCheckpointName relabels a node.
func (s *Store) UpdateNodeCheckpointName(ctx context.Context, nodeID, name string) error {
	if _, ok := s.Node(nodeID); !ok {
		return domain.ErrNodeNotFound
	}
	if _, err := s.remote.UpdateNode(ctx, nodeID, domain.NodePatch{CheckpointName: &name}); err != nil {
		return fmt.Errorf("failed to rename node %s: %w", nodeID, err)
	}
	return s.Refresh(ctx, ScopeNodes)
}

// DeleteNode removes a node. The remote cascades the node's connections,
// so connections are refetched along with nodes.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	if _, ok := s.Node(nodeID); !ok {
		return domain.ErrNodeNotFound
	}
	if err := s.remote.DeleteNode(ctx, nodeID); err != nil {
		return fmt.Errorf("failed to delete node %s: %w", nodeID, err)
	}

	s.logger.Info("node deleted", "node_id", nodeID)
	return s.Refresh(ctx, ScopeNodes, ScopeConnections, ScopeGraph)
}

// AddConnection creates a directed edge. Self-loops and duplicates are
// rejected locally before any network call; the remote enforces the same
// policy for changes racing in from other sessions.
func (s *Store) AddConnection(ctx context.Context, draft domain.ConnectionDraft) (domain.Connection, error) {
	if draft.SourceNodeID == draft.TargetNodeID {
		return domain.Connection{}, domain.ErrSelfLoop
	}
	for _, c := range s.Connections() {
		if draft.SamePath(c) {
			return domain.Connection{}, domain.ErrDuplicateConnection
		}
	}

	conn, err := s.remote.CreateConnection(ctx, s.workflowID, draft)
	if err != nil {
		return domain.Connection{}, fmt.Errorf("failed to create connection: %w", err)
	}

	s.logger.Info("connection created",
		"connection_id", conn.ID, "source", conn.SourceNodeID, "target", conn.TargetNodeID)
	if err := s.Refresh(ctx, ScopeConnections, ScopeGraph); err != nil {
		return conn, err
	}
	return conn, nil
}

// DeleteConnection removes a connection.
func (s *Store) DeleteConnection(ctx context.Context, connectionID string) error {
	if err := s.remote.DeleteConnection(ctx, connectionID); err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", connectionID, err)
	}
	return s.Refresh(ctx, ScopeConnections, ScopeGraph)
}
