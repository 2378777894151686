package ports

import (
	"context"

	"github.com/loomengine/loom/pkg/domain"
)

// Remote is the persistence collaborator. It is the only writer of
// durable truth; every local view is a cache that must converge to the
// remote's state on the next successful fetch.
//
// Implementations must return domain sentinel errors for the policy
// failures they enforce: domain.ErrSelfLoop, domain.ErrDuplicateConnection,
// domain.ErrCellOccupied, domain.ErrNodeNotFound, domain.ErrWorkflowNotFound.
type Remote interface {
	// ListNodes returns all nodes of a workflow.
	ListNodes(ctx context.Context, workflowID string) ([]domain.Node, error)

	// ListConnections returns all connections of a workflow.
	ListConnections(ctx context.Context, workflowID string) ([]domain.Connection, error)

	// Graph returns the aggregate graph descriptor of a workflow.
	Graph(ctx context.Context, workflowID string) (domain.GraphDescriptor, error)

	// Modules returns the module catalog. Catalog data is immutable per
	// session.
	Modules(ctx context.Context) ([]domain.Module, error)

	// CreateNode adds a node; the remote assigns the ID.
	CreateNode(ctx context.Context, workflowID string, draft domain.NodeDraft) (domain.Node, error)

	// UpdateNode applies a partial update to a node.
	UpdateNode(ctx context.Context, nodeID string, patch domain.NodePatch) (domain.Node, error)

	// DeleteNode removes a node. The remote cascades the node's
	// connections; clients react to the resulting push notifications
	// rather than computing the cascade themselves.
	DeleteNode(ctx context.Context, nodeID string) error

	// CreateConnection adds a directed edge. The remote must reject
	// self-loops and duplicates.
	CreateConnection(ctx context.Context, workflowID string, draft domain.ConnectionDraft) (domain.Connection, error)

	// DeleteConnection removes a connection.
	DeleteConnection(ctx context.Context, connectionID string) error
}
