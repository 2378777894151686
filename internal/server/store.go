package server

import (
	"context"

	"github.com/loomengine/loom/pkg/domain"
)

// WorkflowStore is the server-side durable store. It is the
// conflict-resolution authority: all graph policy (cell occupancy,
// self-loop and duplicate rejection, delete cascade) is enforced here,
// whatever the transport.
//
// Node and connection mutations addressed by bare IDs return the owning
// workflow ID so the caller can publish change events to the right feed.
type WorkflowStore interface {
	EnsureWorkflow(ctx context.Context, workflowID string) error
	ListWorkflows(ctx context.Context) ([]string, error)

	ListNodes(ctx context.Context, workflowID string) ([]domain.Node, error)
	ListConnections(ctx context.Context, workflowID string) ([]domain.Connection, error)
	Graph(ctx context.Context, workflowID string) (domain.GraphDescriptor, error)

	CreateNode(ctx context.Context, workflowID string, draft domain.NodeDraft) (domain.Node, error)
	UpdateNode(ctx context.Context, nodeID string, patch domain.NodePatch) (domain.Node, string, error)

	// DeleteNode removes a node and cascades its connections, returning
	// the cascaded connections and the owning workflow.
	DeleteNode(ctx context.Context, nodeID string) ([]domain.Connection, string, error)

	CreateConnection(ctx context.Context, workflowID string, draft domain.ConnectionDraft) (domain.Connection, error)
	DeleteConnection(ctx context.Context, connectionID string) (domain.Connection, string, error)
}
