package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, WithPrefix("loomtest:"))
}

func TestStore_NodeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.EnsureWorkflow(ctx, "wf-1"))

	node, err := store.CreateNode(ctx, "wf-1", domain.NodeDraft{
		ModuleType: "excel_import",
		Position:   domain.Position{Col: 2, Row: 3},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)

	// same cell is rejected
	_, err = store.CreateNode(ctx, "wf-1", domain.NodeDraft{
		ModuleType: "filter",
		Position:   domain.Position{Col: 2, Row: 3},
	})
	assert.ErrorIs(t, err, domain.ErrCellOccupied)

	name := "cleaned"
	updated, workflowID, err := store.UpdateNode(ctx, node.ID, domain.NodePatch{
		Position:       &domain.Position{Col: 4, Row: 3},
		CheckpointName: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, "wf-1", workflowID)
	assert.Equal(t, domain.Position{Col: 4, Row: 3}, updated.Position)
	assert.Equal(t, "cleaned", updated.CheckpointName)

	nodes, err := store.ListNodes(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, updated, nodes[0])

	desc, err := store.Graph(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, desc.NodeCount)
	assert.Greater(t, desc.Revision, int64(0))
}

func TestStore_DeleteNodeCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.EnsureWorkflow(ctx, "wf-1"))

	a, err := store.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "excel_import", Position: domain.Position{Col: 0, Row: 0}})
	require.NoError(t, err)
	b, err := store.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "statistics", Position: domain.Position{Col: 1, Row: 0}})
	require.NoError(t, err)
	c, err := store.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "csv_export", Position: domain.Position{Col: 2, Row: 0}})
	require.NoError(t, err)

	_, err = store.CreateConnection(ctx, "wf-1", domain.ConnectionDraft{
		SourceNodeID: a.ID, SourcePort: domain.PortOutput,
		TargetNodeID: b.ID, TargetPort: domain.PortInput,
	})
	require.NoError(t, err)
	survivor, err := store.CreateConnection(ctx, "wf-1", domain.ConnectionDraft{
		SourceNodeID: b.ID, SourcePort: domain.PortOutput,
		TargetNodeID: c.ID, TargetPort: domain.PortInput,
	})
	require.NoError(t, err)

	cascaded, workflowID, err := store.DeleteNode(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", workflowID)
	require.Len(t, cascaded, 1)
	assert.Equal(t, a.ID, cascaded[0].SourceNodeID)

	conns, err := store.ListConnections(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, survivor.ID, conns[0].ID)

	_, _, err = store.UpdateNode(ctx, a.ID, domain.NodePatch{})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestStore_ConnectionPolicy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.EnsureWorkflow(ctx, "wf-1"))

	a, err := store.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "excel_import", Position: domain.Position{Col: 0, Row: 0}})
	require.NoError(t, err)
	b, err := store.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "filter", Position: domain.Position{Col: 1, Row: 0}})
	require.NoError(t, err)

	_, err = store.CreateConnection(ctx, "wf-1", domain.ConnectionDraft{
		SourceNodeID: a.ID, SourcePort: domain.PortOutput,
		TargetNodeID: a.ID, TargetPort: domain.PortInput,
	})
	assert.ErrorIs(t, err, domain.ErrSelfLoop)

	draft := domain.ConnectionDraft{
		SourceNodeID: a.ID, SourcePort: domain.PortOutput,
		TargetNodeID: b.ID, TargetPort: domain.PortInput,
	}
	conn, err := store.CreateConnection(ctx, "wf-1", draft)
	require.NoError(t, err)

	_, err = store.CreateConnection(ctx, "wf-1", draft)
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)

	deleted, workflowID, err := store.DeleteConnection(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", workflowID)
	assert.Equal(t, conn, deleted)

	_, _, err = store.DeleteConnection(ctx, conn.ID)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestStore_UnknownWorkflow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.ListNodes(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	_, err = store.CreateNode(ctx, "nope", domain.NodeDraft{ModuleType: "filter"})
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}
