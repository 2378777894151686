// Package tests provides reusable contract suites for port implementations.
package tests

import (
	"context"
	"testing"

	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRemoteContract verifies that a Remote implementation adheres to the
// persistence contract: CRUD semantics, self-loop and duplicate rejection,
// cell-occupancy rejection, and delete cascade.
//
// workflowID must name an existing, empty workflow on the remote.
func RunRemoteContract(t *testing.T, remote ports.Remote, workflowID string) {
	t.Helper()
	ctx := context.Background()

	var a, b domain.Node

	t.Run("CreateNode assigns ID and persists position", func(t *testing.T) {
		var err error
		a, err = remote.CreateNode(ctx, workflowID, domain.NodeDraft{
			ModuleType: "excel_import",
			Position:   domain.Position{Col: 0, Row: 0},
		})
		require.NoError(t, err)
		require.NotEmpty(t, a.ID)

		b, err = remote.CreateNode(ctx, workflowID, domain.NodeDraft{
			ModuleType:     "statistics",
			CheckpointName: "after import",
			Position:       domain.Position{Col: 1, Row: 0},
		})
		require.NoError(t, err)

		nodes, err := remote.ListNodes(ctx, workflowID)
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("CreateNode rejects occupied cell", func(t *testing.T) {
		_, err := remote.CreateNode(ctx, workflowID, domain.NodeDraft{
			ModuleType: "statistics",
			Position:   domain.Position{Col: 0, Row: 0},
		})
		assert.ErrorIs(t, err, domain.ErrCellOccupied)
	})

	t.Run("UpdateNode moves and relabels", func(t *testing.T) {
		pos := domain.Position{Col: 2, Row: 3}
		name := "renamed"
		updated, err := remote.UpdateNode(ctx, a.ID, domain.NodePatch{
			Position:       &pos,
			CheckpointName: &name,
		})
		require.NoError(t, err)
		assert.Equal(t, pos, updated.Position)
		assert.Equal(t, name, updated.CheckpointName)
	})

	t.Run("UpdateNode rejects occupied cell", func(t *testing.T) {
		pos := b.Position
		_, err := remote.UpdateNode(ctx, a.ID, domain.NodePatch{Position: &pos})
		assert.ErrorIs(t, err, domain.ErrCellOccupied)
	})

	t.Run("CreateConnection rejects self-loop", func(t *testing.T) {
		_, err := remote.CreateConnection(ctx, workflowID, domain.ConnectionDraft{
			SourceNodeID: a.ID,
			SourcePort:   domain.PortOutput,
			TargetNodeID: a.ID,
			TargetPort:   domain.PortInput,
		})
		assert.ErrorIs(t, err, domain.ErrSelfLoop)
	})

	t.Run("CreateConnection and duplicate rejection", func(t *testing.T) {
		draft := domain.ConnectionDraft{
			SourceNodeID: a.ID,
			SourcePort:   domain.PortOutput,
			TargetNodeID: b.ID,
			TargetPort:   domain.PortInput,
		}
		conn, err := remote.CreateConnection(ctx, workflowID, draft)
		require.NoError(t, err)
		require.NotEmpty(t, conn.ID)

		_, err = remote.CreateConnection(ctx, workflowID, draft)
		assert.ErrorIs(t, err, domain.ErrDuplicateConnection)

		conns, err := remote.ListConnections(ctx, workflowID)
		require.NoError(t, err)
		assert.Len(t, conns, 1)
	})

	t.Run("Graph descriptor reflects counts", func(t *testing.T) {
		g, err := remote.Graph(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, 2, g.NodeCount)
		assert.Equal(t, 1, g.ConnectionCount)
	})

	t.Run("DeleteNode cascades connections", func(t *testing.T) {
		require.NoError(t, remote.DeleteNode(ctx, a.ID))

		nodes, err := remote.ListNodes(ctx, workflowID)
		require.NoError(t, err)
		assert.Len(t, nodes, 1)

		conns, err := remote.ListConnections(ctx, workflowID)
		require.NoError(t, err)
		assert.Empty(t, conns, "deleting a node must cascade its connections")
	})

	t.Run("Lookups on missing IDs", func(t *testing.T) {
		_, err := remote.UpdateNode(ctx, "missing-node", domain.NodePatch{})
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)

		err = remote.DeleteConnection(ctx, "missing-connection")
		assert.ErrorIs(t, err, domain.ErrConnectionNotFound)

		_, err = remote.ListNodes(ctx, "missing-workflow")
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})
}
