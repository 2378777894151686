package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/adapters/memory"
	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/ports/tests"
)

func TestRemote_Contract(t *testing.T) {
	remote := memory.NewRemote()
	remote.AddWorkflow("contract")
	tests.RunRemoteContract(t, remote, "contract")
}

func TestRemote_FeedOrderOnCascade(t *testing.T) {
	ctx := context.Background()
	remote := memory.NewRemote()
	remote.AddWorkflow("wf-1")

	a, err := remote.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "excel_import", Position: domain.Position{Col: 0, Row: 0}})
	require.NoError(t, err)
	b, err := remote.CreateNode(ctx, "wf-1", domain.NodeDraft{ModuleType: "statistics", Position: domain.Position{Col: 1, Row: 0}})
	require.NoError(t, err)
	_, err = remote.CreateConnection(ctx, "wf-1", domain.ConnectionDraft{
		SourceNodeID: a.ID, SourcePort: domain.PortOutput,
		TargetNodeID: b.ID, TargetPort: domain.PortInput,
	})
	require.NoError(t, err)

	events, unsubscribe, err := remote.Subscribe(ctx, "wf-1")
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, remote.DeleteNode(ctx, a.ID))

	first := <-events
	assert.Equal(t, domain.ChangeNodeDeleted, first.Type)
	assert.Equal(t, a.ID, first.NodeID)

	second := <-events
	assert.Equal(t, domain.ChangeConnectionDeleted, second.Type)
	assert.Equal(t, a.ID, second.NodeID, "connection events carry the source node ID")
}

func TestRemote_SubscribeUnknownWorkflow(t *testing.T) {
	remote := memory.NewRemote()
	_, _, err := remote.Subscribe(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestRemote_UnsubscribeClosesChannel(t *testing.T) {
	remote := memory.NewRemote()
	remote.AddWorkflow("wf-1")

	events, unsubscribe, err := remote.Subscribe(context.Background(), "wf-1")
	require.NoError(t, err)

	unsubscribe()
	unsubscribe() // safe to call twice

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRemote_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	ctx := context.Background()
	remote := memory.NewRemote()
	remote.AddWorkflow("wf-1")

	_, unsubscribe, err := remote.Subscribe(ctx, "wf-1")
	require.NoError(t, err)
	defer unsubscribe()

	// nobody drains the channel; mutations must still complete
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, err := remote.CreateNode(ctx, "wf-1", domain.NodeDraft{
				ModuleType: "filter",
				Position:   domain.Position{Col: i, Row: 0},
			})
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked on a full subscriber buffer")
	}
}
