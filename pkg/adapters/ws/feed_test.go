package ws_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/internal/server"
	"github.com/loomengine/loom/pkg/adapters/ws"
	"github.com/loomengine/loom/pkg/domain"
)

func newTestServer(t *testing.T) (*server.Server, string) {
	t.Helper()
	store := server.NewMemStore()
	require.NoError(t, store.EnsureWorkflow(context.Background(), "wf-1"))
	srv := server.New(store, server.DefaultCatalog())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL
}

func waitForSubscriber(t *testing.T, srv *server.Server, workflowID string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for srv.Hub().Subscribers(workflowID) == 0 {
		select {
		case <-deadline:
			t.Fatal("feed subscriber never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFeed_DeliversEvents(t *testing.T) {
	srv, baseURL := newTestServer(t)
	feed := ws.NewFeed(baseURL)

	events, unsubscribe, err := feed.Subscribe(context.Background(), "wf-1")
	require.NoError(t, err)
	defer unsubscribe()

	waitForSubscriber(t, srv, "wf-1")
	srv.Hub().Publish("wf-1", domain.ChangeNodeCreated, "n-1")

	select {
	case event := <-events:
		assert.Equal(t, domain.ChangeNodeCreated, event.Type)
		assert.Equal(t, "n-1", event.NodeID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestFeed_UnsubscribeClosesChannel(t *testing.T) {
	_, baseURL := newTestServer(t)
	feed := ws.NewFeed(baseURL)

	events, unsubscribe, err := feed.Subscribe(context.Background(), "wf-1")
	require.NoError(t, err)

	unsubscribe()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel must be closed after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestFeed_ContextCancelClosesChannel(t *testing.T) {
	_, baseURL := newTestServer(t)
	feed := ws.NewFeed(baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe, err := feed.Subscribe(ctx, "wf-1")
	require.NoError(t, err)
	defer unsubscribe()

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel must be closed after context cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

func TestFeed_UnknownWorkflow(t *testing.T) {
	_, baseURL := newTestServer(t)
	feed := ws.NewFeed(baseURL)

	_, _, err := feed.Subscribe(context.Background(), "missing")
	assert.Error(t, err)
}
