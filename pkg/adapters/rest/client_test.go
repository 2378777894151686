package rest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/internal/server"
	"github.com/loomengine/loom/pkg/adapters/rest"
	"github.com/loomengine/loom/pkg/ports/tests"
)

func newTestClient(t *testing.T) *rest.Client {
	t.Helper()
	store := server.NewMemStore()
	srv := server.New(store, server.DefaultCatalog())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return rest.NewClient(ts.URL)
}

func TestClient_RemoteContract(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.EnsureWorkflow(context.Background(), "contract"))
	tests.RunRemoteContract(t, client, "contract")
}

func TestClient_Modules(t *testing.T) {
	client := newTestClient(t)
	modules, err := client.Modules(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, modules)
	assert.NotEmpty(t, modules[0].Type)
}

func TestClient_Workflows(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	require.NoError(t, client.EnsureWorkflow(ctx, "alpha"))
	require.NoError(t, client.EnsureWorkflow(ctx, "beta"))
	require.NoError(t, client.EnsureWorkflow(ctx, "alpha"))

	ids, err := client.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)
}

func TestClient_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	client := rest.NewClient(ts.URL)
	_, err := client.ListNodes(context.Background(), "wf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
