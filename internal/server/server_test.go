package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/internal/server"
	"github.com/loomengine/loom/pkg/domain"
)

type fixture struct {
	t   *testing.T
	srv *server.Server
	ts  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := server.NewMemStore()
	require.NoError(t, store.EnsureWorkflow(context.Background(), "wf-1"))
	srv := server.New(store, server.DefaultCatalog())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{t: t, srv: srv, ts: ts}
}

func (f *fixture) do(method, path string, body any) *http.Response {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(f.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) createNode(col, row int) domain.Node {
	f.t.Helper()
	resp := f.do(http.MethodPost, "/workflows/wf-1/nodes", domain.NodeDraft{
		ModuleType: "filter",
		Position:   domain.Position{Col: col, Row: row},
	})
	require.Equal(f.t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Node](f.t, resp)
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)
	resp := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_NodeLifecycle(t *testing.T) {
	f := newFixture(t)

	node := f.createNode(0, 0)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "filter", node.ModuleType)

	name := "renamed"
	resp := f.do(http.MethodPut, "/nodes/"+node.ID, domain.NodePatch{CheckpointName: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Node](t, resp)
	assert.Equal(t, "renamed", updated.CheckpointName)

	resp = f.do(http.MethodGet, "/workflows/wf-1/nodes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nodes := decode[[]domain.Node](t, resp)
	assert.Len(t, nodes, 1)

	resp = f.do(http.MethodDelete, "/nodes/"+node.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(http.MethodDelete, "/nodes/"+node.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_PolicyStatusCodes(t *testing.T) {
	f := newFixture(t)
	a := f.createNode(0, 0)
	b := f.createNode(1, 0)

	t.Run("occupied cell is 409 with code", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/workflows/wf-1/nodes", domain.NodeDraft{
			ModuleType: "filter",
			Position:   domain.Position{Col: 0, Row: 0},
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decode[map[string]string](t, resp)
		assert.Equal(t, domain.CodeCellOccupied, body["code"])
	})

	t.Run("self-loop is 400", func(t *testing.T) {
		resp := f.do(http.MethodPost, "/workflows/wf-1/connections", domain.ConnectionDraft{
			SourceNodeID: a.ID, SourcePort: domain.PortOutput,
			TargetNodeID: a.ID, TargetPort: domain.PortInput,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decode[map[string]string](t, resp)
		assert.Equal(t, domain.CodeSelfLoop, body["code"])
	})

	t.Run("duplicate connection is 409", func(t *testing.T) {
		draft := domain.ConnectionDraft{
			SourceNodeID: a.ID, SourcePort: domain.PortOutput,
			TargetNodeID: b.ID, TargetPort: domain.PortInput,
		}
		resp := f.do(http.MethodPost, "/workflows/wf-1/connections", draft)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = f.do(http.MethodPost, "/workflows/wf-1/connections", draft)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decode[map[string]string](t, resp)
		assert.Equal(t, domain.CodeDuplicateConnection, body["code"])
	})

	t.Run("unknown workflow is 404", func(t *testing.T) {
		resp := f.do(http.MethodGet, "/workflows/missing/graph", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_DeleteNodePublishesCascade(t *testing.T) {
	f := newFixture(t)
	a := f.createNode(0, 0)
	b := f.createNode(1, 0)

	resp := f.do(http.MethodPost, "/workflows/wf-1/connections", domain.ConnectionDraft{
		SourceNodeID: a.ID, SourcePort: domain.PortOutput,
		TargetNodeID: b.ID, TargetPort: domain.PortInput,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	events, release := f.srv.Hub().Subscribe("wf-1")
	defer release()

	resp = f.do(http.MethodDelete, "/nodes/"+a.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	first := <-events
	assert.Equal(t, domain.ChangeNodeDeleted, first.Type)
	assert.Equal(t, a.ID, first.NodeID)

	second := <-events
	assert.Equal(t, domain.ChangeConnectionDeleted, second.Type)
	assert.Equal(t, a.ID, second.NodeID)

	resp = f.do(http.MethodGet, "/workflows/wf-1/connections", nil)
	conns := decode[[]domain.Connection](t, resp)
	assert.Empty(t, conns)
}

func TestServer_GraphDescriptor(t *testing.T) {
	f := newFixture(t)
	f.createNode(0, 0)
	f.createNode(1, 0)

	resp := f.do(http.MethodGet, "/workflows/wf-1/graph", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	desc := decode[domain.GraphDescriptor](t, resp)
	assert.Equal(t, "wf-1", desc.WorkflowID)
	assert.Equal(t, 2, desc.NodeCount)
	assert.Equal(t, 0, desc.ConnectionCount)
	assert.Greater(t, desc.Revision, int64(0))
}

func TestServer_CreateWorkflowValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/workflows", map[string]string{"id": "fresh"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(http.MethodPost, "/workflows", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MetricsExposed(t *testing.T) {
	f := newFixture(t)
	f.createNode(0, 0)

	resp := f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "loom_http_requests_total")
	assert.Contains(t, buf.String(), fmt.Sprintf("loom_events_published_total{type=%q}", domain.ChangeNodeCreated))
}
