package editor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/adapters/memory"
	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/editor"
	"github.com/loomengine/loom/pkg/gesture"
)

type noticeRecorder struct {
	mu      sync.Mutex
	notices []editor.Notice
}

func (r *noticeRecorder) sink(n editor.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) byLevel(level editor.NoticeLevel) []editor.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []editor.Notice
	for _, n := range r.notices {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

func openSession(t *testing.T) (*editor.Session, *memory.Remote, *noticeRecorder) {
	t.Helper()
	remote := memory.NewRemote()
	remote.AddWorkflow("wf-1")
	remote.SetModules([]domain.Module{
		{Type: "excel_import", DisplayName: "Excel Import"},
		{Type: "statistics", DisplayName: "Statistics"},
	})

	rec := &noticeRecorder{}
	session, err := editor.Open(context.Background(), remote, remote, "wf-1",
		editor.WithNoticeSink(rec.sink))
	require.NoError(t, err)
	t.Cleanup(session.Close)

	// the bridge subscribes asynchronously; wait so no test mutation
	// races the subscription
	require.Eventually(t, func() bool {
		return remote.Subscribers("wf-1") > 0
	}, 2*time.Second, time.Millisecond)
	return session, remote, rec
}

func TestOpen_UnknownWorkflow(t *testing.T) {
	remote := memory.NewRemote()
	_, err := editor.Open(context.Background(), remote, remote, "missing")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestSession_AddNodePicksFirstFreeCell(t *testing.T) {
	ctx := context.Background()
	session, _, _ := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Col: 0, Row: 0}, a.Position)

	b, err := session.AddNode(ctx, "statistics", "stage two")
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Col: 1, Row: 0}, b.Position)
	assert.Equal(t, "stage two", b.CheckpointName)
}

func TestSession_AddNodeUnknownModuleType(t *testing.T) {
	ctx := context.Background()
	session, _, rec := openSession(t)

	_, err := session.AddNode(ctx, "nonexistent", "")
	require.Error(t, err)
	assert.NotEmpty(t, rec.byLevel(editor.NoticeError))
	assert.Empty(t, session.Store().Nodes())
}

func TestSession_TwoClickConnection(t *testing.T) {
	ctx := context.Background()
	session, _, _ := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	b, err := session.AddNode(ctx, "statistics", "")
	require.NoError(t, err)

	effect := session.ClickOutput(a.ID)
	assert.Equal(t, gesture.EffectHighlightOutput, effect.Kind)

	effect = session.ClickInput(b.ID)
	require.Equal(t, gesture.EffectShowConfirm, effect.Kind)

	conn, err := session.ConfirmConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, conn.SourceNodeID)
	assert.Equal(t, b.ID, conn.TargetNodeID)
	assert.Len(t, session.Store().Connections(), 1)
}

func TestSession_GestureSelfLoopSurfacesWarning(t *testing.T) {
	ctx := context.Background()
	session, _, rec := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)

	session.ClickOutput(a.ID)
	effect := session.ClickInput(a.ID)
	assert.Equal(t, gesture.EffectRejectSelfLoop, effect.Kind)
	assert.NotEmpty(t, rec.byLevel(editor.NoticeWarn))
	assert.Empty(t, session.Store().Connections())
}

func TestSession_SelectionFollowsContext(t *testing.T) {
	ctx := context.Background()
	session, _, _ := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	b, err := session.AddNode(ctx, "statistics", "")
	require.NoError(t, err)

	session.ClickOutput(a.ID)
	session.ClickInput(b.ID)
	_, err = session.ConfirmConnection(ctx)
	require.NoError(t, err)

	nodeCtx, err := session.Select(b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, nodeCtx.Predecessors)

	cached, ok := session.Selected()
	assert.True(t, ok)
	assert.Equal(t, nodeCtx, cached)

	session.ClearSelection()
	_, ok = session.Selected()
	assert.False(t, ok)

	_, err = session.Select("missing")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestSession_LocalDeleteClearsOwnSelection(t *testing.T) {
	ctx := context.Background()
	session, _, _ := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	_, err = session.Select(a.ID)
	require.NoError(t, err)

	require.NoError(t, session.DeleteNode(ctx, a.ID))
	_, ok := session.Selected()
	assert.False(t, ok, "deleting the selected node clears the selection immediately")
}

func TestSession_RemoteDeleteClearsSelection(t *testing.T) {
	ctx := context.Background()
	session, remote, rec := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	_, err = session.Select(a.ID)
	require.NoError(t, err)

	// deleted by another session, arrives via the change feed
	require.NoError(t, remote.DeleteNode(ctx, a.ID))

	require.Eventually(t, func() bool {
		_, ok := session.Selected()
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, rec.byLevel(editor.NoticeInfo))
}

func TestSession_RemoteNeighborChangeRefreshesSelectionContext(t *testing.T) {
	ctx := context.Background()
	session, remote, _ := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	b, err := session.AddNode(ctx, "statistics", "")
	require.NoError(t, err)

	session.ClickOutput(a.ID)
	session.ClickInput(b.ID)
	_, err = session.ConfirmConnection(ctx)
	require.NoError(t, err)

	_, err = session.Select(b.ID)
	require.NoError(t, err)

	// another session deletes the predecessor; the cached context of the
	// selection must converge
	require.NoError(t, remote.DeleteNode(ctx, a.ID))

	require.Eventually(t, func() bool {
		cached, ok := session.Selected()
		return ok && len(cached.Predecessors) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSession_DragCommitsThroughStore(t *testing.T) {
	ctx := context.Background()
	session, _, _ := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)

	require.NoError(t, session.BeginDrag(a.ID))
	grid := session.Placement().Grid()
	_, err = session.DragTo(float64(3*grid.CellWidth)+1, float64(2*grid.CellHeight)+1)
	require.NoError(t, err)

	moved, err := session.EndDrag(ctx)
	require.NoError(t, err)
	assert.True(t, moved)

	node, ok := session.Store().Node(a.ID)
	require.True(t, ok)
	assert.Equal(t, domain.Position{Col: 3, Row: 2}, node.Position)
}

func TestSession_DragOntoOccupiedCellSurfacesWarning(t *testing.T) {
	ctx := context.Background()
	session, _, rec := openSession(t)

	a, err := session.AddNode(ctx, "excel_import", "")
	require.NoError(t, err)
	b, err := session.AddNode(ctx, "statistics", "")
	require.NoError(t, err)

	require.NoError(t, session.BeginDrag(a.ID))
	grid := session.Placement().Grid()
	_, err = session.DragTo(float64(b.Position.Col*grid.CellWidth)+1, float64(b.Position.Row*grid.CellHeight)+1)
	require.NoError(t, err)

	moved, err := session.EndDrag(ctx)
	assert.ErrorIs(t, err, domain.ErrCellOccupied)
	assert.False(t, moved)
	assert.NotEmpty(t, rec.byLevel(editor.NoticeWarn))

	node, _ := session.Store().Node(a.ID)
	assert.Equal(t, domain.Position{Col: 0, Row: 0}, node.Position)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	session, _, _ := openSession(t)
	session.Close()
	session.Close()
}
