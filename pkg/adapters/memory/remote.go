// Package memory implements the Remote and ChangeFeed ports entirely
// in-process. It is the reference collaborator for tests and offline use,
// and enforces the same policy as the real persistence service: self-loop
// and duplicate rejection, cell-occupancy rejection, and server-side
// connection cascade on node delete.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/ports"
)

// subscriber channels are buffered; a full buffer drops the event rather
// than blocking the mutation path.
const feedBuffer = 32

type workflow struct {
	nodes    map[string]domain.Node
	conns    map[string]domain.Connection
	revision int64
}

// Remote is an in-memory persistence collaborator. Safe for concurrent use.
type Remote struct {
	mu        sync.Mutex
	workflows map[string]*workflow
	modules   []domain.Module
	subs      map[string]map[chan domain.ChangeEvent]struct{}
	seq       int
}

var (
	_ ports.Remote     = (*Remote)(nil)
	_ ports.ChangeFeed = (*Remote)(nil)
)

// NewRemote creates an empty in-memory collaborator.
func NewRemote() *Remote {
	return &Remote{
		workflows: make(map[string]*workflow),
		subs:      make(map[string]map[chan domain.ChangeEvent]struct{}),
	}
}

// AddWorkflow registers an empty workflow.
func (r *Remote) AddWorkflow(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[id]; !ok {
		r.workflows[id] = &workflow{
			nodes: make(map[string]domain.Node),
			conns: make(map[string]domain.Connection),
		}
	}
}

// SetModules installs the module catalog served by Modules.
func (r *Remote) SetModules(modules []domain.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = append([]domain.Module(nil), modules...)
}

func (r *Remote) workflowLocked(id string) (*workflow, error) {
	wf, ok := r.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return wf, nil
}

func (r *Remote) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

// findNodeLocked locates a node and its owning workflow by node ID alone,
// matching the flat /nodes/{id} shape of the real API.
func (r *Remote) findNodeLocked(nodeID string) (string, *workflow, domain.Node, bool) {
	for wfID, wf := range r.workflows {
		if n, ok := wf.nodes[nodeID]; ok {
			return wfID, wf, n, true
		}
	}
	return "", nil, domain.Node{}, false
}

// ListNodes implements ports.Remote.
func (r *Remote) ListNodes(_ context.Context, workflowID string) ([]domain.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, err := r.workflowLocked(workflowID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Node, 0, len(wf.nodes))
	for _, n := range wf.nodes {
		out = append(out, n.Clone())
	}
	return out, nil
}

// ListConnections implements ports.Remote.
func (r *Remote) ListConnections(_ context.Context, workflowID string) ([]domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, err := r.workflowLocked(workflowID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Connection, 0, len(wf.conns))
	for _, c := range wf.conns {
		out = append(out, c)
	}
	return out, nil
}

// Graph implements ports.Remote.
func (r *Remote) Graph(_ context.Context, workflowID string) (domain.GraphDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, err := r.workflowLocked(workflowID)
	if err != nil {
		return domain.GraphDescriptor{}, err
	}
	return domain.GraphDescriptor{
		WorkflowID:      workflowID,
		NodeCount:       len(wf.nodes),
		ConnectionCount: len(wf.conns),
		Revision:        wf.revision,
	}, nil
}

// Modules implements ports.Remote.
func (r *Remote) Modules(_ context.Context) ([]domain.Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Module(nil), r.modules...), nil
}

// CreateNode implements ports.Remote.
func (r *Remote) CreateNode(_ context.Context, workflowID string, draft domain.NodeDraft) (domain.Node, error) {
	r.mu.Lock()
	wf, err := r.workflowLocked(workflowID)
	if err != nil {
		r.mu.Unlock()
		return domain.Node{}, err
	}
	for _, n := range wf.nodes {
		if n.Position == draft.Position {
			r.mu.Unlock()
			return domain.Node{}, domain.ErrCellOccupied
		}
	}

	node := domain.Node{
		ID:             r.nextID("n"),
		ModuleType:     draft.ModuleType,
		CheckpointName: draft.CheckpointName,
		Position:       draft.Position,
	}
	wf.nodes[node.ID] = node
	wf.revision++
	r.mu.Unlock()

	r.publish(workflowID, domain.ChangeNodeCreated, node.ID)
	return node, nil
}

// UpdateNode implements ports.Remote.
func (r *Remote) UpdateNode(_ context.Context, nodeID string, patch domain.NodePatch) (domain.Node, error) {
	r.mu.Lock()
	wfID, wf, node, ok := r.findNodeLocked(nodeID)
	if !ok {
		r.mu.Unlock()
		return domain.Node{}, domain.ErrNodeNotFound
	}

	if patch.Position != nil {
		for _, other := range wf.nodes {
			if other.ID != nodeID && other.Position == *patch.Position {
				r.mu.Unlock()
				return domain.Node{}, domain.ErrCellOccupied
			}
		}
		node.Position = *patch.Position
	}
	if patch.Config != nil {
		node.Config = *patch.Config
	}
	if patch.CheckpointName != nil {
		node.CheckpointName = *patch.CheckpointName
	}
	wf.nodes[nodeID] = node
	wf.revision++
	r.mu.Unlock()

	r.publish(wfID, domain.ChangeNodeUpdated, nodeID)
	return node.Clone(), nil
}

// DeleteNode implements ports.Remote. Connections touching the node are
// cascaded here, server-side; a connection_deleted event is published for
// each, after the node_deleted event.
func (r *Remote) DeleteNode(_ context.Context, nodeID string) error {
	r.mu.Lock()
	wfID, wf, _, ok := r.findNodeLocked(nodeID)
	if !ok {
		r.mu.Unlock()
		return domain.ErrNodeNotFound
	}

	delete(wf.nodes, nodeID)
	var cascaded []domain.Connection
	for id, c := range wf.conns {
		if c.SourceNodeID == nodeID || c.TargetNodeID == nodeID {
			cascaded = append(cascaded, c)
			delete(wf.conns, id)
		}
	}
	wf.revision++
	r.mu.Unlock()

	r.publish(wfID, domain.ChangeNodeDeleted, nodeID)
	for _, c := range cascaded {
		r.publish(wfID, domain.ChangeConnectionDeleted, c.SourceNodeID)
	}
	return nil
}

// CreateConnection implements ports.Remote.
func (r *Remote) CreateConnection(_ context.Context, workflowID string, draft domain.ConnectionDraft) (domain.Connection, error) {
	if draft.SourceNodeID == draft.TargetNodeID {
		return domain.Connection{}, domain.ErrSelfLoop
	}

	r.mu.Lock()
	wf, err := r.workflowLocked(workflowID)
	if err != nil {
		r.mu.Unlock()
		return domain.Connection{}, err
	}
	if _, ok := wf.nodes[draft.SourceNodeID]; !ok {
		r.mu.Unlock()
		return domain.Connection{}, domain.ErrNodeNotFound
	}
	if _, ok := wf.nodes[draft.TargetNodeID]; !ok {
		r.mu.Unlock()
		return domain.Connection{}, domain.ErrNodeNotFound
	}
	for _, c := range wf.conns {
		if draft.SamePath(c) {
			r.mu.Unlock()
			return domain.Connection{}, domain.ErrDuplicateConnection
		}
	}

	conn := domain.Connection{
		ID:           r.nextID("c"),
		SourceNodeID: draft.SourceNodeID,
		SourcePort:   draft.SourcePort,
		TargetNodeID: draft.TargetNodeID,
		TargetPort:   draft.TargetPort,
	}
	wf.conns[conn.ID] = conn
	wf.revision++
	r.mu.Unlock()

	r.publish(workflowID, domain.ChangeConnectionCreated, conn.SourceNodeID)
	return conn, nil
}

// DeleteConnection implements ports.Remote.
func (r *Remote) DeleteConnection(_ context.Context, connectionID string) error {
	r.mu.Lock()
	for wfID, wf := range r.workflows {
		if c, ok := wf.conns[connectionID]; ok {
			delete(wf.conns, connectionID)
			wf.revision++
			r.mu.Unlock()
			r.publish(wfID, domain.ChangeConnectionDeleted, c.SourceNodeID)
			return nil
		}
	}
	r.mu.Unlock()
	return domain.ErrConnectionNotFound
}

// Subscribers returns the current subscriber count for a workflow.
func (r *Remote) Subscribers(workflowID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[workflowID])
}

// Subscribe implements ports.ChangeFeed.
func (r *Remote) Subscribe(ctx context.Context, workflowID string) (<-chan domain.ChangeEvent, ports.UnsubscribeFunc, error) {
	r.mu.Lock()
	if _, err := r.workflowLocked(workflowID); err != nil {
		r.mu.Unlock()
		return nil, nil, err
	}

	ch := make(chan domain.ChangeEvent, feedBuffer)
	if _, ok := r.subs[workflowID]; !ok {
		r.subs[workflowID] = make(map[chan domain.ChangeEvent]struct{})
	}
	r.subs[workflowID][ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if subs, ok := r.subs[workflowID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(r.subs, workflowID)
				}
			}
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe, nil
}

func (r *Remote) publish(workflowID string, typ domain.ChangeType, nodeID string) {
	event := domain.ChangeEvent{Type: typ, NodeID: nodeID, Timestamp: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs[workflowID] {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop rather than block the mutation path.
		}
	}
}
