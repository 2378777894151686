package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/loomengine/loom/pkg/domain"
)

type memWorkflow struct {
	nodes    map[string]domain.Node
	conns    map[string]domain.Connection
	revision int64
}

// MemStore implements WorkflowStore in memory. Safe for concurrent use.
type MemStore struct {
	mu        sync.Mutex
	workflows map[string]*memWorkflow
	seq       int
}

var _ WorkflowStore = (*MemStore)(nil)

// NewMemStore creates an empty in-memory workflow store.
func NewMemStore() *MemStore {
	return &MemStore{workflows: make(map[string]*memWorkflow)}
}

func (s *MemStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *MemStore) workflowLocked(id string) (*memWorkflow, error) {
	wf, ok := s.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return wf, nil
}

func (s *MemStore) findNodeLocked(nodeID string) (*memWorkflow, string, domain.Node, bool) {
	for wfID, wf := range s.workflows {
		if n, ok := wf.nodes[nodeID]; ok {
			return wf, wfID, n, true
		}
	}
	return nil, "", domain.Node{}, false
}

// EnsureWorkflow implements WorkflowStore.
func (s *MemStore) EnsureWorkflow(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[workflowID]; !ok {
		s.workflows[workflowID] = &memWorkflow{
			nodes: make(map[string]domain.Node),
			conns: make(map[string]domain.Connection),
		}
	}
	return nil
}

// ListWorkflows implements WorkflowStore.
func (s *MemStore) ListWorkflows(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.workflows))
	for id := range s.workflows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ListNodes implements WorkflowStore.
func (s *MemStore) ListNodes(_ context.Context, workflowID string) ([]domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.workflowLocked(workflowID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Node, 0, len(wf.nodes))
	for _, n := range wf.nodes {
		out = append(out, n.Clone())
	}
	return out, nil
}

// ListConnections implements WorkflowStore.
func (s *MemStore) ListConnections(_ context.Context, workflowID string) ([]domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.workflowLocked(workflowID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Connection, 0, len(wf.conns))
	for _, c := range wf.conns {
		out = append(out, c)
	}
	return out, nil
}

// Graph implements WorkflowStore.
func (s *MemStore) Graph(_ context.Context, workflowID string) (domain.GraphDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.workflowLocked(workflowID)
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

// CreateNode implements WorkflowStore.
func (s *MemStore) CreateNode(_ context.Context, workflowID string, draft domain.NodeDraft) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.workflowLocked(workflowID)
	if err != nil {
		return domain.Node{}, err
	}
	for _, n := range wf.nodes {
		if n.Position == draft.Position {
			return domain.Node{}, domain.ErrCellOccupied
		}
	}
	node := domain.Node{
		ID:             s.nextID("n"),
		ModuleType:     draft.ModuleType,
		CheckpointName: draft.CheckpointName,
		Position:       draft.Position,
	}
	wf.nodes[node.ID] = node
	wf.revision++
	return node, nil
}

// UpdateNode implements WorkflowStore.
func (s *MemStore) UpdateNode(_ context.Context, nodeID string, patch domain.NodePatch) (domain.Node, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, wfID, node, ok := s.findNodeLocked(nodeID)
	if !ok {
		return domain.Node{}, "", domain.ErrNodeNotFound
	}
	if patch.Position != nil {
		for _, other := range wf.nodes {
			if other.ID != nodeID && other.Position == *patch.Position {
				return domain.Node{}, "", domain.ErrCellOccupied
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
	return node.Clone(), wfID, nil
}

// DeleteNode implements WorkflowStore.
func (s *MemStore) DeleteNode(_ context.Context, nodeID string) ([]domain.Connection, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, wfID, _, ok := s.findNodeLocked(nodeID)
	if !ok {
		return nil, "", domain.ErrNodeNotFound
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
	return cascaded, wfID, nil
}

// CreateConnection implements WorkflowStore.
func (s *MemStore) CreateConnection(_ context.Context, workflowID string, draft domain.ConnectionDraft) (domain.Connection, error) {
	if draft.SourceNodeID == draft.TargetNodeID {
		return domain.Connection{}, domain.ErrSelfLoop
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.workflowLocked(workflowID)
	if err != nil {
		return domain.Connection{}, err
	}
	if _, ok := wf.nodes[draft.SourceNodeID]; !ok {
		return domain.Connection{}, domain.ErrNodeNotFound
	}
	if _, ok := wf.nodes[draft.TargetNodeID]; !ok {
		return domain.Connection{}, domain.ErrNodeNotFound
	}
	for _, c := range wf.conns {
		if draft.SamePath(c) {
			return domain.Connection{}, domain.ErrDuplicateConnection
		}
	}
	conn := domain.Connection{
		ID:           s.nextID("c"),
		SourceNodeID: draft.SourceNodeID,
		SourcePort:   draft.SourcePort,
		TargetNodeID: draft.TargetNodeID,
		TargetPort:   draft.TargetPort,
	}
	wf.conns[conn.ID] = conn
	wf.revision++
	return conn, nil
}

// DeleteConnection implements WorkflowStore.
func (s *MemStore) DeleteConnection(_ context.Context, connectionID string) (domain.Connection, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for wfID, wf := range s.workflows {
		if c, ok := wf.conns[connectionID]; ok {
			delete(wf.conns, connectionID)
			wf.revision++
			return c, wfID, nil
		}
	}
	return domain.Connection{}, "", domain.ErrConnectionNotFound
}
