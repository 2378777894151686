// Package redisstore implements the server's WorkflowStore on Redis, for
// deployments where the reference server must survive restarts.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	backend "github.com/redis/go-redis/v9"

	"github.com/loomengine/loom/pkg/domain"
)

// Store keeps each workflow as a pair of hashes (nodes, connections) plus
// a revision counter, with flat ID→workflow indexes so the bare
// /nodes/{id} and /connections/{id} routes can resolve ownership.
//
// Policy checks are read-then-write without WATCH: the reference server
// is the single writer of its own keys.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "loom:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) workflowsKey() string      { return s.prefix + "workflows" }
func (s *Store) nodesKey(wf string) string { return s.prefix + "wf:" + wf + ":nodes" }
func (s *Store) connsKey(wf string) string { return s.prefix + "wf:" + wf + ":conns" }
func (s *Store) revKey(wf string) string   { return s.prefix + "wf:" + wf + ":rev" }
func (s *Store) seqKey() string            { return s.prefix + "seq" }
func (s *Store) nodeIdx(id string) string  { return s.prefix + "node:" + id }
func (s *Store) connIdx(id string) string  { return s.prefix + "conn:" + id }

func (s *Store) nextID(ctx context.Context, prefix string) (string, error) {
	n, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate id: %w", err)
	}
	return fmt.Sprintf("%s-%d", prefix, n), nil
}

func (s *Store) workflowExists(ctx context.Context, workflowID string) error {
	ok, err := s.client.SIsMember(ctx, s.workflowsKey(), workflowID).Result()
	if err != nil {
		return fmt.Errorf("failed to check workflow: %w", err)
	}
	if !ok {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

// EnsureWorkflow implements server.WorkflowStore.
func (s *Store) EnsureWorkflow(ctx context.Context, workflowID string) error {
	if err := s.client.SAdd(ctx, s.workflowsKey(), workflowID).Err(); err != nil {
		return fmt.Errorf("failed to register workflow: %w", err)
	}
	return nil
}

// ListWorkflows implements server.WorkflowStore.
func (s *Store) ListWorkflows(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.workflowsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) loadNodes(ctx context.Context, workflowID string) (map[string]domain.Node, error) {
	raw, err := s.client.HGetAll(ctx, s.nodesKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	nodes := make(map[string]domain.Node, len(raw))
	for id, data := range raw {
		var n domain.Node
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node %s: %w", id, err)
		}
		nodes[id] = n
	}
	return nodes, nil
}

func (s *Store) loadConns(ctx context.Context, workflowID string) (map[string]domain.Connection, error) {
	raw, err := s.client.HGetAll(ctx, s.connsKey(workflowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	conns := make(map[string]domain.Connection, len(raw))
	for id, data := range raw {
		var c domain.Connection
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection %s: %w", id, err)
		}
		conns[id] = c
	}
	return conns, nil
}

func (s *Store) saveNode(ctx context.Context, workflowID string, node domain.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.nodesKey(workflowID), node.ID, data)
	pipe.Set(ctx, s.nodeIdx(node.ID), workflowID, 0)
	pipe.Incr(ctx, s.revKey(workflowID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}
	return nil
}

// ListNodes implements server.WorkflowStore.
func (s *Store) ListNodes(ctx context.Context, workflowID string) ([]domain.Node, error) {
	if err := s.workflowExists(ctx, workflowID); err != nil {
		return nil, err
	}
	nodes, err := s.loadNodes(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

// ListConnections implements server.WorkflowStore.
func (s *Store) ListConnections(ctx context.Context, workflowID string) ([]domain.Connection, error) {
	if err := s.workflowExists(ctx, workflowID); err != nil {
		return nil, err
	}
	conns, err := s.loadConns(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out, nil
}

// Graph implements server.WorkflowStore.
func (s *Store) Graph(ctx context.Context, workflowID string) (domain.GraphDescriptor, error) {
	if err := s.workflowExists(ctx, workflowID); err != nil {
		return domain.GraphDescriptor{}, err
	}
	pipe := s.client.Pipeline()
	nodeCount := pipe.HLen(ctx, s.nodesKey(workflowID))
	connCount := pipe.HLen(ctx, s.connsKey(workflowID))
	rev := pipe.Get(ctx, s.revKey(workflowID))
	if _, err := pipe.Exec(ctx); err != nil && err != backend.Nil {
		return domain.GraphDescriptor{}, fmt.Errorf("failed to read graph descriptor: %w", err)
	}
	revision, _ := rev.Int64()
	return domain.GraphDescriptor{
		WorkflowID:      workflowID,
		NodeCount:       int(nodeCount.Val()),
		ConnectionCount: int(connCount.Val()),
		Revision:        revision,
	}, nil
}

// CreateNode implements server.WorkflowStore.
func (s *Store) CreateNode(ctx context.Context, workflowID string, draft domain.NodeDraft) (domain.Node, error) {
	if err := s.workflowExists(ctx, workflowID); err != nil {
		return domain.Node{}, err
	}
	nodes, err := s.loadNodes(ctx, workflowID)
	if err != nil {
		return domain.Node{}, err
	}
	for _, n := range nodes {
		if n.Position == draft.Position {
			return domain.Node{}, domain.ErrCellOccupied
		}
	}

	id, err := s.nextID(ctx, "n")
	if err != nil {
		return domain.Node{}, err
	}
	node := domain.Node{
		ID:             id,
		ModuleType:     draft.ModuleType,
		CheckpointName: draft.CheckpointName,
		Position:       draft.Position,
	}
	if err := s.saveNode(ctx, workflowID, node); err != nil {
		return domain.Node{}, err
	}
	return node, nil
}

func (s *Store) nodeWorkflow(ctx context.Context, nodeID string) (string, error) {
	workflowID, err := s.client.Get(ctx, s.nodeIdx(nodeID)).Result()
	if err == backend.Nil {
		return "", domain.ErrNodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve node workflow: %w", err)
	}
	return workflowID, nil
}

// UpdateNode implements server.WorkflowStore.
func (s *Store) UpdateNode(ctx context.Context, nodeID string, patch domain.NodePatch) (domain.Node, string, error) {
	workflowID, err := s.nodeWorkflow(ctx, nodeID)
	if err != nil {
		return domain.Node{}, "", err
	}
	nodes, err := s.loadNodes(ctx, workflowID)
	if err != nil {
		return domain.Node{}, "", err
	}
	node, ok := nodes[nodeID]
	if !ok {
		return domain.Node{}, "", domain.ErrNodeNotFound
	}

	if patch.Position != nil {
		for _, other := range nodes {
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

	if err := s.saveNode(ctx, workflowID, node); err != nil {
		return domain.Node{}, "", err
	}
	return node, workflowID, nil
}

// DeleteNode implements server.WorkflowStore.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) ([]domain.Connection, string, error) {
	workflowID, err := s.nodeWorkflow(ctx, nodeID)
	if err != nil {
		return nil, "", err
	}
	conns, err := s.loadConns(ctx, workflowID)
	if err != nil {
		return nil, "", err
	}

	var cascaded []domain.Connection
	pipe := s.client.Pipeline()
	pipe.HDel(ctx, s.nodesKey(workflowID), nodeID)
	pipe.Del(ctx, s.nodeIdx(nodeID))
	for id, c := range conns {
		if c.SourceNodeID == nodeID || c.TargetNodeID == nodeID {
			cascaded = append(cascaded, c)
			pipe.HDel(ctx, s.connsKey(workflowID), id)
			pipe.Del(ctx, s.connIdx(id))
		}
	}
	pipe.Incr(ctx, s.revKey(workflowID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to delete node: %w", err)
	}
	return cascaded, workflowID, nil
}

// CreateConnection implements server.WorkflowStore.
func (s *Store) CreateConnection(ctx context.Context, workflowID string, draft domain.ConnectionDraft) (domain.Connection, error) {
	if draft.SourceNodeID == draft.TargetNodeID {
		return domain.Connection{}, domain.ErrSelfLoop
	}
	if err := s.workflowExists(ctx, workflowID); err != nil {
		return domain.Connection{}, err
	}
	nodes, err := s.loadNodes(ctx, workflowID)
	if err != nil {
		return domain.Connection{}, err
	}
	if _, ok := nodes[draft.SourceNodeID]; !ok {
		return domain.Connection{}, domain.ErrNodeNotFound
	}
	if _, ok := nodes[draft.TargetNodeID]; !ok {
		return domain.Connection{}, domain.ErrNodeNotFound
	}
	conns, err := s.loadConns(ctx, workflowID)
	if err != nil {
		return domain.Connection{}, err
	}
	for _, c := range conns {
		if draft.SamePath(c) {
			return domain.Connection{}, domain.ErrDuplicateConnection
		}
	}

	id, err := s.nextID(ctx, "c")
	if err != nil {
		return domain.Connection{}, err
	}
	conn := domain.Connection{
		ID:           id,
		SourceNodeID: draft.SourceNodeID,
		SourcePort:   draft.SourcePort,
		TargetNodeID: draft.TargetNodeID,
		TargetPort:   draft.TargetPort,
	}
	data, err := json.Marshal(conn)
	if err != nil {
		return domain.Connection{}, fmt.Errorf("failed to marshal connection: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.connsKey(workflowID), conn.ID, data)
	pipe.Set(ctx, s.connIdx(conn.ID), workflowID, 0)
	pipe.Incr(ctx, s.revKey(workflowID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Connection{}, fmt.Errorf("failed to save connection: %w", err)
	}
	return conn, nil
}

// DeleteConnection implements server.WorkflowStore.
func (s *Store) DeleteConnection(ctx context.Context, connectionID string) (domain.Connection, string, error) {
	workflowID, err := s.client.Get(ctx, s.connIdx(connectionID)).Result()
	if err == backend.Nil {
		return domain.Connection{}, "", domain.ErrConnectionNotFound
	}
	if err != nil {
		return domain.Connection{}, "", fmt.Errorf("failed to resolve connection workflow: %w", err)
	}

	data, err := s.client.HGet(ctx, s.connsKey(workflowID), connectionID).Result()
	if err == backend.Nil {
		return domain.Connection{}, "", domain.ErrConnectionNotFound
	}
	if err != nil {
		return domain.Connection{}, "", fmt.Errorf("failed to load connection: %w", err)
	}
	var conn domain.Connection
	if err := json.Unmarshal([]byte(data), &conn); err != nil {
		return domain.Connection{}, "", fmt.Errorf("failed to unmarshal connection: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.HDel(ctx, s.connsKey(workflowID), connectionID)
	pipe.Del(ctx, s.connIdx(connectionID))
	pipe.Incr(ctx, s.revKey(workflowID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Connection{}, "", fmt.Errorf("failed to delete connection: %w", err)
	}
	return conn, workflowID, nil
}
