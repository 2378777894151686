package graph

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/loomengine/loom/pkg/domain"
)

// resolverCacheSize bounds the memoized contexts. Workflows are small;
// this mostly exists so rapid selection changes don't recompute.
const resolverCacheSize = 256

type contextKey struct {
	nodeID  string
	version uint64
}

// Resolver computes the direct (non-transitive) neighbor sets of a node
// from the store's connection list. Results are memoized per
// (nodeID, store version), so any applied refresh naturally invalidates
// every cached context.
type Resolver struct {
	store *Store
	cache *lru.Cache[contextKey, domain.NodeContext]
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store) *Resolver {
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[contextKey, domain.NodeContext](resolverCacheSize)
	return &Resolver{store: store, cache: cache}
}

// Context returns the direct predecessors and successors of a node.
// Each set is deduplicated and sorted for deterministic display.
func (r *Resolver) Context(nodeID string) domain.NodeContext {
	key := contextKey{nodeID: nodeID, version: r.store.Version()}
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	predecessors := map[string]struct{}{}
	successors := map[string]struct{}{}
	for _, c := range r.store.Connections() {
		if c.TargetNodeID == nodeID {
			predecessors[c.SourceNodeID] = struct{}{}
		}
		if c.SourceNodeID == nodeID {
			successors[c.TargetNodeID] = struct{}{}
		}
	}

	nodeCtx := domain.NodeContext{
		NodeID:       nodeID,
		Predecessors: sortedKeys(predecessors),
		Successors:   sortedKeys(successors),
	}
	r.cache.Add(key, nodeCtx)
	return nodeCtx
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
