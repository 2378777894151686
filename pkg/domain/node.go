package domain

// Position is a discrete grid cell. Nodes are addressed by cell, never by
// pixel; pixel math belongs to the canvas layer.
type Position struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Node represents a placed instance of a processing-module type within a
// workflow. Config and State are opaque payloads owned by the node's own
// configuration subsystem; the graph engine carries them untouched.
type Node struct {
	ID         string `json:"id"`
	ModuleType string `json:"module_type"`

	// CheckpointName is a free-form user label, independent of ModuleType.
	CheckpointName string `json:"checkpoint_name,omitempty"`

	Position Position `json:"position"`

	Config map[string]any `json:"config,omitempty"`
	State  map[string]any `json:"state,omitempty"`
}

// Clone returns a deep copy so callers can't mutate store-owned nodes
// through shared maps.
func (n Node) Clone() Node {
	c := n
	if n.Config != nil {
		c.Config = make(map[string]any, len(n.Config))
		for k, v := range n.Config {
			c.Config[k] = v
		}
	}
	if n.State != nil {
		c.State = make(map[string]any, len(n.State))
		for k, v := range n.State {
			c.State[k] = v
		}
	}
	return c
}

// NodeDraft is the payload for creating a node. The server assigns the ID.
type NodeDraft struct {
	ModuleType     string   `json:"module_type"`
	CheckpointName string   `json:"checkpoint_name,omitempty"`
	Position       Position `json:"position"`
}

// NodePatch is a partial update for an existing node. Nil fields are left
// unchanged by the server.
type NodePatch struct {
	Position       *Position       `json:"position,omitempty"`
	Config         *map[string]any `json:"config,omitempty"`
	CheckpointName *string         `json:"checkpoint_name,omitempty"`
}

// NodeContext is the direct (non-transitive) neighborhood of a node,
// derived from the connection list.
type NodeContext struct {
	NodeID       string   `json:"node_id"`
	Predecessors []string `json:"predecessors"`
	Successors   []string `json:"successors"`
}

// Mentions reports whether id is the context's own node or one of its
// direct neighbors. The sync bridge uses this to decide whether a remote
// change invalidates the currently displayed context.
func (c NodeContext) Mentions(id string) bool {
	if c.NodeID == id {
		return true
	}
	for _, p := range c.Predecessors {
		if p == id {
			return true
		}
	}
	for _, s := range c.Successors {
		if s == id {
			return true
		}
	}
	return false
}
