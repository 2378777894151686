package domain

import "time"

// ChangeType defines the category of a remote change notification.
type ChangeType string

const (
	ChangeNodeCreated       ChangeType = "node_created"
	ChangeNodeUpdated       ChangeType = "node_updated"
	ChangeNodeDeleted       ChangeType = "node_deleted"
	ChangeConnectionCreated ChangeType = "connection_created"
	ChangeConnectionDeleted ChangeType = "connection_deleted"
)

// Known reports whether t is one of the five published change types.
// Feeds may deliver newer types; consumers treat those as a plain
// "something changed" signal.
func (t ChangeType) Known() bool {
	switch t {
	case ChangeNodeCreated, ChangeNodeUpdated, ChangeNodeDeleted,
		ChangeConnectionCreated, ChangeConnectionDeleted:
		return true
	}
	return false
}

// ChangeEvent is one push notification on a per-workflow channel. NodeID
// identifies the node the change concerns; for connection events it is the
// source node of the affected connection.
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	NodeID    string     `json:"node_id"`
	Timestamp time.Time  `json:"timestamp,omitempty"`
}

// GraphDescriptor is the aggregate state the remote exposes per workflow.
// The client never derives these counts itself; it refetches.
type GraphDescriptor struct {
	WorkflowID      string `json:"workflow_id"`
	NodeCount       int    `json:"node_count"`
	ConnectionCount int    `json:"connection_count"`
	Revision        int64  `json:"revision"`
}
