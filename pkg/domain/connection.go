package domain

// Port direction names as they appear on the wire. A connection always
// flows from an output port to an input port, regardless of which socket
// the user clicked first.
const (
	PortOutput = "output"
	PortInput  = "input"
)

// Connection is a directed edge from one node's output port to another
// node's input port.
type Connection struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id"`
	SourcePort   string `json:"source_port"`
	TargetNodeID string `json:"target_node_id"`
	TargetPort   string `json:"target_port"`
}

// ConnectionDraft is the payload for creating a connection. The server
// assigns the ID and must reject self-loops.
type ConnectionDraft struct {
	SourceNodeID string `json:"source_node_id"`
	SourcePort   string `json:"source_port"`
	TargetNodeID string `json:"target_node_id"`
	TargetPort   string `json:"target_port"`
}

// SamePath reports whether the draft describes the same directed edge as
// an existing connection (used for duplicate rejection).
func (d ConnectionDraft) SamePath(c Connection) bool {
	return d.SourceNodeID == c.SourceNodeID &&
		d.SourcePort == c.SourcePort &&
		d.TargetNodeID == c.TargetNodeID &&
		d.TargetPort == c.TargetPort
}
