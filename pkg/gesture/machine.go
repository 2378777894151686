// Package gesture implements the two-click protocol that turns a pair of
// socket clicks into exactly one connection-creation request.
//
// The machine is a pure transition function over a tagged-union state, so
// the whole protocol is testable without any rendering surface. The
// Controller binds the machine's effects to the graph store.
package gesture

import "github.com/loomengine/loom/pkg/domain"

// StateKind tags the gesture state union.
type StateKind int

const (
	// KindIdle is the rest state. The machine always returns here after
	// success, cancel, or rejection.
	KindIdle StateKind = iota
	// KindArmedAtOutput means an output socket was clicked first.
	KindArmedAtOutput
	// KindArmedAtInput means an input socket was clicked first.
	KindArmedAtInput
	// KindPending holds a resolved source/target pair awaiting confirm.
	KindPending
)

func (k StateKind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindArmedAtOutput:
		return "armed_at_output"
	case KindArmedAtInput:
		return "armed_at_input"
	case KindPending:
		return "pending"
	default:
		return "unknown"
	}
}

// State is the gesture machine state. Which fields are meaningful depends
// on Kind: ArmedNodeID for the armed states, SourceNodeID/TargetNodeID for
// Pending. Pending is always oriented output→input regardless of which
// socket was clicked first.
type State struct {
	Kind         StateKind
	ArmedNodeID  string
	SourceNodeID string
	TargetNodeID string
}

// Idle returns the initial (and terminal) state.
func Idle() State {
	return State{Kind: KindIdle}
}

// EventKind enumerates gesture inputs.
type EventKind int

const (
	// EventClickOutput is a click on a node's output socket.
	EventClickOutput EventKind = iota
	// EventClickInput is a click on a node's input socket.
	EventClickInput
	// EventConfirm accepts a pending connection.
	EventConfirm
	// EventCancel discards the gesture at any point before confirm.
	EventCancel
)

// Event is one gesture input. NodeID is set for socket clicks.
type Event struct {
	Kind   EventKind
	NodeID string
}

// EffectKind enumerates the side effects a transition requests from the
// caller. The machine itself performs none of them.
type EffectKind int

const (
	// EffectNone: nothing to do.
	EffectNone EffectKind = iota
	// EffectHighlightOutput: mark the clicked output socket as armed.
	EffectHighlightOutput
	// EffectHighlightInput: mark the clicked input socket as armed.
	EffectHighlightInput
	// EffectCancelled: the gesture was discarded; notify the user.
	EffectCancelled
	// EffectRejectSelfLoop: both clicks landed on the same node.
	EffectRejectSelfLoop
	// EffectShowConfirm: a source/target pair is resolved; show the
	// confirm affordance.
	EffectShowConfirm
	// EffectSubmit: issue the connection-creation request for
	// SourceNodeID → TargetNodeID.
	EffectSubmit
)

// Effect is the requested side effect of a transition.
type Effect struct {
	Kind         EffectKind
	NodeID       string
	SourceNodeID string
	TargetNodeID string
}

// Transition is the pure gesture transition function. It implements the
// full protocol table: arming from either direction, cancel by clicking
// the originating socket again, same-node rejection, and confirm/cancel
// out of Pending. Clicks not covered by the table leave the state
// unchanged.
func Transition(s State, e Event) (State, Effect) {
	switch s.Kind {
	case KindIdle:
		switch e.Kind {
		case EventClickOutput:
			return State{Kind: KindArmedAtOutput, ArmedNodeID: e.NodeID},
				Effect{Kind: EffectHighlightOutput, NodeID: e.NodeID}
		case EventClickInput:
			return State{Kind: KindArmedAtInput, ArmedNodeID: e.NodeID},
				Effect{Kind: EffectHighlightInput, NodeID: e.NodeID}
		}

	case KindArmedAtOutput:
		switch e.Kind {
		case EventClickOutput:
			if e.NodeID == s.ArmedNodeID {
				return Idle(), Effect{Kind: EffectCancelled, NodeID: e.NodeID}
			}
		case EventClickInput:
			if e.NodeID == s.ArmedNodeID {
				return Idle(), Effect{Kind: EffectRejectSelfLoop, NodeID: e.NodeID}
			}
			return State{Kind: KindPending, SourceNodeID: s.ArmedNodeID, TargetNodeID: e.NodeID},
				Effect{Kind: EffectShowConfirm, SourceNodeID: s.ArmedNodeID, TargetNodeID: e.NodeID}
		case EventCancel:
			return Idle(), Effect{Kind: EffectCancelled}
		}

	case KindArmedAtInput:
		switch e.Kind {
		case EventClickInput:
			if e.NodeID == s.ArmedNodeID {
				return Idle(), Effect{Kind: EffectCancelled, NodeID: e.NodeID}
			}
		case EventClickOutput:
			if e.NodeID == s.ArmedNodeID {
				return Idle(), Effect{Kind: EffectRejectSelfLoop, NodeID: e.NodeID}
			}
			return State{Kind: KindPending, SourceNodeID: e.NodeID, TargetNodeID: s.ArmedNodeID},
				Effect{Kind: EffectShowConfirm, SourceNodeID: e.NodeID, TargetNodeID: s.ArmedNodeID}
		case EventCancel:
			return Idle(), Effect{Kind: EffectCancelled}
		}

	case KindPending:
		switch e.Kind {
		case EventConfirm:
			return Idle(), Effect{Kind: EffectSubmit, SourceNodeID: s.SourceNodeID, TargetNodeID: s.TargetNodeID}
		case EventCancel:
			return Idle(), Effect{Kind: EffectCancelled}
		}
	}

	return s, Effect{Kind: EffectNone}
}

// ProvisionalSocket reports the armed socket while exactly one side of the
// gesture is set, so a caller can draw a rubber-band link from it. The
// returned port is domain.PortOutput or domain.PortInput.
func (s State) ProvisionalSocket() (nodeID, port string, ok bool) {
	switch s.Kind {
	case KindArmedAtOutput:
		return s.ArmedNodeID, domain.PortOutput, true
	case KindArmedAtInput:
		return s.ArmedNodeID, domain.PortInput, true
	}
	return "", "", false
}
