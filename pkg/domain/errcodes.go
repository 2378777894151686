package domain

import "errors"

// Wire codes for the policy errors the persistence API reports. The REST
// client maps codes back to the sentinel errors so callers can use
// errors.Is regardless of transport.
const (
	CodeWorkflowNotFound    = "workflow_not_found"
	CodeNodeNotFound        = "node_not_found"
	CodeConnectionNotFound  = "connection_not_found"
	CodeSelfLoop            = "self_loop"
	CodeDuplicateConnection = "duplicate_connection"
	CodeCellOccupied        = "cell_occupied"
)

// CodeForError returns the wire code for a sentinel error (possibly
// wrapped), or "" for errors without one.
func CodeForError(err error) string {
	switch {
	case errors.Is(err, ErrWorkflowNotFound):
		return CodeWorkflowNotFound
	case errors.Is(err, ErrNodeNotFound):
		return CodeNodeNotFound
	case errors.Is(err, ErrConnectionNotFound):
		return CodeConnectionNotFound
	case errors.Is(err, ErrSelfLoop):
		return CodeSelfLoop
	case errors.Is(err, ErrDuplicateConnection):
		return CodeDuplicateConnection
	case errors.Is(err, ErrCellOccupied):
		return CodeCellOccupied
	}
	return ""
}

// ErrorForCode returns the sentinel error for a wire code, or nil for
// unknown codes.
func ErrorForCode(code string) error {
	switch code {
	case CodeWorkflowNotFound:
		return ErrWorkflowNotFound
	case CodeNodeNotFound:
		return ErrNodeNotFound
	case CodeConnectionNotFound:
		return ErrConnectionNotFound
	case CodeSelfLoop:
		return ErrSelfLoop
	case CodeDuplicateConnection:
		return ErrDuplicateConnection
	case CodeCellOccupied:
		return ErrCellOccupied
	}
	return nil
}
