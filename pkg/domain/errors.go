package domain

import "errors"

// ErrSelfLoop is returned when a connection would join a node to itself.
var ErrSelfLoop = errors.New("cannot connect a node to itself")

// ErrDuplicateConnection is returned when an identical directed edge
// (same nodes and ports) already exists.
var ErrDuplicateConnection = errors.New("connection already exists")

// ErrCellOccupied is returned when a node add or move targets a grid cell
// already held by another node.
var ErrCellOccupied = errors.New("grid cell is occupied")

// ErrGridFull is returned when no free cell exists within the grid bounds.
var ErrGridFull = errors.New("no free grid cell available")

// ErrNodeNotFound is returned when a node ID cannot be found.
var ErrNodeNotFound = errors.New("node not found")

// ErrConnectionNotFound is returned when a connection ID cannot be found.
var ErrConnectionNotFound = errors.New("connection not found")

// ErrWorkflowNotFound is returned when a workflow ID cannot be found.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrDragActive is returned when a second drag is started while one is
// already in progress. At most one drag is live at a time.
var ErrDragActive = errors.New("a drag is already in progress")

// ErrNoDrag is returned when a drag operation is applied with no drag
// in progress.
var ErrNoDrag = errors.New("no drag in progress")
