/*
Package domain contains the core data model for the workflow graph.

It defines the fundamental entities of the editor: Nodes placed on a
discrete grid, directed Connections between node ports, and the
read-only Module catalog describing each processing-node type. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: a placed instance of a module type, positioned on the grid.
  - Connection: a directed edge from an output port to an input port.
  - Module: static catalog metadata (ports, description) for a node type.
  - ChangeEvent: a push notification emitted when the remote graph changes.
*/
package domain
