/*
Package loom is a workflow graph engine: a session-scoped, always-consistent
view of a workflow's nodes and connections, kept in sync with a remote
persistence service.

The remote service owns durable truth. Every local structure is a cache
that converges to the remote's state on the next fetch; mutations are sent
to the remote first and the affected slices are refetched, never patched
locally. A per-workflow push feed tells open sessions when other editors
change the graph.

# Architecture

The engine is split along ports-and-adapters lines:

  - pkg/domain holds the shared vocabulary: nodes, connections, modules,
    change events, and the sentinel errors for graph policy.
  - pkg/ports defines the collaborator contracts (Remote, ChangeFeed).
  - pkg/graph is the session cache (Store) plus the neighborhood
    resolver.
  - pkg/gesture is the two-click connection state machine.
  - pkg/canvas is the pixel/grid geometry and drag handling.
  - pkg/bridge applies feed events to the store and the selection.
  - pkg/editor wires all of the above into one Session.
  - pkg/adapters provides the Remote/ChangeFeed implementations: rest
    and ws against the real service, memory for in-process use.

# Usage

Open a session against a running loom service:

	session, err := loom.Open(ctx, "http://localhost:8460", "default")
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	node, err := session.AddNode(ctx, "excel_import", "raw data")

Or fully in-process, without a service:

	session, remote, err := loom.OpenInMemory(ctx, "scratch")

The loom command ships the reference service ("loom serve") and small
inspection tools ("loom graph", "loom watch", "loom modules").
*/
package loom
