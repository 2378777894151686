package graph

// Scope names one refreshable slice of the store. Refresh takes one or
// more scopes; the sync bridge and mutation entry points decide which
// slices a change invalidates.
type Scope string

const (
	ScopeNodes       Scope = "nodes"
	ScopeConnections Scope = "connections"
	ScopeGraph       Scope = "graph"
	ScopeModules     Scope = "modules"
)

// AllScopes is the full initial fetch performed when a workflow view opens.
var AllScopes = []Scope{ScopeModules, ScopeNodes, ScopeConnections, ScopeGraph}
