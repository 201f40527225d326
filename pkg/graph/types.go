package graph

// Node is a labeled node in the property graph. Properties hold the literal
// text of each value as returned by the store, so numeric values round-trip
// as their literal representation ("2020", "3.14") rather than being
// re-typed from their XSD datatype tags.
type Node struct {
	ID         string
	Properties map[string]string
}

// Edge is a directed relationship between two nodes. Properties are attached
// to the underlying statement itself and are empty for edges created without
// any.
type Edge struct {
	Source       string
	Target       string
	Relationship string
	Properties   map[string]string
}

// EdgeKey identifies an edge by its three components. It is the identity
// under which edge property groups are looked up and cached.
type EdgeKey struct {
	Source       string
	Relationship string
	Target       string
}

// Key returns the identity of an edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Relationship: e.Relationship, Target: e.Target}
}

// SubgraphNode is a node in an induced subgraph, renumbered to a small
// integer id. Ids start at zero and are assigned in first-seen order within
// a single extraction. They are stable within one call but not across calls.
type SubgraphNode struct {
	ID         int
	Properties map[string]string
}

// SubgraphEdge connects two renumbered subgraph nodes.
type SubgraphEdge struct {
	Source       int
	Target       int
	Relationship string
	Properties   map[string]string
}

// Connection is one step of the neighborhood of a node: the properties of
// both endpoints together with the relationship between them.
type Connection struct {
	Source       Node
	Relationship string
	Target       Node
}

// Metrics holds the aggregate counts for an entire graph.
type Metrics struct {
	NodeCount int64 `json:"node_count"`
	EdgeCount int64 `json:"edge_count"`
}
