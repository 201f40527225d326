package graphs

import (
	"github.com/Aleksis99/cognee-graphdb/pkg/graph"
	"github.com/Aleksis99/cognee-graphdb/pkg/graphdb"
)

type nodePayload struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type edgePayload struct {
	Source       string            `json:"source"`
	Target       string            `json:"target"`
	Relationship string            `json:"relationship"`
	Properties   map[string]string `json:"properties"`
}

type createNodesRequest struct {
	ID         string           `json:"id,omitempty"`
	Properties map[string]any   `json:"properties,omitempty"`
	Nodes      []createNodeItem `json:"nodes,omitempty"`
}

type createNodeItem struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

type createEdgesRequest struct {
	Source       string           `json:"source,omitempty"`
	Target       string           `json:"target,omitempty"`
	Relationship string           `json:"relationship,omitempty"`
	Properties   map[string]any   `json:"properties,omitempty"`
	Edges        []createEdgeItem `json:"edges,omitempty"`
}

type createEdgeItem struct {
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	Relationship string         `json:"relationship"`
	Properties   map[string]any `json:"properties"`
}

type deleteNodesRequest struct {
	IDs []string `json:"ids"`
}

type subgraphRequest struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type graphDataResponse struct {
	Nodes []nodePayload `json:"nodes"`
	Edges []edgePayload `json:"edges"`
}

type subgraphNodePayload struct {
	ID         int               `json:"id"`
	Properties map[string]string `json:"properties"`
}

type subgraphEdgePayload struct {
	Source       int               `json:"source"`
	Target       int               `json:"target"`
	Relationship string            `json:"relationship"`
	Properties   map[string]string `json:"properties"`
}

type subgraphResponse struct {
	Nodes []subgraphNodePayload `json:"nodes"`
	Edges []subgraphEdgePayload `json:"edges"`
}

type connectionPayload struct {
	Source       nodePayload `json:"source"`
	Relationship string      `json:"relationship"`
	Target       nodePayload `json:"target"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

func presentNode(n graph.Node) nodePayload {
	return nodePayload{ID: n.ID, Properties: n.Properties}
}

func presentNodes(nodes []graph.Node) []nodePayload {
	result := make([]nodePayload, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, presentNode(n))
	}
	return result
}

func presentEdges(edges []graph.Edge) []edgePayload {
	result := make([]edgePayload, 0, len(edges))
	for _, e := range edges {
		result = append(result, edgePayload{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: e.Relationship,
			Properties:   e.Properties,
		})
	}
	return result
}

func presentSubgraph(nodes []graph.SubgraphNode, edges []graph.SubgraphEdge) subgraphResponse {
	response := subgraphResponse{
		Nodes: make([]subgraphNodePayload, 0, len(nodes)),
		Edges: make([]subgraphEdgePayload, 0, len(edges)),
	}

	for _, n := range nodes {
		response.Nodes = append(response.Nodes, subgraphNodePayload{ID: n.ID, Properties: n.Properties})
	}

	for _, e := range edges {
		response.Edges = append(response.Edges, subgraphEdgePayload{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: e.Relationship,
			Properties:   e.Properties,
		})
	}

	return response
}

func presentConnections(connections []graph.Connection) []connectionPayload {
	result := make([]connectionPayload, 0, len(connections))
	for _, c := range connections {
		result = append(result, connectionPayload{
			Source:       presentNode(c.Source),
			Relationship: c.Relationship,
			Target:       presentNode(c.Target),
		})
	}
	return result
}

func (r createNodesRequest) records() []graphdb.NodeRecord {
	if len(r.Nodes) > 0 {
		records := make([]graphdb.NodeRecord, 0, len(r.Nodes))
		for _, n := range r.Nodes {
			records = append(records, graphdb.NodeRecord{ID: n.ID, Properties: n.Properties})
		}
		return records
	}

	return []graphdb.NodeRecord{{ID: r.ID, Properties: r.Properties}}
}

func (r createEdgesRequest) records() []graphdb.EdgeRecord {
	if len(r.Edges) > 0 {
		records := make([]graphdb.EdgeRecord, 0, len(r.Edges))
		for _, e := range r.Edges {
			records = append(records, graphdb.EdgeRecord{
				Source:       e.Source,
				Target:       e.Target,
				Relationship: e.Relationship,
				Properties:   e.Properties,
			})
		}
		return records
	}

	return []graphdb.EdgeRecord{{
		Source:       r.Source,
		Target:       r.Target,
		Relationship: r.Relationship,
		Properties:   r.Properties,
	}}
}
