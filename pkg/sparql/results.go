package sparql

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Aleksis99/cognee-graphdb/pkg/graph"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// Term is one RDF term in a SPARQL JSON result binding.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// IsIRI reports whether the term denotes a resource rather than a literal.
func (t Term) IsIRI() bool {
	return t.Type == "uri"
}

// Binding is one result row, mapping variable names to terms.
type Binding map[string]Term

// Results is the standard SPARQL 1.1 JSON results document. Boolean is only
// present for ASK queries.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// ParseResults unmarshals a SPARQL JSON results document.
func ParseResults(body []byte) (*Results, error) {
	r := &Results{}
	err := json.Unmarshal(body, r)
	if err != nil {
		return nil, err
	}
	return r, nil
}

const rdfType string = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// isTypeMarker matches the rdf:type statement every node carries. It is
// bookkeeping for existence checks and counting, not graph content.
func isTypeMarker(predicate, object Term) bool {
	return predicate.Value == rdfType || strings.HasPrefix(object.Value, SchemaNamespace)
}

// PredicateRole classifies what a predicate means for a given statement.
type PredicateRole int

const (
	// RoleProperty marks a statement attaching a literal value to a node.
	RoleProperty PredicateRole = iota
	// RoleRelationship marks a statement connecting two nodes.
	RoleRelationship
)

// Classify determines the role and local key of a predicate. The URN
// namespaces take precedence; any other predicate falls back to KeyFromURI
// with the role decided by whether the object is itself a resource, which
// lets graphs created outside this codec's conventions still decode.
func Classify(predicate string, object Term) (PredicateRole, string) {
	if idx := strings.Index(predicate, PropertyNamespace); idx >= 0 {
		return RoleProperty, predicate[idx+len(PropertyNamespace):]
	}

	if idx := strings.Index(predicate, RelationshipNamespace); idx >= 0 {
		return RoleRelationship, predicate[idx+len(RelationshipNamespace):]
	}

	if object.IsIRI() {
		return RoleRelationship, KeyFromURI(predicate)
	}

	return RoleProperty, KeyFromURI(predicate)
}

// EdgePropertiesFunc fetches the property group attached to one edge
// statement. Decoders call it at most once per distinct edge key within a
// single decode pass.
type EdgePropertiesFunc func(ctx context.Context, key graph.EdgeKey) (map[string]string, error)

// NoEdgeProperties is an EdgePropertiesFunc for callers that do not want
// reified property enrichment.
func NoEdgeProperties(ctx context.Context, key graph.EdgeKey) (map[string]string, error) {
	return map[string]string{}, nil
}

// DecodeGraph turns ?s ?p ?o bindings into node and edge lists. Rows that
// cannot be classified are skipped. Zero bindings yield empty, non-nil
// slices.
func DecodeGraph(ctx context.Context, bindings []Binding, edgeProperties EdgePropertiesFunc) ([]graph.Node, []graph.Edge, error) {
	log := logging.GetFromContext(ctx)

	nodes := map[string]map[string]string{}
	order := []string{}
	edges := []graph.Edge{}

	cache := map[graph.EdgeKey]map[string]string{}

	for _, row := range bindings {
		subject, subjectOK := row["s"]
		predicate, predicateOK := row["p"]
		object, objectOK := row["o"]

		if !subjectOK || !predicateOK || !objectOK || !subject.IsIRI() {
			continue
		}

		nodeID := IDFromURI(subject.Value)
		if _, found := nodes[nodeID]; !found {
			nodes[nodeID] = map[string]string{}
			order = append(order, nodeID)
		}

		if isTypeMarker(predicate, object) {
			continue
		}

		role, key := Classify(predicate.Value, object)
		if key == "" {
			log.Debug("skipping binding with empty predicate key", "predicate", predicate.Value)
			continue
		}

		if role == RoleProperty {
			nodes[nodeID][key] = object.Value
			continue
		}

		if !object.IsIRI() {
			continue
		}

		edgeKey := graph.EdgeKey{
			Source:       nodeID,
			Relationship: key,
			Target:       IDFromURI(object.Value),
		}

		properties, found := cache[edgeKey]
		if !found {
			var err error
			properties, err = edgeProperties(ctx, edgeKey)
			if err != nil {
				return nil, nil, err
			}
			cache[edgeKey] = properties
		}

		edges = append(edges, graph.Edge{
			Source:       edgeKey.Source,
			Target:       edgeKey.Target,
			Relationship: edgeKey.Relationship,
			Properties:   properties,
		})
	}

	result := make([]graph.Node, 0, len(order))
	for _, id := range order {
		result = append(result, graph.Node{ID: id, Properties: nodes[id]})
	}

	return result, edges, nil
}

// DecodeSubgraph turns ?s ?p ?o bindings into a locally renumbered subgraph.
// Integer ids start at zero and follow first-seen order, subjects before
// objects within each row.
func DecodeSubgraph(ctx context.Context, bindings []Binding, edgeProperties EdgePropertiesFunc) ([]graph.SubgraphNode, []graph.SubgraphEdge, error) {
	idMap := map[string]int{}
	next := 0

	mapped := func(id string) int {
		seq, found := idMap[id]
		if !found {
			seq = next
			idMap[id] = seq
			next++
		}
		return seq
	}

	nodes := map[int]map[string]string{}
	edges := []graph.SubgraphEdge{}
	cache := map[graph.EdgeKey]map[string]string{}

	for _, row := range bindings {
		subject, subjectOK := row["s"]
		predicate, predicateOK := row["p"]
		object, objectOK := row["o"]

		if !subjectOK || !predicateOK || !objectOK || !subject.IsIRI() {
			continue
		}

		nodeID := IDFromURI(subject.Value)
		seq := mapped(nodeID)
		if _, found := nodes[seq]; !found {
			nodes[seq] = map[string]string{}
		}

		if isTypeMarker(predicate, object) {
			continue
		}

		role, key := Classify(predicate.Value, object)

		if role == RoleProperty {
			nodes[seq][key] = object.Value
			continue
		}

		if !object.IsIRI() {
			continue
		}

		targetID := IDFromURI(object.Value)
		edgeKey := graph.EdgeKey{Source: nodeID, Relationship: key, Target: targetID}

		properties, found := cache[edgeKey]
		if !found {
			var err error
			properties, err = edgeProperties(ctx, edgeKey)
			if err != nil {
				return nil, nil, err
			}
			cache[edgeKey] = properties
		}

		edges = append(edges, graph.SubgraphEdge{
			Source:       seq,
			Target:       mapped(targetID),
			Relationship: key,
			Properties:   properties,
		})
	}

	result := make([]graph.SubgraphNode, 0, next)
	for seq := 0; seq < next; seq++ {
		properties, found := nodes[seq]
		if !found {
			properties = map[string]string{}
		}
		result = append(result, graph.SubgraphNode{ID: seq, Properties: properties})
	}

	return result, edges, nil
}

// DecodeProperties turns ?p ?o bindings into a property map, stripping the
// given namespace from each predicate. Relationship statements and anything
// else outside the namespace that still resolves to a key through the
// fallback classification is kept under that key.
func DecodeProperties(bindings []Binding, namespace string) map[string]string {
	properties := map[string]string{}

	for _, row := range bindings {
		predicate, predicateOK := row["p"]
		object, objectOK := row["o"]

		if !predicateOK || !objectOK {
			continue
		}

		if idx := strings.Index(predicate.Value, namespace); idx >= 0 {
			properties[predicate.Value[idx+len(namespace):]] = object.Value
			continue
		}

		if strings.Contains(predicate.Value, RelationshipNamespace) || isTypeMarker(predicate, object) {
			continue
		}

		if !object.IsIRI() {
			properties[KeyFromURI(predicate.Value)] = object.Value
		}
	}

	return properties
}

// DecodeEdges turns the ?p ?o bindings of an outgoing relationship query
// into edges originating from the given node.
func DecodeEdges(nodeID string, bindings []Binding) []graph.Edge {
	edges := []graph.Edge{}

	for _, row := range bindings {
		predicate, predicateOK := row["p"]
		object, objectOK := row["o"]

		if !predicateOK || !objectOK || !object.IsIRI() {
			continue
		}

		role, key := Classify(predicate.Value, object)
		if role != RoleRelationship {
			continue
		}

		edges = append(edges, graph.Edge{
			Source:       nodeID,
			Target:       IDFromURI(object.Value),
			Relationship: key,
			Properties:   map[string]string{},
		})
	}

	return edges
}

// DecodeCount extracts a single aggregate value from a one row result.
func DecodeCount(bindings []Binding, variable string) (int64, bool) {
	if len(bindings) == 0 {
		return 0, false
	}

	term, found := bindings[0][variable]
	if !found {
		return 0, false
	}

	count, err := strconv.ParseInt(term.Value, 10, 64)
	if err != nil {
		return 0, false
	}

	return count, true
}
