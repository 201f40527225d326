package sparql

import (
	"fmt"
	"strings"

	"github.com/Aleksis99/cognee-graphdb/pkg/graph"
)

// Triple is one statement to be inserted. Object is expected to have been
// run through FormatLiteral (or ToURI) already. Reified marks a subject that
// is a quoted triple, used to attach properties to an edge statement.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
	Reified   bool
}

// QuotedTriple renders the RDF-star handle for an edge statement, usable as
// the subject of further triples.
func QuotedTriple(key graph.EdgeKey) string {
	return fmt.Sprintf("<< <%s> <%s> <%s> >>",
		ToURI(key.Source, NodeNamespace),
		ToURI(key.Relationship, RelationshipNamespace),
		ToURI(key.Target, NodeNamespace),
	)
}

// NodeTriples expands a node and its properties into insertable triples: an
// rdf:type marker plus one property statement per key.
func NodeTriples(id string, properties map[string]any) []Triple {
	triples := make([]Triple, 0, len(properties)+1)
	triples = append(triples, Triple{
		Subject:   ToURI(id, NodeNamespace),
		Predicate: "a",
		Object:    NodeType,
	})

	for key, value := range properties {
		triples = append(triples, Triple{
			Subject:   ToURI(id, NodeNamespace),
			Predicate: ToURI(key, PropertyNamespace),
			Object:    FormatLiteral(value),
		})
	}

	return triples
}

// EdgeTriples expands an edge into its base relationship statement plus one
// reified property statement per key.
func EdgeTriples(source, target, relationship string, properties map[string]any) []Triple {
	triples := make([]Triple, 0, len(properties)+1)
	triples = append(triples, Triple{
		Subject:   ToURI(source, NodeNamespace),
		Predicate: ToURI(relationship, RelationshipNamespace),
		Object:    ToURI(target, NodeNamespace),
	})

	key := graph.EdgeKey{Source: source, Relationship: relationship, Target: target}
	for prop, value := range properties {
		triples = append(triples, Triple{
			Subject:   QuotedTriple(key),
			Predicate: ToURI(prop, RelationshipPropertyNamespace),
			Object:    FormatLiteral(value),
			Reified:   true,
		})
	}

	return triples
}

// InsertData assembles an INSERT DATA update from already encoded triples.
func InsertData(triples []Triple) string {
	var b strings.Builder
	b.WriteString("INSERT DATA { ")

	for _, t := range triples {
		switch {
		case t.Predicate == "a":
			fmt.Fprintf(&b, "<%s> a <%s> . ",
				ToURI(t.Subject, NodeNamespace),
				ToURI(t.Object, SchemaNamespace),
			)
		case t.Reified:
			fmt.Fprintf(&b, "%s <%s> %s . ",
				t.Subject,
				ToURI(t.Predicate, RelationshipPropertyNamespace),
				t.Object,
			)
		case IsURI(t.Object):
			fmt.Fprintf(&b, "<%s> <%s> <%s> . ", t.Subject, t.Predicate, t.Object)
		default:
			fmt.Fprintf(&b, "<%s> <%s> %s . ", t.Subject, t.Predicate, t.Object)
		}
	}

	b.WriteString("}")
	return b.String()
}

// DeleteNode builds an update removing every statement touching the exact
// canonical URI of the given id: outgoing, incoming, and the reified
// property groups of any edge the node takes part in. Matching is by term
// equality, never by substring, so deleting "a" leaves "alpha" untouched.
func DeleteNode(id string) string {
	uri := ToURI(id, NodeNamespace)
	return strings.Join([]string{
		fmt.Sprintf("DELETE WHERE { << <%s> ?p ?o >> ?ep ?ev }", uri),
		fmt.Sprintf("DELETE WHERE { << ?s ?p <%s> >> ?ep ?ev }", uri),
		fmt.Sprintf("DELETE WHERE { <%s> ?p ?o }", uri),
		fmt.Sprintf("DELETE WHERE { ?s ?p <%s> }", uri),
	}, " ;\n")
}

// DeleteNodes builds one update removing several nodes.
func DeleteNodes(ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, DeleteNode(id))
	}
	return strings.Join(parts, " ;\n")
}

// DropAll removes every statement in the repository.
func DropAll() string {
	return "DELETE WHERE { ?s ?p ?o }"
}

// AskEdge checks for the existence of one relationship statement.
func AskEdge(source, target, relationship string) string {
	return fmt.Sprintf("ASK WHERE { <%s> <%s> <%s> . }",
		ToURI(source, NodeNamespace),
		ToURI(relationship, RelationshipNamespace),
		ToURI(target, NodeNamespace),
	)
}

// SelectNode returns every statement whose subject is the node.
func SelectNode(id string) string {
	return fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o . }", ToURI(id, NodeNamespace))
}

// SelectAll returns the complete content of the repository.
func SelectAll() string {
	return "SELECT ?s ?p ?o WHERE { ?s ?p ?o }"
}

// SelectEdges returns the outgoing relationship statements of a node.
func SelectEdges(id string) string {
	return fmt.Sprintf(
		"SELECT ?p ?o WHERE { <%s> ?p ?o . FILTER(STRSTARTS(STR(?p), \"%s\")) }",
		ToURI(id, NodeNamespace), RelationshipNamespace,
	)
}

// SelectNeighbors returns the distinct URIs adjacent to a node in either
// direction, excluding literal values from the identifier position.
func SelectNeighbors(id string) string {
	uri := ToURI(id, NodeNamespace)
	return fmt.Sprintf(`SELECT DISTINCT ?neighbor WHERE {
	{ <%s> ?p ?neighbor . FILTER(isIRI(?neighbor)) }
	UNION
	{ ?neighbor ?p <%s> . FILTER(isIRI(?neighbor)) }
}`, uri, uri)
}

// SelectConnectionsOut returns the outgoing statements of a node whose
// object is a URI.
func SelectConnectionsOut(id string) string {
	return fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o . FILTER(isIRI(?o)) }", ToURI(id, NodeNamespace))
}

// SelectConnectionsIn returns the incoming statements of a node whose
// subject is a URI.
func SelectConnectionsIn(id string) string {
	return fmt.Sprintf("SELECT ?s ?p WHERE { ?s ?p <%s> . FILTER(isIRI(?s)) }", ToURI(id, NodeNamespace))
}

// SelectNodeCount counts the distinct subjects carrying the node type marker.
func SelectNodeCount() string {
	return fmt.Sprintf("SELECT (COUNT(DISTINCT ?s) AS ?node_count) WHERE { ?s a <%s> . }", NodeType)
}

// SelectEdgeCount counts the relationship statements in the repository.
func SelectEdgeCount() string {
	return fmt.Sprintf(
		"SELECT (COUNT(?s) AS ?edge_count) WHERE { ?s ?p ?o . FILTER(STRSTARTS(STR(?p), \"%s\")) }",
		RelationshipNamespace,
	)
}

// SelectSubgraph returns the statements induced by the given subject ids,
// bound through a VALUES clause.
func SelectSubgraph(ids []string) string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, fmt.Sprintf("<%s>", ToURI(id, NodeNamespace)))
	}

	return fmt.Sprintf(`SELECT ?s ?p ?o WHERE {
	?s ?p ?o .
	VALUES ?s { %s }
}`, strings.Join(values, " "))
}

// SelectEdgeProperties returns the property statements attached to one edge
// statement through its quoted triple handle.
func SelectEdgeProperties(key graph.EdgeKey) string {
	return fmt.Sprintf("SELECT ?p ?o WHERE { %s ?p ?o . }", QuotedTriple(key))
}
