package graphdb

import (
	"context"
	goerrors "errors"
	"strings"
	"testing"

	"github.com/Aleksis99/cognee-graphdb/pkg/graph"
	"github.com/Aleksis99/cognee-graphdb/pkg/graph/errors"
	"github.com/Aleksis99/cognee-graphdb/pkg/sparql"
	"github.com/matryer/is"
)

type fakeRepository struct {
	selects []string
	asks    []string
	updates []string

	selectFunc func(query string) ([]sparql.Binding, error)
	askFunc    func(query string) (bool, error)
	updateErr  error
}

func (f *fakeRepository) Select(ctx context.Context, query string) ([]sparql.Binding, error) {
	f.selects = append(f.selects, query)
	if f.selectFunc != nil {
		return f.selectFunc(query)
	}
	return []sparql.Binding{}, nil
}

func (f *fakeRepository) Ask(ctx context.Context, query string) (bool, error) {
	f.asks = append(f.asks, query)
	if f.askFunc != nil {
		return f.askFunc(query)
	}
	return false, nil
}

func (f *fakeRepository) Update(ctx context.Context, update string) error {
	f.updates = append(f.updates, update)
	return f.updateErr
}

func testStore(f *fakeRepository) GraphStore {
	return New("", "", WithClient(f))
}

func iri(value string) sparql.Term {
	return sparql.Term{Type: "uri", Value: value}
}

func literal(value string) sparql.Term {
	return sparql.Term{Type: "literal", Value: value}
}

func TestThatAddNodeInsertsATypeMarkerAndProperties(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	err := testStore(f).AddNode(context.Background(), "1", map[string]any{"name": "bob"})

	is.NoErr(err)
	is.Equal(len(f.updates), 1)
	is.True(strings.Contains(f.updates[0], "<urn:node:1> a <urn:schema:node>"))
	is.True(strings.Contains(f.updates[0], `<urn:node:1> <urn:property:name> """bob"""`))
}

func TestThatAddNodesWithAnEmptyListMakesNoCalls(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	err := testStore(f).AddNodes(context.Background(), nil)

	is.NoErr(err)
	is.Equal(len(f.updates), 0)
}

func TestThatAddNodesBatchesIntoASingleUpdate(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	err := testStore(f).AddNodes(context.Background(), []NodeRecord{
		{ID: "1"}, {ID: "2"},
	})

	is.NoErr(err)
	is.Equal(len(f.updates), 1)
	is.True(strings.Contains(f.updates[0], "<urn:node:1>"))
	is.True(strings.Contains(f.updates[0], "<urn:node:2>"))
}

func TestThatGetNodeReturnsNotFoundForMissingNodes(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	_, err := testStore(f).GetNode(context.Background(), "missing")

	is.True(err != nil)
	is.True(goerrors.Is(err, errors.ErrNotFound))
}

func TestThatGetNodeDecodesProperties(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			return []sparql.Binding{
				{"p": iri("urn:property:name"), "o": literal("bob")},
			}, nil
		},
	}

	node, err := testStore(f).GetNode(context.Background(), "1")

	is.NoErr(err)
	is.Equal(node.ID, "1")
	is.Equal(node.Properties["name"], "bob")
}

func TestThatGetNodesSkipsMissingNodes(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "<urn:node:1>") {
				return []sparql.Binding{
					{"p": iri("urn:property:name"), "o": literal("bob")},
				}, nil
			}
			return []sparql.Binding{}, nil
		},
	}

	nodes, err := testStore(f).GetNodes(context.Background(), []string{"1", "missing"})

	is.NoErr(err)
	is.Equal(len(nodes), 1)
	is.Equal(nodes[0].ID, "1")
}

func TestThatGetNodesWithAnEmptyListMakesNoCalls(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	nodes, err := testStore(f).GetNodes(context.Background(), nil)

	is.NoErr(err)
	is.True(nodes != nil)
	is.Equal(len(nodes), 0)
	is.Equal(len(f.selects), 0)
}

func TestThatDeleteNodeMatchesTheExactURI(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	err := testStore(f).DeleteNode(context.Background(), "17")

	is.NoErr(err)
	is.Equal(len(f.updates), 1)
	is.Equal(f.updates[0], sparql.DeleteNode("17"))
	is.True(!strings.Contains(f.updates[0], "CONTAINS"))
}

func TestThatHasEdgeAsksForTheExactStatement(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		askFunc: func(query string) (bool, error) { return true, nil },
	}

	exists, err := testStore(f).HasEdge(context.Background(), "1", "2", "knows")

	is.NoErr(err)
	is.True(exists)
	is.Equal(len(f.asks), 1)
	is.Equal(f.asks[0], sparql.AskEdge("1", "2", "knows"))
}

func TestThatHasEdgesReturnsOnlyTheExistingOnes(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		askFunc: func(query string) (bool, error) {
			return strings.Contains(query, "<urn:relationship:knows>"), nil
		},
	}

	existing, err := testStore(f).HasEdges(context.Background(), []EdgeRecord{
		{Source: "1", Target: "2", Relationship: "knows"},
		{Source: "1", Target: "2", Relationship: "hates"},
	})

	is.NoErr(err)
	is.Equal(len(existing), 1)
	is.Equal(existing[0].Relationship, "knows")
}

func TestThatAddEdgeReifiesItsProperties(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	err := testStore(f).AddEdge(context.Background(), "1", "2", "knows", map[string]any{"since": 2020})

	is.NoErr(err)
	is.Equal(len(f.updates), 1)
	is.True(strings.Contains(f.updates[0], "<urn:node:1> <urn:relationship:knows> <urn:node:2>"))
	is.True(strings.Contains(f.updates[0],
		`<< <urn:node:1> <urn:relationship:knows> <urn:node:2> >> <urn:relationship-property:since>`))
}

func TestThatGetGraphDataEnrichesEdgesWithReifiedProperties(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "<<") {
				return []sparql.Binding{
					{"p": iri("urn:relationship-property:since"), "o": literal("2020")},
				}, nil
			}
			return []sparql.Binding{
				{"s": iri("urn:node:1"), "p": iri("urn:relationship:knows"), "o": iri("urn:node:2")},
			}, nil
		},
	}

	nodes, edges, err := testStore(f).GetGraphData(context.Background())

	is.NoErr(err)
	is.Equal(len(nodes), 1)
	is.Equal(len(edges), 1)
	is.Equal(edges[0].Properties["since"], "2020")
}

func TestThatGetGraphDataOnAnEmptyStoreIsEmptyNotNil(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	nodes, edges, err := testStore(f).GetGraphData(context.Background())

	is.NoErr(err)
	is.True(nodes != nil)
	is.True(edges != nil)
	is.Equal(len(nodes), 0)
	is.Equal(len(edges), 0)
}

func TestThatFailingEdgePropertyLookupsAreTolerated(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "<<") {
				return nil, errors.NewQueryError("repository returned status code 400")
			}
			return []sparql.Binding{
				{"s": iri("urn:node:1"), "p": iri("urn:relationship:knows"), "o": iri("urn:node:2")},
			}, nil
		},
	}

	_, edges, err := testStore(f).GetGraphData(context.Background())

	is.NoErr(err)
	is.Equal(len(edges), 1)
	is.Equal(len(edges[0].Properties), 0)
}

func TestThatGetGraphMetricsFailsWhenAnAggregateIsMissing(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	_, err := testStore(f).GetGraphMetrics(context.Background())

	is.True(err != nil)
	is.True(goerrors.Is(err, errors.ErrDecode))
}

func TestThatGetGraphMetricsCombinesBothCounts(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "?node_count") {
				return []sparql.Binding{{"node_count": literal("3")}}, nil
			}
			return []sparql.Binding{{"edge_count": literal("2")}}, nil
		},
	}

	metrics, err := testStore(f).GetGraphMetrics(context.Background())

	is.NoErr(err)
	is.Equal(metrics, graph.Metrics{NodeCount: 3, EdgeCount: 2})
}

func TestThatGetConnectionsForAMissingNodeIsEmpty(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	connections, err := testStore(f).GetConnections(context.Background(), "missing")

	is.NoErr(err)
	is.True(connections != nil)
	is.Equal(len(connections), 0)
}

func TestThatGetConnectionsResolvesBothDirections(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			switch {
			case strings.Contains(query, "SELECT ?p ?o WHERE { <urn:node:1> ?p ?o . FILTER"):
				return []sparql.Binding{
					{"p": iri("urn:relationship:knows"), "o": iri("urn:node:2")},
				}, nil
			case strings.Contains(query, "SELECT ?s ?p WHERE"):
				return []sparql.Binding{
					{"s": iri("urn:node:3"), "p": iri("urn:relationship:likes")},
				}, nil
			default:
				return []sparql.Binding{
					{"p": iri("urn:property:name"), "o": literal("someone")},
				}, nil
			}
		},
	}

	connections, err := testStore(f).GetConnections(context.Background(), "1")

	is.NoErr(err)
	is.Equal(len(connections), 2)
	is.Equal(connections[0].Source.ID, "1")
	is.Equal(connections[0].Relationship, "knows")
	is.Equal(connections[0].Target.ID, "2")
	is.Equal(connections[1].Source.ID, "3")
	is.Equal(connections[1].Relationship, "likes")
	is.Equal(connections[1].Target.ID, "1")
}

func TestThatGetNeighborsExcludesTheNodeItself(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "?neighbor") {
				return []sparql.Binding{
					{"neighbor": iri("urn:node:1")},
					{"neighbor": iri("urn:node:2")},
				}, nil
			}
			return []sparql.Binding{
				{"p": iri("urn:property:name"), "o": literal("eve")},
			}, nil
		},
	}

	neighbors, err := testStore(f).GetNeighbors(context.Background(), "1")

	is.NoErr(err)
	is.Equal(len(neighbors), 1)
	is.Equal(neighbors[0].ID, "2")
}

func TestThatGetNodesetSubgraphAssignsSequentialIds(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "<<") {
				return []sparql.Binding{}, nil
			}
			return []sparql.Binding{
				{"s": iri("urn:node:a"), "p": iri("urn:relationship:knows"), "o": iri("urn:node:b")},
			}, nil
		},
	}

	nodes, edges, err := testStore(f).GetNodesetSubgraph(context.Background(), "node", []string{"a", "b"})

	is.NoErr(err)
	is.Equal(len(nodes), 2)
	is.Equal(nodes[0].ID, 0)
	is.Equal(nodes[1].ID, 1)
	is.Equal(len(edges), 1)
	is.Equal(edges[0].Source, 0)
	is.Equal(edges[0].Target, 1)
}

func TestThatGetNodesetSubgraphWithAnEmptyIdListMakesNoCalls(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	nodes, edges, err := testStore(f).GetNodesetSubgraph(context.Background(), "node", nil)

	is.NoErr(err)
	is.Equal(len(nodes), 0)
	is.Equal(len(edges), 0)
	is.Equal(len(f.selects), 0)
}

func TestThatExtractNodeReturnsTheRemovedNode(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			return []sparql.Binding{
				{"p": iri("urn:property:name"), "o": literal("bob")},
			}, nil
		},
	}

	node, err := testStore(f).ExtractNode(context.Background(), "1")

	is.NoErr(err)
	is.Equal(node.Properties["name"], "bob")
	is.Equal(len(f.updates), 1)
	is.Equal(f.updates[0], sparql.DeleteNode("1"))
}

func TestThatExtractNodesSkipsMissingNodes(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{
		selectFunc: func(query string) ([]sparql.Binding, error) {
			if strings.Contains(query, "<urn:node:1>") {
				return []sparql.Binding{
					{"p": iri("urn:property:name"), "o": literal("bob")},
				}, nil
			}
			return []sparql.Binding{}, nil
		},
	}

	extracted, err := testStore(f).ExtractNodes(context.Background(), []string{"1", "missing"})

	is.NoErr(err)
	is.Equal(len(extracted), 1)
	is.Equal(len(f.updates), 1)
}

func TestThatDeleteGraphDropsEveryStatement(t *testing.T) {
	is := is.New(t)
	f := &fakeRepository{}

	err := testStore(f).DeleteGraph(context.Background())

	is.NoErr(err)
	is.Equal(len(f.updates), 1)
	is.Equal(f.updates[0], "DELETE WHERE { ?s ?p ?o }")
}
