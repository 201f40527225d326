package graphdb

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/Aleksis99/cognee-graphdb/pkg/graph"
	"github.com/Aleksis99/cognee-graphdb/pkg/graph/errors"
	"github.com/Aleksis99/cognee-graphdb/pkg/sparql"
	"github.com/Aleksis99/cognee-graphdb/pkg/sparql/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NodeRecord is the write side representation of a node: an opaque id and a
// property map with values of any supported type.
type NodeRecord struct {
	ID         string
	Properties map[string]any
}

// EdgeRecord is the write side representation of an edge.
type EdgeRecord struct {
	Source       string
	Target       string
	Relationship string
	Properties   map[string]any
}

// GraphStore maps labeled property graph operations onto a SPARQL
// repository. All state lives in the remote store; implementations keep only
// endpoint configuration and are safe for concurrent use, subject to the
// store's own statement level concurrency control.
type GraphStore interface {
	AddNode(ctx context.Context, id string, properties map[string]any) error
	AddNodes(ctx context.Context, nodes []NodeRecord) error
	DeleteNode(ctx context.Context, id string) error
	DeleteNodes(ctx context.Context, ids []string) error
	GetNode(ctx context.Context, id string) (graph.Node, error)
	GetNodes(ctx context.Context, ids []string) ([]graph.Node, error)

	AddEdge(ctx context.Context, source, target, relationship string, properties map[string]any) error
	AddEdges(ctx context.Context, edges []EdgeRecord) error
	HasEdge(ctx context.Context, source, target, relationship string) (bool, error)
	HasEdges(ctx context.Context, edges []EdgeRecord) ([]EdgeRecord, error)
	GetEdges(ctx context.Context, id string) ([]graph.Edge, error)

	GetNeighbors(ctx context.Context, id string) ([]graph.Node, error)
	GetConnections(ctx context.Context, id string) ([]graph.Connection, error)
	GetNodesetSubgraph(ctx context.Context, nodeType string, ids []string) ([]graph.SubgraphNode, []graph.SubgraphEdge, error)

	GetGraphData(ctx context.Context) ([]graph.Node, []graph.Edge, error)
	GetGraphMetrics(ctx context.Context) (graph.Metrics, error)
	DeleteGraph(ctx context.Context) error

	ExtractNode(ctx context.Context, id string) (graph.Node, error)
	ExtractNodes(ctx context.Context, ids []string) ([]graph.Node, error)
}

// Option configures a GraphStore during construction.
type Option func(*graphStore)

func BasicAuth(username, password string) Option {
	return func(s *graphStore) {
		s.clientOptions = append(s.clientOptions, client.BasicAuth(username, password))
	}
}

func Debug(enabled string) Option {
	return func(s *graphStore) {
		s.clientOptions = append(s.clientOptions, client.Debug(enabled))
	}
}

// WithClient overrides the transport, primarily for tests.
func WithClient(c client.SPARQLClient) Option {
	return func(s *graphStore) {
		s.client = c
	}
}

// New creates a GraphStore backed by one repository of a SPARQL endpoint.
func New(endpoint, repository string, options ...Option) GraphStore {
	s := &graphStore{}

	for _, option := range options {
		option(s)
	}

	if s.client == nil {
		s.client = client.New(endpoint, repository, s.clientOptions...)
	}

	return s
}

const (
	TraceAttributeNodeID       string = "node-id"
	TraceAttributeRelationship string = "relationship"
)

var tracer = otel.Tracer("cognee-graphdb/graphdb")

type graphStore struct {
	client        client.SPARQLClient
	clientOptions []client.Option
}

func (s *graphStore) AddNode(ctx context.Context, id string, properties map[string]any) error {
	var err error

	ctx, span := tracer.Start(ctx, "add-node",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = s.client.Update(ctx, sparql.InsertData(sparql.NodeTriples(id, properties)))
	return err
}

func (s *graphStore) AddNodes(ctx context.Context, nodes []NodeRecord) error {
	var err error

	if len(nodes) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "add-nodes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	triples := []sparql.Triple{}
	for _, node := range nodes {
		triples = append(triples, sparql.NodeTriples(node.ID, node.Properties)...)
	}

	err = s.client.Update(ctx, sparql.InsertData(triples))
	return err
}

func (s *graphStore) DeleteNode(ctx context.Context, id string) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-node",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = s.client.Update(ctx, sparql.DeleteNode(id))
	return err
}

func (s *graphStore) DeleteNodes(ctx context.Context, ids []string) error {
	var err error

	if len(ids) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "delete-nodes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = s.client.Update(ctx, sparql.DeleteNodes(ids))
	return err
}

func (s *graphStore) GetNode(ctx context.Context, id string) (graph.Node, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-node",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	bindings, err := s.client.Select(ctx, sparql.SelectNode(id))
	if err != nil {
		return graph.Node{}, err
	}

	if len(bindings) == 0 {
		err = errors.NewNotFoundError(fmt.Sprintf("node %s does not exist", id))
		return graph.Node{}, err
	}

	return graph.Node{
		ID:         id,
		Properties: sparql.DecodeProperties(bindings, sparql.PropertyNamespace),
	}, nil
}

func (s *graphStore) GetNodes(ctx context.Context, ids []string) ([]graph.Node, error) {
	var err error

	nodes := []graph.Node{}
	if len(ids) == 0 {
		return nodes, nil
	}

	ctx, span := tracer.Start(ctx, "get-nodes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	for _, id := range ids {
		node, nodeErr := s.GetNode(ctx, id)
		if nodeErr != nil {
			if goerrors.Is(nodeErr, errors.ErrNotFound) {
				continue
			}
			err = nodeErr
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

func (s *graphStore) AddEdge(ctx context.Context, source, target, relationship string, properties map[string]any) error {
	var err error

	ctx, span := tracer.Start(ctx, "add-edge",
		trace.WithAttributes(attribute.String(TraceAttributeRelationship, relationship)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = s.client.Update(ctx, sparql.InsertData(sparql.EdgeTriples(source, target, relationship, properties)))
	return err
}

func (s *graphStore) AddEdges(ctx context.Context, edges []EdgeRecord) error {
	var err error

	if len(edges) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "add-edges")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	triples := []sparql.Triple{}
	for _, edge := range edges {
		triples = append(triples, sparql.EdgeTriples(edge.Source, edge.Target, edge.Relationship, edge.Properties)...)
	}

	err = s.client.Update(ctx, sparql.InsertData(triples))
	return err
}

func (s *graphStore) HasEdge(ctx context.Context, source, target, relationship string) (bool, error) {
	var err error

	ctx, span := tracer.Start(ctx, "has-edge",
		trace.WithAttributes(attribute.String(TraceAttributeRelationship, relationship)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	exists, err := s.client.Ask(ctx, sparql.AskEdge(source, target, relationship))
	return exists, err
}

func (s *graphStore) HasEdges(ctx context.Context, edges []EdgeRecord) ([]EdgeRecord, error) {
	var err error

	existing := []EdgeRecord{}
	if len(edges) == 0 {
		return existing, nil
	}

	ctx, span := tracer.Start(ctx, "has-edges")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	for _, edge := range edges {
		exists, askErr := s.HasEdge(ctx, edge.Source, edge.Target, edge.Relationship)
		if askErr != nil {
			err = askErr
			return nil, err
		}
		if exists {
			existing = append(existing, edge)
		}
	}

	return existing, nil
}

func (s *graphStore) GetEdges(ctx context.Context, id string) ([]graph.Edge, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-edges",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	bindings, err := s.client.Select(ctx, sparql.SelectEdges(id))
	if err != nil {
		return nil, err
	}

	return sparql.DecodeEdges(id, bindings), nil
}

func (s *graphStore) GetNeighbors(ctx context.Context, id string) ([]graph.Node, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-neighbors",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	bindings, err := s.client.Select(ctx, sparql.SelectNeighbors(id))
	if err != nil {
		return nil, err
	}

	neighbors := []graph.Node{}

	for _, row := range bindings {
		neighbor, found := row["neighbor"]
		if !found || !neighbor.IsIRI() {
			continue
		}

		neighborID := sparql.IDFromURI(neighbor.Value)
		if neighborID == id {
			continue
		}

		node, nodeErr := s.GetNode(ctx, neighborID)
		if nodeErr != nil {
			if goerrors.Is(nodeErr, errors.ErrNotFound) {
				continue
			}
			err = nodeErr
			return nil, err
		}

		neighbors = append(neighbors, node)
	}

	return neighbors, nil
}

func (s *graphStore) GetConnections(ctx context.Context, id string) ([]graph.Connection, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-connections",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	self, err := s.GetNode(ctx, id)
	if err != nil {
		if goerrors.Is(err, errors.ErrNotFound) {
			err = nil
			return []graph.Connection{}, nil
		}
		return nil, err
	}

	connections := []graph.Connection{}

	outgoing, err := s.client.Select(ctx, sparql.SelectConnectionsOut(id))
	if err != nil {
		return nil, err
	}

	for _, edge := range sparql.DecodeEdges(id, outgoing) {
		target, nodeErr := s.GetNode(ctx, edge.Target)
		if nodeErr != nil {
			if goerrors.Is(nodeErr, errors.ErrNotFound) {
				continue
			}
			err = nodeErr
			return nil, err
		}

		connections = append(connections, graph.Connection{
			Source:       self,
			Relationship: edge.Relationship,
			Target:       target,
		})
	}

	incoming, err := s.client.Select(ctx, sparql.SelectConnectionsIn(id))
	if err != nil {
		return nil, err
	}

	for _, row := range incoming {
		subject, subjectOK := row["s"]
		predicate, predicateOK := row["p"]

		if !subjectOK || !predicateOK || !subject.IsIRI() {
			continue
		}

		role, relationship := sparql.Classify(predicate.Value, subject)
		if role != sparql.RoleRelationship {
			continue
		}

		source, nodeErr := s.GetNode(ctx, sparql.IDFromURI(subject.Value))
		if nodeErr != nil {
			if goerrors.Is(nodeErr, errors.ErrNotFound) {
				continue
			}
			err = nodeErr
			return nil, err
		}

		connections = append(connections, graph.Connection{
			Source:       source,
			Relationship: relationship,
			Target:       self,
		})
	}

	return connections, nil
}

func (s *graphStore) GetNodesetSubgraph(ctx context.Context, nodeType string, ids []string) ([]graph.SubgraphNode, []graph.SubgraphEdge, error) {
	var err error

	if len(ids) == 0 {
		return []graph.SubgraphNode{}, []graph.SubgraphEdge{}, nil
	}

	ctx, span := tracer.Start(ctx, "get-nodeset-subgraph")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	bindings, err := s.client.Select(ctx, sparql.SelectSubgraph(ids))
	if err != nil {
		return nil, nil, err
	}

	nodes, edges, err := sparql.DecodeSubgraph(ctx, bindings, s.edgeProperties)
	return nodes, edges, err
}

func (s *graphStore) GetGraphData(ctx context.Context) ([]graph.Node, []graph.Edge, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-graph-data")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	bindings, err := s.client.Select(ctx, sparql.SelectAll())
	if err != nil {
		return nil, nil, err
	}

	nodes, edges, err := sparql.DecodeGraph(ctx, bindings, s.edgeProperties)
	return nodes, edges, err
}

func (s *graphStore) GetGraphMetrics(ctx context.Context) (graph.Metrics, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-graph-metrics")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	nodeBindings, err := s.client.Select(ctx, sparql.SelectNodeCount())
	if err != nil {
		return graph.Metrics{}, err
	}

	nodeCount, found := sparql.DecodeCount(nodeBindings, "node_count")
	if !found {
		err = errors.NewDecodeError("node count aggregate missing from result")
		return graph.Metrics{}, err
	}

	edgeBindings, err := s.client.Select(ctx, sparql.SelectEdgeCount())
	if err != nil {
		return graph.Metrics{}, err
	}

	edgeCount, found := sparql.DecodeCount(edgeBindings, "edge_count")
	if !found {
		err = errors.NewDecodeError("edge count aggregate missing from result")
		return graph.Metrics{}, err
	}

	return graph.Metrics{NodeCount: nodeCount, EdgeCount: edgeCount}, nil
}

func (s *graphStore) DeleteGraph(ctx context.Context) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-graph")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = s.client.Update(ctx, sparql.DropAll())
	return err
}

func (s *graphStore) ExtractNode(ctx context.Context, id string) (graph.Node, error) {
	var err error

	ctx, span := tracer.Start(ctx, "extract-node",
		trace.WithAttributes(attribute.String(TraceAttributeNodeID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	node, err := s.GetNode(ctx, id)
	if err != nil {
		return graph.Node{}, err
	}

	err = s.DeleteNode(ctx, id)
	if err != nil {
		return graph.Node{}, err
	}

	return node, nil
}

func (s *graphStore) ExtractNodes(ctx context.Context, ids []string) ([]graph.Node, error) {
	var err error

	extracted := []graph.Node{}
	if len(ids) == 0 {
		return extracted, nil
	}

	ctx, span := tracer.Start(ctx, "extract-nodes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	for _, id := range ids {
		node, extractErr := s.ExtractNode(ctx, id)
		if extractErr != nil {
			if goerrors.Is(extractErr, errors.ErrNotFound) {
				continue
			}
			err = extractErr
			return nil, err
		}
		extracted = append(extracted, node)
	}

	return extracted, nil
}

// edgeProperties resolves the reified property group of an edge. A failing
// lookup is a non-critical probe: it is logged and downgraded to an empty
// map so that a single malformed statement does not fail an entire read.
func (s *graphStore) edgeProperties(ctx context.Context, key graph.EdgeKey) (map[string]string, error) {
	bindings, err := s.client.Select(ctx, sparql.SelectEdgeProperties(key))
	if err != nil {
		if goerrors.Is(err, errors.ErrQuery) {
			log := logging.GetFromContext(ctx)
			log.Warn("edge property lookup failed", "relationship", key.Relationship, "err", err.Error())
			return map[string]string{}, nil
		}
		return nil, err
	}

	return sparql.DecodeProperties(bindings, sparql.RelationshipPropertyNamespace), nil
}
