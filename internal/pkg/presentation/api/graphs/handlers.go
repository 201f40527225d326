package graphs

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Aleksis99/cognee-graphdb/internal/pkg/application/gateway"
	"github.com/Aleksis99/cognee-graphdb/internal/pkg/presentation/api/graphs/auth"
	"github.com/Aleksis99/cognee-graphdb/pkg/graph/errors"
	"github.com/Aleksis99/cognee-graphdb/pkg/graphdb"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cognee-graphdb/graphs")

const TraceAttributeGraphID string = "graph-id"

func RegisterHandlers(ctx context.Context, r *chi.Mux, policies io.Reader, app gateway.GraphManager) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Route("/graphs/v1", func(r chi.Router) {
		r.Use(Logger(logging.GetFromContext(ctx)))
		r.Use(GraphIDMiddleware())

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", NewCreateNodesHandler(app, authenticator))
			r.Delete("/", NewDeleteNodesHandler(app, authenticator))

			r.Route("/{nodeId}", func(r chi.Router) {
				r.Get("/", NewRetrieveNodeHandler(app, authenticator))
				r.Delete("/", NewDeleteNodeHandler(app, authenticator))
				r.Post("/extract", NewExtractNodeHandler(app, authenticator))
				r.Get("/edges", NewRetrieveEdgesHandler(app, authenticator))
				r.Get("/neighbors", NewRetrieveNeighborsHandler(app, authenticator))
				r.Get("/connections", NewRetrieveConnectionsHandler(app, authenticator))
			})
		})

		r.Route("/edges", func(r chi.Router) {
			r.Post("/", NewCreateEdgesHandler(app, authenticator))
			r.Get("/", NewHasEdgeHandler(app, authenticator))
		})

		r.Route("/graph", func(r chi.Router) {
			r.Get("/", NewRetrieveGraphHandler(app, authenticator))
			r.Delete("/", NewDeleteGraphHandler(app, authenticator))
			r.Get("/metrics", NewRetrieveMetricsHandler(app, authenticator))
		})

		r.Post("/subgraphs", NewRetrieveSubgraphHandler(app, authenticator))
	})

	return nil
}

type graphContextKey struct {
	name string
}

var graphCtxKey = &graphContextKey{"graph-id"}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GraphIDMiddleware packs the logical graph name into the context
func GraphIDMiddleware() func(http.Handler) http.Handler {
	graphHeaderName := http.CanonicalHeaderKey("Graph-Id")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			graphID := "default"

			graphHeader := r.Header[graphHeaderName]
			if len(graphHeader) > 0 {
				graphID = graphHeader[0]
			}

			if labeler, found := otelhttp.LabelerFromContext(r.Context()); found {
				labeler.Add(attribute.String(TraceAttributeGraphID, graphID))
			}

			ctx := context.WithValue(r.Context(), graphCtxKey, graphID)

			ctx = logging.NewContextWithLogger(
				ctx,
				logging.GetFromContext(r.Context()),
				"graph", graphID,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetGraphIDFromContext extracts the logical graph name, if any, from the provided context
func GetGraphIDFromContext(ctx context.Context) string {
	graphID, ok := ctx.Value(graphCtxKey).(string)
	if !ok {
		return "default"
	}
	return graphID
}

// storeFor runs the per-request prologue shared by all handlers: access
// control and graph routing.
func storeFor(ctx context.Context, w http.ResponseWriter, r *http.Request, app gateway.GraphManager, authenticator auth.Enticator) (graphdb.GraphStore, bool) {
	graphID := GetGraphIDFromContext(ctx)

	if err := authenticator.CheckAccess(ctx, r, graphID); err != nil {
		http.Error(w, "access denied", http.StatusUnauthorized)
		return nil, false
	}

	store, err := app.Store(ctx, graphID)
	if err != nil {
		errors.ReportNotFoundError(w, fmt.Sprintf("no graph named %s is configured", graphID), traceID(ctx))
		return nil, false
	}

	return store, true
}

func traceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

func reportError(ctx context.Context, w http.ResponseWriter, err error) {
	tid := traceID(ctx)

	switch {
	case goerrors.Is(err, errors.ErrNotFound):
		errors.ReportNotFoundError(w, err.Error(), tid)
	case goerrors.Is(err, errors.ErrBadRequest):
		errors.ReportNewBadRequestData(w, err.Error(), tid)
	case goerrors.Is(err, errors.ErrTransport), goerrors.Is(err, errors.ErrQuery):
		errors.ReportUpstreamError(w, err.Error(), tid)
	default:
		errors.ReportNewInternalError(w, err.Error(), tid)
	}
}

func respondWithJSON(w http.ResponseWriter, code int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		errors.ReportNewInternalError(w, err.Error(), "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

// NewCreateNodesHandler handles POST requests for one or more nodes
func NewCreateNodesHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "create-nodes")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		request := createNodesRequest{}
		err = json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errors.ReportNewBadRequestData(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()), traceID(ctx))
			return
		}

		records := request.records()
		for idx := range records {
			if records[idx].ID == "" {
				records[idx].ID = uuid.NewString()
			}
		}

		err = store.AddNodes(ctx, records)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		created := make([]string, 0, len(records))
		for _, record := range records {
			created = append(created, record.ID)
		}

		respondWithJSON(w, http.StatusCreated, map[string][]string{"ids": created})
	}
}

// NewDeleteNodesHandler handles DELETE requests carrying a list of node ids
func NewDeleteNodesHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-nodes")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		request := deleteNodesRequest{}
		err = json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errors.ReportNewBadRequestData(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()), traceID(ctx))
			return
		}

		err = store.DeleteNodes(ctx, request.IDs)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// NewRetrieveNodeHandler handles GET requests for a single node
func NewRetrieveNodeHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-node")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		node, err := store.GetNode(ctx, chi.URLParam(r, "nodeId"))
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, presentNode(node))
	}
}

// NewDeleteNodeHandler handles DELETE requests for a single node
func NewDeleteNodeHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-node")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		err = store.DeleteNode(ctx, chi.URLParam(r, "nodeId"))
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// NewExtractNodeHandler handles POST requests that remove a node and return
// its last known state
func NewExtractNodeHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "extract-node")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		node, err := store.ExtractNode(ctx, chi.URLParam(r, "nodeId"))
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, presentNode(node))
	}
}

// NewRetrieveEdgesHandler handles GET requests for the outgoing edges of a node
func NewRetrieveEdgesHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-edges")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		edges, err := store.GetEdges(ctx, chi.URLParam(r, "nodeId"))
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, presentEdges(edges))
	}
}

// NewRetrieveNeighborsHandler handles GET requests for the neighborhood of a node
func NewRetrieveNeighborsHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-neighbors")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		neighbors, err := store.GetNeighbors(ctx, chi.URLParam(r, "nodeId"))
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, presentNodes(neighbors))
	}
}

// NewRetrieveConnectionsHandler handles GET requests for the connections of a node
func NewRetrieveConnectionsHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-connections")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		connections, err := store.GetConnections(ctx, chi.URLParam(r, "nodeId"))
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, presentConnections(connections))
	}
}

// NewCreateEdgesHandler handles POST requests for one or more edges
func NewCreateEdgesHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "create-edges")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		request := createEdgesRequest{}
		err = json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errors.ReportNewBadRequestData(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()), traceID(ctx))
			return
		}

		records := request.records()
		for _, record := range records {
			if record.Source == "" || record.Target == "" || record.Relationship == "" {
				errors.ReportNewBadRequestData(w, "source, target and relationship are required", traceID(ctx))
				return
			}
		}

		err = store.AddEdges(ctx, records)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

// NewHasEdgeHandler handles GET requests checking for the existence of an edge
func NewHasEdgeHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "has-edge")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		source := r.URL.Query().Get("source")
		target := r.URL.Query().Get("target")
		relationship := r.URL.Query().Get("relationship")

		if source == "" || target == "" || relationship == "" {
			errors.ReportNewBadRequestData(w, "source, target and relationship are required", traceID(ctx))
			return
		}

		exists, err := store.HasEdge(ctx, source, target, relationship)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, existsResponse{Exists: exists})
	}
}

// NewRetrieveGraphHandler handles GET requests for the full graph content
func NewRetrieveGraphHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-graph")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		nodes, edges, err := store.GetGraphData(ctx)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, graphDataResponse{
			Nodes: presentNodes(nodes),
			Edges: presentEdges(edges),
		})
	}
}

// NewDeleteGraphHandler handles DELETE requests wiping the entire graph
func NewDeleteGraphHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-graph")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		err = store.DeleteGraph(ctx)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// NewRetrieveMetricsHandler handles GET requests for graph wide counts
func NewRetrieveMetricsHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-metrics")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		metrics, err := store.GetGraphMetrics(ctx)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, metrics)
	}
}

// NewRetrieveSubgraphHandler handles POST requests for induced subgraphs
func NewRetrieveSubgraphHandler(app gateway.GraphManager, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-subgraph")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		store, ok := storeFor(ctx, w, r, app, authenticator)
		if !ok {
			return
		}

		request := subgraphRequest{}
		err = json.NewDecoder(r.Body).Decode(&request)
		if err != nil {
			errors.ReportNewBadRequestData(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()), traceID(ctx))
			return
		}

		nodes, edges, err := store.GetNodesetSubgraph(ctx, request.Type, request.IDs)
		if err != nil {
			reportError(ctx, w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, presentSubgraph(nodes, edges))
	}
}
