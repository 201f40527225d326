package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/Aleksis99/cognee-graphdb/pkg/graph/errors"
	"github.com/Aleksis99/cognee-graphdb/pkg/sparql"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SPARQLClient executes queries and updates against one repository of a
// GraphDB style endpoint. Implementations hold no per-call state and are
// safe for concurrent use.
type SPARQLClient interface {
	Select(ctx context.Context, query string) ([]sparql.Binding, error)
	Ask(ctx context.Context, query string) (bool, error)
	Update(ctx context.Context, update string) error
}

// Option configures a client during construction.
type Option func(*sparqlClient)

func BasicAuth(username, password string) Option {
	return func(c *sparqlClient) {
		c.username = username
		c.password = password
	}
}

func Debug(enabled string) Option {
	return func(c *sparqlClient) {
		c.debug = (enabled == "true")
	}
}

// New creates a client for a single repository. Queries go to
// {endpoint}/repositories/{repository} and updates to the adjacent
// /statements resource.
func New(endpoint, repository string, options ...Option) SPARQLClient {
	baseURL := strings.TrimSuffix(endpoint, "/") + "/repositories/" + repository

	c := &sparqlClient{
		queryURL:  baseURL,
		updateURL: baseURL + "/statements",
	}

	for _, option := range options {
		option(c)
	}

	return c
}

const (
	TraceAttributeRepository string = "sparql-repository"
)

var tracer = otel.Tracer("cognee-graphdb/sparql-client")

type sparqlClient struct {
	queryURL  string
	updateURL string
	username  string
	password  string
	debug     bool
}

func (c sparqlClient) Select(ctx context.Context, query string) ([]sparql.Binding, error) {
	var err error

	ctx, span := tracer.Start(ctx, "sparql-select",
		trace.WithAttributes(attribute.String(TraceAttributeRepository, c.queryURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := c.callEndpoint(ctx, c.queryURL, url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}

	results, err := sparql.ParseResults(body)
	if err != nil {
		err = errors.NewDecodeError(fmt.Sprintf("malformed query result: %s", err.Error()))
		return nil, err
	}

	return results.Results.Bindings, nil
}

func (c sparqlClient) Ask(ctx context.Context, query string) (bool, error) {
	var err error

	ctx, span := tracer.Start(ctx, "sparql-ask",
		trace.WithAttributes(attribute.String(TraceAttributeRepository, c.queryURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := c.callEndpoint(ctx, c.queryURL, url.Values{"query": {query}})
	if err != nil {
		return false, err
	}

	results, err := sparql.ParseResults(body)
	if err != nil {
		err = errors.NewDecodeError(fmt.Sprintf("malformed ask result: %s", err.Error()))
		return false, err
	}

	if results.Boolean == nil {
		err = errors.NewDecodeError("ask result carries no boolean field")
		return false, err
	}

	return *results.Boolean, nil
}

func (c sparqlClient) Update(ctx context.Context, update string) error {
	var err error

	ctx, span := tracer.Start(ctx, "sparql-update",
		trace.WithAttributes(attribute.String(TraceAttributeRepository, c.updateURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = c.callEndpoint(ctx, c.updateURL, url.Values{"update": {update}})
	return err
}

func (c sparqlClient) callEndpoint(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewTransportError(fmt.Sprintf("failed to create request: %s", err.Error()))
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(fmt.Sprintf("failed to send request: %s", err.Error()))
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError(fmt.Sprintf("failed to read response body: %s", err.Error()))
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		log := logging.GetFromContext(ctx)
		log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		detail := strings.TrimSpace(string(respBody))
		if len(detail) > 256 {
			detail = detail[:256]
		}

		if form.Has("update") {
			return nil, errors.NewTransportError(
				fmt.Sprintf("repository returned status code %d: %s", resp.StatusCode, detail),
			)
		}

		return nil, errors.NewQueryError(
			fmt.Sprintf("repository returned status code %d: %s", resp.StatusCode, detail),
		)
	}

	return respBody, nil
}
