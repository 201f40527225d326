package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	grapherrors "github.com/Aleksis99/cognee-graphdb/pkg/graph/errors"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"

	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var anyInput = expects.AnyInput
var method = expects.RequestMethod
var path = expects.RequestPath
var body = expects.RequestBody

const selectResponse string = `{
	"head":{"vars":["p","o"]},
	"results":{"bindings":[
		{"p":{"type":"uri","value":"urn:property:name"},"o":{"type":"literal","value":"bob"}}
	]}
}`

func TestSelectPostsFormEncodedQueryToTheRepository(t *testing.T) {
	is := is.New(t)

	const query string = "SELECT ?p ?o WHERE { <urn:node:1> ?p ?o . }"

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/repositories/test"),
			body(url.Values{"query": {query}}.Encode()),
		),
		Returns(
			response.ContentType("application/sparql-results+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(selectResponse)),
		),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	bindings, err := c.Select(context.Background(), query)

	is.NoErr(err)
	is.Equal(len(bindings), 1)
	is.Equal(bindings[0]["o"].Value, "bob")
}

func TestSelectFailuresMapToQueryErrors(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.Code(http.StatusInternalServerError),
			response.Body([]byte("MALFORMED QUERY: Lexical error")),
		),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	_, err := c.Select(context.Background(), "SELECT ?s WHERE { broken")

	is.True(err != nil)
	is.True(errors.Is(err, grapherrors.ErrQuery))
}

func TestSelectFailsOnMalformedResultDocuments(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte("<html>definitely not json</html>")),
		),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	_, err := c.Select(context.Background(), "SELECT ?s WHERE { ?s ?p ?o . }")

	is.True(err != nil)
	is.True(errors.Is(err, grapherrors.ErrDecode))
}

func TestAskReturnsTheBooleanField(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/sparql-results+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"head":{},"boolean":true}`)),
		),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	exists, err := c.Ask(context.Background(), "ASK { <urn:node:1> ?p ?o . }")

	is.NoErr(err)
	is.True(exists)
}

func TestAskFailsWhenTheBooleanFieldIsMissing(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			response.ContentType("application/sparql-results+json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"head":{"vars":[]},"results":{"bindings":[]}}`)),
		),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	_, err := c.Ask(context.Background(), "ASK { <urn:node:1> ?p ?o . }")

	is.True(err != nil)
	is.True(errors.Is(err, grapherrors.ErrDecode))
}

func TestUpdatePostsToTheStatementsResource(t *testing.T) {
	is := is.New(t)

	const update string = "INSERT DATA { <urn:node:1> a <urn:schema:node> . }"

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/repositories/test/statements"),
			body(url.Values{"update": {update}}.Encode()),
		),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	err := c.Update(context.Background(), update)

	is.NoErr(err)
	is.Equal(s.RequestCount(), 1)
}

func TestUpdateFailuresMapToTransportErrors(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(response.Code(http.StatusInternalServerError)),
	)
	defer s.Close()

	c := New(s.URL(), "test")

	err := c.Update(context.Background(), "INSERT DATA { <urn:node:1> a <urn:schema:node> . }")

	is.True(err != nil)
	is.True(errors.Is(err, grapherrors.ErrTransport))
}

func TestBasicAuthCredentialsAreSentWhenConfigured(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, BasicAuthEquals("admin", "secret")),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := New(s.URL(), "test", BasicAuth("admin", "secret"))

	err := c.Update(context.Background(), "INSERT DATA { <urn:node:1> a <urn:schema:node> . }")

	is.NoErr(err)
}

func TestTrailingSlashesInTheEndpointAreIgnored(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, path("/repositories/test")),
		Returns(
			response.Code(http.StatusOK),
			response.Body([]byte(`{"head":{},"boolean":false}`)),
		),
	)
	defer s.Close()

	c := New(s.URL()+"/", "test")

	_, err := c.Ask(context.Background(), "ASK { ?s ?p ?o . }")

	is.NoErr(err)
}

func BasicAuthEquals(username, password string) func(*is.I, *http.Request) {
	return func(is *is.I, r *http.Request) {
		u, p, ok := r.BasicAuth()
		is.True(ok)            // request should carry basic auth
		is.Equal(u, username)  // username should match
		is.Equal(p, password)  // password should match
	}
}
