package sparql

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// The URN namespaces that partition graph identifiers in the store. The
// partition is what allows a decoder to classify an arbitrary triple as a
// node property or a relationship purely from its predicate.
const (
	NodeNamespace                 string = "urn:node:"
	PropertyNamespace             string = "urn:property:"
	RelationshipNamespace         string = "urn:relationship:"
	RelationshipPropertyNamespace string = "urn:relationship-property:"
	SchemaNamespace               string = "urn:schema:"
)

// NodeType is the rdf:type marker object for every node in the store.
const NodeType string = SchemaNamespace + "node"

// ToURI returns value unchanged if it already is a well formed URI, and
// prefixes it with the given namespace otherwise. Calling it twice with the
// same namespace yields the same URI.
func ToURI(value, namespace string) string {
	if IsURI(value) {
		return value
	}
	return namespace + value
}

// IsURI reports whether value parses as an absolute URI.
func IsURI(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.Scheme != ""
}

// QuoteURI percent-encodes a value for embedding in a URI.
func QuoteURI(value string) string {
	return url.PathEscape(value)
}

// FormatLiteral serializes a property value to its SPARQL term text.
// Booleans and numbers carry an explicit XSD datatype tag, strings already in
// the node namespace are treated as URI references, and anything else is
// marshalled to JSON text first. General strings are triple-quoted with
// backslash, quote, CR and LF escaped.
func FormatLiteral(value any) string {
	switch v := value.(type) {
	case bool:
		return fmt.Sprintf("\"%t\"^^<http://www.w3.org/2001/XMLSchema#boolean>", v)
	case int:
		return fmt.Sprintf("\"%d\"^^<http://www.w3.org/2001/XMLSchema#integer>", v)
	case int32:
		return fmt.Sprintf("\"%d\"^^<http://www.w3.org/2001/XMLSchema#integer>", v)
	case int64:
		return fmt.Sprintf("\"%d\"^^<http://www.w3.org/2001/XMLSchema#integer>", v)
	case float32:
		return "\"" + strconv.FormatFloat(float64(v), 'g', -1, 32) + "\"^^<http://www.w3.org/2001/XMLSchema#double>"
	case float64:
		return "\"" + strconv.FormatFloat(v, 'g', -1, 64) + "\"^^<http://www.w3.org/2001/XMLSchema#double>"
	case uuid.UUID:
		return quoteString(v.String())
	case string:
		if strings.HasPrefix(v, NodeNamespace) {
			return v
		}
		return quoteString(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return quoteString(fmt.Sprintf("%v", v))
		}
		return quoteString(string(b))
	}
}

func quoteString(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\r", "\\r",
		"\n", "\\n",
	)
	return "\"\"\"" + r.Replace(s) + "\"\"\""
}

// KeyFromURI extracts the local name of a URI: the fragment after # if
// present, else the suffix after the last colon, else the last path segment.
// The result is lower cased with spaces replaced by underscores.
func KeyFromURI(uri string) string {
	key := uri

	if idx := strings.Index(key, "#"); idx >= 0 {
		key = key[idx+1:]
	} else if idx := strings.LastIndex(key, ":"); idx >= 0 {
		key = key[idx+1:]
	} else if idx := strings.LastIndex(key, "/"); idx >= 0 {
		key = key[idx+1:]
	}

	key = strings.TrimSpace(strings.ToLower(key))
	return strings.ReplaceAll(key, " ", "_")
}

// IDFromURI is the inverse of ToURI for node identifiers: it strips the node
// namespace when present and otherwise returns the URI unchanged, so that
// graphs created outside this codec still decode to usable ids.
func IDFromURI(uri string) string {
	if strings.HasPrefix(uri, NodeNamespace) {
		return strings.TrimPrefix(uri, NodeNamespace)
	}
	return uri
}
