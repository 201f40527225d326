package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var ErrTransport = fmt.Errorf("transport error")
var ErrQuery = fmt.Errorf("query error")
var ErrDecode = fmt.Errorf("decode error")
var ErrNotFound = fmt.Errorf("not found")
var ErrBadRequest = fmt.Errorf("bad request")
var ErrUnknownGraph = fmt.Errorf("unknown graph")

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewTransportError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrTransport,
	}
}

func NewQueryError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrQuery,
	}
}

func NewDecodeError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrDecode,
	}
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrNotFound,
	}
}

func NewBadRequestError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrBadRequest,
	}
}

func NewUnknownGraphError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrUnknownGraph,
	}
}

// ProblemDetails stores details about a certain problem according to RFC7807
// See https://tools.ietf.org/html/rfc7807
type ProblemDetails interface {
	ContentType() string
	Type() string
	Title() string
	Detail() string
	MarshalJSON() ([]byte, error)
	WriteResponse(w http.ResponseWriter)
}

type ProblemDetailsImpl struct {
	typ     string
	title   string
	detail  string
	code    int
	traceID string
}

const (
	// ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"
)

func (p *ProblemDetailsImpl) ContentType() string {
	return ProblemReportContentType
}

func (p *ProblemDetailsImpl) Type() string {
	return p.typ
}

func (p *ProblemDetailsImpl) Title() string {
	return p.title
}

func (p *ProblemDetailsImpl) Detail() string {
	return p.detail
}

func (p *ProblemDetailsImpl) MarshalJSON() ([]byte, error) {
	j := struct {
		Type    string `json:"type"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
		TraceID string `json:"traceID,omitempty"`
	}{
		Type:    p.typ,
		Title:   p.title,
		Detail:  p.detail,
		TraceID: p.traceID,
	}
	return json.Marshal(&j)
}

func (p *ProblemDetailsImpl) WriteResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", p.ContentType())
	w.WriteHeader(p.code)

	body, err := p.MarshalJSON()
	if err != nil {
		return
	}

	w.Write(body)
}

// BadRequestData reports that the request includes input data which does not
// meet the requirements of the operation
type BadRequestData struct {
	ProblemDetailsImpl
}

func NewBadRequestData(detail, traceID string) *BadRequestData {
	return &BadRequestData{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     "urn:cognee:graphdb:errors:BadRequestData",
			title:   "Bad Request Data",
			detail:  detail,
			code:    http.StatusBadRequest,
			traceID: traceID,
		},
	}
}

func ReportNewBadRequestData(w http.ResponseWriter, detail, traceID string) {
	brd := NewBadRequestData(detail, traceID)
	brd.WriteResponse(w)
}

// ResourceNotFound reports that the referenced node or edge does not exist
type ResourceNotFound struct {
	ProblemDetailsImpl
}

func NewResourceNotFound(detail, traceID string) *ResourceNotFound {
	return &ResourceNotFound{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     "urn:cognee:graphdb:errors:ResourceNotFound",
			title:   "Resource Not Found",
			detail:  detail,
			code:    http.StatusNotFound,
			traceID: traceID,
		},
	}
}

func ReportNotFoundError(w http.ResponseWriter, detail, traceID string) {
	rnf := NewResourceNotFound(detail, traceID)
	rnf.WriteResponse(w)
}

// UpstreamError reports that the triple store could not be reached or
// answered with a failure
type UpstreamError struct {
	ProblemDetailsImpl
}

func NewUpstreamError(detail, traceID string) *UpstreamError {
	return &UpstreamError{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     "urn:cognee:graphdb:errors:UpstreamError",
			title:   "Upstream Error",
			detail:  detail,
			code:    http.StatusBadGateway,
			traceID: traceID,
		},
	}
}

func ReportUpstreamError(w http.ResponseWriter, detail, traceID string) {
	ue := NewUpstreamError(detail, traceID)
	ue.WriteResponse(w)
}

// InternalError reports that there has been an error during the operation execution
type InternalError struct {
	ProblemDetailsImpl
}

func (ie InternalError) Error() string {
	return ie.detail
}

func NewInternalError(detail, traceID string) *InternalError {
	return &InternalError{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:     "urn:cognee:graphdb:errors:InternalError",
			title:   "Internal Error",
			detail:  detail,
			code:    http.StatusInternalServerError,
			traceID: traceID,
		},
	}
}

func ReportNewInternalError(w http.ResponseWriter, detail, traceID string) {
	ine := NewInternalError(detail, traceID)
	ine.WriteResponse(w)
}
