package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Header names and content types used throughout the server.
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"

	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain; charset=utf-8"
	ContentTypeHTML   = "text/html"
	ContentTypeBinary = "application/octet-stream"
)

// Response is a fully-buffered HTTP response: status, headers, and body.
//
// The body is materialised in full before the transport writes it;
// Content-Length is set at serialisation time and always equals the body
// byte length.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// errorBody is the JSON shape of all error responses.
type errorBody struct {
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

// NewResponse builds a response with the given status, content type, and
// body. An empty contentType leaves the header unset (used for empty
// bodies).
func NewResponse(status int, contentType string, body []byte) *Response {
	r := &Response{
		Status:  status,
		Headers: map[string]string{},
		Body:    body,
	}
	if contentType != "" {
		r.Headers[HeaderContentType] = contentType
	}
	return r
}

// WithHeader sets a header and returns the response for chaining.
func (r *Response) WithHeader(name, value string) *Response {
	r.Headers[name] = value
	return r
}

// OK builds a 200 response with the given content type and body.
func OK(contentType string, body []byte) *Response {
	return NewResponse(http.StatusOK, contentType, body)
}

// Text builds a 200 text/plain response.
func Text(body string) *Response {
	return NewResponse(http.StatusOK, ContentTypeText, []byte(body))
}

// HTML builds a 200 text/html response.
func HTML(body []byte) *Response {
	return NewResponse(http.StatusOK, ContentTypeHTML, body)
}

// JSON builds a response by encoding v as JSON. An encoding failure
// degrades to a 500 with the error as the reason.
func JSON(status int, v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return InternalError(fmt.Sprintf("encoding response: %v", err))
	}
	return NewResponse(status, ContentTypeJSON, data)
}

// NoContent builds a 204 response with an empty body.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, "", nil)
}

// BadRequest builds a 400 response with a JSON reason body.
func BadRequest(reason string) *Response {
	return errorResponse(http.StatusBadRequest, "", reason)
}

// Forbidden builds a 403 response with a JSON reason body.
func Forbidden(reason string) *Response {
	return errorResponse(http.StatusForbidden, "", reason)
}

// NotFound builds a 404 routing-miss response carrying the unmatched path.
func NotFound(path string) *Response {
	return errorResponse(http.StatusNotFound, path, "no route matched")
}

// NotFoundReason builds a 404 response for a missing resource.
func NotFoundReason(reason string) *Response {
	return errorResponse(http.StatusNotFound, "", reason)
}

// InternalError builds a 500 response with a JSON reason body.
func InternalError(reason string) *Response {
	return errorResponse(http.StatusInternalServerError, "", reason)
}

// errorResponse builds a JSON error body. Marshalling a map of strings
// cannot fail, so the error from json.Marshal is ignored.
func errorResponse(status int, path, reason string) *Response {
	data, _ := json.Marshal(errorBody{Path: path, Reason: reason}) //nolint:errcheck
	return NewResponse(status, ContentTypeJSON, data)
}
