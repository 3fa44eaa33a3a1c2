package apiclient

import (
	"net/http"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeXML  = "application/xml"
)

// Body is the payload of a request together with its content type.
type Body struct {
	ContentType string
	Data        []byte
}

// JSONBody serializes a JSON value as the request body.
func JSONBody(v ldvalue.Value) *Body {
	return &Body{ContentType: ContentTypeJSON, Data: []byte(v.JSONString())}
}

// RawJSONBody sends text as-is with a JSON content type. It is how malformed input is sent.
func RawJSONBody(text string) *Body {
	return &Body{ContentType: ContentTypeJSON, Data: []byte(text)}
}

// XMLBody sends XML text with an XML content type.
func XMLBody(text string) *Body {
	return &Body{ContentType: ContentTypeXML, Data: []byte(text)}
}

// Request describes one call to the service. Path is relative to the client's base URL and may
// include a query string.
type Request struct {
	Method Method
	Path   string
	Body   *Body
	Header http.Header
}

// AcceptXML returns a copy of the request that asks for an XML response.
func (r Request) AcceptXML() Request {
	return r.WithHeader("Accept", ContentTypeXML)
}

// AcceptJSON returns a copy of the request that asks for a JSON response.
func (r Request) AcceptJSON() Request {
	return r.WithHeader("Accept", ContentTypeJSON)
}

// WithHeader returns a copy of the request with a header set.
func (r Request) WithHeader(name, value string) Request {
	h := make(http.Header)
	for k, v := range r.Header {
		h[k] = append([]string(nil), v...)
	}
	h.Set(name, value)
	r.Header = h
	return r
}

func (r Request) String() string {
	return r.Method.String() + " " + r.Path
}
