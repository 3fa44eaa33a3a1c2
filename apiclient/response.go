package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/todo-manager/api-contract-tests/framework"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ErrMalformedJSON is returned when a response that should be JSON cannot be parsed.
var ErrMalformedJSON = errors.New("response body is not valid JSON")

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON parses the body. An empty body is a JSON null.
func (r *Response) JSON() (ldvalue.Value, error) {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return ldvalue.Null(), nil
	}
	var v ldvalue.Value
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return ldvalue.Null(), fmt.Errorf("%w: %s", ErrMalformedJSON, err)
	}
	return v, nil
}

// ContentType is the media type of the response, without parameters such as charset.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.TrimSpace(strings.Split(ct, ";")[0])
	}
	return mediaType
}

// IsSuccess is true for any 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorMessages extracts the error text from a failure response. The service normally sends
// {"errorMessages": [...]}, but a single "error" or "message" field is accepted too, and a body
// that is not JSON is returned as a single message.
func (r *Response) ErrorMessages() []string {
	text := strings.TrimSpace(string(r.Body))
	if text == "" {
		return nil
	}
	v, err := r.JSON()
	if err != nil || v.Type() != ldvalue.ObjectType {
		return []string{text}
	}
	if list := v.GetByKey("errorMessages"); list.Type() == ldvalue.ArrayType {
		var ret []string
		for i := 0; i < list.Count(); i++ {
			item := list.GetByIndex(i)
			if item.IsString() {
				ret = append(ret, item.StringValue())
			} else {
				ret = append(ret, item.JSONString())
			}
		}
		return ret
	}
	for _, key := range []string{"error", "message"} {
		if m := v.GetByKey(key); m.IsString() {
			return []string{m.StringValue()}
		}
	}
	return []string{text}
}

// HasErrorMessage reports whether any error message contains the given text.
func (r *Response) HasErrorMessage(text string) bool {
	for _, m := range r.ErrorMessages() {
		if strings.Contains(m, text) {
			return true
		}
	}
	return false
}

func (r *Response) String() string {
	if len(r.Body) == 0 {
		return fmt.Sprintf("status %d", r.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", r.StatusCode, excerpt(r.Body))
}

func excerpt(body []byte) string {
	return framework.Excerpt(body, 500)
}

// StatusError is returned by the resource helpers when the service answers with an unexpected
// status.
type StatusError struct {
	Request  Request
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.Request, e.Response)
}
