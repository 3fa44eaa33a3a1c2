package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	// DefaultBaseURL is where the todo manager service listens when started with its defaults.
	DefaultBaseURL = "http://localhost:4567"

	defaultRequestTimeout = time.Second * 10
)

// Client sends requests to the service under test. Every request is logged, together with a
// curl command that reproduces it, to the client's debug logger.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     framework.Logger
	header     http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the debug logger.
func WithLogger(logger framework.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDefaultHeader adds a header to every request that does not set it itself.
func WithDefaultHeader(name, value string) Option {
	return func(c *Client) { c.header.Set(name, value) }
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     framework.NullLogger(),
		header:     make(http.Header),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the base URL of the service.
func (c *Client) BaseURL() string { return c.baseURL }

// LoggingTo returns a copy of the client that logs to a different logger, so that each test
// can capture its own requests.
func (c *Client) LoggingTo(logger framework.Logger) *Client {
	c1 := *c
	if logger == nil {
		logger = framework.NullLogger()
	}
	c1.logger = logger
	return &c1
}

// Logger returns the client's debug logger.
func (c *Client) Logger() framework.Logger { return c.logger }

// Do sends a request and reads the whole response. Only transport failures are errors; any
// HTTP status is a valid response.
func (c *Client) Do(req Request) (*Response, error) {
	var httpMethod string
	switch req.Method {
	case MethodGet:
		httpMethod = http.MethodGet
	case MethodPost:
		httpMethod = http.MethodPost
	case MethodPut:
		httpMethod = http.MethodPut
	case MethodDelete:
		httpMethod = http.MethodDelete
	case MethodHead:
		httpMethod = http.MethodHead
	default:
		return nil, fmt.Errorf("unsupported HTTP method %s", req.Method)
	}

	url := c.baseURL + ensureLeadingSlash(req.Path)
	var bodyData []byte
	var bodyReader io.Reader
	if req.Body != nil {
		bodyData = req.Body.Data
		bodyReader = bytes.NewReader(bodyData)
	}
	httpReq, err := http.NewRequest(httpMethod, url, bodyReader)
	if err != nil {
		return nil, err
	}
	for name, values := range c.header {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	if req.Body != nil && req.Body.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.Body.ContentType)
	}
	for name, values := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}

	if len(bodyData) == 0 {
		c.logger.Printf(">>> %s %s", httpMethod, url)
	} else {
		c.logger.Printf(">>> %s %s %s", httpMethod, url, string(bodyData))
	}
	c.logger.Printf("    %s", CurlCommand(req.Method, url, httpReq.Header, bodyData))

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Printf("<<< %s %s failed: %s", httpMethod, url, err)
		return nil, fmt.Errorf("%s %s: %w", httpMethod, url, err)
	}
	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header}
	if httpResp.Body != nil {
		data, err := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%s %s: error reading response body: %w", httpMethod, url, err)
		}
		resp.Body = data
	}
	c.logger.Printf("<<< %s (%s)", resp, time.Since(start).Round(time.Millisecond))
	return resp, nil
}

func (c *Client) Get(path string) (*Response, error) {
	return c.Do(Request{Method: MethodGet, Path: path})
}

func (c *Client) Head(path string) (*Response, error) {
	return c.Do(Request{Method: MethodHead, Path: path})
}

func (c *Client) Delete(path string) (*Response, error) {
	return c.Do(Request{Method: MethodDelete, Path: path})
}

func (c *Client) Post(path string, body *Body) (*Response, error) {
	return c.Do(Request{Method: MethodPost, Path: path, Body: body})
}

func (c *Client) Put(path string, body *Body) (*Response, error) {
	return c.Do(Request{Method: MethodPut, Path: path, Body: body})
}

// List fetches every entity of a kind. Any status other than 200 is a *StatusError.
func (c *Client) List(kind servicedef.Kind) ([]ldvalue.Value, error) {
	req := Request{Method: MethodGet, Path: kind.Path()}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Request: req, Response: resp}
	}
	v, err := resp.JSON()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}
	return Unwrap(v, kind.EnvelopeKey()), nil
}

// Fetch gets a single entity by ID. The second return value is false if the service answered 404.
func (c *Client) Fetch(kind servicedef.Kind, id string) (ldvalue.Value, bool, error) {
	req := Request{Method: MethodGet, Path: kind.EntityPath(id)}
	resp, err := c.Do(req)
	if err != nil {
		return ldvalue.Null(), false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return ldvalue.Null(), false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ldvalue.Null(), false, &StatusError{Request: req, Response: resp}
	}
	v, err := resp.JSON()
	if err != nil {
		return ldvalue.Null(), false, fmt.Errorf("%s: %w", req, err)
	}
	entities := Unwrap(v, kind.EnvelopeKey())
	if len(entities) == 0 {
		return ldvalue.Null(), false, fmt.Errorf("%s: response contained no entity", req)
	}
	return entities[0], true, nil
}

// Create posts a new entity and returns the created entity as reported by the service. Any
// non-2xx status is a *StatusError.
func (c *Client) Create(kind servicedef.Kind, body ldvalue.Value) (ldvalue.Value, error) {
	return c.createAt(Request{Method: MethodPost, Path: kind.Path(), Body: JSONBody(body)}, kind)
}

// CreateWithID posts an entity to /{kind}/{id}. The service treats this as an amendment of an
// existing entity; it is how snapshot entities are put back.
func (c *Client) CreateWithID(kind servicedef.Kind, id string, body ldvalue.Value) (ldvalue.Value, error) {
	return c.createAt(Request{Method: MethodPost, Path: kind.EntityPath(id), Body: JSONBody(body)}, kind)
}

func (c *Client) createAt(req Request, kind servicedef.Kind) (ldvalue.Value, error) {
	resp, err := c.Do(req)
	if err != nil {
		return ldvalue.Null(), err
	}
	if !resp.IsSuccess() {
		return ldvalue.Null(), &StatusError{Request: req, Response: resp}
	}
	v, err := resp.JSON()
	if err != nil {
		return ldvalue.Null(), fmt.Errorf("%s: %w", req, err)
	}
	if entities := Unwrap(v, kind.EnvelopeKey()); len(entities) == 1 {
		return entities[0], nil
	}
	return v, nil
}

func ensureLeadingSlash(path string) string {
	if path == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
