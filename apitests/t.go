package apitests

import (
	"time"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/fixtures"
	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type environment struct {
	client      *apiclient.Client
	mode        ExpectMode
	settleDelay time.Duration
}

// T represents a test or subtest in the conformance suite.
//
// It implements the same basic functionality as Go's testing.T, so it can be passed to the
// assert and require packages, but it runs outside of the Go test runner, on top of our
// framework package.
//
// Every T that touches the service gets its own fixture scenario, started on first use. When the
// test finishes, the scenario is ended: whatever the test created is deleted and the service is
// put back the way the test found it.
type T struct {
	context    *framework.Context
	env        *environment
	client     *apiclient.Client
	reconciler *fixtures.Reconciler
	scenario   *fixtures.ScenarioState
}

func newT(c *framework.Context, env *environment) *T {
	client := env.client.LoggingTo(c.DebugLogger())
	return &T{
		context: c,
		env:     env,
		client:  client,
		reconciler: fixtures.NewReconciler(client,
			fixtures.WithLogger(c.DebugLogger()),
			fixtures.WithSettleDelay(env.settleDelay)),
	}
}

func (t *T) close() {
	if t.scenario == nil {
		return
	}
	report := t.reconciler.End(t.scenario)
	if !report.OK() {
		t.Debug("Cleanup was incomplete; teardown: %v; restore: %v", report.TeardownErr, report.RestoreErr)
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest, with its own scenario.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		t1 := newT(c, t.env)
		c.Defer(t1.close)
		action(t1)
	})
}

// Debug logs some debug output for the test. The output is passed to the test logger at the end
// of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// Mode returns the expectation mode of the suite.
func (t *T) Mode() ExpectMode {
	return t.env.mode
}

// Client returns a client whose requests are logged to this test's debug output.
func (t *T) Client() *apiclient.Client {
	return t.client
}

// Scenario returns the test's fixture scenario, starting it if necessary.
func (t *T) Scenario() *fixtures.ScenarioState {
	if t.scenario == nil {
		t.scenario = t.reconciler.Begin(t.context.ID().String())
	}
	return t.scenario
}

// Given makes sure entities matching the descriptors exist, failing the test if any of them
// cannot be provisioned. Their logical IDs can then be used in request paths.
func (t *T) Given(kind servicedef.Kind, descriptors ...servicedef.EntityDescriptor) {
	_, err := t.reconciler.Provision(t.Scenario(), kind, descriptors)
	require.NoError(t, err, "could not provision %s", kind)
}

// Link creates a relationship between two entities given by logical ID.
func (t *T) Link(rel servicedef.Relation, ownerRef, targetRef string) {
	s := t.Scenario()
	link := servicedef.Link{Relation: rel, OwnerID: s.Resolve(ownerRef), TargetID: s.Resolve(targetRef)}
	require.NoError(t, t.reconciler.Link(s, link))
}

// ID returns the server ID for a logical ID.
func (t *T) ID(ref string) string {
	return t.Scenario().Resolve(ref)
}

// Send sends a request after translating the logical ID in its path, and registers anything the
// request created for cleanup. It fails the test if the service cannot be reached.
func (t *T) Send(req apiclient.Request) *apiclient.Response {
	s := t.Scenario()
	req.Path = s.ResolveInPath(req.Path)
	resp, err := t.client.Do(req)
	require.NoError(t, err)
	t.reconciler.Observe(s, req, resp)
	return resp
}

func (t *T) Get(path string) *apiclient.Response {
	return t.Send(apiclient.Request{Method: apiclient.MethodGet, Path: path})
}

func (t *T) Head(path string) *apiclient.Response {
	return t.Send(apiclient.Request{Method: apiclient.MethodHead, Path: path})
}

func (t *T) Delete(path string) *apiclient.Response {
	return t.Send(apiclient.Request{Method: apiclient.MethodDelete, Path: path})
}

func (t *T) Post(path string, body *apiclient.Body) *apiclient.Response {
	return t.Send(apiclient.Request{Method: apiclient.MethodPost, Path: path, Body: body})
}

func (t *T) Put(path string, body *apiclient.Body) *apiclient.Response {
	return t.Send(apiclient.Request{Method: apiclient.MethodPut, Path: path, Body: body})
}

// RequireStatus checks the status of a response against an expectation. In actual mode, a check
// that is known to diverge from the documentation is logged as an issue.
func (t *T) RequireStatus(resp *apiclient.Response, expected Expectation, what string) {
	want := expected.Want(t.env.mode)
	if expected.Divergent() && t.env.mode == ExpectActual {
		t.Debug("ISSUE: %s is documented to return %d, but the service returns %d", what, expected.Documented, expected.Actual)
	}
	require.Equal(t, want, resp.StatusCode, "%s: unexpected status, expected %s; response was %s", what, expected, resp)
}

// RequireEntity parses a response and returns the single entity of a kind that it contains.
func (t *T) RequireEntity(resp *apiclient.Response, kind servicedef.Kind) ldvalue.Value {
	entities := t.RequireEntities(resp, kind)
	require.Len(t, entities, 1, "expected exactly one %s in %s", kind.Singular(), resp)
	return entities[0]
}

// RequireEntities parses a response as a list of entities of a kind.
func (t *T) RequireEntities(resp *apiclient.Response, kind servicedef.Kind) []ldvalue.Value {
	v, err := resp.JSON()
	require.NoError(t, err)
	return apiclient.Unwrap(v, kind.EnvelopeKey())
}

// RequireErrorMessage checks that a response carries an error message containing text.
func (t *T) RequireErrorMessage(resp *apiclient.Response, text string) {
	assert.True(t, resp.HasErrorMessage(text), "expected an error message containing %q, got %v", text, resp.ErrorMessages())
}

// Descriptor is a shortcut for declaring an entity in a test.
func Descriptor(ref, title, description string, flags ...interface{}) servicedef.EntityDescriptor {
	d := servicedef.EntityDescriptor{Ref: ref, Title: title, Description: description, Flags: map[string]bool{}}
	for i := 0; i+1 < len(flags); i += 2 {
		d.Flags[flags[i].(string)] = flags[i+1].(bool)
	}
	return d
}

// JSON builds a request body from alternating keys and values.
func JSON(kv ...interface{}) *apiclient.Body {
	b := ldvalue.ObjectBuild()
	for i := 0; i+1 < len(kv); i += 2 {
		b.Set(kv[i].(string), ldvalue.CopyArbitraryValue(kv[i+1]))
	}
	return apiclient.JSONBody(b.Build())
}
