package bddtests

import (
	"context"
	"fmt"
	"strings"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/fixtures"
	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/cucumber/godog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// scenario is the state of one running scenario. godog creates a new one for every scenario.
type scenario struct {
	suite      *suite
	debug      framework.CapturingLogger
	client     *apiclient.Client
	reconciler *fixtures.Reconciler
	state      *fixtures.ScenarioState
	last       *apiclient.Response
}

func newScenario(s *suite) *scenario {
	sc := &scenario{suite: s}
	sc.client = s.opts.Client.LoggingTo(&sc.debug)
	sc.reconciler = fixtures.NewReconciler(sc.client,
		fixtures.WithLogger(&sc.debug),
		fixtures.WithSettleDelay(s.opts.SettleDelay))
	return sc
}

func (sc *scenario) begin(ctx context.Context, gs *godog.Scenario) (context.Context, error) {
	sc.state = sc.reconciler.Begin(gs.Name)
	return ctx, nil
}

func (sc *scenario) end(ctx context.Context, gs *godog.Scenario, err error) (context.Context, error) {
	if sc.state != nil {
		report := sc.reconciler.End(sc.state)
		if !report.OK() {
			sc.debug.Printf("Cleanup was incomplete; teardown: %v; restore: %v", report.TeardownErr, report.RestoreErr)
		}
		sc.suite.created.Merge(sc.state.Created)
	}
	if err != nil || sc.suite.opts.DebugAll {
		fmt.Fprintf(sc.suite.opts.DebugOutput, "Debug output for scenario %q:\n", gs.Name)
		sc.debug.Output().Dump(sc.suite.opts.DebugOutput, "  ")
	}
	return ctx, nil
}

// send translates the logical ID in the request path, sends the request, and registers anything
// it created for teardown.
func (sc *scenario) send(req apiclient.Request) error {
	req.Path = sc.state.ResolveInPath(req.Path)
	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	sc.reconciler.Observe(sc.state, req, resp)
	sc.last = resp
	return nil
}

func (sc *scenario) response() (*apiclient.Response, error) {
	if sc.last == nil {
		return nil, fmt.Errorf("no request has been sent in this scenario")
	}
	return sc.last, nil
}

// responseEntities parses the last response as a list of entities of kind.
func (sc *scenario) responseEntities(kind servicedef.Kind) ([]ldvalue.Value, error) {
	resp, err := sc.response()
	if err != nil {
		return nil, err
	}
	v, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	return apiclient.Unwrap(v, kind.EnvelopeKey()), nil
}

// fetch gets one entity by logical or server ID without disturbing the last response.
func (sc *scenario) fetch(kind servicedef.Kind, ref string) (ldvalue.Value, bool, error) {
	return sc.client.Fetch(kind, sc.state.Resolve(ref))
}

// tableRows converts a table with a header row into maps keyed by column name.
func tableRows(table *godog.Table) ([]map[string]string, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("expected a table with a header row")
	}
	var header []string
	for _, cell := range table.Rows[0].Cells {
		header = append(header, strings.TrimSpace(cell.Value))
	}
	var ret []map[string]string
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != len(header) {
			return nil, fmt.Errorf("table row has %d cells, header has %d", len(row.Cells), len(header))
		}
		m := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			m[header[i]] = cell.Value
		}
		ret = append(ret, m)
	}
	return ret, nil
}
