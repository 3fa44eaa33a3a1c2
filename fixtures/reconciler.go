// Package fixtures keeps the state of the service under test consistent across scenarios.
//
// A scenario declares the entities it needs by logical ID. The Reconciler creates them (or reuses
// equal ones that already exist), translates logical IDs into server IDs while the scenario
// runs, and afterwards deletes what the scenario created and puts back anything that went
// missing since the scenario began.
package fixtures

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Reconciler runs the fixture life cycle of scenarios against one service.
type Reconciler struct {
	service     Service
	logger      framework.Logger
	settleDelay time.Duration
	sleep       func(time.Duration)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for scenarios.
func WithLogger(logger framework.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithSettleDelay changes how long restore waits after teardown.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.settleDelay = d }
}

func NewReconciler(service Service, opts ...Option) *Reconciler {
	r := &Reconciler{
		service:     service,
		logger:      framework.NullLogger(),
		settleDelay: DefaultSettleDelay,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = framework.NullLogger()
	}
	return r
}

// Begin starts a scenario: it takes a snapshot of the service and leaves the scenario in the
// running phase. A snapshot that is only partly successful is logged and used as it is.
func (r *Reconciler) Begin(name string) *ScenarioState {
	state := NewScenarioState(name, r.logger)
	snap, err := TakeSnapshot(r.service, state.Logger)
	if err != nil {
		state.Logger.Printf("Warning: snapshot incomplete: %s", err)
	}
	state.Snapshot = snap
	_ = state.Advance(PhaseSnapshotTaken)
	_ = state.Advance(PhaseScenarioRunning)
	return state
}

// Provision makes sure entities matching the descriptors exist, and adds their IDs to the
// scenario's mapping. Entities that were created are registered for teardown; entities that
// were reused are not.
func (r *Reconciler) Provision(state *ScenarioState, kind servicedef.Kind, descriptors []servicedef.EntityDescriptor) (ProvisionResult, error) {
	if state.Phase() != PhaseScenarioRunning {
		return ProvisionResult{Kind: kind, Mapping: NewIDMapping()},
			fmt.Errorf("%w: cannot provision in phase %s", ErrPhaseOrder, state.Phase())
	}
	p := Provisioner{Service: r.service, Logger: state.Logger}
	result, err := p.Provision(kind, descriptors)
	for _, c := range result.Created {
		state.Created.Add(kind, c.ID)
	}
	for _, u := range result.Reused {
		state.Reused.Add(kind, u.ID)
	}
	errs := []error{err}
	for _, conflict := range state.Mapping.Merge(result.Mapping) {
		fe := asFixtureError(conflict, kind, "")
		result.Failures = append(result.Failures, fe)
		state.Logger.Printf("Warning: %s", fe)
		errs = append(errs, fe)
	}
	return result, errors.Join(errs...)
}

// Link creates a relationship between two existing entities and registers it for teardown.
// The owner and target IDs are server IDs.
func (r *Reconciler) Link(state *ScenarioState, link servicedef.Link) error {
	body := ldvalue.ObjectBuild().Set(servicedef.FieldID, ldvalue.String(link.TargetID)).Build()
	resp, err := r.service.Post(link.Relation.CollectionPath(link.OwnerID), apiclient.JSONBody(body))
	if err != nil {
		return &FixtureError{Op: "link", Kind: link.Relation.Owner, ID: link.OwnerID, Err: err}
	}
	if !resp.IsSuccess() {
		return statusError("link", link.Relation.Owner, link.OwnerID, resp)
	}
	state.Created.AddLink(link)
	state.Logger.Printf("Linked %s", link)
	return nil
}

// Observe registers entities and relationships that a test step created by sending its own
// request, so that teardown removes them too. Requests that did not create anything are
// ignored.
func (r *Reconciler) Observe(state *ScenarioState, req apiclient.Request, resp *apiclient.Response) {
	if req.Method != apiclient.MethodPost || resp == nil || !resp.IsSuccess() {
		return
	}
	path := req.Path
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if !servicedef.IsKindSegment(segments[0]) {
		return
	}
	kind := servicedef.Kind(segments[0])

	switch len(segments) {
	case 1:
		if id := responseID(resp); id != "" {
			state.Created.Add(kind, id)
			state.Logger.Printf("Registered %s %s created by the test", kind.Singular(), id)
		}
	case 2:
		if resp.StatusCode == http.StatusCreated {
			state.Created.Add(kind, segments[1])
			state.Logger.Printf("Registered %s %s created by the test", kind.Singular(), segments[1])
		}
	case 3:
		rel, ok := servicedef.FindRelation(kind, segments[2])
		if !ok {
			return
		}
		target := requestID(req)
		if target == "" {
			target = responseID(resp)
			if target == "" {
				return
			}
			state.Created.Add(rel.Target, target)
		}
		link := servicedef.Link{Relation: rel, OwnerID: segments[1], TargetID: target}
		state.Created.AddLink(link)
		state.Logger.Printf("Registered relationship %s created by the test", link)
	}
}

// responseID finds the ID of a created entity in the response body, or failing that in the
// Location header.
func responseID(resp *apiclient.Response) string {
	if isXML(resp.ContentType()) {
		if id := xmlID(resp.Body); id != "" {
			return id
		}
	} else if v, err := resp.JSON(); err == nil {
		if id := servicedef.EntityID(v); id != "" {
			return id
		}
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		return loc[strings.LastIndex(loc, "/")+1:]
	}
	return ""
}

func requestID(req apiclient.Request) string {
	if req.Body == nil {
		return ""
	}
	if isXML(req.Body.ContentType) {
		return xmlID(req.Body.Data)
	}
	if req.Body.ContentType != apiclient.ContentTypeJSON {
		return ""
	}
	var v ldvalue.Value
	if err := json.Unmarshal(req.Body.Data, &v); err != nil {
		return ""
	}
	return servicedef.EntityID(v)
}

func isXML(contentType string) bool {
	return contentType == apiclient.ContentTypeXML || contentType == "text/xml"
}

// xmlID reads the id element directly under the root, whatever the root is called.
func xmlID(data []byte) string {
	var doc struct {
		ID string `xml:"id"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.ID)
}

// EndReport is the outcome of ending a scenario.
type EndReport struct {
	Teardown    TeardownReport
	TeardownErr error
	Restore     RestoreReport
	RestoreErr  error
}

// OK is true if both teardown and restore completed without errors.
func (e EndReport) OK() bool {
	return e.TeardownErr == nil && e.RestoreErr == nil
}

// End finishes a scenario: it deletes everything the scenario created, then restores the
// snapshot taken by Begin. Failures are logged and reported, never raised; the scenario always
// ends in PhaseDone. Ending a scenario that already ended does nothing.
func (r *Reconciler) End(state *ScenarioState) EndReport {
	var report EndReport
	if state.Phase() >= PhaseTeardownDeleting {
		return report
	}
	_ = state.Advance(PhaseTeardownDeleting)
	report.TeardownErr = recovering("teardown", func() error {
		var err error
		report.Teardown, err = Teardown(r.service, state.Created, state.Logger)
		return err
	})
	if report.TeardownErr != nil {
		state.Logger.Printf("Teardown finished with errors: %s", report.TeardownErr)
	}

	_ = state.Advance(PhaseRestoreAttempted)
	restorer := Restorer{Service: r.service, Logger: state.Logger, SettleDelay: r.settleDelay, sleep: r.sleep}
	report.RestoreErr = recovering("restore", func() error {
		var err error
		report.Restore, err = restorer.Restore(state.Snapshot, state.Created)
		return err
	})
	if report.RestoreErr != nil {
		state.Logger.Printf("Restore finished with errors: %s", report.RestoreErr)
	}

	_ = state.Advance(PhaseDone)
	return report
}

func recovering(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FixtureError{Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}
