package bddtests

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitests"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/cucumber/godog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	methodPattern = `(GET|POST|PUT|DELETE|HEAD)`
	kindPattern   = `(todo|category|project)`
	kindsPattern  = `(todos|categories|projects)`
)

func (sc *scenario) registerSteps(ctx *godog.ScenarioContext) {
	ctx.Given(`^the (?:API|service|system) is running$`, sc.serviceIsRunning)
	ctx.Given(`^the system contains the following `+kindsPattern+`:$`, sc.systemContains)
	ctx.Given(`^the `+kindPattern+` "([^"]*)" is linked to "([^"]*)" through "(\w+)"$`, sc.givenLinked)

	ctx.When(`^I send a `+methodPattern+` request to "([^"]*)"$`, sc.sendRequest)
	ctx.When(`^I send a `+methodPattern+` request to "([^"]*)" with body:$`, sc.sendJSON)
	ctx.When(`^I send a `+methodPattern+` request to "([^"]*)" with XML body:$`, sc.sendXML)
	ctx.When(`^I send a `+methodPattern+` request to "([^"]*)" accepting (JSON|XML)$`, sc.sendAccepting)
	ctx.When(`^I create a `+kindPattern+` with:$`, sc.createWith)
	ctx.When(`^I (?:amend|update) the `+kindPattern+` "([^"]*)" with:$`, sc.amendWith)
	ctx.When(`^I link the `+kindPattern+` "([^"]*)" to "([^"]*)" through "(\w+)"$`, sc.linkByRequest)
	ctx.When(`^I unlink the `+kindPattern+` "([^"]*)" from "([^"]*)" through "(\w+)"$`, sc.unlinkByRequest)

	ctx.Then(`^the response status (?:code )?should be (\d+)$`, sc.statusShouldBe)
	ctx.Then(`^the response status should be (\d+) as documented, but is actually (\d+)$`, sc.statusDiverges)
	ctx.Then(`^the response should contain the error message "([^"]*)"$`, sc.errorMessage)
	ctx.Then(`^the response should contain an error message$`, sc.anyErrorMessage)
	ctx.Then(`^the response content type should be (JSON|XML)$`, sc.contentType)
	ctx.Then(`^the response should include the following `+kindsPattern+`:$`, sc.responseIncludes)
	ctx.Then(`^the response should not include the `+kindPattern+` "([^"]*)"$`, sc.responseExcludes)
	ctx.Then(`^the response should contain (\d+) `+kindsPattern+`$`, sc.responseCount)
	ctx.Then(`^the response `+kindPattern+` should have (\w+) "([^"]*)"$`, sc.responseEntityField)
	ctx.Then(`^every `+kindPattern+` in the response should have (\w+) "([^"]*)"$`, sc.everyEntityField)
	ctx.Then(`^the `+kindPattern+` "([^"]*)" should have (\w+) "([^"]*)"$`, sc.entityField)
	ctx.Then(`^the `+kindPattern+` "([^"]*)" should( not)? exist$`, sc.entityExists)
	ctx.Then(`^the `+kindPattern+` "([^"]*)" should( not)? be linked to "([^"]*)" through "(\w+)"$`, sc.entityLinked)
}

func (sc *scenario) serviceIsRunning() error {
	resp, err := sc.client.Get(servicedef.Todos.Path())
	if err != nil {
		return fmt.Errorf("service is not reachable at %s: %w", sc.client.BaseURL(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service is not healthy: GET /todos returned %s", resp)
	}
	return nil
}

// systemContains provisions the entities of a table. Entities that cannot be provisioned are
// logged and left out of the mapping; the steps that depend on them will fail instead.
func (sc *scenario) systemContains(kindName string, table *godog.Table) error {
	kind, descriptors, err := descriptorsFromTable(kindName, table)
	if err != nil {
		return err
	}
	if _, err := sc.reconciler.Provision(sc.state, kind, descriptors); err != nil {
		sc.debug.Printf("Warning: some %s were not provisioned: %s", kind, err)
	}
	return nil
}

func descriptorsFromTable(kindName string, table *godog.Table) (servicedef.Kind, []servicedef.EntityDescriptor, error) {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return "", nil, err
	}
	rows, err := tableRows(table)
	if err != nil {
		return "", nil, err
	}
	descriptors := make([]servicedef.EntityDescriptor, 0, len(rows))
	for _, row := range rows {
		d, err := servicedef.DescriptorFromRow(kind, row)
		if err != nil {
			return "", nil, err
		}
		descriptors = append(descriptors, d)
	}
	return kind, descriptors, nil
}

func (sc *scenario) relation(ownerName, relationName string) (servicedef.Relation, error) {
	owner, err := servicedef.ParseKind(ownerName)
	if err != nil {
		return servicedef.Relation{}, err
	}
	rel, ok := servicedef.FindRelation(owner, relationName)
	if !ok {
		return servicedef.Relation{}, fmt.Errorf("%s have no relationship %q", owner, relationName)
	}
	return rel, nil
}

func (sc *scenario) givenLinked(ownerName, ownerRef, targetRef, relationName string) error {
	rel, err := sc.relation(ownerName, relationName)
	if err != nil {
		return err
	}
	return sc.reconciler.Link(sc.state, servicedef.Link{
		Relation: rel,
		OwnerID:  sc.state.Resolve(ownerRef),
		TargetID: sc.state.Resolve(targetRef),
	})
}

func (sc *scenario) sendRequest(method, path string) error {
	m, err := apiclient.ParseMethod(method)
	if err != nil {
		return err
	}
	return sc.send(apiclient.Request{Method: m, Path: path})
}

func (sc *scenario) sendJSON(method, path string, body *godog.DocString) error {
	m, err := apiclient.ParseMethod(method)
	if err != nil {
		return err
	}
	return sc.send(apiclient.Request{Method: m, Path: path, Body: apiclient.RawJSONBody(body.Content)})
}

func (sc *scenario) sendXML(method, path string, body *godog.DocString) error {
	m, err := apiclient.ParseMethod(method)
	if err != nil {
		return err
	}
	return sc.send(apiclient.Request{Method: m, Path: path, Body: apiclient.XMLBody(body.Content)})
}

func (sc *scenario) sendAccepting(method, path, format string) error {
	m, err := apiclient.ParseMethod(method)
	if err != nil {
		return err
	}
	req := apiclient.Request{Method: m, Path: path}
	if format == "XML" {
		req = req.AcceptXML()
	} else {
		req = req.AcceptJSON()
	}
	return sc.send(req)
}

// bodyFromTable builds a JSON body from a table with a header row and one row of values. Boolean
// fields of the kind are sent as JSON booleans when their cell is "true" or "false"; every other
// cell is sent as a string. An "id" column is the logical ID of the entity, not part of the body.
func bodyFromTable(kind servicedef.Kind, table *godog.Table) (string, ldvalue.Value, error) {
	rows, err := tableRows(table)
	if err != nil {
		return "", ldvalue.Null(), err
	}
	if len(rows) != 1 {
		return "", ldvalue.Null(), fmt.Errorf("expected exactly one row of values, got %d", len(rows))
	}
	var ref string
	b := ldvalue.ObjectBuild()
	for column, cell := range rows[0] {
		if column == servicedef.FieldID {
			ref = strings.TrimSpace(cell)
			continue
		}
		if kind.IsBoolField(column) {
			if v, err := servicedef.ParseBool(cell); err == nil {
				b.Set(column, ldvalue.Bool(v))
				continue
			}
		}
		b.Set(column, ldvalue.String(servicedef.Unquote(cell)))
	}
	return ref, b.Build(), nil
}

func (sc *scenario) createWith(kindName string, table *godog.Table) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	ref, body, err := bodyFromTable(kind, table)
	if err != nil {
		return err
	}
	if err := sc.send(apiclient.Request{Method: apiclient.MethodPost, Path: kind.Path(), Body: apiclient.JSONBody(body)}); err != nil {
		return err
	}
	if ref == "" || !sc.last.IsSuccess() {
		return nil
	}
	v, err := sc.last.JSON()
	if err != nil {
		return nil
	}
	if id := servicedef.EntityID(v); id != "" {
		return sc.state.Mapping.Map(ref, id)
	}
	return nil
}

func (sc *scenario) amendWith(kindName, ref string, table *godog.Table) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	_, body, err := bodyFromTable(kind, table)
	if err != nil {
		return err
	}
	return sc.send(apiclient.Request{Method: apiclient.MethodPost, Path: kind.EntityPath(ref), Body: apiclient.JSONBody(body)})
}

func (sc *scenario) linkByRequest(ownerName, ownerRef, targetRef, relationName string) error {
	rel, err := sc.relation(ownerName, relationName)
	if err != nil {
		return err
	}
	body := ldvalue.ObjectBuild().Set(servicedef.FieldID, ldvalue.String(sc.state.Resolve(targetRef))).Build()
	return sc.send(apiclient.Request{
		Method: apiclient.MethodPost,
		Path:   rel.CollectionPath(ownerRef),
		Body:   apiclient.JSONBody(body),
	})
}

// unlinkByRequest resolves the target ID itself, since only the owner ID of a path is resolved
// when the request is sent.
func (sc *scenario) unlinkByRequest(ownerName, ownerRef, targetRef, relationName string) error {
	rel, err := sc.relation(ownerName, relationName)
	if err != nil {
		return err
	}
	return sc.send(apiclient.Request{
		Method: apiclient.MethodDelete,
		Path:   rel.CollectionPath(ownerRef) + "/" + sc.state.Resolve(targetRef),
	})
}

func (sc *scenario) statusShouldBe(status int) error {
	return sc.checkStatus(apitests.Status(status))
}

func (sc *scenario) statusDiverges(documented, actual int) error {
	return sc.checkStatus(apitests.Diverges(documented, actual))
}

func (sc *scenario) checkStatus(expected apitests.Expectation) error {
	resp, err := sc.response()
	if err != nil {
		return err
	}
	mode := sc.suite.opts.Mode
	if expected.Divergent() && mode == apitests.ExpectActual {
		sc.debug.Printf("ISSUE: documented status is %d, but the service returns %d", expected.Documented, expected.Actual)
	}
	if want := expected.Want(mode); resp.StatusCode != want {
		return fmt.Errorf("expected status %s, got %s", expected, resp)
	}
	return nil
}

func (sc *scenario) errorMessage(text string) error {
	resp, err := sc.response()
	if err != nil {
		return err
	}
	if !resp.HasErrorMessage(text) {
		return fmt.Errorf("expected an error message containing %q, got %q", text, resp.ErrorMessages())
	}
	return nil
}

func (sc *scenario) anyErrorMessage() error {
	resp, err := sc.response()
	if err != nil {
		return err
	}
	if len(resp.ErrorMessages()) == 0 {
		return fmt.Errorf("expected an error message, got %s", resp)
	}
	return nil
}

func (sc *scenario) contentType(format string) error {
	resp, err := sc.response()
	if err != nil {
		return err
	}
	want := apiclient.ContentTypeJSON
	if format == "XML" {
		want = apiclient.ContentTypeXML
	}
	if resp.ContentType() != want {
		return fmt.Errorf("expected content type %s, got %q", want, resp.ContentType())
	}
	return nil
}

// responseIncludes checks that every row of the table is in the last response. Rows are found by
// their logical ID; the other columns must have the given values.
func (sc *scenario) responseIncludes(kindName string, table *godog.Table) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	rows, err := tableRows(table)
	if err != nil {
		return err
	}
	entities, err := sc.responseEntities(kind)
	if err != nil {
		return err
	}
	for _, row := range rows {
		ref := strings.TrimSpace(row[servicedef.FieldID])
		entity, found := apiclient.FindByID(entities, sc.state.Resolve(ref))
		if !found {
			return fmt.Errorf("%s %q (id %s) is not in the response", kind.Singular(), ref, sc.state.Resolve(ref))
		}
		for column, cell := range row {
			if column == servicedef.FieldID {
				continue
			}
			if err := checkField(kind, entity, column, cell); err != nil {
				return fmt.Errorf("%s %q: %w", kind.Singular(), ref, err)
			}
		}
	}
	return nil
}

func checkField(kind servicedef.Kind, entity ldvalue.Value, field, expected string) error {
	actual := entity.GetByKey(field)
	if kind.IsBoolField(field) {
		want, err := servicedef.ParseBool(expected)
		if err != nil {
			return err
		}
		if !servicedef.BoolMatches(actual, want) {
			return fmt.Errorf("expected %s to be %t, got %s", field, want, actual.JSONString())
		}
		return nil
	}
	if got := servicedef.Scalar(actual); got != servicedef.Unquote(expected) {
		return fmt.Errorf("expected %s to be %q, got %q", field, servicedef.Unquote(expected), got)
	}
	return nil
}

func (sc *scenario) responseExcludes(kindName, ref string) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	entities, err := sc.responseEntities(kind)
	if err != nil {
		return err
	}
	if _, found := apiclient.FindByID(entities, sc.state.Resolve(ref)); found {
		return fmt.Errorf("%s %q should not be in the response", kind.Singular(), ref)
	}
	return nil
}

func (sc *scenario) responseCount(count int, kindName string) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	entities, err := sc.responseEntities(kind)
	if err != nil {
		return err
	}
	if len(entities) != count {
		return fmt.Errorf("expected %d %s, got %d", count, kind, len(entities))
	}
	return nil
}

func (sc *scenario) responseEntityField(kindName, field, expected string) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	entities, err := sc.responseEntities(kind)
	if err != nil {
		return err
	}
	if len(entities) != 1 {
		return fmt.Errorf("expected one %s in the response, got %d", kind.Singular(), len(entities))
	}
	return checkField(kind, entities[0], field, expected)
}

func (sc *scenario) everyEntityField(kindName, field, expected string) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	entities, err := sc.responseEntities(kind)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if err := checkField(kind, e, field, expected); err != nil {
			return fmt.Errorf("%s %s: %w", kind.Singular(), servicedef.EntityID(e), err)
		}
	}
	return nil
}

func (sc *scenario) entityField(kindName, ref, field, expected string) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	entity, found, err := sc.fetch(kind, ref)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %q does not exist", kind.Singular(), ref)
	}
	return checkField(kind, entity, field, expected)
}

func (sc *scenario) entityExists(kindName, ref, not string) error {
	kind, err := servicedef.ParseKind(kindName)
	if err != nil {
		return err
	}
	_, found, err := sc.fetch(kind, ref)
	if err != nil {
		return err
	}
	if wantFound := not == ""; found != wantFound {
		if found {
			return fmt.Errorf("%s %q should not exist", kind.Singular(), ref)
		}
		return fmt.Errorf("%s %q should exist", kind.Singular(), ref)
	}
	return nil
}

func (sc *scenario) entityLinked(ownerName, ownerRef, not, targetRef, relationName string) error {
	rel, err := sc.relation(ownerName, relationName)
	if err != nil {
		return err
	}
	path := rel.CollectionPath(sc.state.Resolve(ownerRef))
	resp, err := sc.client.Get(path)
	if err != nil {
		return err
	}
	v, err := resp.JSON()
	if err != nil {
		return err
	}
	_, found := apiclient.FindByID(apiclient.Unwrap(v, rel.Target.EnvelopeKey()), sc.state.Resolve(targetRef))
	if wantFound := not == ""; found != wantFound {
		return fmt.Errorf("%s %q linked to %q through %s: expected %t, got %t", rel.Owner.Singular(), ownerRef, targetRef, rel.Name, wantFound, found)
	}
	return nil
}
