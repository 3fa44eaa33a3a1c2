package fixtures

import (
	"testing"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitest"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioLifeCycle(t *testing.T) {
	client, api := startService(t, apitest.Options{AllowCreateWithID: true})
	r := NewReconciler(client, WithLogger(testLogger{t}), WithSettleDelay(0))

	state := r.Begin("buy milk")
	assert.Equal(t, PhaseScenarioRunning, state.Phase())
	assert.Equal(t, 2, state.Snapshot.Count(servicedef.Todos))

	_, err := r.Provision(state, servicedef.Todos, []servicedef.EntityDescriptor{
		todo("1", "Buy milk", false),
		todo("2", "scan paperwork", false),
	})
	require.NoError(t, err)
	assert.Equal(t, "3", state.Resolve("1"))
	assert.Equal(t, "1", state.Resolve("2"))
	assert.Equal(t, "/todos/3", state.ResolveInPath("/todos/1"))
	assert.Equal(t, "/categories/999999", state.ResolveInPath("/categories/999999"))
	assert.Equal(t, []string{"3"}, state.Created.IDs(servicedef.Todos))
	assert.Equal(t, []string{"1"}, state.Reused.IDs(servicedef.Todos))

	resp, err := client.Get(state.ResolveInPath("/todos/1"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// the scenario deletes a pre-existing entity, which must come back
	_, err = client.Delete("/categories/1")
	require.NoError(t, err)

	report := r.End(state)
	assert.True(t, report.OK(), "teardown: %v, restore: %v", report.TeardownErr, report.RestoreErr)
	assert.Equal(t, PhaseDone, state.Phase())
	assert.Equal(t, []string{"scan paperwork", "file paperwork"}, api.Titles(servicedef.Todos))
	assert.Equal(t, []string{"Office", "Home"}, api.Titles(servicedef.Categories))
	assert.Equal(t, []string{"1"}, report.Restore.Recreated[servicedef.Categories])
}

func TestProvisionMergesIntoScenarioMapping(t *testing.T) {
	client, _ := startService(t, apitest.Options{})
	r := NewReconciler(client, WithSettleDelay(0))
	state := r.Begin("conflict")

	_, err := r.Provision(state, servicedef.Projects, []servicedef.EntityDescriptor{{Ref: "1", Title: "first"}})
	require.NoError(t, err)
	_, err = r.Provision(state, servicedef.Categories, []servicedef.EntityDescriptor{{Ref: "1", Title: "Garden"}})
	require.ErrorIs(t, err, ErrMappingConflict)
	assert.Equal(t, "2", state.Resolve("1"))
	assert.Equal(t, []string{"3"}, state.Created.IDs(servicedef.Categories))

	report := r.End(state)
	assert.Equal(t, 2, report.Teardown.Deleted)
}

func TestLinkRegistersRelationship(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	r := NewReconciler(client, WithSettleDelay(0))
	state := r.Begin("link")

	link := servicedef.Link{Relation: servicedef.CategoryTodos, OwnerID: "1", TargetID: "2"}
	require.NoError(t, r.Link(state, link))
	assert.True(t, api.Linked(link))
	assert.Equal(t, []servicedef.Link{link}, state.Created.Links())

	err := r.Link(state, servicedef.Link{Relation: servicedef.ProjectTasks, OwnerID: "1", TargetID: "999999"})
	var fe *FixtureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.Status)

	r.End(state)
	assert.False(t, api.Linked(link))
	assert.Equal(t, 2, api.Count(servicedef.Todos))
}

func TestObserveRegistersEntitiesCreatedByTests(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	r := NewReconciler(client, WithSettleDelay(0))
	state := r.Begin("observe")

	send := func(req apiclient.Request) {
		resp, err := client.Do(req)
		require.NoError(t, err)
		r.Observe(state, req, resp)
	}
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/projects", Body: apiclient.RawJSONBody(`{}`)})
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/todos", Body: apiclient.XMLBody(`<todo><title>x</title></todo>`)}.AcceptXML())
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/categories/1/todos", Body: apiclient.RawJSONBody(`{"id":"1"}`)})
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/todos/1/tasksof", Body: apiclient.RawJSONBody(`{"title":"new"}`)})
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/todos", Body: apiclient.RawJSONBody(`{}`)})
	send(apiclient.Request{Method: apiclient.MethodGet, Path: "/todos"})

	assert.Equal(t, []string{"2", "3"}, state.Created.IDs(servicedef.Projects))
	assert.Equal(t, []string{"3"}, state.Created.IDs(servicedef.Todos))
	assert.Len(t, state.Created.Links(), 2)

	report := r.End(state)
	assert.True(t, report.OK())
	assert.Equal(t, 1, api.Count(servicedef.Projects))
	assert.Equal(t, 2, api.Count(servicedef.Todos))
	assert.Empty(t, report.Restore.Leaked)
}

func TestObserveReadsIDsFromXMLWithoutLocation(t *testing.T) {
	client, api := startService(t, apitest.Options{OmitLocation: true})
	r := NewReconciler(client, WithSettleDelay(0))
	state := r.Begin("observe XML")

	send := func(req apiclient.Request) *apiclient.Response {
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.Equal(t, 201, resp.StatusCode, string(resp.Body))
		require.Empty(t, resp.Header.Get("Location"))
		r.Observe(state, req, resp)
		return resp
	}
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/todos",
		Body: apiclient.XMLBody(`<todo><title>from XML</title></todo>`)}.AcceptXML())
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/todos/1/tasksof",
		Body: apiclient.XMLBody(`<project><title>nested</title></project>`)}.AcceptXML())
	send(apiclient.Request{Method: apiclient.MethodPost, Path: "/categories/2/todos",
		Body: apiclient.XMLBody(`<todo><id>2</id></todo>`)})

	assert.Equal(t, []string{"3"}, state.Created.IDs(servicedef.Todos))
	assert.Equal(t, []string{"2"}, state.Created.IDs(servicedef.Projects))
	link := servicedef.Link{Relation: servicedef.CategoryTodos, OwnerID: "2", TargetID: "2"}
	assert.Contains(t, state.Created.Links(), link)

	report := r.End(state)
	assert.True(t, report.OK(), "teardown: %v, restore: %v", report.TeardownErr, report.RestoreErr)
	assert.Equal(t, 2, api.Count(servicedef.Todos))
	assert.Equal(t, 1, api.Count(servicedef.Projects))
	assert.False(t, api.Linked(link))
	assert.Empty(t, report.Restore.Leaked)
}

func TestXMLID(t *testing.T) {
	assert.Equal(t, "7", xmlID([]byte(`<todo><id>7</id><title>x</title></todo>`)))
	assert.Equal(t, "7", xmlID([]byte(`<?xml version="1.0"?><project><id> 7 </id></project>`)))
	assert.Equal(t, "", xmlID([]byte(`<todo><title>x</title></todo>`)))
	assert.Equal(t, "", xmlID([]byte(`<todo><id></id>`)))
	assert.Equal(t, "", xmlID([]byte(`{"id":"7"}`)))
}

func TestEndRecoversFromPanicsAndIsFinal(t *testing.T) {
	client, _ := startService(t, apitest.Options{})
	r := NewReconciler(panickingService{client}, WithSettleDelay(0))
	state := r.Begin("panics")
	state.Created.Add(servicedef.Todos, "1")

	report := r.End(state)
	require.Error(t, report.TeardownErr)
	assert.Contains(t, report.TeardownErr.Error(), "panic")
	assert.Equal(t, PhaseDone, state.Phase())

	again := r.End(state)
	assert.True(t, again.OK())
}

func TestProvisionAfterEndIsRejected(t *testing.T) {
	client, _ := startService(t, apitest.Options{})
	r := NewReconciler(client, WithSettleDelay(0))
	state := r.Begin("late")
	r.End(state)
	_, err := r.Provision(state, servicedef.Todos, nil)
	assert.ErrorIs(t, err, ErrPhaseOrder)
}

func TestPhasesOnlyMoveForward(t *testing.T) {
	state := NewScenarioState("phases", nil)
	assert.Equal(t, PhaseInit, state.Phase())
	require.NoError(t, state.Advance(PhaseSnapshotTaken))
	assert.ErrorIs(t, state.Advance(PhaseInit), ErrPhaseOrder)
	assert.ErrorIs(t, state.Advance(PhaseSnapshotTaken), ErrPhaseOrder)
	require.NoError(t, state.Advance(PhaseDone))
	assert.Equal(t, "DONE", state.Phase().String())
}

type panickingService struct {
	*apiclient.Client
}

func (panickingService) Delete(string) (*apiclient.Response, error) {
	panic("connection pool exploded")
}
