package apitest

import (
	"testing"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func newClient(t *testing.T, opts Options) (*apiclient.Client, *API) {
	server, api := NewServer(opts)
	t.Cleanup(server.Close)
	return apiclient.NewClient(server.URL), api
}

func jsonObject(kv ...interface{}) ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for i := 0; i < len(kv); i += 2 {
		b.Set(kv[i].(string), ldvalue.CopyArbitraryValue(kv[i+1]))
	}
	return b.Build()
}

func TestSeedData(t *testing.T) {
	client, _ := newClient(t, Options{})
	todos, err := client.List(servicedef.Todos)
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "scan paperwork", todos[0].GetByKey("title").StringValue())
	assert.Equal(t, "false", todos[0].GetByKey("doneStatus").StringValue())
	assert.Equal(t, "1", todos[0].GetByKey("tasksof").GetByIndex(0).GetByKey("id").StringValue())

	projects, err := client.List(servicedef.Projects)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "true", projects[0].GetByKey("active").StringValue())

	categories, err := client.List(servicedef.Categories)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, apiclient.IDs(categories))
}

func TestCreateAndGetTodo(t *testing.T) {
	client, _ := newClient(t, Options{})
	created, err := client.Create(servicedef.Todos, jsonObject("title", "Buy milk", "doneStatus", false))
	require.NoError(t, err)
	assert.Equal(t, "3", created.GetByKey("id").StringValue())

	resp, err := client.Get("/todos/3")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	v, err := resp.JSON()
	require.NoError(t, err)
	todos := apiclient.Unwrap(v, "todos")
	require.Len(t, todos, 1)
	assert.Equal(t, "Buy milk", todos[0].GetByKey("title").StringValue())
}

func TestCreateValidation(t *testing.T) {
	client, _ := newClient(t, Options{})
	for _, p := range []struct {
		name    string
		path    string
		body    *apiclient.Body
		status  int
		message string
	}{
		{"missing title", "/todos", apiclient.RawJSONBody(`{"description":"x"}`), 400, "title : field is mandatory"},
		{"null title", "/todos", apiclient.RawJSONBody(`{"title":null}`), 400, "title : field is mandatory"},
		{"unknown field", "/todos", apiclient.RawJSONBody(`{"title":"a","priority":"high"}`), 400, "Could not find field: priority"},
		{"id in body", "/todos", apiclient.RawJSONBody(`{"id":"5","title":"a"}`), 400, "Not allowed to create with id"},
		{"string boolean", "/todos", apiclient.RawJSONBody(`{"title":"a","doneStatus":"not a boolean"}`), 400, "doneStatus should be BOOLEAN"},
		{"malformed json", "/todos", apiclient.RawJSONBody(`{title:`), 400, "malformed JSON"},
		{"malformed xml", "/todos", apiclient.XMLBody(`<todo><title>a</todo>`), 400, "malformed XML"},
		{"empty category", "/categories", nil, 400, "title : field is mandatory"},
	} {
		t.Run(p.name, func(t *testing.T) {
			resp, err := client.Post(p.path, p.body)
			require.NoError(t, err)
			assert.Equal(t, p.status, resp.StatusCode)
			assert.True(t, resp.HasErrorMessage(p.message), "messages were %v", resp.ErrorMessages())
		})
	}
}

func TestEmptyProjectIsAccepted(t *testing.T) {
	client, _ := newClient(t, Options{})
	resp, err := client.Post("/projects", apiclient.RawJSONBody(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "/projects/2", resp.Header.Get("Location"))
}

func TestXMLContentNegotiation(t *testing.T) {
	client, _ := newClient(t, Options{})
	resp, err := client.Do(apiclient.Request{
		Method: apiclient.MethodPost,
		Path:   "/todos",
		Body:   apiclient.XMLBody(`<todo><title>From XML</title><doneStatus>true</doneStatus></todo>`),
	}.AcceptXML())
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, apiclient.ContentTypeXML, resp.ContentType())
	assert.Equal(t, "<todo><id>3</id><title>From XML</title><doneStatus>true</doneStatus><description></description></todo>", string(resp.Body))

	resp, err = client.Do(apiclient.Request{Method: apiclient.MethodGet, Path: "/categories/1"}.AcceptXML())
	require.NoError(t, err)
	assert.Equal(t, "<categories><category><id>1</id><title>Office</title><description></description></category></categories>", string(resp.Body))

	resp, err = client.Do(apiclient.Request{Method: apiclient.MethodGet, Path: "/todos/999"}.AcceptXML())
	require.NoError(t, err)
	assert.Equal(t, "<errorMessages><errorMessage>Could not find an instance with todos/999</errorMessage></errorMessages>", string(resp.Body))
}

func TestAmendAndReplace(t *testing.T) {
	client, _ := newClient(t, Options{})
	resp, err := client.Post("/todos/1", apiclient.JSONBody(jsonObject("description", "updated")))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	v, _ := resp.JSON()
	assert.Equal(t, "scan paperwork", v.GetByKey("title").StringValue())
	assert.Equal(t, "updated", v.GetByKey("description").StringValue())

	resp, err = client.Put("/todos/1", apiclient.JSONBody(jsonObject("title", "replaced")))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	v, _ = resp.JSON()
	assert.Equal(t, "", v.GetByKey("description").StringValue())

	resp, err = client.Put("/todos/1", apiclient.JSONBody(jsonObject("description", "no title")))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = client.Post("/todos/999", apiclient.JSONBody(jsonObject("title", "x")))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestAmendCanCreateWithIDWhenAllowed(t *testing.T) {
	client, api := newClient(t, Options{AllowCreateWithID: true})
	resp, err := client.Post("/categories/9", apiclient.JSONBody(jsonObject("title", "Restored")))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, 3, api.Count(servicedef.Categories))

	created, err := client.Create(servicedef.Categories, jsonObject("title", "Next"))
	require.NoError(t, err)
	assert.Equal(t, "10", created.GetByKey("id").StringValue())
}

func TestDeleteAndMethodNotAllowed(t *testing.T) {
	client, _ := newClient(t, Options{})
	resp, err := client.Delete("/categories/1")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = client.Delete("/categories/999999")
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = client.Delete("/todos")
	require.NoError(t, err)
	assert.Equal(t, 405, resp.StatusCode)

	resp, err = client.Put("/projects", apiclient.RawJSONBody(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 405, resp.StatusCode)
}

func TestRelationships(t *testing.T) {
	client, api := newClient(t, Options{})

	resp, err := client.Post("/categories/1/todos", apiclient.JSONBody(jsonObject("id", "2")))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	resp, err = client.Post("/categories/1/todos", apiclient.JSONBody(jsonObject("id", "2")))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	resp, err = client.Get("/categories/1/todos")
	require.NoError(t, err)
	v, _ := resp.JSON()
	assert.Equal(t, []string{"2"}, apiclient.IDs(apiclient.Unwrap(v, "todos")))

	resp, err = client.Post("/projects/1/tasks", apiclient.JSONBody(jsonObject("id", "999999")))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = client.Post("/todos/1/tasksof", apiclient.JSONBody(jsonObject("title", "Related Task")))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.True(t, api.Linked(servicedef.Link{Relation: servicedef.ProjectTasks, OwnerID: "2", TargetID: "1"}))

	resp, err = client.Delete("/projects/1/tasks/1")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, api.Linked(servicedef.Link{Relation: servicedef.TodoTasksOf, OwnerID: "1", TargetID: "1"}))
	resp, err = client.Delete("/projects/1/tasks/1")
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestObservedQuirks(t *testing.T) {
	client, _ := newClient(t, Options{})
	for _, path := range []string{"/categories/999999/todos", "/categories/999999/projects"} {
		resp, err := client.Get(path)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, path)
	}
	resp, err := client.Head("/categories/999999/projects")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = client.Post("/todos/1/categories/1", apiclient.RawJSONBody(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestFilterByQuery(t *testing.T) {
	client, _ := newClient(t, Options{})
	_, err := client.Create(servicedef.Todos, jsonObject("title", "done", "doneStatus", true))
	require.NoError(t, err)
	resp, err := client.Get("/todos?doneStatus=true")
	require.NoError(t, err)
	v, _ := resp.JSON()
	assert.Equal(t, []string{"3"}, apiclient.IDs(apiclient.Unwrap(v, "todos")))
}

func TestFaultsAndRequestLog(t *testing.T) {
	client, api := newClient(t, Options{})
	api.SetFault("DELETE", "/todos/1", 500)
	resp, err := client.Delete("/todos/1")
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, 2, api.Count(servicedef.Todos))

	api.ClearFaults()
	resp, err = client.Delete("/todos/1")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, []RecordedRequest{
		{Method: "DELETE", Path: "/todos/1", Status: 500},
		{Method: "DELETE", Path: "/todos/1", Status: 200},
	}, api.Requests())
}

func TestResetAndClear(t *testing.T) {
	_, api := newClient(t, Options{})
	api.Clear()
	assert.Equal(t, 0, api.Count(servicedef.Todos))
	api.Reset()
	assert.Equal(t, []string{"scan paperwork", "file paperwork"}, api.Titles(servicedef.Todos))
}
