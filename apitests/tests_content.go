package apitests

import (
	"net/http"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
)

const newTodoXML = `<?xml version="1.0" encoding="UTF-8"?>
<todo>
	<title>New XML todo</title>
	<description>Valid description</description>
</todo>`

func DoContentTypeTests(t *T) {
	t.Run("get as JSON", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("todo", "Negotiated", ""))
		resp := t.Send(apiclient.Request{Method: apiclient.MethodGet, Path: "/todos/todo"}.AcceptJSON())
		t.RequireStatus(resp, Status(http.StatusOK), "GET /todos/:id (JSON)")
		assert.Equal(t, apiclient.ContentTypeJSON, resp.ContentType())
	})

	t.Run("get as XML", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("todo", "Negotiated", ""))
		resp := t.Send(apiclient.Request{Method: apiclient.MethodGet, Path: "/todos/todo"}.AcceptXML())
		t.RequireStatus(resp, Status(http.StatusOK), "GET /todos/:id (XML)")
		assert.Equal(t, apiclient.ContentTypeXML, resp.ContentType())
		assert.Contains(t, string(resp.Body), "<title>Negotiated</title>")
	})

	t.Run("create from XML", func(t *T) {
		resp := t.Send(apiclient.Request{Method: apiclient.MethodPost, Path: "/todos", Body: apiclient.XMLBody(newTodoXML)}.AcceptXML())
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /todos (XML)")
		ct := resp.ContentType()
		assert.True(t, ct == apiclient.ContentTypeXML || ct == apiclient.ContentTypeJSON, "unexpected content type %q", ct)
	})

	t.Run("replace from XML", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("todo", "Replace with XML", ""))
		resp := t.Put("/todos/todo", apiclient.XMLBody("<todo><title>Updated title</title><description>Updated desc</description></todo>"))
		t.RequireStatus(resp, Status(http.StatusOK), "PUT /todos/:id (XML)")
		assert.Equal(t, "Updated title", servicedef.FieldValue(t.RequireEntity(resp, servicedef.Todos), servicedef.FieldTitle))
	})

	t.Run("malformed JSON", func(t *T) {
		resp := t.Post("/todos", apiclient.RawJSONBody(`{"title": "Broken JSON", "description": "Oops"`))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /todos (malformed JSON)")
	})

	t.Run("malformed XML", func(t *T) {
		resp := t.Post("/todos", apiclient.XMLBody("<todo><title>Broken XML<title></todo>"))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /todos (malformed XML)")
	})

	t.Run("error as XML", func(t *T) {
		resp := t.Send(apiclient.Request{Method: apiclient.MethodGet, Path: "/todos/999999"}.AcceptXML())
		t.RequireStatus(resp, Status(http.StatusNotFound), "GET /todos/999999 (XML)")
		assert.Equal(t, apiclient.ContentTypeXML, resp.ContentType())
	})
}

func DoHTTPBehaviorTests(t *T) {
	for _, kind := range servicedef.AllKinds {
		kind := kind
		t.Run(kind.String()+" collection", func(t *T) {
			t.RequireStatus(t.Put(kind.Path(), JSON("title", "Not allowed")), Status(http.StatusMethodNotAllowed), "PUT "+kind.Path())
			t.RequireStatus(t.Delete(kind.Path()), Status(http.StatusMethodNotAllowed), "DELETE "+kind.Path())
		})
	}

	t.Run("relationship collection", func(t *T) {
		t.Given(servicedef.Projects, Descriptor("project", "Method checks", ""))
		t.RequireStatus(t.Put("/projects/project/tasks", JSON()), Status(http.StatusMethodNotAllowed), "PUT /projects/:id/tasks")
		t.RequireStatus(t.Delete("/projects/project/tasks"), Status(http.StatusMethodNotAllowed), "DELETE /projects/:id/tasks")
	})

	t.Run("unknown endpoint", func(t *T) {
		t.RequireStatus(t.Get("/widgets"), Status(http.StatusNotFound), "GET /widgets")
	})
}
