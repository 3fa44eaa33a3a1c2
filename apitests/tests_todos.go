package apitests

import (
	"net/http"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoTodoTests(t *T) {
	t.Run("list", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("chores", "Do chores", "weekly", servicedef.FieldDoneStatus, false))
		resp := t.Get("/todos")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /todos")
		_, found := apiclient.FindByID(t.RequireEntities(resp, servicedef.Todos), t.ID("chores"))
		assert.True(t, found, "provisioned todo was not listed")
	})

	t.Run("head list", func(t *T) {
		t.RequireStatus(t.Head("/todos"), Status(http.StatusOK), "HEAD /todos")
	})

	t.Run("get by logical ID", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("1", "Buy milk", "", servicedef.FieldDoneStatus, false))
		resp := t.Get("/todos/1")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /todos/:id")
		todo := t.RequireEntity(resp, servicedef.Todos)
		assert.Equal(t, t.ID("1"), servicedef.EntityID(todo))
		assert.Equal(t, "Buy milk", servicedef.FieldValue(todo, servicedef.FieldTitle))
		assert.Equal(t, "false", servicedef.FieldValue(todo, servicedef.FieldDoneStatus))
	})

	t.Run("head by ID", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("head", "Head request target", ""))
		t.RequireStatus(t.Head("/todos/head"), Status(http.StatusOK), "HEAD /todos/:id")
	})

	t.Run("nonexistent ID", func(t *T) {
		for _, method := range []apiclient.Method{apiclient.MethodGet, apiclient.MethodHead, apiclient.MethodDelete} {
			resp := t.Send(apiclient.Request{Method: method, Path: "/todos/999999"})
			t.RequireStatus(resp, Status(http.StatusNotFound), method.String()+" /todos/999999")
		}
		resp := t.Put("/todos/999999", JSON("title", "Ghost todo"))
		t.RequireStatus(resp, Status(http.StatusNotFound), "PUT /todos/999999")
	})

	t.Run("create", func(t *T) {
		resp := t.Post("/todos", JSON("title", "New todo", "description", "Valid description"))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /todos")
		assert.Equal(t, apiclient.ContentTypeJSON, resp.ContentType())
		todo := t.RequireEntity(resp, servicedef.Todos)
		require.NotEmpty(t, servicedef.EntityID(todo))
		assert.Equal(t, "New todo", servicedef.FieldValue(todo, servicedef.FieldTitle))
		assert.Equal(t, "false", servicedef.FieldValue(todo, servicedef.FieldDoneStatus))
	})

	t.Run("create with boolean", func(t *T) {
		resp := t.Post("/todos", JSON("title", "Done already", servicedef.FieldDoneStatus, true))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /todos")
		assert.Equal(t, "true", servicedef.FieldValue(t.RequireEntity(resp, servicedef.Todos), servicedef.FieldDoneStatus))
	})

	t.Run("create validation", func(t *T) {
		cases := []struct {
			name    string
			body    *apiclient.Body
			message string
		}{
			{"empty body", JSON(), "title : field is mandatory"},
			{"unknown field", JSON("title", "Invalid todo", "priority", "not an integer"), "Could not find field: priority"},
			{"string boolean", JSON("title", "Invalid todo", servicedef.FieldDoneStatus, "false"), "doneStatus should be BOOLEAN"},
			{"with ID", JSON("id", "1", "title", "Invalid todo"), "Not allowed to create with id"},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *T) {
				resp := t.Post("/todos", c.body)
				t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /todos ("+c.name+")")
				t.RequireErrorMessage(resp, c.message)
			})
		}
	})

	t.Run("amend", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("amend", "Before amending", "unchanged"))
		resp := t.Post("/todos/amend", JSON("title", "After amending"))
		t.RequireStatus(resp, Status(http.StatusOK), "POST /todos/:id")

		todo := t.RequireEntity(t.Get("/todos/amend"), servicedef.Todos)
		assert.Equal(t, "After amending", servicedef.FieldValue(todo, servicedef.FieldTitle))
		assert.Equal(t, "unchanged", servicedef.FieldValue(todo, servicedef.FieldDescription))
	})

	t.Run("amend nonexistent", func(t *T) {
		resp := t.Post("/todos/999999", JSON("title", "Ghost todo"))
		t.RequireStatus(resp, Status(http.StatusNotFound), "POST /todos/999999")
	})

	t.Run("replace", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("replace", "Before replacing", "will be cleared", servicedef.FieldDoneStatus, true))
		resp := t.Put("/todos/replace", JSON("title", "Updated title", "description", "Updated desc"))
		t.RequireStatus(resp, Status(http.StatusOK), "PUT /todos/:id")

		todo := t.RequireEntity(t.Get("/todos/replace"), servicedef.Todos)
		assert.Equal(t, "Updated title", servicedef.FieldValue(todo, servicedef.FieldTitle))
		assert.Equal(t, "Updated desc", servicedef.FieldValue(todo, servicedef.FieldDescription))
		assert.Equal(t, "false", servicedef.FieldValue(todo, servicedef.FieldDoneStatus))
	})

	t.Run("replace with empty body", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("replace", "Replace target", ""))
		resp := t.Put("/todos/replace", JSON())
		t.RequireStatus(resp, Status(http.StatusBadRequest), "PUT /todos/:id (empty body)")
	})

	t.Run("delete", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("delete", "Delete me", ""))
		t.RequireStatus(t.Delete("/todos/delete"), Status(http.StatusOK), "DELETE /todos/:id")
		t.RequireStatus(t.Get("/todos/delete"), Status(http.StatusNotFound), "GET /todos/:id after delete")
	})

	t.Run("filter", func(t *T) {
		t.Given(servicedef.Todos,
			Descriptor("open", "Filter open", "", servicedef.FieldDoneStatus, false),
			Descriptor("done", "Filter done", "", servicedef.FieldDoneStatus, true))
		resp := t.Get("/todos?doneStatus=false")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /todos?doneStatus=false")
		todos := t.RequireEntities(resp, servicedef.Todos)
		ids := apiclient.IDs(todos)
		assert.Contains(t, ids, t.ID("open"))
		assert.NotContains(t, ids, t.ID("done"))
		for _, todo := range todos {
			assert.Equal(t, "false", servicedef.FieldValue(todo, servicedef.FieldDoneStatus))
		}
	})
}
