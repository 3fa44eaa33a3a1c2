package apitests

import (
	"net/http"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoRelationshipTests(t *T) {
	t.Run("project tasks", doProjectTaskTests)
	t.Run("todo tasksof", doTodoTasksOfTests)
	t.Run("category todos", doCategoryTodoTests)
	t.Run("category projects", doCategoryProjectTests)
	t.Run("todo categories", doTodoCategoryTests)
}

func givenProjectAndTodo(t *T) {
	t.Given(servicedef.Projects, Descriptor("project", "Test project", "For relationship testing"))
	t.Given(servicedef.Todos, Descriptor("todo", "Test todo", "A task", servicedef.FieldDoneStatus, false))
}

func requireRelated(t *T, path string, kind servicedef.Kind) []string {
	resp := t.Get(path)
	t.RequireStatus(resp, Status(http.StatusOK), "GET "+path)
	return apiclient.IDs(t.RequireEntities(resp, kind))
}

func doProjectTaskTests(t *T) {
	t.Run("link existing todo", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/projects/project/tasks", JSON("id", t.ID("todo")))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /projects/:id/tasks")
		assert.Contains(t, requireRelated(t, "/projects/project/tasks", servicedef.Todos), t.ID("todo"))
	})

	t.Run("link is visible from the todo", func(t *T) {
		givenProjectAndTodo(t)
		t.Link(servicedef.ProjectTasks, "project", "todo")
		assert.Contains(t, requireRelated(t, "/todos/todo/tasksof", servicedef.Projects), t.ID("project"))
	})

	t.Run("create todo through relationship", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/projects/project/tasks", JSON("title", "Created as a task"))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /projects/:id/tasks (new todo)")
		created := servicedef.EntityID(t.RequireEntity(resp, servicedef.Todos))
		require.NotEmpty(t, created)
		assert.Contains(t, requireRelated(t, "/projects/project/tasks", servicedef.Todos), created)
	})

	t.Run("unlink", func(t *T) {
		givenProjectAndTodo(t)
		t.Link(servicedef.ProjectTasks, "project", "todo")
		path := "/projects/project/tasks/" + t.ID("todo")
		t.RequireStatus(t.Delete(path), Status(http.StatusOK), "DELETE /projects/:id/tasks/:id")
		t.RequireStatus(t.Delete(path), Status(http.StatusNotFound), "DELETE /projects/:id/tasks/:id twice")
		assert.NotContains(t, requireRelated(t, "/projects/project/tasks", servicedef.Todos), t.ID("todo"))
	})

	t.Run("link nonexistent todo", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/projects/project/tasks", JSON("id", "999999"))
		t.RequireStatus(resp, Status(http.StatusNotFound), "POST /projects/:id/tasks (nonexistent todo)")
	})

	t.Run("unlink nonexistent todo", func(t *T) {
		givenProjectAndTodo(t)
		t.RequireStatus(t.Delete("/projects/project/tasks/999999"), Status(http.StatusNotFound),
			"DELETE /projects/:id/tasks/999999")
	})

	t.Run("malformed JSON", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/projects/project/tasks", apiclient.RawJSONBody("{id:}"))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /projects/:id/tasks (malformed JSON)")
	})

	t.Run("malformed XML", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/projects/project/tasks", apiclient.XMLBody("<task><id></id></task>"))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /projects/:id/tasks (malformed XML)")
	})
}

func doTodoTasksOfTests(t *T) {
	t.Run("link project", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/todos/todo/tasksof", JSON("id", t.ID("project")))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /todos/:id/tasksof")
		assert.Contains(t, requireRelated(t, "/todos/todo/tasksof", servicedef.Projects), t.ID("project"))
		assert.Contains(t, requireRelated(t, "/projects/project/tasks", servicedef.Todos), t.ID("todo"))
	})

	t.Run("unlink project", func(t *T) {
		givenProjectAndTodo(t)
		t.Link(servicedef.TodoTasksOf, "todo", "project")
		resp := t.Delete("/todos/todo/tasksof/" + t.ID("project"))
		t.RequireStatus(resp, Status(http.StatusOK), "DELETE /todos/:id/tasksof/:id")
		assert.Empty(t, requireRelated(t, "/todos/todo/tasksof", servicedef.Projects))
	})

	t.Run("nonexistent todo", func(t *T) {
		givenProjectAndTodo(t)
		resp := t.Post("/todos/999999/tasksof", JSON("id", t.ID("project")))
		t.RequireStatus(resp, Status(http.StatusNotFound), "POST /todos/999999/tasksof")
	})
}

func doCategoryTodoTests(t *T) {
	t.Run("empty", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		assert.Empty(t, requireRelated(t, "/categories/work/todos", servicedef.Todos))
	})

	t.Run("create todo in category", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		resp := t.Post("/categories/work/todos", JSON("title", "New todo", "description", "Todo test"))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /categories/:id/todos")
	})

	t.Run("duplicate todo in category", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		body := JSON("title", "Duplicate todo", "description", "Todo test")
		for i := 0; i < 2; i++ {
			resp := t.Post("/categories/work/todos", body)
			t.RequireStatus(resp, Status(http.StatusCreated), "POST /categories/:id/todos (duplicate)")
		}
		assert.Len(t, requireRelated(t, "/categories/work/todos", servicedef.Todos), 2)
	})

	t.Run("unlink nonexistent relationship", func(t *T) {
		t.RequireStatus(t.Delete("/categories/999999/todos/999999"), Status(http.StatusNotFound),
			"DELETE /categories/999999/todos/999999")
	})
}

func doCategoryProjectTests(t *T) {
	t.Run("link and unlink", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		t.Given(servicedef.Projects, Descriptor("project", "Project1", "Test project"))
		resp := t.Post("/categories/work/projects", JSON("id", t.ID("project")))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /categories/:id/projects")
		assert.Contains(t, requireRelated(t, "/categories/work/projects", servicedef.Projects), t.ID("project"))

		resp = t.Delete("/categories/work/projects/" + t.ID("project"))
		t.RequireStatus(resp, Status(http.StatusOK), "DELETE /categories/:id/projects/:id")
	})

	t.Run("unlink nonexistent relationship", func(t *T) {
		t.RequireStatus(t.Delete("/categories/999999/projects/999999"), Status(http.StatusNotFound),
			"DELETE /categories/999999/projects/999999")
	})
}

func doTodoCategoryTests(t *T) {
	t.Run("link category", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("todo", "Categorized", ""))
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		resp := t.Post("/todos/todo/categories", JSON("id", t.ID("work")))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /todos/:id/categories")
		assert.Contains(t, requireRelated(t, "/todos/todo/categories", servicedef.Categories), t.ID("work"))
	})

	t.Run("post to category ID", func(t *T) {
		t.Given(servicedef.Todos, Descriptor("todo", "Categorized", ""))
		resp := t.Post("/todos/todo/categories/1", JSON())
		t.RequireStatus(resp, Diverges(http.StatusOK, http.StatusNotFound), "POST /todos/:id/categories/:id")
	})
}
