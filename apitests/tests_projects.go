package apitests

import (
	"net/http"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoProjectTests(t *T) {
	t.Run("list", func(t *T) {
		t.Given(servicedef.Projects, Descriptor("launch", "Launch", "Ship it",
			servicedef.FieldCompleted, false, servicedef.FieldActive, true))
		resp := t.Get("/projects")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /projects")
		project, found := apiclient.FindByID(t.RequireEntities(resp, servicedef.Projects), t.ID("launch"))
		if assert.True(t, found, "provisioned project was not listed") {
			assert.Equal(t, "true", servicedef.FieldValue(project, servicedef.FieldActive))
		}
	})

	t.Run("get by ID", func(t *T) {
		t.Given(servicedef.Projects, Descriptor("launch", "Launch", "Ship it", servicedef.FieldCompleted, true))
		resp := t.Get("/projects/launch")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /projects/:id")
		project := t.RequireEntity(resp, servicedef.Projects)
		assert.Equal(t, "Launch", servicedef.FieldValue(project, servicedef.FieldTitle))
		assert.Equal(t, "true", servicedef.FieldValue(project, servicedef.FieldCompleted))
		t.RequireStatus(t.Head("/projects/launch"), Status(http.StatusOK), "HEAD /projects/:id")
	})

	t.Run("nonexistent ID", func(t *T) {
		t.RequireStatus(t.Get("/projects/999999"), Status(http.StatusNotFound), "GET /projects/999999")
		t.RequireStatus(t.Delete("/projects/999999"), Status(http.StatusNotFound), "DELETE /projects/999999")
		t.RequireStatus(t.Post("/projects/999999", JSON("title", "Ghost")), Status(http.StatusNotFound), "POST /projects/999999")
	})

	t.Run("create", func(t *T) {
		resp := t.Post("/projects", JSON("title", "Garden", "description", "Spring planting", servicedef.FieldActive, false))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /projects")
		project := t.RequireEntity(resp, servicedef.Projects)
		assert.Equal(t, "false", servicedef.FieldValue(project, servicedef.FieldActive))
		assert.Equal(t, "false", servicedef.FieldValue(project, servicedef.FieldCompleted))
	})

	t.Run("create with empty body", func(t *T) {
		resp := t.Post("/projects", JSON())
		t.RequireStatus(resp, Diverges(http.StatusBadRequest, http.StatusCreated), "POST /projects (empty body)")
	})

	t.Run("create with string boolean", func(t *T) {
		resp := t.Post("/projects", JSON("title", "Bad flag", servicedef.FieldCompleted, "yes"))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /projects (string boolean)")
		t.RequireErrorMessage(resp, "completed should be BOOLEAN")
	})

	t.Run("amend", func(t *T) {
		t.Given(servicedef.Projects, Descriptor("amend", "Amend me", ""))
		resp := t.Post("/projects/amend", JSON(servicedef.FieldCompleted, true))
		t.RequireStatus(resp, Status(http.StatusOK), "POST /projects/:id")
		project := t.RequireEntity(t.Get("/projects/amend"), servicedef.Projects)
		assert.Equal(t, "Amend me", servicedef.FieldValue(project, servicedef.FieldTitle))
		assert.Equal(t, "true", servicedef.FieldValue(project, servicedef.FieldCompleted))
	})

	t.Run("delete", func(t *T) {
		t.Given(servicedef.Projects, Descriptor("delete", "Delete me", ""))
		t.RequireStatus(t.Delete("/projects/delete"), Status(http.StatusOK), "DELETE /projects/:id")
		t.RequireStatus(t.Get("/projects/delete"), Status(http.StatusNotFound), "GET /projects/:id after delete")
	})
}
