package apitests

import (
	"net/http"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoCategoryTests(t *T) {
	t.Run("list", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		resp := t.Get("/categories")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /categories")
		assert.Contains(t, apiclient.IDs(t.RequireEntities(resp, servicedef.Categories)), t.ID("work"))
		t.RequireStatus(t.Head("/categories"), Status(http.StatusOK), "HEAD /categories")
	})

	t.Run("get by ID", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("work", "Work", "Test"))
		resp := t.Get("/categories/work")
		t.RequireStatus(resp, Status(http.StatusOK), "GET /categories/:id")
		category := t.RequireEntity(resp, servicedef.Categories)
		assert.Equal(t, "Work", servicedef.FieldValue(category, servicedef.FieldTitle))
		assert.Equal(t, "Test", servicedef.FieldValue(category, servicedef.FieldDescription))
		t.RequireStatus(t.Head("/categories/work"), Status(http.StatusOK), "HEAD /categories/:id")
	})

	t.Run("nonexistent ID", func(t *T) {
		t.RequireStatus(t.Get("/categories/999999"), Status(http.StatusNotFound), "GET /categories/999999")
		t.RequireStatus(t.Head("/categories/999999"), Status(http.StatusNotFound), "HEAD /categories/999999")
		t.RequireStatus(t.Delete("/categories/999999"), Status(http.StatusNotFound), "DELETE /categories/999999")
	})

	t.Run("create", func(t *T) {
		resp := t.Post("/categories", JSON("title", "Errands", "description", "Outside the house"))
		t.RequireStatus(resp, Status(http.StatusCreated), "POST /categories")
		assert.Equal(t, "Errands", servicedef.FieldValue(t.RequireEntity(resp, servicedef.Categories), servicedef.FieldTitle))
	})

	t.Run("create without title", func(t *T) {
		resp := t.Post("/categories", JSON("description", "No title"))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /categories (no title)")
		t.RequireErrorMessage(resp, "title : field is mandatory")
	})

	t.Run("create with boolean field", func(t *T) {
		resp := t.Post("/categories", JSON("title", "Flagged", servicedef.FieldActive, true))
		t.RequireStatus(resp, Status(http.StatusBadRequest), "POST /categories (unknown field)")
		t.RequireErrorMessage(resp, "Could not find field: active")
	})

	t.Run("amend", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("amend", "Before", "Original description"))
		resp := t.Post("/categories/amend", JSON("description", "New description"))
		t.RequireStatus(resp, Status(http.StatusOK), "POST /categories/:id")
		category := t.RequireEntity(t.Get("/categories/amend"), servicedef.Categories)
		assert.Equal(t, "Before", servicedef.FieldValue(category, servicedef.FieldTitle))
		assert.Equal(t, "New description", servicedef.FieldValue(category, servicedef.FieldDescription))
	})

	t.Run("replace", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("replace", "Before", "Cleared by replace"))
		resp := t.Put("/categories/replace", JSON("title", "After"))
		t.RequireStatus(resp, Status(http.StatusOK), "PUT /categories/:id")
		category := t.RequireEntity(resp, servicedef.Categories)
		assert.Equal(t, "After", servicedef.FieldValue(category, servicedef.FieldTitle))
		assert.Equal(t, "", servicedef.FieldValue(category, servicedef.FieldDescription))
	})

	t.Run("delete", func(t *T) {
		t.Given(servicedef.Categories, Descriptor("delete", "Disposable", ""))
		t.RequireStatus(t.Delete("/categories/delete"), Status(http.StatusOK), "DELETE /categories/:id")
		t.RequireStatus(t.Delete("/categories/delete"), Status(http.StatusNotFound), "DELETE /categories/:id twice")
	})

	t.Run("relationships of nonexistent category", func(t *T) {
		for _, path := range []string{"/categories/999999/todos", "/categories/999999/projects"} {
			t.RequireStatus(t.Get(path), Diverges(http.StatusNotFound, http.StatusOK), "GET "+path)
			t.RequireStatus(t.Head(path), Diverges(http.StatusNotFound, http.StatusOK), "HEAD "+path)
		}
	})
}
