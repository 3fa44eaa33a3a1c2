package fixtures

import (
	"testing"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitest"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeardownDeletesRelationshipsFirst(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	registry := NewRegistry()
	registry.Add(servicedef.Categories, "2")
	registry.Add(servicedef.Todos, "2")
	registry.Add(servicedef.Projects, "999")
	registry.AddLink(servicedef.Link{Relation: servicedef.ProjectTasks, OwnerID: "1", TargetID: "1"})
	registry.AddLink(servicedef.Link{Relation: servicedef.CategoryTodos, OwnerID: "1", TargetID: "2"})
	_, err := client.Post("/categories/1/todos", apiclient.RawJSONBody(`{"id":"2"}`))
	require.NoError(t, err)

	report, err := Teardown(client, registry, testLogger{t})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Deleted)
	assert.Equal(t, 1, report.AlreadyGone)

	var deletes []string
	for _, r := range api.Requests() {
		if r.Method == "DELETE" {
			deletes = append(deletes, r.Path)
		}
	}
	assert.Equal(t, []string{"/categories/1/todos/2", "/projects/1/tasks/1", "/todos/2", "/projects/999", "/categories/2"}, deletes)
}

func TestTeardownAttemptsEveryIDAfterFailures(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	api.SetFault("DELETE", "/todos/1", 500)
	api.SetFault("DELETE", "/projects/1", 502)
	registry := NewRegistry()
	registry.Add(servicedef.Todos, "1")
	registry.Add(servicedef.Todos, "2")
	registry.Add(servicedef.Projects, "1")
	registry.Add(servicedef.Categories, "1")
	registry.Add(servicedef.Categories, "999999")

	report, err := Teardown(client, registry, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, TeardownReport{Deleted: 2, AlreadyGone: 1, Failed: 2}, report)
	assert.Equal(t, 1, api.Count(servicedef.Todos))
	assert.Equal(t, 1, api.Count(servicedef.Categories))
}

func TestTeardownOfEmptyRegistry(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	report, err := Teardown(client, NewRegistry(), nil)
	require.NoError(t, err)
	assert.Equal(t, TeardownReport{}, report)
	assert.Empty(t, api.Requests())
}
