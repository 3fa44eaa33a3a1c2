package fixtures

import (
	"testing"

	"github.com/todo-manager/api-contract-tests/apitest"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionCreatesAndMaps(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	p := Provisioner{Service: client, Logger: testLogger{t}}

	result, err := p.Provision(servicedef.Todos, []servicedef.EntityDescriptor{todo("1", "Buy milk", false)})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Empty(t, result.Reused)
	assert.Equal(t, "3", result.Mapping.Resolve("1"))
	assert.Equal(t, []string{"scan paperwork", "file paperwork", "Buy milk"}, api.Titles(servicedef.Todos))
}

func TestProvisionReusesExactMatch(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	p := Provisioner{Service: client}

	result, err := p.Provision(servicedef.Todos, []servicedef.EntityDescriptor{
		todo("a", "scan paperwork", false),
		todo("b", "scan paperwork", true),
	})
	require.NoError(t, err)
	require.Len(t, result.Reused, 1)
	assert.Equal(t, "1", result.Reused[0].ID)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "1", result.Mapping.Resolve("a"))
	assert.Equal(t, "3", result.Mapping.Resolve("b"))
	assert.Equal(t, 3, api.Count(servicedef.Todos))
}

func TestProvisionMatchesProjectDefaults(t *testing.T) {
	client, _ := startService(t, apitest.Options{})
	p := Provisioner{Service: client}
	result, err := p.Provision(servicedef.Projects, []servicedef.EntityDescriptor{{Ref: "p", Title: "Office Work"}})
	require.NoError(t, err)
	assert.Equal(t, "1", result.Mapping.Resolve("p"))

	result, err = p.Provision(servicedef.Projects, []servicedef.EntityDescriptor{
		{Ref: "q", Title: "Office Work", Flags: map[string]bool{servicedef.FieldActive: false}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2", result.Mapping.Resolve("q"))
}

func TestProvisionMapsExactlyTheSuccessfulRows(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	api.SetFault("POST", "/categories", 500)
	p := Provisioner{Service: client}

	result, err := p.Provision(servicedef.Categories, []servicedef.EntityDescriptor{
		{Ref: "1", Title: "Office"},
		{Ref: "2", Title: "Garden"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "2", result.Failures[0].Ref)
	assert.Equal(t, 500, result.Failures[0].Status)
	assert.Equal(t, []string{"1"}, result.Mapping.Refs())
}

func TestProvisionReportsValidationFailure(t *testing.T) {
	client, _ := startService(t, apitest.Options{})
	p := Provisioner{Service: client}
	result, err := p.Provision(servicedef.Categories, []servicedef.EntityDescriptor{{Ref: "1"}})
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, 400, result.Failures[0].Status)
	assert.Equal(t, 0, result.Mapping.Len())
}

func TestProvisionCreatesEverythingWhenListFails(t *testing.T) {
	client, api := startService(t, apitest.Options{})
	api.SetFault("GET", "/todos", 503)
	p := Provisioner{Service: client}

	result, err := p.Provision(servicedef.Todos, []servicedef.EntityDescriptor{todo("1", "scan paperwork", false)})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "3", result.Mapping.Resolve("1"))
}
