package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/todo-manager/api-contract-tests/apitest"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/fatih/color"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(append(args, "--settle-delay", "0s", "--status-timeout", "2s"))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandRunsSelectedTests(t *testing.T) {
	server, api := apitest.NewServer(apitest.Options{})
	defer server.Close()

	out, err := runCommand(t, "--url", server.URL, "--run", "^todos$/^list$")
	require.NoError(t, err, out)

	assert.Contains(t, out, "Service is running with 2 todos")
	assert.Contains(t, out, "[todos/list]")
	assert.Contains(t, out, "SKIPPED: todos/create")
	assert.Contains(t, out, "All tests passed")
	assert.Equal(t, 2, api.Count(servicedef.Todos))
}

func TestRootCommandReportsFailures(t *testing.T) {
	server, _ := apitest.NewServer(apitest.Options{})
	defer server.Close()
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	out, err := runCommand(t, "--url", server.URL,
		"--expect", "documented",
		"--run", "^projects$/^create with empty body$",
		"--report", reportPath,
	)
	require.ErrorIs(t, err, errTestsFailed)

	assert.Contains(t, out, "FAILED: projects/create with empty body")
	assert.Contains(t, out, "FAILED 1 of")
	assert.Contains(t, out, "--run '^projects$/^create with empty body$'")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var r report
	require.NoError(t, yaml.Unmarshal(data, &r))
	assert.Equal(t, "documented", r.Mode)
	assert.Equal(t, 1, r.Failed)
	var found bool
	for _, test := range r.Tests {
		if test.Name == "projects/create with empty body" {
			found = true
			assert.Equal(t, "failed", test.Status)
			assert.NotEmpty(t, test.Errors)
		}
	}
	assert.True(t, found)
}

func TestRootCommandFailsWhenServiceDoesNotListTodos(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(503), func(server *httptest.Server) {
		out, err := runCommand(t, "--url", server.URL)
		require.Error(t, err)
		assert.NotEqual(t, errTestsFailed, err)
		assert.Contains(t, err.Error(), "status 503")
		assert.NotContains(t, out, "Running test suite")
	})
}

func TestBDDCommandRunsFeatures(t *testing.T) {
	server, api := apitest.NewServer(apitest.Options{})
	defer server.Close()

	out, err := runCommand(t, "bdd", "--url", server.URL, "--tags", "~@divergent", "--format", "progress",
		"--features", "bddtests/features/todos.feature")
	require.NoError(t, err, out)
	assert.ElementsMatch(t, []string{"scan paperwork", "file paperwork"}, api.Titles(servicedef.Todos))
}

func TestBDDCommandFailsDivergentScenariosInDocumentedMode(t *testing.T) {
	server, _ := apitest.NewServer(apitest.Options{})
	defer server.Close()

	out, err := runCommand(t, "bdd", "--url", server.URL, "--expect", "documented", "--tags", "@divergent",
		"--format", "progress", "--features", "bddtests/features/projects.feature")
	assert.ErrorIs(t, err, errTestsFailed, out)
}
