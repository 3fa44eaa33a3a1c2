package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitests"
	"github.com/todo-manager/api-contract-tests/fixtures"
	"github.com/todo-manager/api-contract-tests/framework"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadParams(t *testing.T, args ...string) (*commandParams, error) {
	t.Helper()
	params := newCommandParams()
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "test",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return params.load(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	params.addFlags(cmd.PersistentFlags())
	params.addBDDFlags(cmd.Flags())
	cmd.SetArgs(args)
	return params, cmd.Execute()
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultParams(t *testing.T) {
	params, err := loadParams(t)
	require.NoError(t, err)

	assert.Equal(t, apiclient.DefaultBaseURL, params.serviceURL)
	assert.Equal(t, apitests.ExpectActual, params.mode)
	assert.Equal(t, fixtures.DefaultSettleDelay, params.settleDelay)
	assert.Equal(t, defaultStatusTimeout, params.statusTimeout)
	assert.Equal(t, "pretty", params.format)
	assert.False(t, params.filters.MustMatch.IsDefined())
	assert.False(t, params.filters.MustNotMatch.IsDefined())
}

func TestParamsFromFlags(t *testing.T) {
	params, err := loadParams(t,
		"--url", "http://example.test:8080",
		"--expect", "documented",
		"--settle-delay", "50ms",
		"--run", "^todos$",
		"--run", "^projects$",
		"--skip", "XML",
		"--debug",
		"--tags", "~@divergent",
	)
	require.NoError(t, err)

	assert.Equal(t, "http://example.test:8080", params.serviceURL)
	assert.Equal(t, apitests.ExpectDocumented, params.mode)
	assert.Equal(t, 50*time.Millisecond, params.settleDelay)
	assert.Equal(t, `"^todos$" or "^projects$"`, params.filters.MustMatch.String())
	assert.True(t, params.filters.MustNotMatch.AnyMatch("content types/get XML"))
	assert.True(t, params.debug)
	assert.Equal(t, "~@divergent", params.tags)
}

func TestParamsFromEnvironment(t *testing.T) {
	t.Setenv("TODOAPI_URL", "http://from-env:4567")
	t.Setenv("TODOAPI_SETTLE_DELAY", "1s")
	t.Setenv("TODOAPI_RUN", "^todos$ ^categories$")
	t.Setenv("TODOAPI_DEBUG_ALL", "true")

	params, err := loadParams(t)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:4567", params.serviceURL)
	assert.Equal(t, time.Second, params.settleDelay)
	assert.Equal(t, `"^todos$" or "^categories$"`, params.filters.MustMatch.String())
	assert.True(t, params.debugAll)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("TODOAPI_URL", "http://from-env:4567")
	t.Setenv("TODOAPI_RUN", "^categories$")

	params, err := loadParams(t, "--url", "http://from-flag:4567", "--run", "^todos$")
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:4567", params.serviceURL)
	assert.Equal(t, `"^todos$"`, params.filters.MustMatch.String())
}

func TestParamsFromConfigFile(t *testing.T) {
	path := writeConfig(t, `
url: http://from-config:4567
expect: documented
status-timeout: 3s
run:
  - ^todos$/^list$
skip:
  - HEAD
features:
  - features/todos.feature
`)

	params, err := loadParams(t, "--config", path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-config:4567", params.serviceURL)
	assert.Equal(t, apitests.ExpectDocumented, params.mode)
	assert.Equal(t, 3*time.Second, params.statusTimeout)
	assert.True(t, params.filters.AsFilter(framework.TestID{Path: []string{"todos", "list"}}))
	assert.False(t, params.filters.AsFilter(framework.TestID{Path: []string{"todos", "create"}}))
	assert.False(t, params.filters.AsFilter(framework.TestID{Path: []string{"todos", "list", "HEAD"}}))
	assert.Equal(t, []string{"features/todos.feature"}, params.features)
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	path := writeConfig(t, "url: http://from-config:4567\n")
	t.Setenv("TODOAPI_URL", "http://from-env:4567")

	params, err := loadParams(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:4567", params.serviceURL)
}

func TestMissingConfigFileIsAnError(t *testing.T) {
	_, err := loadParams(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInvalidParams(t *testing.T) {
	t.Run("expectation mode", func(t *testing.T) {
		_, err := loadParams(t, "--expect", "sometimes")
		assert.Error(t, err)
	})

	t.Run("expectation mode from environment", func(t *testing.T) {
		t.Setenv("TODOAPI_EXPECT", "sometimes")
		_, err := loadParams(t)
		assert.Error(t, err)
	})

	t.Run("regex", func(t *testing.T) {
		_, err := loadParams(t, "--run", "(")
		assert.Error(t, err)
	})

	t.Run("empty URL", func(t *testing.T) {
		_, err := loadParams(t, "--url", "")
		assert.Error(t, err)
	})
}

func TestRerunCommand(t *testing.T) {
	params := newCommandParams()
	params.mode = apitests.ExpectDocumented
	results := framework.Results{
		Failures: []framework.TestResult{
			{TestID: framework.TestID{Path: []string{"projects", "create with empty body"}}},
			{TestID: framework.TestID{Path: []string{"todos", "list"}}},
			{TestID: framework.TestID{Path: []string{"todos", "list"}}},
		},
	}

	assert.Equal(t,
		programName+" --url http://localhost:4567 --expect documented"+
			" --run '^projects$/^create with empty body$'"+
			" --run '^todos$/^list$'",
		params.rerunCommand(results))
}

func TestExactPathPatternSelectsOnlyThatTest(t *testing.T) {
	var filters framework.RegexFilters
	require.NoError(t, filters.MustMatch.Set(exactPathPattern(framework.TestID{Path: []string{"todos", "get (by ID)"}})))

	assert.True(t, filters.AsFilter(framework.TestID{Path: []string{"todos"}}))
	assert.True(t, filters.AsFilter(framework.TestID{Path: []string{"todos", "get (by ID)"}}))
	assert.False(t, filters.AsFilter(framework.TestID{Path: []string{"todos", "get (by ID) twice"}}))
	assert.False(t, filters.AsFilter(framework.TestID{Path: []string{"categories"}}))
}
