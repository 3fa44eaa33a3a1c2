package apitests

import (
	"time"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/fixtures"
	"github.com/todo-manager/api-contract-tests/framework"
)

// SuiteOptions configures a run of the suite.
type SuiteOptions struct {
	Mode ExpectMode
	// SettleDelay is passed to the fixture restorer; zero means no delay.
	SettleDelay time.Duration
}

// DefaultSuiteOptions asserts actual behavior with the default restore delay.
func DefaultSuiteOptions() SuiteOptions {
	return SuiteOptions{Mode: ExpectActual, SettleDelay: fixtures.DefaultSettleDelay}
}

func RunTestSuite(
	client *apiclient.Client,
	opts SuiteOptions,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	if opts.Mode == "" {
		opts.Mode = ExpectActual
	}
	env := &environment{client: client, mode: opts.Mode, settleDelay: opts.SettleDelay}
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newT(c, env)

		t.Run("todos", DoTodoTests)
		t.Run("categories", DoCategoryTests)
		t.Run("projects", DoProjectTests)
		t.Run("relationships", DoRelationshipTests)
		t.Run("content types", DoContentTypeTests)
		t.Run("HTTP behavior", DoHTTPBehaviorTests)
	})
}
