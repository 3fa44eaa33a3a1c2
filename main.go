package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitests"
	"github.com/todo-manager/api-contract-tests/bddtests"
	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/cucumber/godog/colors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// errTestsFailed is returned by a command whose tests ran but did not all pass. The failures
// have already been reported, so it is not printed.
var errTestsFailed = errors.New("some tests failed")

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	params := newCommandParams()
	v := viper.New()

	root := &cobra.Command{
		Use:   "todo-api-contract-tests",
		Short: "Conformance tests for the todo manager REST API",
		Long: `Runs black-box conformance tests against a running instance of the todo manager
REST API. Every test creates the entities it needs and removes them afterward, and the
service is restored to the state it was in before the test began.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return params.load(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnitSuite(params, out)
		},
	}
	params.addFlags(root.PersistentFlags())

	bdd := &cobra.Command{
		Use:   "bdd",
		Short: "Run the Gherkin feature files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeatures(params, out)
		},
	}
	params.addBDDFlags(bdd.Flags())
	root.AddCommand(bdd)

	return root
}

func runUnitSuite(params *commandParams, out io.Writer) error {
	client := apiclient.NewClient(params.serviceURL)
	if err := checkService(client, params, out); err != nil {
		return err
	}

	fmt.Fprintln(out)
	framework.PrintFilterDescription(out, params.filters)
	fmt.Fprintf(out, "Running test suite, asserting %s behavior\n", params.mode)

	testLogger := &ConsoleTestLogger{
		Out:                  out,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	results := apitests.RunTestSuite(client, params.suiteOptions(), params.filters.AsFilter, testLogger)

	fmt.Fprintln(out)
	printResults(out, results)
	if params.reportFile != "" {
		if err := writeReport(params.reportFile, params.mode, results); err != nil {
			return err
		}
	}
	if !results.OK() {
		fmt.Fprintf(out, "\nTo run only the failed tests:\n  %s\n", params.rerunCommand(results))
		return errTestsFailed
	}
	return nil
}

func runFeatures(params *commandParams, out io.Writer) error {
	client := apiclient.NewClient(params.serviceURL)
	if err := checkService(client, params, out); err != nil {
		return err
	}
	fmt.Fprintln(out)

	opts := bddtests.Options{
		Client:      client,
		Mode:        params.mode,
		SettleDelay: params.settleDelay,
		Paths:       params.features,
		Format:      params.format,
		Tags:        params.tags,
		Strict:      true,
		Output:      colors.Colored(out),
		DebugAll:    params.debugAll,
	}
	if params.debug || params.debugAll {
		opts.DebugOutput = out
	}
	if params.noColor {
		opts.Output = colors.Uncolored(out)
	}
	if bddtests.Run(opts) != 0 {
		return errTestsFailed
	}
	return nil
}

// checkService waits for the service to answer on the todos endpoint, and reports how many
// todos it has.
func checkService(client *apiclient.Client, params *commandParams, out io.Writer) error {
	url := strings.TrimSuffix(client.BaseURL(), "/") + servicedef.Todos.Path()
	status, err := framework.QueryTargetStatus(url, params.statusTimeout, out)
	if err != nil {
		return fmt.Errorf("service is not running at %s: %w", client.BaseURL(), err)
	}
	if status.StatusCode != 200 {
		return fmt.Errorf("service answered GET %s with status %d: %s",
			servicedef.Todos.Path(), status.StatusCode, framework.Excerpt(status.Body, 200))
	}
	var v ldvalue.Value
	if err := json.Unmarshal(status.Body, &v); err != nil {
		fmt.Fprintf(out, "Service is running, but its todo list could not be parsed: %s\n", err)
		return nil
	}
	fmt.Fprintf(out, "Service is running with %d todos\n", len(apiclient.Unwrap(v, servicedef.Todos.EnvelopeKey())))
	return nil
}
