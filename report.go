package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/todo-manager/api-contract-tests/apitests"
	"github.com/todo-manager/api-contract-tests/framework"

	"gopkg.in/yaml.v3"
)

// leafTests drops the root context and the groups, which only exist to hold other tests. A
// group that failed by itself is kept.
func leafTests(results framework.Results) []framework.TestResult {
	failed := make(map[string]bool)
	for _, f := range results.Failures {
		failed[f.TestID.String()] = true
	}
	parents := make(map[string]bool)
	for _, t := range results.Tests {
		for i := 1; i < len(t.TestID.Path); i++ {
			parents[framework.TestID{Path: t.TestID.Path[:i]}.String()] = true
		}
	}
	var ret []framework.TestResult
	for _, t := range results.Tests {
		name := t.TestID.String()
		if len(t.TestID.Path) != 0 && (!parents[name] || failed[name]) {
			ret = append(ret, t)
		}
	}
	return ret
}

func printResults(out io.Writer, results framework.Results) {
	r := newReport("", results)
	if results.OK() {
		passedColor.Fprintf(out, "All tests passed (%d run, %d skipped)\n", r.Passed, r.Skipped)
		return
	}
	failedColor.Fprintf(out, "FAILED %d of %d tests:\n", r.Failed, len(r.Tests))
	for _, f := range results.Failures {
		fmt.Fprintf(out, "  %s\n", f.TestID)
		for _, err := range f.Errors {
			fmt.Fprintf(out, "    %s\n", err)
		}
	}
}

// report is the document written by --report.
type report struct {
	Mode     string         `yaml:"mode"`
	Finished time.Time      `yaml:"finished"`
	Passed   int            `yaml:"passed"`
	Failed   int            `yaml:"failed"`
	Skipped  int            `yaml:"skipped"`
	Tests    []reportedTest `yaml:"tests"`
}

type reportedTest struct {
	Name   string   `yaml:"name"`
	Status string   `yaml:"status"`
	Errors []string `yaml:"errors,omitempty"`
}

func newReport(mode apitests.ExpectMode, results framework.Results) report {
	r := report{Mode: mode.String(), Finished: time.Now().UTC().Truncate(time.Second)}
	failed := make(map[string][]error)
	for _, f := range results.Failures {
		failed[f.TestID.String()] = f.Errors
	}
	for _, t := range leafTests(results) {
		name := t.TestID.String()
		entry := reportedTest{Name: name, Status: "passed"}
		if errs, ok := failed[name]; ok {
			entry.Status = "failed"
			for _, err := range errs {
				entry.Errors = append(entry.Errors, err.Error())
			}
			r.Failed++
		} else if t.Skipped {
			entry.Status = "skipped"
			r.Skipped++
		} else {
			r.Passed++
		}
		r.Tests = append(r.Tests, entry)
	}
	return r
}

func writeReport(path string, mode apitests.ExpectMode, results framework.Results) error {
	data, err := yaml.Marshal(newReport(mode, results))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
