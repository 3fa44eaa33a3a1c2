package bddtests

import (
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitests"
	"github.com/todo-manager/api-contract-tests/fixtures"
	"github.com/todo-manager/api-contract-tests/framework"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
)

// Options configures a run of the feature files.
type Options struct {
	Client      *apiclient.Client
	Mode        apitests.ExpectMode
	SettleDelay time.Duration

	// Paths are feature files or directories. If empty, the built-in features are run.
	Paths  []string
	Format string
	Tags   string
	Strict bool
	Output io.Writer

	// DebugOutput receives the request and fixture log of each failed scenario, or of every
	// scenario if DebugAll is set.
	DebugOutput io.Writer
	DebugAll    bool

	// TestingT makes each scenario a subtest of a Go test.
	TestingT *testing.T
}

type suite struct {
	opts     Options
	logger   framework.Logger
	snapshot fixtures.Snapshot
	created  *fixtures.Registry
}

// Run runs the features and returns godog's exit status: 0 if every scenario passed.
func Run(opts Options) int {
	if opts.Mode == "" {
		opts.Mode = apitests.ExpectActual
	}
	if opts.DebugOutput == nil {
		opts.DebugOutput = io.Discard
	}
	s := &suite{
		opts:    opts,
		logger:  log.New(opts.DebugOutput, "[suite] ", log.LstdFlags),
		created: fixtures.NewRegistry(),
	}

	godogOpts := godog.Options{
		Format:   opts.Format,
		Paths:    opts.Paths,
		Tags:     opts.Tags,
		Strict:   opts.Strict,
		Output:   opts.Output,
		TestingT: opts.TestingT,
		// scenarios share the service, so they must not run concurrently
		Concurrency: 1,
	}
	if len(godogOpts.Paths) == 0 {
		godogOpts.FS = Features
		godogOpts.Paths = []string{"features"}
	}
	if godogOpts.Format == "" {
		godogOpts.Format = "pretty"
	}
	if godogOpts.Output == nil {
		godogOpts.Output = colors.Colored(os.Stdout)
	}

	return godog.TestSuite{
		Name:                 "todo-api-contract",
		TestSuiteInitializer: s.initializeTestSuite,
		ScenarioInitializer:  s.initializeScenario,
		Options:              &godogOpts,
	}.Run()
}

func (s *suite) initializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		snap, err := fixtures.TakeSnapshot(s.opts.Client, s.logger)
		if err != nil {
			s.logger.Printf("Warning: suite snapshot incomplete: %s", err)
		}
		s.snapshot = snap
		s.logger.Printf("Suite snapshot: %s", snap.Summary())
	})

	ctx.AfterSuite(func() {
		restorer := fixtures.Restorer{Service: s.opts.Client, Logger: s.logger, SettleDelay: s.opts.SettleDelay}
		report, err := restorer.Restore(s.snapshot, s.created)
		if err != nil {
			s.logger.Printf("Warning: suite restore incomplete: %s", err)
		}
		for kind, ids := range report.Leaked {
			s.logger.Printf("Warning: %d %s left behind by the suite: %v", len(ids), kind, ids)
		}
	})
}

func (s *suite) initializeScenario(ctx *godog.ScenarioContext) {
	sc := newScenario(s)
	ctx.Before(sc.begin)
	ctx.After(sc.end)
	sc.registerSteps(ctx)
}
