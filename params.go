package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitests"
	"github.com/todo-manager/api-contract-tests/fixtures"
	"github.com/todo-manager/api-contract-tests/framework"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	programName = "todo-api-contract-tests"

	envPrefix         = "TODOAPI"
	defaultConfigName = ".todo-api-contract-tests"
	configFileType    = "yaml"

	defaultStatusTimeout = time.Second * 10
)

type commandParams struct {
	configFile    string
	serviceURL    string
	filters       framework.RegexFilters
	mode          apitests.ExpectMode
	settleDelay   time.Duration
	statusTimeout time.Duration
	debug         bool
	debugAll      bool
	noColor       bool
	reportFile    string

	features []string
	format   string
	tags     string
}

func newCommandParams() *commandParams {
	return &commandParams{
		serviceURL:    apiclient.DefaultBaseURL,
		mode:          apitests.ExpectActual,
		settleDelay:   fixtures.DefaultSettleDelay,
		statusTimeout: defaultStatusTimeout,
		format:        "pretty",
	}
}

func (c *commandParams) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "config file (default: "+defaultConfigName+".yaml in the current directory)")
	fs.StringVar(&c.serviceURL, "url", c.serviceURL, "base URL of the todo manager service")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.Var(&c.mode, "expect", `which behavior to assert where the service diverges from its documentation: "actual" or "documented"`)
	fs.DurationVar(&c.settleDelay, "settle-delay", c.settleDelay, "how long to wait before restoring the service state after each test")
	fs.DurationVar(&c.statusTimeout, "status-timeout", c.statusTimeout, "how long to wait for the service to start answering")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	fs.StringVar(&c.reportFile, "report", "", "write the test results to this YAML file")
}

func (c *commandParams) addBDDFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&c.features, "features", nil, "feature files or directories to run (default: the built-in features)")
	fs.StringVar(&c.format, "format", c.format, "godog output format")
	fs.StringVar(&c.tags, "tags", "", `tag expression selecting scenarios, for instance "~@divergent"`)
}

// load reads the configuration for cmd. Values come from, in order of precedence, the command
// line, TODOAPI_* environment variables, and the config file.
func (c *commandParams) load(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.Flags()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, c.configFile); err != nil {
		return err
	}

	c.serviceURL = v.GetString("url")
	if c.serviceURL == "" {
		return errors.New("service URL must not be empty")
	}
	if err := c.mode.Set(v.GetString("expect")); err != nil {
		return err
	}
	c.settleDelay = v.GetDuration("settle-delay")
	c.statusTimeout = v.GetDuration("status-timeout")
	c.debug = v.GetBool("debug")
	c.debugAll = v.GetBool("debug-all")
	c.noColor = v.GetBool("no-color")
	c.reportFile = v.GetString("report")

	for name, list := range map[string]*framework.RegexList{"run": &c.filters.MustMatch, "skip": &c.filters.MustNotMatch} {
		if flags.Changed(name) {
			continue
		}
		for _, pattern := range v.GetStringSlice(name) {
			if err := list.Set(pattern); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	if flags.Lookup("features") != nil {
		c.features = v.GetStringSlice("features")
		c.format = v.GetString("format")
		c.tags = v.GetString("tags")
	}

	setColorEnabled(!c.noColor)
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName(defaultConfigName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (c *commandParams) suiteOptions() apitests.SuiteOptions {
	return apitests.SuiteOptions{Mode: c.mode, SettleDelay: c.settleDelay}
}

// rerunCommand builds a command line that runs only the failed tests again.
func (c *commandParams) rerunCommand(results framework.Results) string {
	var b commandBuilder
	b.add(programName, "--url", c.serviceURL, "--expect", c.mode.String())
	seen := make(map[string]bool)
	for _, f := range results.Failures {
		pattern := exactPathPattern(f.TestID)
		if !seen[pattern] {
			seen[pattern] = true
			b.add("--run", pattern)
		}
	}
	return b.String()
}

// exactPathPattern is a --run pattern selecting exactly the test with the given ID.
func exactPathPattern(id framework.TestID) string {
	levels := make([]string, 0, len(id.Path))
	for _, name := range id.Path {
		levels = append(levels, "^"+regexp.QuoteMeta(name)+"$")
	}
	return strings.Join(levels, "/")
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
