package apitests

import (
	"fmt"
	"strings"
)

// ExpectMode selects which of two divergent behaviors the suite asserts.
type ExpectMode string

const (
	// ExpectActual asserts what the service really does, and logs each divergence from the
	// documentation as an issue.
	ExpectActual ExpectMode = "actual"
	// ExpectDocumented asserts what the documentation says, so divergences fail.
	ExpectDocumented ExpectMode = "documented"
)

func ParseExpectMode(s string) (ExpectMode, error) {
	switch ExpectMode(strings.ToLower(strings.TrimSpace(s))) {
	case ExpectActual:
		return ExpectActual, nil
	case ExpectDocumented:
		return ExpectDocumented, nil
	}
	return "", fmt.Errorf("expectation mode must be %q or %q, not %q", ExpectActual, ExpectDocumented, s)
}

func (m ExpectMode) String() string { return string(m) }

// Set and Type let an ExpectMode be used as a command-line flag.
func (m *ExpectMode) Set(s string) error {
	parsed, err := ParseExpectMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m *ExpectMode) Type() string { return "mode" }

// Expectation is the status code a request should produce, as documented and as observed.
type Expectation struct {
	Documented int
	Actual     int
}

// Status is an expectation where the service does what its documentation says.
func Status(code int) Expectation {
	return Expectation{Documented: code, Actual: code}
}

// Diverges is an expectation where the service is known to answer differently from its
// documentation.
func Diverges(documented, actual int) Expectation {
	return Expectation{Documented: documented, Actual: actual}
}

func (e Expectation) Divergent() bool {
	return e.Documented != e.Actual
}

// Want is the status code asserted in the given mode.
func (e Expectation) Want(mode ExpectMode) int {
	if mode == ExpectDocumented {
		return e.Documented
	}
	return e.Actual
}

func (e Expectation) String() string {
	if e.Divergent() {
		return fmt.Sprintf("%d (documented) / %d (actual)", e.Documented, e.Actual)
	}
	return fmt.Sprintf("%d", e.Actual)
}
