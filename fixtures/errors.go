package fixtures

import (
	"errors"
	"fmt"
	"strings"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"
)

var (
	// ErrMappingConflict means a logical ID was mapped a second time, to a different server ID.
	ErrMappingConflict = errors.New("logical ID is already mapped to a different server ID")

	// ErrUnexpectedStatus means the service answered with a status the operation cannot use.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedResponse means a response body could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrMissingID means a successful creation response did not include an "id".
	ErrMissingID = errors.New("response has no id")

	// ErrPhaseOrder means a scenario was asked to move to a phase it has already passed.
	ErrPhaseOrder = errors.New("scenario phase can only move forward")
)

// FixtureError describes a failure of one fixture operation on one entity. Only the fields that
// apply are set.
type FixtureError struct {
	Op     string
	Kind   servicedef.Kind
	Ref    string
	ID     string
	Status int
	Err    error
}

func (e *FixtureError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Kind != "" {
		b.WriteString(" " + e.Kind.Singular())
	}
	if e.Ref != "" {
		fmt.Fprintf(&b, " %q", e.Ref)
	}
	if e.ID != "" {
		b.WriteString(" id " + e.ID)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

// classify turns an error from the HTTP facade into a FixtureError carrying the matching
// sentinel.
func classify(op string, kind servicedef.Kind, ref, id string, err error) *FixtureError {
	fe := &FixtureError{Op: op, Kind: kind, Ref: ref, ID: id}
	var se *apiclient.StatusError
	switch {
	case errors.As(err, &se):
		fe.Status = se.Response.StatusCode
		fe.Err = fmt.Errorf("%w: %s", ErrUnexpectedStatus, se.Response)
	case errors.Is(err, apiclient.ErrMalformedJSON):
		fe.Err = fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	default:
		fe.Err = err
	}
	return fe
}

func statusError(op string, kind servicedef.Kind, id string, resp *apiclient.Response) *FixtureError {
	return &FixtureError{
		Op:     op,
		Kind:   kind,
		ID:     id,
		Status: resp.StatusCode,
		Err:    fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp),
	}
}
