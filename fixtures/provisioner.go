package fixtures

import (
	"errors"

	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Provisioned is one descriptor that was satisfied, either by an entity that already existed or
// by one that was created.
type Provisioned struct {
	Descriptor servicedef.EntityDescriptor
	ID         string
}

// ProvisionResult is the outcome of provisioning one table of descriptors.
type ProvisionResult struct {
	Kind     servicedef.Kind
	Mapping  *IDMapping
	Reused   []Provisioned
	Created  []Provisioned
	Failures []*FixtureError
}

// Provisioner makes sure that entities matching a set of descriptors exist.
type Provisioner struct {
	Service Service
	Logger  framework.Logger
}

// Provision ensures that an entity exists for each descriptor. An existing entity with the same
// title, description and boolean fields is reused; otherwise one is created. The mapping in the
// result covers only the descriptors that succeeded.
//
// If the existing entities cannot be listed, that is logged and every descriptor is created.
// Each descriptor that could not be satisfied is reported in Failures, and all of them together
// are also returned as the error.
func (p *Provisioner) Provision(kind servicedef.Kind, descriptors []servicedef.EntityDescriptor) (ProvisionResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	result := ProvisionResult{Kind: kind, Mapping: NewIDMapping()}

	existing, err := p.Service.List(kind)
	if err != nil {
		logger.Printf("Warning: could not list existing %s, will create all of them: %s", kind, err)
		existing = nil
	}

	for _, d := range descriptors {
		if match, ok := findMatch(kind, d, existing); ok {
			id := servicedef.EntityID(match)
			if err := result.Mapping.Map(d.Ref, id); err != nil {
				result.Failures = append(result.Failures, asFixtureError(err, kind, d.Ref))
				continue
			}
			logger.Printf("Reusing existing %s %s for %q", kind.Singular(), id, d.Ref)
			result.Reused = append(result.Reused, Provisioned{Descriptor: d, ID: id})
			continue
		}

		created, err := p.Service.Create(kind, d.Body(kind))
		if err != nil {
			fe := classify("provision", kind, d.Ref, "", err)
			logger.Printf("Warning: could not create %s %q: %s", kind.Singular(), d.Ref, fe)
			result.Failures = append(result.Failures, fe)
			continue
		}
		id := servicedef.EntityID(created)
		if id == "" {
			fe := &FixtureError{Op: "provision", Kind: kind, Ref: d.Ref, Err: ErrMissingID}
			logger.Printf("Warning: %s", fe)
			result.Failures = append(result.Failures, fe)
			continue
		}
		result.Created = append(result.Created, Provisioned{Descriptor: d, ID: id})
		if d.Ref == "" {
			logger.Printf("Created %s %s", kind.Singular(), id)
			continue
		}
		if err := result.Mapping.Map(d.Ref, id); err != nil {
			result.Failures = append(result.Failures, asFixtureError(err, kind, d.Ref))
			continue
		}
		logger.Printf("Created %s %s for %q", kind.Singular(), id, d.Ref)
	}

	errs := make([]error, 0, len(result.Failures))
	for _, f := range result.Failures {
		errs = append(errs, f)
	}
	return result, errors.Join(errs...)
}

func findMatch(kind servicedef.Kind, d servicedef.EntityDescriptor, existing []ldvalue.Value) (ldvalue.Value, bool) {
	for _, e := range existing {
		if d.Matches(kind, e) {
			return e, true
		}
	}
	return ldvalue.Null(), false
}

func asFixtureError(err error, kind servicedef.Kind, ref string) *FixtureError {
	var fe *FixtureError
	if errors.As(err, &fe) {
		fe.Op = "provision"
		fe.Kind = kind
		return fe
	}
	return &FixtureError{Op: "provision", Kind: kind, Ref: ref, Err: err}
}
