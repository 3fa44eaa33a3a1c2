package fixtures

import (
	"errors"
	"net/http"
	"sort"

	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"
)

// TeardownReport counts the outcomes of a teardown.
type TeardownReport struct {
	Deleted     int
	AlreadyGone int
	Failed      int
}

// Teardown deletes everything in the registry: relationships first, then todos, projects and
// categories. Every deletion is attempted even if earlier ones fail. 200 and 204 count as
// deleted and 404 as already gone; anything else is a failure, and all failures are returned
// together.
func Teardown(svc Service, registry *Registry, logger framework.Logger) (TeardownReport, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	var report TeardownReport
	var errs []error

	attempt := func(kind servicedef.Kind, id, path, what string) {
		resp, err := svc.Delete(path)
		switch {
		case err != nil:
			fe := &FixtureError{Op: "teardown", Kind: kind, ID: id, Err: err}
			logger.Printf("Warning: could not delete %s: %s", what, fe)
			errs = append(errs, fe)
			report.Failed++
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
			logger.Printf("Deleted %s", what)
			report.Deleted++
		case resp.StatusCode == http.StatusNotFound:
			logger.Printf("%s was already gone", what)
			report.AlreadyGone++
		default:
			fe := statusError("teardown", kind, id, resp)
			logger.Printf("Warning: could not delete %s: %s", what, fe)
			errs = append(errs, fe)
			report.Failed++
		}
	}

	links := registry.Links()
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Relation.Rank() < links[j].Relation.Rank()
	})
	for _, link := range links {
		attempt(link.Relation.Owner, link.OwnerID, link.Path(), "relationship "+link.String())
	}
	for _, kind := range servicedef.AllKinds {
		for _, id := range registry.IDs(kind) {
			attempt(kind, id, kind.EntityPath(id), kind.Singular()+" "+id)
		}
	}
	return report, errors.Join(errs...)
}
