package fixtures

import (
	"errors"
	"time"

	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"
)

// DefaultSettleDelay is how long the restorer waits before looking at the service, so that
// deletions made just before have taken effect.
const DefaultSettleDelay = time.Millisecond * 500

// RestoreReport describes what a restore found and did.
type RestoreReport struct {
	// Recreated lists the snapshot entities that were missing and were put back.
	Recreated map[servicedef.Kind][]string
	// Leaked lists entities that exist now, were not in the snapshot, and were not created by
	// the scenario being restored.
	Leaked map[servicedef.Kind][]string
	// Skipped lists the kinds that could not be listed and so were left alone.
	Skipped []servicedef.Kind
	// Failed counts entities that could not be recreated.
	Failed int
}

// Restorer puts back entities that disappeared since a snapshot was taken.
type Restorer struct {
	Service     Service
	Logger      framework.Logger
	SettleDelay time.Duration

	sleep func(time.Duration)
}

// Restore waits for the settle delay, then recreates every snapshot entity that no longer
// exists, by posting its attributes to /{kind}/{id}. A kind whose current entities cannot be
// listed is skipped, so that nothing is ever created twice.
//
// created is the registry of the scenario being restored, if any; its entities are not reported
// as leaked.
func (r *Restorer) Restore(snapshot Snapshot, created *Registry) (RestoreReport, error) {
	logger := r.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	report := RestoreReport{
		Recreated: make(map[servicedef.Kind][]string),
		Leaked:    make(map[servicedef.Kind][]string),
	}
	if snapshot.IsZero() {
		logger.Printf("No snapshot to restore")
		return report, nil
	}

	if r.SettleDelay > 0 {
		sleep := r.sleep
		if sleep == nil {
			sleep = time.Sleep
		}
		sleep(r.SettleDelay)
	}

	var errs []error
	for _, kind := range servicedef.AllKinds {
		current, err := r.Service.List(kind)
		if err != nil {
			fe := classify("restore", kind, "", "", err)
			logger.Printf("Warning: could not list %s, not restoring them: %s", kind, fe)
			report.Skipped = append(report.Skipped, kind)
			errs = append(errs, fe)
			continue
		}
		present := make(map[string]bool, len(current))
		for _, e := range current {
			id := servicedef.EntityID(e)
			present[id] = true
			if !snapshot.Has(kind, id) && !created.Has(kind, id) {
				report.Leaked[kind] = append(report.Leaked[kind], id)
			}
		}
		for _, id := range snapshot.IDs(kind) {
			if present[id] {
				continue
			}
			entity, _ := snapshot.Get(kind, id)
			if _, err := r.Service.CreateWithID(kind, id, servicedef.RestoreBody(kind, entity)); err != nil {
				fe := classify("restore", kind, "", id, err)
				logger.Printf("Warning: could not restore %s %s: %s", kind.Singular(), id, fe)
				errs = append(errs, fe)
				report.Failed++
				continue
			}
			logger.Printf("Restored %s %s", kind.Singular(), id)
			report.Recreated[kind] = append(report.Recreated[kind], id)
		}
		if len(report.Leaked[kind]) != 0 {
			sortIDs(report.Leaked[kind])
			logger.Printf("Found %s that were not in the snapshot: %v", kind, report.Leaked[kind])
		}
	}
	return report, errors.Join(errs...)
}
