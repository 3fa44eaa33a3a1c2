package fixtures

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Snapshot is the set of entities that existed at one point in time, keyed by kind and server
// ID. Relationships are not captured.
type Snapshot struct {
	Taken    time.Time
	Entities map[servicedef.Kind]map[string]ldvalue.Value
}

// TakeSnapshot lists every kind. A kind that cannot be listed is logged and left empty; the
// returned error names every such kind, but the snapshot is still usable.
func TakeSnapshot(svc Service, logger framework.Logger) (Snapshot, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	snap := Snapshot{Taken: time.Now(), Entities: make(map[servicedef.Kind]map[string]ldvalue.Value)}
	var errs []error
	for _, kind := range servicedef.AllKinds {
		snap.Entities[kind] = make(map[string]ldvalue.Value)
		entities, err := svc.List(kind)
		if err != nil {
			fe := classify("snapshot", kind, "", "", err)
			logger.Printf("Warning: could not list %s for snapshot: %s", kind, fe)
			errs = append(errs, fe)
			continue
		}
		for _, e := range entities {
			if id := servicedef.EntityID(e); id != "" {
				snap.Entities[kind][id] = e
			}
		}
	}
	logger.Printf("Snapshot taken: %s", snap.Summary())
	return snap, errors.Join(errs...)
}

// IsZero is true for a snapshot that was never taken.
func (s Snapshot) IsZero() bool {
	return s.Entities == nil
}

func (s Snapshot) Has(kind servicedef.Kind, id string) bool {
	_, ok := s.Entities[kind][id]
	return ok
}

func (s Snapshot) Get(kind servicedef.Kind, id string) (ldvalue.Value, bool) {
	e, ok := s.Entities[kind][id]
	return e, ok
}

func (s Snapshot) Count(kind servicedef.Kind) int {
	return len(s.Entities[kind])
}

// IDs returns the IDs of a kind, numeric IDs first in numeric order.
func (s Snapshot) IDs(kind servicedef.Kind) []string {
	ret := make([]string, 0, len(s.Entities[kind]))
	for id := range s.Entities[kind] {
		ret = append(ret, id)
	}
	sortIDs(ret)
	return ret
}

// Summary describes the snapshot for log output, e.g. "2 todos, 1 projects, 2 categories".
func (s Snapshot) Summary() string {
	var out string
	for i, kind := range servicedef.AllKinds {
		if i > 0 {
			out += ", "
		}
		out += strconv.Itoa(s.Count(kind)) + " " + string(kind)
	}
	return out
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}
