package fixtures

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/todo-manager/api-contract-tests/framework"
)

// Phase is a step in the life of a scenario. Phases only move forward.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseSnapshotTaken
	PhaseScenarioRunning
	PhaseTeardownDeleting
	PhaseRestoreAttempted
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseSnapshotTaken:
		return "SNAPSHOT_TAKEN"
	case PhaseScenarioRunning:
		return "SCENARIO_RUNNING"
	case PhaseTeardownDeleting:
		return "TEARDOWN_DELETING"
	case PhaseRestoreAttempted:
		return "RESTORE_ATTEMPTED"
	case PhaseDone:
		return "DONE"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ScenarioState is everything the reconciler knows about one running scenario.
type ScenarioState struct {
	ID       uuid.UUID
	Name     string
	Started  time.Time
	Mapping  *IDMapping
	Created  *Registry
	Reused   *Registry
	Snapshot Snapshot
	Logger   framework.Logger

	phase Phase
}

// NewScenarioState creates the state of a scenario that has not started yet.
func NewScenarioState(name string, logger framework.Logger) *ScenarioState {
	if logger == nil {
		logger = framework.NullLogger()
	}
	id := uuid.New()
	return &ScenarioState{
		ID:      id,
		Name:    name,
		Started: time.Now(),
		Mapping: NewIDMapping(),
		Created: NewRegistry(),
		Reused:  NewRegistry(),
		Logger:  framework.WithPrefix(logger, "["+id.String()[:8]+"] "),
	}
}

func (s *ScenarioState) Phase() Phase {
	return s.phase
}

// Advance moves the scenario to a later phase.
func (s *ScenarioState) Advance(to Phase) error {
	if to <= s.phase {
		return fmt.Errorf("%w: %s to %s", ErrPhaseOrder, s.phase, to)
	}
	s.Logger.Printf("Scenario %q: %s -> %s", s.Name, s.phase, to)
	s.phase = to
	return nil
}

// Resolve translates a logical ID; see IDMapping.Resolve.
func (s *ScenarioState) Resolve(ref string) string {
	return s.Mapping.Resolve(ref)
}

// ResolveInPath translates the ID in an endpoint; see IDMapping.ResolveInPath.
func (s *ScenarioState) ResolveInPath(endpoint string) string {
	return s.Mapping.ResolveInPath(endpoint)
}
