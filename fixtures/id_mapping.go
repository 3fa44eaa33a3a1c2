package fixtures

import (
	"fmt"
	"strings"

	"github.com/todo-manager/api-contract-tests/servicedef"
)

// IDMapping translates the logical IDs used in test data ("1", "2", ...) into the IDs that the
// service actually assigned. A logical ID maps to at most one server ID for the life of a
// scenario.
//
// An ID that was never mapped resolves to itself. This is what lets a test refer to an ID that
// must not exist, such as 999999.
type IDMapping struct {
	ids   map[string]string
	order []string
}

func NewIDMapping() *IDMapping {
	return &IDMapping{ids: make(map[string]string)}
}

// Map records that ref refers to the server ID id. Mapping a ref again to the same ID does
// nothing; mapping it to a different ID fails with ErrMappingConflict and keeps the first one.
func (m *IDMapping) Map(ref, id string) error {
	ref = strings.TrimSpace(ref)
	if existing, ok := m.ids[ref]; ok {
		if existing == id {
			return nil
		}
		return &FixtureError{
			Op:  "map",
			Ref: ref,
			ID:  id,
			Err: fmt.Errorf("%w (already mapped to %s)", ErrMappingConflict, existing),
		}
	}
	if m.ids == nil {
		m.ids = make(map[string]string)
	}
	m.ids[ref] = id
	m.order = append(m.order, ref)
	return nil
}

// Merge adds every mapping of other. Conflicting refs keep their current mapping; the conflicts
// are returned as one error per ref.
func (m *IDMapping) Merge(other *IDMapping) []error {
	if other == nil {
		return nil
	}
	var errs []error
	for _, ref := range other.order {
		if err := m.Map(ref, other.ids[ref]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Lookup returns the server ID mapped to ref, if any.
func (m *IDMapping) Lookup(ref string) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.ids[strings.TrimSpace(ref)]
	return id, ok
}

// Resolve returns the server ID for ref, or ref itself if it is not mapped.
func (m *IDMapping) Resolve(ref string) string {
	if id, ok := m.Lookup(ref); ok {
		return id
	}
	return ref
}

// ResolveInPath rewrites an endpoint such as "/todos/1/categories" so that the ID following the
// first collection name is resolved. Only that one segment is rewritten; later IDs in the same
// path are left as they are. A query string is kept unchanged.
func (m *IDMapping) ResolveInPath(endpoint string) string {
	path, query := endpoint, ""
	if i := strings.Index(endpoint, "?"); i >= 0 {
		path, query = endpoint[:i], endpoint[i:]
	}
	segments := strings.Split(path, "/")
	for i := 0; i+1 < len(segments); i++ {
		if servicedef.IsKindSegment(segments[i]) && segments[i+1] != "" {
			segments[i+1] = m.Resolve(segments[i+1])
			break
		}
	}
	return strings.Join(segments, "/") + query
}

// Refs returns the mapped logical IDs in the order they were mapped.
func (m *IDMapping) Refs() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

func (m *IDMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

func (m *IDMapping) String() string {
	var parts []string
	for _, ref := range m.Refs() {
		parts = append(parts, ref+"->"+m.ids[ref])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
