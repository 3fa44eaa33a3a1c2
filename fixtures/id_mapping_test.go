package fixtures

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMapAndResolve(t *testing.T) {
	m := NewIDMapping()
	require.NoError(t, m.Map(" 1 ", "17"))
	require.NoError(t, m.Map("1", "17"))

	assert.Equal(t, "17", m.Resolve("1"))
	assert.Equal(t, "999999", m.Resolve("999999"))
	assert.Equal(t, []string{"1"}, m.Refs())
	assert.Equal(t, 1, m.Len())
}

func TestMapConflictKeepsFirstMapping(t *testing.T) {
	m := NewIDMapping()
	require.NoError(t, m.Map("1", "17"))
	err := m.Map("1", "18")
	require.ErrorIs(t, err, ErrMappingConflict)
	var fe *FixtureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "1", fe.Ref)
	assert.Equal(t, "17", m.Resolve("1"))
}

func TestNilMappingResolvesToItself(t *testing.T) {
	var m *IDMapping
	assert.Equal(t, "3", m.Resolve("3"))
	assert.Equal(t, "/todos/3", m.ResolveInPath("/todos/3"))
	assert.Equal(t, 0, m.Len())
}

func TestResolveInPath(t *testing.T) {
	m := NewIDMapping()
	require.NoError(t, m.Map("1", "17"))
	require.NoError(t, m.Map("2", "18"))

	for _, p := range []struct{ in, out string }{
		{"/todos/1", "/todos/17"},
		{"/todos/1/categories", "/todos/17/categories"},
		{"/todos/1/categories/2", "/todos/17/categories/2"},
		{"/categories/999999", "/categories/999999"},
		{"/todos", "/todos"},
		{"/todos/", "/todos/"},
		{"/todos?doneStatus=false", "/todos?doneStatus=false"},
		{"/projects/2?id=1", "/projects/18?id=1"},
		{"/other/1", "/other/1"},
		{"todos/1", "todos/17"},
	} {
		assert.Equal(t, p.out, m.ResolveInPath(p.in), p.in)
	}
}

func TestMerge(t *testing.T) {
	m := NewIDMapping()
	require.NoError(t, m.Map("1", "17"))
	other := NewIDMapping()
	require.NoError(t, other.Map("1", "20"))
	require.NoError(t, other.Map("2", "21"))

	errs := m.Merge(other)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMappingConflict)
	assert.Equal(t, "17", m.Resolve("1"))
	assert.Equal(t, "21", m.Resolve("2"))
	assert.Equal(t, "{1->17, 2->21}", m.String())
}

func TestResolveIsIdempotentForDistinctIDSpaces(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		refs := rapid.SliceOfNDistinct(rapid.StringMatching(`[1-9][0-9]{0,2}`), 0, 20, func(s string) string { return s }).Draw(t, "refs")
		m := NewIDMapping()
		for i, ref := range refs {
			// server IDs are drawn from a range that never collides with a ref
			if err := m.Map(ref, "s"+strings.Repeat("0", i%3)+ref); err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
		}
		probe := rapid.StringMatching(`[1-9][0-9]{0,3}`).Draw(t, "probe")
		once := m.Resolve(probe)
		if m.Resolve(once) != once {
			t.Fatalf("Resolve(%q) = %q but Resolve(%q) = %q", probe, once, once, m.Resolve(once))
		}
		if _, mapped := m.Lookup(probe); !mapped && once != probe {
			t.Fatalf("unmapped %q resolved to %q", probe, once)
		}
	})
}

func TestResolveInPathRewritesOnlyFirstID(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SampledFrom([]string{"todos", "projects", "categories"})
		first := rapid.StringMatching(`[1-9][0-9]{0,2}`).Draw(t, "first")
		second := rapid.StringMatching(`[1-9][0-9]{0,2}`).Draw(t, "second")
		m := NewIDMapping()
		_ = m.Map(first, "x"+first)
		_ = m.Map(second, "x"+second)

		path := "/" + kinds.Draw(t, "owner") + "/" + first + "/" + kinds.Draw(t, "relation") + "/" + second
		got := m.ResolveInPath(path)
		segments := strings.Split(got, "/")
		if segments[2] != "x"+first {
			t.Fatalf("first ID not resolved in %q", got)
		}
		if segments[4] != second {
			t.Fatalf("second ID was rewritten in %q", got)
		}
	})
}
