package fixtures

import (
	"github.com/todo-manager/api-contract-tests/servicedef"
)

// Registry records what a scenario created, so that teardown can remove it. IDs are kept in the
// order they were added, without duplicates.
type Registry struct {
	ids   map[servicedef.Kind][]string
	links []servicedef.Link
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[servicedef.Kind][]string)}
}

// Add records an entity. Adding it again does nothing.
func (r *Registry) Add(kind servicedef.Kind, id string) {
	if id == "" || r.Has(kind, id) {
		return
	}
	if r.ids == nil {
		r.ids = make(map[servicedef.Kind][]string)
	}
	r.ids[kind] = append(r.ids[kind], id)
}

// AddLink records a relationship. Adding it again does nothing.
func (r *Registry) AddLink(link servicedef.Link) {
	for _, l := range r.links {
		if l == link {
			return
		}
	}
	r.links = append(r.links, link)
}

func (r *Registry) Has(kind servicedef.Kind, id string) bool {
	if r == nil {
		return false
	}
	for _, existing := range r.ids[kind] {
		if existing == id {
			return true
		}
	}
	return false
}

// IDs returns the recorded IDs of a kind.
func (r *Registry) IDs(kind servicedef.Kind) []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.ids[kind]...)
}

// Links returns the recorded relationships.
func (r *Registry) Links() []servicedef.Link {
	if r == nil {
		return nil
	}
	return append([]servicedef.Link(nil), r.links...)
}

// Len is the total number of recorded entities and relationships.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	n := len(r.links)
	for _, ids := range r.ids {
		n += len(ids)
	}
	return n
}

// Merge records everything that other recorded.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for _, kind := range servicedef.AllKinds {
		for _, id := range other.ids[kind] {
			r.Add(kind, id)
		}
	}
	for _, link := range other.links {
		r.AddLink(link)
	}
}
