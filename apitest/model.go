package apitest

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/todo-manager/api-contract-tests/servicedef"
)

// entity is one stored instance. Every attribute is kept as a string, the way the real service
// reports them.
type entity struct {
	id     int
	fields map[string]string
}

type linkKey struct {
	rel    servicedef.Relation
	owner  string
	target string
}

// fieldSpec describes one writable attribute of a kind.
type fieldSpec struct {
	name      string
	boolean   bool
	mandatory bool
	def       string
}

var schemas = map[servicedef.Kind][]fieldSpec{
	servicedef.Todos: {
		{name: servicedef.FieldTitle, mandatory: true},
		{name: servicedef.FieldDoneStatus, boolean: true, def: "false"},
		{name: servicedef.FieldDescription},
	},
	servicedef.Projects: {
		{name: servicedef.FieldTitle},
		{name: servicedef.FieldCompleted, boolean: true, def: "false"},
		{name: servicedef.FieldActive, boolean: true, def: "true"},
		{name: servicedef.FieldDescription},
	},
	servicedef.Categories: {
		{name: servicedef.FieldTitle, mandatory: true},
		{name: servicedef.FieldDescription},
	},
}

func findField(kind servicedef.Kind, name string) (fieldSpec, bool) {
	for _, f := range schemas[kind] {
		if f.name == name {
			return f, true
		}
	}
	return fieldSpec{}, false
}

// store is the state of the stand-in service. It is not safe for concurrent use; API guards it
// with a lock.
type store struct {
	entities map[servicedef.Kind]map[string]*entity
	nextID   map[servicedef.Kind]int
	links    map[linkKey]struct{}
}

func newStore() *store {
	s := &store{
		entities: make(map[servicedef.Kind]map[string]*entity),
		nextID:   make(map[servicedef.Kind]int),
		links:    make(map[linkKey]struct{}),
	}
	for _, k := range servicedef.AllKinds {
		s.entities[k] = make(map[string]*entity)
		s.nextID[k] = 1
	}
	return s
}

// newSeededStore contains the data the real service starts with.
func newSeededStore() *store {
	s := newStore()
	s.add(servicedef.Todos, 0, map[string]string{servicedef.FieldTitle: "scan paperwork"})
	s.add(servicedef.Todos, 0, map[string]string{servicedef.FieldTitle: "file paperwork"})
	s.add(servicedef.Projects, 0, map[string]string{servicedef.FieldTitle: "Office Work"})
	s.add(servicedef.Categories, 0, map[string]string{servicedef.FieldTitle: "Office"})
	s.add(servicedef.Categories, 0, map[string]string{servicedef.FieldTitle: "Home"})
	s.link(servicedef.ProjectTasks, "1", "1")
	s.link(servicedef.ProjectTasks, "1", "2")
	return s
}

// add stores a new entity. If id is zero the next free ID of the kind is used; otherwise the
// counter is moved past id.
func (s *store) add(kind servicedef.Kind, id int, values map[string]string) *entity {
	if id == 0 {
		id = s.nextID[kind]
	}
	if id >= s.nextID[kind] {
		s.nextID[kind] = id + 1
	}
	e := &entity{id: id, fields: make(map[string]string)}
	for _, f := range schemas[kind] {
		e.fields[f.name] = f.def
	}
	for k, v := range values {
		e.fields[k] = v
	}
	s.entities[kind][strconv.Itoa(id)] = e
	return e
}

func (s *store) get(kind servicedef.Kind, id string) *entity {
	return s.entities[kind][id]
}

func (s *store) remove(kind servicedef.Kind, id string) bool {
	if _, ok := s.entities[kind][id]; !ok {
		return false
	}
	delete(s.entities[kind], id)
	for key := range s.links {
		if (key.rel.Owner == kind && key.owner == id) || (key.rel.Target == kind && key.target == id) {
			delete(s.links, key)
		}
	}
	return true
}

// list returns entities in ID order.
func (s *store) list(kind servicedef.Kind) []*entity {
	ret := make([]*entity, 0, len(s.entities[kind]))
	for _, e := range s.entities[kind] {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].id < ret[j].id })
	return ret
}

// mirror is the relation that the service keeps in step with rel, if any: a todo is a task of a
// project exactly when the project has it as a task.
func mirror(rel servicedef.Relation) (servicedef.Relation, bool) {
	switch rel {
	case servicedef.ProjectTasks:
		return servicedef.TodoTasksOf, true
	case servicedef.TodoTasksOf:
		return servicedef.ProjectTasks, true
	}
	return servicedef.Relation{}, false
}

func (s *store) link(rel servicedef.Relation, owner, target string) {
	s.links[linkKey{rel: rel, owner: owner, target: target}] = struct{}{}
	if m, ok := mirror(rel); ok {
		s.links[linkKey{rel: m, owner: target, target: owner}] = struct{}{}
	}
}

func (s *store) unlink(rel servicedef.Relation, owner, target string) bool {
	key := linkKey{rel: rel, owner: owner, target: target}
	if _, ok := s.links[key]; !ok {
		return false
	}
	delete(s.links, key)
	if m, ok := mirror(rel); ok {
		delete(s.links, linkKey{rel: m, owner: target, target: owner})
	}
	return true
}

// related returns the IDs linked from owner through rel, in ID order.
func (s *store) related(rel servicedef.Relation, owner string) []string {
	var ret []string
	for key := range s.links {
		if key.rel == rel && key.owner == owner {
			ret = append(ret, key.target)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		a, _ := strconv.Atoi(ret[i])
		b, _ := strconv.Atoi(ret[j])
		return a < b
	})
	return ret
}

func (e *entity) idString() string { return strconv.Itoa(e.id) }

func notFoundMessage(kind servicedef.Kind, id string) string {
	return fmt.Sprintf("Could not find an instance with %s/%s", kind, id)
}
