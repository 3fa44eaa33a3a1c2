package servicedef

import (
	"fmt"
	"strings"
)

// Kind is one of the resource collections exposed by the todo manager service.
type Kind string

const (
	Todos      Kind = "todos"
	Categories Kind = "categories"
	Projects   Kind = "projects"
)

// AllKinds is in teardown order: todos, then projects, then categories.
var AllKinds = []Kind{Todos, Projects, Categories}

const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDoneStatus  = "doneStatus"
	FieldCompleted   = "completed"
	FieldActive      = "active"
)

// BoolField is a boolean attribute of an entity. The service reports these as the strings
// "true" and "false", but only accepts real JSON booleans on input.
type BoolField struct {
	Name    string
	Default bool
}

var boolFields = map[Kind][]BoolField{
	Todos:      {{Name: FieldDoneStatus, Default: false}},
	Projects:   {{Name: FieldCompleted, Default: false}, {Name: FieldActive, Default: true}},
	Categories: nil,
}

// ParseKind accepts either the collection name ("todos") or the singular form ("todo").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todos", "todo":
		return Todos, nil
	case "categories", "category":
		return Categories, nil
	case "projects", "project":
		return Projects, nil
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// IsKindSegment reports whether a URL path segment names one of the collections.
func IsKindSegment(segment string) bool {
	switch Kind(segment) {
	case Todos, Categories, Projects:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Path is the collection endpoint, e.g. "/todos".
func (k Kind) Path() string { return "/" + string(k) }

// EntityPath is the endpoint of a single entity, e.g. "/todos/3".
func (k Kind) EntityPath(id string) string { return k.Path() + "/" + id }

// EnvelopeKey is the field that wraps lists of this kind in the service's JSON responses.
func (k Kind) EnvelopeKey() string { return string(k) }

func (k Kind) Singular() string {
	switch k {
	case Categories:
		return "category"
	case Projects:
		return "project"
	}
	return "todo"
}

// BoolFields returns the boolean attributes of this kind.
func (k Kind) BoolFields() []BoolField {
	return boolFields[k]
}

// IsBoolField reports whether name is one of this kind's boolean attributes.
func (k Kind) IsBoolField(name string) bool {
	for _, f := range boolFields[k] {
		if f.Name == name {
			return true
		}
	}
	return false
}
