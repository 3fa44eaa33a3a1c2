package servicedef

import "fmt"

// Relation is a named relationship from entities of one kind to entities of another, exposed
// by the service as /{owner}/{id}/{name}.
type Relation struct {
	Owner  Kind
	Name   string
	Target Kind
}

var (
	CategoryTodos     = Relation{Owner: Categories, Name: "todos", Target: Todos}
	CategoryProjects  = Relation{Owner: Categories, Name: "projects", Target: Projects}
	ProjectTasks      = Relation{Owner: Projects, Name: "tasks", Target: Todos}
	TodoTasksOf       = Relation{Owner: Todos, Name: "tasksof", Target: Projects}
	TodoCategories    = Relation{Owner: Todos, Name: "categories", Target: Categories}
	ProjectCategories = Relation{Owner: Projects, Name: "categories", Target: Categories}
)

// AllRelations is in teardown order.
var AllRelations = []Relation{
	CategoryTodos,
	CategoryProjects,
	ProjectTasks,
	TodoTasksOf,
	TodoCategories,
	ProjectCategories,
}

// FindRelation looks up the relation exposed under /{owner}/{id}/{name}.
func FindRelation(owner Kind, name string) (Relation, bool) {
	for _, r := range AllRelations {
		if r.Owner == owner && r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

func (r Relation) String() string {
	return string(r.Owner) + "/" + r.Name
}

// CollectionPath is the endpoint listing or creating related entities, e.g. "/categories/1/todos".
func (r Relation) CollectionPath(ownerID string) string {
	return r.Owner.EntityPath(ownerID) + "/" + r.Name
}

// Rank is the relation's position in teardown order; unknown relations sort last.
func (r Relation) Rank() int {
	for i, known := range AllRelations {
		if known == r {
			return i
		}
	}
	return len(AllRelations)
}

// Link is one instance of a relation between two entities.
type Link struct {
	Relation Relation
	OwnerID  string
	TargetID string
}

// Path is the endpoint of this specific relationship, e.g. "/categories/1/todos/2".
func (l Link) Path() string {
	return l.Relation.CollectionPath(l.OwnerID) + "/" + l.TargetID
}

func (l Link) String() string {
	return fmt.Sprintf("%s %s -> %s %s", l.Relation.Owner.Singular(), l.OwnerID, l.Relation.Name, l.TargetID)
}
