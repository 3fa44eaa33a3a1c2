// Package apitest provides an in-memory stand-in for the todo manager service, so that the
// conformance suites and the fixture reconciler can be tested without a running server.
//
// It reproduces the observed behavior of the real service rather than its documentation,
// including the known quirks: listing the relationships of a category that does not exist
// succeeds, creating a project with an empty body succeeds, and POST to a specific relationship
// instance is answered with 404.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/todo-manager/api-contract-tests/servicedef"
)

// Options configures the stand-in.
type Options struct {
	// AllowCreateWithID makes POST /{kind}/{id} create the entity when it does not exist,
	// instead of answering 404.
	AllowCreateWithID bool
	// OmitLocation stops created responses from carrying a Location header, so clients must
	// read the new ID from the body.
	OmitLocation bool
}

// API is the stand-in service.
type API struct {
	opts     Options
	store    *store
	faults   *faultRegistry
	requests *requestLog
	router   chi.Router
	lock     sync.Mutex
}

// NewAPI creates a stand-in holding the service's initial data.
func NewAPI(opts Options) *API {
	a := &API{
		opts:     opts,
		store:    newSeededStore(),
		faults:   newFaultRegistry(),
		requests: newRequestLog(),
	}
	a.router = a.routes()
	return a
}

// NewServer starts an HTTP server for a new stand-in. The caller must close the server.
func NewServer(opts Options) (*httptest.Server, *API) {
	a := NewAPI(opts)
	return httptest.NewServer(a), a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Reset puts back the initial data. Faults and the request log are kept.
func (a *API) Reset() {
	a.lock.Lock()
	a.store = newSeededStore()
	a.lock.Unlock()
}

// Clear removes every entity.
func (a *API) Clear() {
	a.lock.Lock()
	a.store = newStore()
	a.lock.Unlock()
}

// SetFault makes every request with this method and exact path fail with the given status.
func (a *API) SetFault(method, path string, status int) {
	a.faults.set(method, path, status)
}

// ClearFaults removes all faults.
func (a *API) ClearFaults() {
	a.faults.reset()
}

// Requests returns every request received so far.
func (a *API) Requests() []RecordedRequest {
	return a.requests.all()
}

// Count returns the number of entities of a kind.
func (a *API) Count(kind servicedef.Kind) int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return len(a.store.entities[kind])
}

// Titles returns the titles of every entity of a kind, in ID order.
func (a *API) Titles(kind servicedef.Kind) []string {
	a.lock.Lock()
	defer a.lock.Unlock()
	var ret []string
	for _, e := range a.store.list(kind) {
		ret = append(ret, e.fields[servicedef.FieldTitle])
	}
	return ret
}

// Linked reports whether a relationship exists.
func (a *API) Linked(link servicedef.Link) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	_, ok := a.store.links[linkKey{rel: link.Relation, owner: link.OwnerID, target: link.TargetID}]
	return ok
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(a.requests.middleware)
	r.Use(a.faults.middleware)
	r.Use(chimw.GetHead)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeErrors(w, req, http.StatusNotFound, "Could not find endpoint "+req.URL.Path)
	})

	r.Route("/{kind}", func(r chi.Router) {
		r.Use(a.kindMiddleware)
		r.Get("/", a.handleList)
		r.Post("/", a.handleCreate)
		r.Put("/", methodNotAllowed)
		r.Delete("/", methodNotAllowed)

		r.Get("/{id}", a.handleGet)
		r.Post("/{id}", a.handleAmend)
		r.Put("/{id}", a.handleReplace)
		r.Delete("/{id}", a.handleDelete)

		r.Get("/{id}/{relation}", a.handleListRelated)
		r.Post("/{id}/{relation}", a.handleLink)
		r.Put("/{id}/{relation}", methodNotAllowed)
		r.Delete("/{id}/{relation}", methodNotAllowed)

		r.Delete("/{id}/{relation}/{target}", a.handleUnlink)
		r.Post("/{id}/{relation}/{target}", func(w http.ResponseWriter, req *http.Request) {
			writeErrors(w, req, http.StatusNotFound, "Could not find endpoint "+req.URL.Path)
		})
	})
	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func (a *API) kindMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seg := chi.URLParam(r, "kind")
		if !servicedef.IsKindSegment(seg) {
			writeErrors(w, r, http.StatusNotFound, "Could not find endpoint "+r.URL.Path)
			return
		}
		a.lock.Lock()
		defer a.lock.Unlock()
		next.ServeHTTP(w, r)
	})
}

func kindOf(r *http.Request) servicedef.Kind {
	return servicedef.Kind(chi.URLParam(r, "kind"))
}

func (a *API) render(kind servicedef.Kind, e *entity) object {
	o := object{{key: servicedef.FieldID, value: e.idString()}}
	for _, f := range schemas[kind] {
		o = append(o, member{key: f.name, value: e.fields[f.name]})
	}
	for _, rel := range servicedef.AllRelations {
		if rel.Owner != kind {
			continue
		}
		ids := a.store.related(rel, e.idString())
		if len(ids) == 0 {
			continue
		}
		refs := make([]object, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, object{{key: servicedef.FieldID, value: id}})
		}
		o = append(o, member{key: rel.Name, value: refs})
	}
	return o
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	kind := kindOf(r)
	query := r.URL.Query()
	var ret []object
	for _, e := range a.store.list(kind) {
		if matchesQuery(kind, e, query) {
			ret = append(ret, a.render(kind, e))
		}
	}
	writeList(w, r, kind, ret)
}

func matchesQuery(kind servicedef.Kind, e *entity, query map[string][]string) bool {
	for key, values := range query {
		var actual string
		if key == servicedef.FieldID {
			actual = e.idString()
		} else if _, ok := findField(kind, key); ok {
			actual = e.fields[key]
		} else {
			continue
		}
		for _, v := range values {
			if actual != v {
				return false
			}
		}
	}
	return true
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind := kindOf(r)
	p, err := readPayload(r)
	if err != nil {
		writeErrors(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e, status, problems := a.create(kind, p)
	if len(problems) != 0 {
		writeErrors(w, r, status, problems...)
		return
	}
	if !a.opts.OmitLocation {
		w.Header().Set("Location", kind.EntityPath(e.idString()))
	}
	writeEntity(w, r, http.StatusCreated, kind, a.render(kind, e))
}

func (a *API) create(kind servicedef.Kind, p payload) (*entity, int, []string) {
	if p.has(servicedef.FieldID) {
		return nil, http.StatusBadRequest, []string{"Invalid Creation: Failed Validation: Not allowed to create with id"}
	}
	values, problems := attributes(kind, p, true)
	if len(problems) != 0 {
		return nil, http.StatusBadRequest, problems
	}
	return a.store.add(kind, 0, values), 0, nil
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, id := kindOf(r), chi.URLParam(r, "id")
	e := a.store.get(kind, id)
	if e == nil {
		writeErrors(w, r, http.StatusNotFound, notFoundMessage(kind, id))
		return
	}
	writeList(w, r, kind, []object{a.render(kind, e)})
}

func (a *API) handleAmend(w http.ResponseWriter, r *http.Request) {
	kind, id := kindOf(r), chi.URLParam(r, "id")
	p, err := readPayload(r)
	if err != nil {
		writeErrors(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e := a.store.get(kind, id)
	if e == nil {
		n, convErr := strconv.Atoi(id)
		if !a.opts.AllowCreateWithID || convErr != nil || n <= 0 {
			writeErrors(w, r, http.StatusNotFound,
				fmt.Sprintf("No such %s entity instance with GUID or ID %s found", kind.Singular(), id))
			return
		}
		values, problems := attributes(kind, p, true)
		if len(problems) != 0 {
			writeErrors(w, r, http.StatusBadRequest, problems...)
			return
		}
		e = a.store.add(kind, n, values)
		writeEntity(w, r, http.StatusCreated, kind, a.render(kind, e))
		return
	}
	values, problems := attributes(kind, p, false)
	if len(problems) != 0 {
		writeErrors(w, r, http.StatusBadRequest, problems...)
		return
	}
	for k, v := range values {
		e.fields[k] = v
	}
	writeEntity(w, r, http.StatusOK, kind, a.render(kind, e))
}

func (a *API) handleReplace(w http.ResponseWriter, r *http.Request) {
	kind, id := kindOf(r), chi.URLParam(r, "id")
	p, err := readPayload(r)
	if err != nil {
		writeErrors(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e := a.store.get(kind, id)
	if e == nil {
		writeErrors(w, r, http.StatusNotFound, fmt.Sprintf("Invalid GUID for %s entity %s", id, kind.Singular()))
		return
	}
	values, problems := attributes(kind, p, true)
	if len(problems) != 0 {
		writeErrors(w, r, http.StatusBadRequest, problems...)
		return
	}
	for _, f := range schemas[kind] {
		e.fields[f.name] = f.def
	}
	for k, v := range values {
		e.fields[k] = v
	}
	writeEntity(w, r, http.StatusOK, kind, a.render(kind, e))
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, id := kindOf(r), chi.URLParam(r, "id")
	if !a.store.remove(kind, id) {
		writeErrors(w, r, http.StatusNotFound, fmt.Sprintf("Could not find any instances with %s/%s", kind, id))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) relation(w http.ResponseWriter, r *http.Request) (servicedef.Relation, bool) {
	rel, ok := servicedef.FindRelation(kindOf(r), chi.URLParam(r, "relation"))
	if !ok {
		writeErrors(w, r, http.StatusNotFound, "Could not find endpoint "+r.URL.Path)
	}
	return rel, ok
}

// handleListRelated answers 200 with an empty list when the owner does not exist; that is what
// the real service does.
func (a *API) handleListRelated(w http.ResponseWriter, r *http.Request) {
	rel, ok := a.relation(w, r)
	if !ok {
		return
	}
	owner := chi.URLParam(r, "id")
	var ret []object
	if a.store.get(rel.Owner, owner) != nil {
		for _, id := range a.store.related(rel, owner) {
			if e := a.store.get(rel.Target, id); e != nil {
				ret = append(ret, a.render(rel.Target, e))
			}
		}
	}
	writeList(w, r, rel.Target, ret)
}

// handleLink links an existing entity when the body has an "id", and otherwise creates a new
// entity from the body and links that.
func (a *API) handleLink(w http.ResponseWriter, r *http.Request) {
	rel, ok := a.relation(w, r)
	if !ok {
		return
	}
	owner := chi.URLParam(r, "id")
	p, err := readPayload(r)
	if err != nil {
		writeErrors(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if a.store.get(rel.Owner, owner) == nil {
		writeErrors(w, r, http.StatusNotFound,
			fmt.Sprintf("Could not find parent thing for relationship %s/%s/%s", rel.Owner, owner, rel.Name))
		return
	}
	if targetID, ok := payloadID(p); ok {
		if a.store.get(rel.Target, targetID) == nil {
			writeErrors(w, r, http.StatusNotFound,
				fmt.Sprintf("Could not find thing matching value for id %s", targetID))
			return
		}
		a.store.link(rel, owner, targetID)
		w.WriteHeader(http.StatusCreated)
		return
	}
	e, status, problems := a.create(rel.Target, p)
	if len(problems) != 0 {
		writeErrors(w, r, status, problems...)
		return
	}
	a.store.link(rel, owner, e.idString())
	writeEntity(w, r, http.StatusCreated, rel.Target, a.render(rel.Target, e))
}

func (a *API) handleUnlink(w http.ResponseWriter, r *http.Request) {
	rel, ok := a.relation(w, r)
	if !ok {
		return
	}
	owner, target := chi.URLParam(r, "id"), chi.URLParam(r, "target")
	if !a.store.unlink(rel, owner, target) {
		writeErrors(w, r, http.StatusNotFound,
			fmt.Sprintf("Could not find any instances with %s/%s/%s/%s", rel.Owner, owner, rel.Name, target))
		return
	}
	w.WriteHeader(http.StatusOK)
}
