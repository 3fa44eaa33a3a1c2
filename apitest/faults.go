package apitest

import (
	"net/http"
	"sync"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type faultKey struct {
	method string
	path   string
}

// faultRegistry holds injected failures, keyed by method and exact request path.
type faultRegistry struct {
	mu     sync.RWMutex
	faults map[faultKey]int
}

func newFaultRegistry() *faultRegistry {
	return &faultRegistry{faults: make(map[faultKey]int)}
}

func (fr *faultRegistry) set(method, path string, status int) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults[faultKey{method: method, path: path}] = status
}

func (fr *faultRegistry) check(method, path string) (int, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	status, ok := fr.faults[faultKey{method: method, path: path}]
	return status, ok
}

func (fr *faultRegistry) reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults = make(map[faultKey]int)
}

func (fr *faultRegistry) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := fr.check(r.Method, r.URL.Path); ok {
			writeErrors(w, r, status, "injected fault")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordedRequest is one request received by the stand-in and the status it was answered with.
type RecordedRequest struct {
	Method string
	Path   string
	Status int
}

type requestLog struct {
	mu      sync.Mutex
	entries []RecordedRequest
}

func newRequestLog() *requestLog {
	return &requestLog{}
}

func (rl *requestLog) all() []RecordedRequest {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return append([]RecordedRequest(nil), rl.entries...)
}

func (rl *requestLog) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		rl.mu.Lock()
		rl.entries = append(rl.entries, RecordedRequest{Method: r.Method, Path: r.URL.RequestURI(), Status: status})
		rl.mu.Unlock()
	})
}
