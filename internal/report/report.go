// Package report collects recoverable, user-facing error messages so
// the UI layer can surface them on its next pass.
package report

import "sync"

type Reporter struct {
	mu     sync.Mutex
	errors []string
}

func New() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Add(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *Reporter) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}

func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = nil
}
