package review

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Concurrent map from chat identity to its active session. At most one session exists per identity.
type Registry[S any] struct {
	sessions *xsync.MapOf[string, S]
}

func NewRegistry[S any]() *Registry[S] {
	return &Registry[S]{
		sessions: xsync.NewMapOf[string, S](),
	}
}

// Returns the existing session for id, or stores and returns a new one. The bool reports whether a session was created.
func (r *Registry[S]) Create(id string, create func() S) (S, bool) {
	created := false
	s, _ := r.sessions.LoadOrCompute(id, func() S {
		created = true
		return create()
	})
	return s, created
}

func (r *Registry[S]) Lookup(id string) (S, bool) {
	return r.sessions.Load(id)
}

func (r *Registry[S]) Evict(id string) {
	r.sessions.Delete(id)
}

func (r *Registry[S]) Len() int {
	return r.sessions.Size()
}
