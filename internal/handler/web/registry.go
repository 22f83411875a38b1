package web

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	"github.com/jwalitptl/innoguard/internal/screen/login"
)

// Screens is the screen state of one browser session.
type Screens struct {
	Login     *login.Screen
	Dashboard *dashboard.Screen
}

// Factory builds the screens for a new session id.
type Factory func(sessionID string) *Screens

// Registry keeps screen state per session and drops it after idle.
type Registry struct {
	mu      sync.Mutex
	screens *cache.Cache
	factory Factory
}

func NewRegistry(idle time.Duration, factory Factory) *Registry {
	return &Registry{
		screens: cache.New(idle, idle),
		factory: factory,
	}
}

// Get returns the screens of sessionID, creating them on first use. Every
// access restarts the idle timer.
func (r *Registry) Get(sessionID string) *Screens {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.screens.Get(sessionID)
	if !ok {
		s = r.factory(sessionID)
	}
	r.screens.SetDefault(sessionID, s)
	return s.(*Screens)
}
