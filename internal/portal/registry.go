package portal

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) *Controller

type entry struct {
	c        *Controller
	lastSeen time.Time
}

// Registry keeps one Controller per session and closes idle ones.
type Registry struct {
	newController Factory
	idleTTL       time.Duration
	log           *logrus.Logger
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRegistry(f Factory, idleTTL time.Duration, log *logrus.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		newController: f,
		idleTTL:       idleTTL,
		log:           log,
		now:           time.Now,
		sessions:      map[string]*entry{},
		stop:          make(chan struct{}),
	}
}

// Start runs the idle sweeper until ctx ends or Close is called.
func (r *Registry) Start(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-t.C:
				r.Sweep()
			}
		}
	}()
}

// Get returns the session's controller, creating it on first use.
func (r *Registry) Get(sessionID string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if e, ok := r.sessions[sessionID]; ok {
		e.lastSeen = r.now()
		return e.c, nil
	}
	c := r.newController(sessionID)
	r.sessions[sessionID] = &entry{c: c, lastSeen: r.now()}
	return c, nil
}

// Sweep closes sessions idle longer than the TTL. Sessions with a
// submission in flight are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var expired []*Controller
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && !e.c.Busy() {
			expired = append(expired, e.c)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		_ = c.Close()
	}
	if len(expired) > 0 {
		r.log.WithField("count", len(expired)).Debug("idle sessions closed")
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the sweeper and closes every controller.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	all := make([]*Controller, 0, len(r.sessions))
	for _, e := range r.sessions {
		all = append(all, e.c)
	}
	r.sessions = map[string]*entry{}
	r.mu.Unlock()

	close(r.stop)
	r.wg.Wait()
	for _, c := range all {
		_ = c.Close()
	}
	return nil
}
