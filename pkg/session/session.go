package session

import (
	"errors"
	"sync"

	"github.com/goliatone/go-dcmmeta/pkg/form"
	pkgjsonschema "github.com/goliatone/go-dcmmeta/pkg/jsonschema"
)

// ErrStale is returned when a result belongs to a session generation that
// has since been reset.
var ErrStale = errors.New("session: result belongs to a superseded session")

// Session is the explicit context object shared by the components of one
// running application: the schema cache, the label allocator, and an epoch
// that late asynchronous results are checked against.
type Session struct {
	mu       sync.RWMutex
	epoch    uint64
	registry *pkgjsonschema.Registry
	labels   *form.Counter
}

// New returns a session with an empty cache.
func New() *Session {
	return &Session{
		epoch:    1,
		registry: pkgjsonschema.NewRegistry(),
		labels:   form.NewCounter(),
	}
}

// Registry returns the schema and vocabulary cache.
func (s *Session) Registry() *pkgjsonschema.Registry {
	return s.registry
}

// Labels returns the process-wide label allocator.
func (s *Session) Labels() *form.Counter {
	return s.labels
}

// Epoch returns the current generation.
func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Reset starts a new generation. Outstanding tickets become stale; the
// cache and the label allocator are kept.
func (s *Session) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.epoch
}

// Ticket captures the current generation before an asynchronous operation
// starts.
func (s *Session) Ticket() Ticket {
	return Ticket{session: s, epoch: s.Epoch()}
}

// Ticket identifies the generation an asynchronous operation started in.
type Ticket struct {
	session *Session
	epoch   uint64
}

// Current reports whether the session has not been reset since the ticket
// was taken.
func (t Ticket) Current() bool {
	return t.session != nil && t.session.Epoch() == t.epoch
}

// Check returns ErrStale when the ticket is no longer current.
func (t Ticket) Check() error {
	if !t.Current() {
		return ErrStale
	}
	return nil
}

// Epoch returns the captured generation.
func (t Ticket) Epoch() uint64 {
	return t.epoch
}
