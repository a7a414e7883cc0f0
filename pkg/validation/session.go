package validation

import "sync"

// Session holds the validator bound for the current form. Until Bind is
// called with a compiled validator every call returns the not-loaded
// outcome.
type Session struct {
	mu        sync.RWMutex
	validator *Validator
}

// NewSession constructs an unbound session.
func NewSession() *Session {
	return &Session{}
}

// Bind installs v. Passing nil unbinds the session.
func (s *Session) Bind(v *Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validator = v
}

// Loaded reports whether a validator is bound.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validator != nil
}

// SchemaID returns the bound schema id, or "".
func (s *Session) SchemaID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validator.SchemaID()
}

// Validate parses and validates raw from scratch.
func (s *Session) Validate(raw []byte) Outcome {
	s.mu.RLock()
	v := s.validator
	s.mu.RUnlock()
	return v.Validate(raw)
}

// ValidateValue validates an already decoded document from scratch.
func (s *Session) ValidateValue(value any) Outcome {
	s.mu.RLock()
	v := s.validator
	s.mu.RUnlock()
	return v.ValidateValue(value)
}
