// Package session models the browser session as an explicit value passed
// through every state-machine transition. The server keeps nothing: the
// whole bag (CSRF token + identity reference) travels in a signed cookie,
// so durability across requests is exactly what the cookie carries.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Session is the mutable per-browser state. Zero value means an anonymous
// visitor with no flow in progress.
type Session struct {
	// CSRFToken binds OAuth callbacks to the browser that initiated the
	// flow. Regenerated at every flow initiation.
	CSRFToken string
	// Identity is the primary-provider user id, set after login.
	Identity string

	id        string
	dirty     bool
	destroyed bool
}

// ID returns the session's stable identifier (the cookie's jti), or ""
// for a session that has never been saved.
func (s *Session) ID() string {
	return s.id
}

// SetCSRF replaces the CSRF token with a fresh random value and returns it.
func (s *Session) SetCSRF() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	s.CSRFToken = hex.EncodeToString(b)
	s.dirty = true
	return s.CSRFToken, nil
}

// SetIdentity records the authenticated identity reference.
func (s *Session) SetIdentity(identity string) {
	s.Identity = identity
	s.dirty = true
}

// Authenticated reports whether the session carries an identity.
func (s *Session) Authenticated() bool {
	return !s.destroyed && s.Identity != ""
}

// Destroy marks the session for deletion. Any state it held is gone after
// the next Save.
func (s *Session) Destroy() {
	s.CSRFToken = ""
	s.Identity = ""
	s.destroyed = true
	s.dirty = true
}

// Dirty reports whether the session needs flushing before the response.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool {
	return s.destroyed
}
