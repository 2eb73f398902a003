package session

import (
	"time"
)

// Decision is the outcome of evaluating a session against the policy
type Decision int

const (
	// Active: the session may proceed; its activity timestamp is refreshed
	Active Decision = iota
	// Expired: the session must be discarded and the caller signed out
	Expired
)

func (d Decision) String() string {
	if d == Active {
		return "active"
	}
	return "expired"
}

// Policy decides whether a session has lapsed through inactivity,
// independently of the token's own absolute expiry.
type Policy struct {
	// Inactivity is the idle limit for remembered sessions
	Inactivity time.Duration
	// EphemeralIdle is the idle limit for sessions without "remember me"
	EphemeralIdle time.Duration
	// TokenLifetime bounds every record's lifetime in the store
	TokenLifetime time.Duration
}

// Evaluate applies the policy. A nil session (record absent) is always
// expired. On Active the session's LastActivity is advanced to now.
func (p Policy) Evaluate(s *Session, now time.Time) Decision {
	if s == nil {
		return Expired
	}

	limit := p.EphemeralIdle
	if s.Remembered() {
		limit = p.Inactivity
	}

	if limit > 0 && !s.LastActivity.IsZero() && now.Sub(s.LastActivity) > limit {
		return Expired
	}

	s.LastActivity = now
	return Active
}

// TTL is how long the store should keep a session after its last activity
func (p Policy) TTL(s *Session) time.Duration {
	if s.Remembered() {
		return p.TokenLifetime
	}
	if p.EphemeralIdle > 0 && p.EphemeralIdle < p.TokenLifetime {
		return p.EphemeralIdle
	}
	return p.TokenLifetime
}
