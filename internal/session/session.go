// Package session holds server-side session state and the inactivity policy
// applied to it on every authenticated request.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// Mode distinguishes "remember me" sessions from browser-run sessions
type Mode string

const (
	ModeRemembered Mode = "remembered"
	ModeEphemeral  Mode = "ephemeral"
)

// Session is the server-held state of one login
type Session struct {
	ID           string    `json:"id"`
	UserID       uint      `json:"userId"`
	Mode         Mode      `json:"mode"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Remembered reports whether the session was created with "remember me"
func (s *Session) Remembered() bool {
	return s.Mode == ModeRemembered
}

// Store persists sessions. ttl bounds how long a record may live untouched.
// Touch refreshes LastActivity and the ttl of a record that still exists and
// returns ErrSessionNotFound otherwise; it never recreates a deleted session.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
