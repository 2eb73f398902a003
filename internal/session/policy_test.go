package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testPolicy = Policy{
	Inactivity:    7 * 24 * time.Hour,
	EphemeralIdle: 24 * time.Hour,
	TokenLifetime: 30 * 24 * time.Hour,
}

func TestEvaluateMissingSessionExpires(t *testing.T) {
	assert.Equal(t, Expired, testPolicy.Evaluate(nil, time.Now()))
}

func TestEvaluateRemembered(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		idle     time.Duration
		expected Decision
	}{
		{"fresh", time.Minute, Active},
		{"six days", 6 * 24 * time.Hour, Active},
		{"exactly seven days", 7 * 24 * time.Hour, Active},
		{"just over seven days", 7*24*time.Hour + time.Second, Expired},
		{"a month", 30 * 24 * time.Hour, Expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{Mode: ModeRemembered, LastActivity: now.Add(-tt.idle)}
			assert.Equal(t, tt.expected, testPolicy.Evaluate(s, now))
			if tt.expected == Active {
				assert.Equal(t, now, s.LastActivity, "activity refreshed")
			}
		})
	}
}

func TestEvaluateRememberedWithoutTimestampIsRefreshed(t *testing.T) {
	now := time.Now()
	s := &Session{Mode: ModeRemembered}

	assert.Equal(t, Active, testPolicy.Evaluate(s, now))
	assert.Equal(t, now, s.LastActivity)
}

func TestEvaluateEphemeral(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	active := &Session{Mode: ModeEphemeral, LastActivity: now.Add(-time.Hour)}
	assert.Equal(t, Active, testPolicy.Evaluate(active, now))

	idle := &Session{Mode: ModeEphemeral, LastActivity: now.Add(-25 * time.Hour)}
	assert.Equal(t, Expired, testPolicy.Evaluate(idle, now))
}

func TestTTL(t *testing.T) {
	assert.Equal(t, 30*24*time.Hour, testPolicy.TTL(&Session{Mode: ModeRemembered}))
	assert.Equal(t, 24*time.Hour, testPolicy.TTL(&Session{Mode: ModeEphemeral}))

	noIdle := Policy{TokenLifetime: time.Hour}
	assert.Equal(t, time.Hour, noIdle.TTL(&Session{Mode: ModeEphemeral}))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "expired", Expired.String())
}
