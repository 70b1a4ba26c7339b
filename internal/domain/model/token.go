package model

import (
	"log/slog"
	"time"
)

// AccessToken is an installation-scoped bearer credential. It lives for the
// duration of one organization's job and is never stored.
type AccessToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
// A zero ExpiresAt never expires.
func (t AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// String redacts the token value.
func (t AccessToken) String() string {
	if t.Value == "" {
		return "<empty>"
	}
	return "<redacted>"
}

// LogValue implements slog.LogValuer without exposing the value.
func (t AccessToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("issued_at", t.IssuedAt),
		slog.Time("expires_at", t.ExpiresAt),
	)
}
