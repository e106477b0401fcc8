package model

import "time"

// Session is one authorized client for a bounded time window. It lives only
// in the session store (memory or Redis), never in the database.
type Session struct {
	Token        string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	RequestCount int       `json:"requestCount"`
	DailyUsage   int       `json:"dailyUsage"`

	// DayStart is the UTC midnight of the day DailyUsage was last counted
	// against. Touch resets DailyUsage when the calendar day rolls over.
	DayStart time.Time `json:"dayStart"`
}

// ExpiresAt returns the instant the session stops being valid.
func (s *Session) ExpiresAt(duration time.Duration) time.Time {
	return s.CreatedAt.Add(duration)
}

// Expired reports whether the session has outlived duration.
func (s *Session) Expired(duration time.Duration) bool {
	return time.Since(s.CreatedAt) >= duration
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// SessionStats is the parent-facing usage summary for one session.
type SessionStats struct {
	RequestCount      int `json:"requestCount"`
	DailyUsage        int `json:"dailyUsage"`
	SessionAgeMinutes int `json:"sessionAge"`
}

// DayStartUTC returns the UTC midnight for t's calendar day. The daily
// usage cap rolls over on this boundary.
func DayStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
