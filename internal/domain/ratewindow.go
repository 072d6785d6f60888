package domain

import "time"

// RateWindow is one live fixed counting window for a (ip digest, endpoint)
// key. At most one window exists per key; an expired window is replaced in
// place, never accumulated.
type RateWindow struct {
	IPDigest      string    `json:"-" db:"ip_digest"`
	Endpoint      string    `json:"endpoint" db:"endpoint"`
	RequestCount  int       `json:"request_count" db:"request_count"`
	WindowStart   time.Time `json:"window_start" db:"window_start"`
	WindowSeconds int       `json:"window_seconds" db:"window_seconds"`
}

// WindowEnd returns the instant the window expires.
func (w *RateWindow) WindowEnd() time.Time {
	return w.WindowStart.Add(time.Duration(w.WindowSeconds) * time.Second)
}

// IsExpired reports whether the window has passed its end.
func (w *RateWindow) IsExpired(now time.Time) bool {
	return now.After(w.WindowEnd())
}
