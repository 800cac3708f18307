package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// PreferenceEvent is one recorded preference change: a confirmed update, a
// revert after a failed remote write, or an initial sync.
type PreferenceEvent struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	FromValue string    `json:"from_value"`
	ToValue   string    `json:"to_value"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"created_at"`
}
