// Package domain contains core domain types for the Flux planner.
package domain

import (
	"time"
)

// User is an anonymous per-device account that owns conversations and goals.
type User struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
