package models

import (
	"time"
)

// LocalizedText carries a bilingual title/description pair. The access
// control core treats it as an opaque value; only the API layer renders it.
type LocalizedText struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// User represents a verified identity handed to us by the upstream auth
// service. CourseGate never issues identities; it only consumes them.
type User struct {
	ID        int64      `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	Admin     bool       `json:"admin" db:"admin"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	LastSeen  *time.Time `json:"last_seen,omitempty" db:"last_seen"`
}
