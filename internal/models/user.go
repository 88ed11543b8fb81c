// internal/models/user.go
package models

import "github.com/google/uuid"

// User is the authenticated principal behind a connection. Account and
// session mechanics are owned by the platform's auth service; the
// coordinator only needs identity and a display name.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}
