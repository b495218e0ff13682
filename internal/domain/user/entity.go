package user

import "time"

// Field limits shared by the request validators and the storage column descriptor.
const (
	NameMaxLength  = 100
	EmailMaxLength = 100
)

// User represents a user entity in the system.
type User struct {
	ID        int64     // ID is assigned by storage and never changes
	Name      string    // Name is the full name of the user
	Email     string    // Email is unique across all users
	CreatedAt time.Time // CreatedAt is set once on insert
	UpdatedAt time.Time // UpdatedAt is refreshed on every update
}
