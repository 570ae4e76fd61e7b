package domain

import "time"

// User is a caller known to the system.
type User struct {
	Username  string
	Email     string
	FullName  string
	Role      string // ADMIN or USER
	Active    bool
	CreatedAt time.Time
}
