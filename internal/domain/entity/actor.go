package entity

import "time"

// Role is the permission level of a user
type Role string

// Known roles. Any other value is treated as a technician-level role.
const (
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
	RoleTechnician Role = "TECHNICIAN"
)

// IsPrivileged reports whether the role may manage assignments and payment flags
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Actor is the authenticated user performing a command
type Actor struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// User is a persisted account that can act on tickets
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Customer owns one or more tickets and receives notifications about them
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}
