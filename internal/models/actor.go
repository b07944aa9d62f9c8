package models

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Actor identifies who triggers an operation. System actors act with admin rights.
type Actor struct {
	UserID int64  `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// SystemActor is the identity used by background jobs.
func SystemActor(name string) Actor {
	return Actor{Role: RoleSystem, Name: name}
}
