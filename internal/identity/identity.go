package identity

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleSupplier, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// Caller is the verified identity behind a request. It is passed explicitly
// into every service operation.
type Caller struct {
	ID    primitive.ObjectID
	Role  Role
	Email string
	Name  string
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

func (c Caller) IsSupplier() bool {
	return c.Role == RoleSupplier
}

func (c Caller) Owns(ownerID primitive.ObjectID) bool {
	return !c.ID.IsZero() && c.ID == ownerID
}
