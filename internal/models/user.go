package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the read-only view of an account owned by the identity provider.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
