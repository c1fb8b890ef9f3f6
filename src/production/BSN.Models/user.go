package bsnmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account record. It has no relation to units or readings.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"user_ID" json:"user_ID"`
	Username  string             `bson:"username" json:"username"`
	Role      string             `bson:"role" json:"role"`
	EmailID   string             `bson:"emailId" json:"emailId"`
	PhoneNo   string             `bson:"phoneNo" json:"phoneNo"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
