package bsnmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BoardState is the mutable current-state projection of a unit: the latest
// known value for every sensor channel. Exactly one document exists per
// unit_ID in the boards collection.
type BoardState struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UnitID    int                `bson:"unit_ID" json:"unit_ID"`
	T         int                `bson:"t" json:"t"`
	H         int                `bson:"h" json:"h"`
	W         int                `bson:"w" json:"w"`
	EB        int                `bson:"eb" json:"eb"`
	UPS       int                `bson:"ups" json:"ups"`
	X         int                `bson:"x" json:"x"`
	Y         int                `bson:"y" json:"y"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Reading is one immutable history entry for a unit. History entries are
// appended by ingest and never mutated or deleted.
type Reading struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UnitID    int                `bson:"unit_ID" json:"unit_ID"`
	T         int                `bson:"t" json:"t"`
	H         int                `bson:"h" json:"h"`
	W         int                `bson:"w" json:"w"`
	EB        int                `bson:"eb" json:"eb"`
	UPS       int                `bson:"ups" json:"ups"`
	X         int                `bson:"x" json:"x"`
	Y         int                `bson:"y" json:"y"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReadingFields carries the optional sensor values of an incoming reading.
// Nil fields are filled from the unit's last-known state; X and Y default
// to 1 regardless of prior state.
type ReadingFields struct {
	T   *int `json:"t,omitempty" form:"t"`
	H   *int `json:"h,omitempty" form:"h"`
	W   *int `json:"w,omitempty" form:"w"`
	EB  *int `json:"eb,omitempty" form:"eb"`
	UPS *int `json:"ups,omitempty" form:"ups"`
	X   *int `json:"x,omitempty" form:"x"`
	Y   *int `json:"y,omitempty" form:"y"`
}

// HistoryEntry converts a board state into the history entry persisted
// alongside it.
func (s BoardState) HistoryEntry() Reading {
	return Reading{
		UnitID:    s.UnitID,
		T:         s.T,
		H:         s.H,
		W:         s.W,
		EB:        s.EB,
		UPS:       s.UPS,
		X:         s.X,
		Y:         s.Y,
		CreatedAt: s.UpdatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
