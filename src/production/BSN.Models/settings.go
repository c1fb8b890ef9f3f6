package bsnmodels

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnitSettings holds the per-unit threshold configuration. Its lifecycle is
// independent from reading data: created when a unit is provisioned, deleted
// when it is decommissioned. Thresholds are not enforced by ingest.
type UnitSettings struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UnitID         int                `bson:"unit_ID" json:"unit_ID"`
	HumidityHigh   float64            `bson:"humidity_high" json:"humidity_high"`
	HumidityLow    float64            `bson:"humidity_low" json:"humidity_low"`
	TempHigh       float64            `bson:"temp_high" json:"temp_high"`
	TempLow        float64            `bson:"temp_low" json:"temp_low"`
	WaterLevelHigh float64            `bson:"water_level_high" json:"water_level_high"`
	WaterLevelLow  float64            `bson:"water_level_low" json:"water_level_low"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
