package implementation

import (
	"context"
	"errors"

	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsCollection = "settings"

type MongoSettingsRepository struct {
	db *mongo.Database
}

func NewMongoSettingsRepository(db *mongo.Database) *MongoSettingsRepository {
	return &MongoSettingsRepository{db: db}
}

func (r *MongoSettingsRepository) List(ctx context.Context) ([]bsnmodels.UnitSettings, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "unit_ID", Value: 1}})
	cursor, err := r.db.Collection(settingsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var settings []bsnmodels.UnitSettings
	if err := cursor.All(ctx, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *MongoSettingsRepository) GetByUnit(ctx context.Context, unitID int) (*bsnmodels.UnitSettings, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	var settings bsnmodels.UnitSettings
	err := r.db.Collection(settingsCollection).FindOne(ctx, bson.M{"unit_ID": unitID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *MongoSettingsRepository) Create(ctx context.Context, settings bsnmodels.UnitSettings) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Collection(settingsCollection).InsertOne(ctx, settings)
	return err
}

func (r *MongoSettingsRepository) Update(ctx context.Context, unitID int, settings bsnmodels.UnitSettings) (bool, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"humidity_high":    settings.HumidityHigh,
		"humidity_low":     settings.HumidityLow,
		"temp_high":        settings.TempHigh,
		"temp_low":         settings.TempLow,
		"water_level_high": settings.WaterLevelHigh,
		"water_level_low":  settings.WaterLevelLow,
		"updated_at":       settings.UpdatedAt,
	}}
	res, err := r.db.Collection(settingsCollection).UpdateOne(ctx, bson.M{"unit_ID": unitID}, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoSettingsRepository) Delete(ctx context.Context, unitID int) (bool, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.Collection(settingsCollection).DeleteOne(ctx, bson.M{"unit_ID": unitID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoSettingsRepository) MaxUnitID(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "unit_ID", Value: -1}})
	var settings bsnmodels.UnitSettings
	err := r.db.Collection(settingsCollection).FindOne(ctx, bson.M{}, opts).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return settings.UnitID, nil
}
