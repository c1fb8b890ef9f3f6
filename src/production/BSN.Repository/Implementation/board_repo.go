package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	stateCollection = "boards"

	queryTimeout = 3 * time.Second
	rangeTimeout = 10 * time.Second
)

// MongoBoardRepository stores board state in one collection and reading
// history in one append-only collection per unit (board_<unit_ID>).
type MongoBoardRepository struct {
	db *mongo.Database
}

func NewMongoBoardRepository(db *mongo.Database) *MongoBoardRepository {
	return &MongoBoardRepository{db: db}
}

func historyCollection(unitID int) string {
	return fmt.Sprintf("board_%d", unitID)
}

func (r *MongoBoardRepository) GetState(ctx context.Context, unitID int) (*bsnmodels.BoardState, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	var state bsnmodels.BoardState
	err := r.db.Collection(stateCollection).FindOne(ctx, bson.M{"unit_ID": unitID}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *MongoBoardRepository) CreateState(ctx context.Context, state bsnmodels.BoardState) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Collection(stateCollection).InsertOne(ctx, state)
	return err
}

func (r *MongoBoardRepository) UpsertState(ctx context.Context, state bsnmodels.BoardState) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"t":          state.T,
		"h":          state.H,
		"w":          state.W,
		"eb":         state.EB,
		"ups":        state.UPS,
		"x":          state.X,
		"y":          state.Y,
		"updated_at": state.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.db.Collection(stateCollection).UpdateOne(ctx, bson.M{"unit_ID": state.UnitID}, update, opts)
	return err
}

func (r *MongoBoardRepository) DeleteState(ctx context.Context, unitID int) (bool, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.Collection(stateCollection).DeleteOne(ctx, bson.M{"unit_ID": unitID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoBoardRepository) ListUnitIDs(ctx context.Context) ([]int, error) {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"unit_ID": 1}).
		SetSort(bson.D{{Key: "unit_ID", Value: 1}})
	cursor, err := r.db.Collection(stateCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []int
	for cursor.Next(ctx) {
		var doc struct {
			UnitID int `bson:"unit_ID"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.UnitID)
	}
	return ids, cursor.Err()
}

func (r *MongoBoardRepository) InsertReading(ctx context.Context, reading bsnmodels.Reading) error {
	ctx, cancel := withTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Collection(historyCollection(reading.UnitID)).InsertOne(ctx, reading)
	return err
}

func (r *MongoBoardRepository) GetReadingsByWindow(ctx context.Context, unitID int, start, end time.Time) ([]bsnmodels.Reading, error) {
	ctx, cancel := withTimeout(ctx, rangeTimeout)
	defer cancel()

	filter := bson.M{"created_at": bson.M{"$gte": start, "$lt": end}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.db.Collection(historyCollection(unitID)).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var readings []bsnmodels.Reading
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}
