package interfaces

import (
	"context"
	"time"

	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// BoardRepository persists board current-state documents and per-unit
// append-only reading history.
type BoardRepository interface {
	// Current-state operations. Exactly one state document exists per unit.
	GetState(ctx context.Context, unitID int) (*bsnmodels.BoardState, error)
	CreateState(ctx context.Context, state bsnmodels.BoardState) error
	UpsertState(ctx context.Context, state bsnmodels.BoardState) error
	DeleteState(ctx context.Context, unitID int) (bool, error)
	ListUnitIDs(ctx context.Context) ([]int, error)

	// History operations. Entries are append-only: never mutated or deleted.
	InsertReading(ctx context.Context, reading bsnmodels.Reading) error
	GetReadingsByWindow(ctx context.Context, unitID int, start, end time.Time) ([]bsnmodels.Reading, error)
}
