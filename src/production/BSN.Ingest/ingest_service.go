package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	hub "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Hub"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	metrics "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Metrics"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	interfaces "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Interfaces"
)

// Broadcaster is the hub surface ingest notifies after a persisted update.
type Broadcaster interface {
	Broadcast(scope hub.Scope, message interface{})
}

// FeedNotifier receives the merged reading after persistence so the graph
// feed can push the recomputed window.
type FeedNotifier interface {
	OnNewReading(ctx context.Context, unitID int, reading bsnmodels.Reading)
}

// Service validates and normalizes incoming readings, persists them, and
// forwards them to the broadcast hub and the graph feed. Ingest calls for
// the same unit are serialized by a per-unit lock so concurrent writers
// cannot lose updates.
type Service struct {
	boards interfaces.BoardRepository
	hub    Broadcaster
	feed   FeedNotifier
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	unitLocks map[int]*sync.Mutex
}

// NewService creates an ingest service.
func NewService(boards interfaces.BoardRepository, broadcaster Broadcaster, feed FeedNotifier, log *logger.Logger) *Service {
	return &Service{
		boards:    boards,
		hub:       broadcaster,
		feed:      feed,
		logger:    log.WithComponent("ingest"),
		now:       time.Now,
		unitLocks: make(map[int]*sync.Mutex),
	}
}

func (s *Service) lockUnit(unitID int) func() {
	s.mu.Lock()
	lock, ok := s.unitLocks[unitID]
	if !ok {
		lock = &sync.Mutex{}
		s.unitLocks[unitID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Ingest merges fields into the unit's current state, persists the update
// plus a history entry, and notifies live clients. Missing optional fields
// keep their last-known value; x and y default to 1 regardless of prior
// state. Side effects run in order: current-state upsert (failure aborts the
// call with ErrStoreWriteFailed, nothing broadcast), history append (failure
// is logged and the call continues; the store has no multi-document
// transaction to roll back with), then hub and graph-feed notification.
func (s *Service) Ingest(ctx context.Context, unitID int, fields bsnmodels.ReadingFields) (*bsnmodels.BoardState, error) {
	unlock := s.lockUnit(unitID)
	defer unlock()

	state, err := s.boards.GetState(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: unit_ID %d", bsnmodels.ErrUnknownUnit, unitID)
	}

	merged := *state
	if fields.T != nil {
		merged.T = *fields.T
	}
	if fields.H != nil {
		merged.H = *fields.H
	}
	if fields.W != nil {
		merged.W = *fields.W
	}
	if fields.EB != nil {
		merged.EB = *fields.EB
	}
	if fields.UPS != nil {
		merged.UPS = *fields.UPS
	}
	merged.X, merged.Y = 1, 1
	if fields.X != nil {
		merged.X = *fields.X
	}
	if fields.Y != nil {
		merged.Y = *fields.Y
	}
	merged.UpdatedAt = s.now().UTC()

	if err := s.boards.UpsertState(ctx, merged); err != nil {
		return nil, fmt.Errorf("%w: %v", bsnmodels.ErrStoreWriteFailed, err)
	}

	entry := merged.HistoryEntry()
	if err := s.boards.InsertReading(ctx, entry); err != nil {
		// Current state is updated but history is missing. Recoverable
		// inconsistency: log and continue, the state write was already
		// acknowledged.
		metrics.HistoryWriteFailures.Inc()
		s.logger.Logger.Error().Err(err).Int("unit_ID", unitID).Msg("history append failed after state update")
	}

	metrics.ReadingsIngested.WithLabelValues(strconv.Itoa(unitID)).Inc()

	s.hub.Broadcast(hub.GlobalScope, merged)
	s.feed.OnNewReading(ctx, unitID, entry)

	return &merged, nil
}

// ProvisionUnit creates the unit's zeroed current-state document and makes
// the new unit visible to dashboard clients.
func (s *Service) ProvisionUnit(ctx context.Context, unitID int) (*bsnmodels.BoardState, error) {
	unlock := s.lockUnit(unitID)
	defer unlock()

	existing, err := s.boards.GetState(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: unit_ID %d", bsnmodels.ErrDuplicateUnit, unitID)
	}

	now := s.now().UTC()
	state := bsnmodels.BoardState{
		UnitID:    unitID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.boards.CreateState(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %v", bsnmodels.ErrStoreWriteFailed, err)
	}

	s.logger.Logger.Info().Int("unit_ID", unitID).Msg("unit provisioned")
	s.hub.Broadcast(hub.GlobalScope, state)
	return &state, nil
}

// DecommissionUnit removes the unit's current-state document. History entries
// are retained; they are never deleted by ingest.
func (s *Service) DecommissionUnit(ctx context.Context, unitID int) error {
	unlock := s.lockUnit(unitID)
	defer unlock()

	found, err := s.boards.DeleteState(ctx, unitID)
	if err != nil {
		return fmt.Errorf("%w: %v", bsnmodels.ErrStoreWriteFailed, err)
	}
	if !found {
		return fmt.Errorf("%w: unit_ID %d", bsnmodels.ErrUnknownUnit, unitID)
	}
	s.logger.Logger.Info().Int("unit_ID", unitID).Msg("unit decommissioned")
	return nil
}

// ListUnitIDs returns every provisioned unit.
func (s *Service) ListUnitIDs(ctx context.Context) ([]int, error) {
	return s.boards.ListUnitIDs(ctx)
}

// GetState returns the unit's current state.
func (s *Service) GetState(ctx context.Context, unitID int) (*bsnmodels.BoardState, error) {
	state, err := s.boards.GetState(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: unit_ID %d", bsnmodels.ErrUnknownUnit, unitID)
	}
	return state, nil
}
