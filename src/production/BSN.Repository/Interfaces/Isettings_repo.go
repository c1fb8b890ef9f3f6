package interfaces

import (
	"context"

	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// SettingsRepository persists per-unit threshold configuration.
type SettingsRepository interface {
	List(ctx context.Context) ([]bsnmodels.UnitSettings, error)
	GetByUnit(ctx context.Context, unitID int) (*bsnmodels.UnitSettings, error)
	Create(ctx context.Context, settings bsnmodels.UnitSettings) error
	Update(ctx context.Context, unitID int, settings bsnmodels.UnitSettings) (bool, error)
	Delete(ctx context.Context, unitID int) (bool, error)

	// MaxUnitID returns the highest provisioned unit_ID, or 0 when no
	// settings exist. Used to auto-assign the next unit_ID.
	MaxUnitID(ctx context.Context) (int, error)
}
