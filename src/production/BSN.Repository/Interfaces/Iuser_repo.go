package interfaces

import (
	"context"

	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
)

// UserRepository persists account records.
type UserRepository interface {
	List(ctx context.Context) ([]bsnmodels.User, error)
	GetByUserID(ctx context.Context, userID string) (*bsnmodels.User, error)
	GetByUsername(ctx context.Context, username string) (*bsnmodels.User, error)
	Create(ctx context.Context, user bsnmodels.User) error
	Update(ctx context.Context, userID string, user bsnmodels.User) (bool, error)
	Delete(ctx context.Context, userID string) (bool, error)
}
