package profile

import (
	"context"

	id "sentra/pkg/domain"
)

// Store persists protected profiles. Writes for the same owner must be
// serialized; cross-owner operations never conflict.
type Store interface {
	Insert(ctx context.Context, p Profile) error
	Get(ctx context.Context, ownerID id.OwnerID) (Profile, error)
	Update(ctx context.Context, p Profile) error
}
