package emergency

import (
	"context"

	id "sentra/pkg/domain"
)

// Store persists emergency events. Implementations must keep the open-count
// query consistent with writes from the same process: an event just opened is
// immediately visible to HasOpenByOwner.
type Store interface {
	Insert(ctx context.Context, event Event) error
	Get(ctx context.Context, eventID id.EventID) (Event, error)
	Update(ctx context.Context, event Event) error
	HasOpenByOwner(ctx context.Context, ownerID id.OwnerID) (bool, error)
	ListOpenByOwner(ctx context.Context, ownerID id.OwnerID) ([]Event, error)
}
