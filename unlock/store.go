package unlock

import (
	"context"

	"github.com/xraph/paywall/id"
)

// Store is the unlock read interface. Writes happen only through the
// store-level atomic unlock operation, never row by row.
type Store interface {
	Get(ctx context.Context, userID string, postID id.PostID) (*Unlock, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]*Unlock, error)
}

// ListOpts bounds unlock listings.
type ListOpts struct {
	Limit  int
	Offset int
}
