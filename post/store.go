package post

import (
	"context"
	"fmt"

	"github.com/xraph/paywall/id"
)

// Store is the post persistence interface.
type Store interface {
	Create(ctx context.Context, p *Post) error
	Get(ctx context.Context, postID id.PostID) (*Post, error)
	Update(ctx context.Context, p *Post) error
	SoftDelete(ctx context.Context, postID id.PostID) error
	ListByCreator(ctx context.Context, creatorID string, opts ListOpts) ([]*Post, error)
}

// ListOpts filters creator post listings.
type ListOpts struct {
	// IncludeDeleted includes soft-deleted posts (creator's own view only).
	IncludeDeleted bool
	Visibility     Visibility
	Limit          int
	Offset         int
}

func errField(field, msg string) error {
	return fmt.Errorf("post: invalid %s: %s", field, msg)
}
