// Package post defines the content unit a viewer gains access to.
package post

import (
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/types"
)

// Visibility is the access tier of a post.
type Visibility string

const (
	// VisibilityFree posts are viewable by anyone, including anonymous
	// visitors.
	VisibilityFree Visibility = "free"
	// VisibilitySubscribers posts require an active subscription to the
	// creator.
	VisibilitySubscribers Visibility = "subscribers"
	// VisibilityPPV posts require a one-time per-post unlock, independent of
	// subscription status.
	VisibilityPPV Visibility = "ppv"
)

// Post is a creator's content item. Visibility and Price are fixed at
// creation; only Title, Body and MediaURL are editable afterwards. Posts are
// soft-deleted so unlock records keep a valid target.
type Post struct {
	types.Entity
	ID         id.PostID   `json:"id"`
	CreatorID  string      `json:"creator_id"`
	Title      string      `json:"title"`
	Body       string      `json:"body,omitempty"`
	MediaURL   string      `json:"media_url,omitempty"`
	Visibility Visibility  `json:"visibility"`
	Price      types.Money `json:"price"`
	Deleted    bool        `json:"deleted"`
}

// IsPPV reports whether the post requires a per-post unlock.
func (p *Post) IsPPV() bool { return p.Visibility == VisibilityPPV }

// Validate checks the visibility/price invariant: free posts carry a zero
// price, pay-per-view posts carry a positive one.
func (p *Post) Validate() error {
	if p.CreatorID == "" {
		return errField("creator_id", "required")
	}
	switch p.Visibility {
	case VisibilityFree:
		if !p.Price.IsZero() {
			return errField("price", "must be zero for free posts")
		}
	case VisibilitySubscribers:
		// Price is irrelevant for this tier even if nonzero.
	case VisibilityPPV:
		if !p.Price.IsPositive() {
			return errField("price", "must be positive for pay-per-view posts")
		}
	default:
		return errField("visibility", "unknown visibility tier")
	}
	return nil
}

// Editable returns a copy of next with the immutable fields (creator,
// visibility, price, deletion flag) pinned to the current values. Stores use
// it so an update can never reprice or re-tier a post.
func (p *Post) Editable(next *Post) *Post {
	out := *next
	out.ID = p.ID
	out.CreatorID = p.CreatorID
	out.Visibility = p.Visibility
	out.Price = p.Price
	out.Deleted = p.Deleted
	out.CreatedAt = p.CreatedAt
	return &out
}
