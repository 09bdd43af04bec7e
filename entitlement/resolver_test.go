package entitlement

import (
	"testing"

	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/types"
)

func newPost(creator string, vis post.Visibility, price types.Money) *post.Post {
	return &post.Post{
		ID:         id.NewPostID(),
		CreatorID:  creator,
		Visibility: vis,
		Price:      price,
	}
}

func TestCanViewFree(t *testing.T) {
	p := newPost("creator-1", post.VisibilityFree, types.Zero("usd"))

	tests := []struct {
		name   string
		viewer string
	}{
		{"anonymous", ""},
		{"random fan", "fan-1"},
		{"subscribed fan", "fan-2"},
		{"the creator", "creator-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanView(tt.viewer, p, false, false)
			if !d.Allowed {
				t.Errorf("free post must be visible to %s, denied with %s", tt.name, d.Reason)
			}
		})
	}
}

func TestCanViewSubscribers(t *testing.T) {
	p := newPost("creator-1", post.VisibilitySubscribers, types.Zero("usd"))

	tests := []struct {
		name         string
		viewer       string
		hasActiveSub bool
		hasUnlock    bool
		want         bool
		reason       Reason
	}{
		{"creator sees own", "creator-1", false, false, true, ReasonOwnContent},
		{"active subscriber", "fan-1", true, false, true, ReasonActiveSub},
		{"non-subscriber", "fan-1", false, false, false, ReasonNoSubscription},
		{"unlock does not substitute for sub", "fan-1", false, true, false, ReasonNoSubscription},
		{"anonymous", "", false, false, false, ReasonAnonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanView(tt.viewer, p, tt.hasActiveSub, tt.hasUnlock)
			if d.Allowed != tt.want {
				t.Errorf("Allowed: got %v, want %v (reason %s)", d.Allowed, tt.want, d.Reason)
			}
			if d.Reason != tt.reason {
				t.Errorf("Reason: got %s, want %s", d.Reason, tt.reason)
			}
		})
	}
}

func TestCanViewPPV(t *testing.T) {
	p := newPost("creator-1", post.VisibilityPPV, types.USD(500))

	tests := []struct {
		name         string
		viewer       string
		hasActiveSub bool
		hasUnlock    bool
		want         bool
	}{
		{"creator sees own", "creator-1", false, false, true},
		{"unlocked fan", "fan-1", false, true, true},
		{"locked fan", "fan-1", false, false, false},
		// Subscription never substitutes for a ppv unlock.
		{"subscriber without unlock", "fan-1", true, false, false},
		{"subscriber with unlock", "fan-1", true, true, true},
		{"anonymous", "", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanView(tt.viewer, p, tt.hasActiveSub, tt.hasUnlock)
			if d.Allowed != tt.want {
				t.Errorf("Allowed: got %v, want %v (reason %s)", d.Allowed, tt.want, d.Reason)
			}
		})
	}
}

func TestCanViewDeletedPost(t *testing.T) {
	p := newPost("creator-1", post.VisibilityFree, types.Zero("usd"))
	p.Deleted = true

	if d := CanView("fan-1", p, true, true); d.Allowed {
		t.Error("deleted post must be hidden from fans")
	}
	// Creators still see their own soft-deleted content.
	if d := CanView("creator-1", p, false, false); !d.Allowed {
		t.Errorf("creator must see own deleted post, denied with %s", d.Reason)
	}
}

func TestCanViewMissingPost(t *testing.T) {
	d := CanView("fan-1", nil, false, false)
	if d.Allowed {
		t.Error("missing post must deny")
	}
	if d.Reason != ReasonPostMissing {
		t.Errorf("Reason: got %s, want %s", d.Reason, ReasonPostMissing)
	}
}
