package entitlement

import "github.com/xraph/paywall/post"

// CanView resolves the entitlement of viewerID to p. First match wins:
//
//  1. The viewer is the post's creator; creators always see their own
//     content, regardless of tier or soft deletion.
//  2. Deleted posts are hidden from everyone else.
//  3. Free posts are visible to anyone, including anonymous viewers
//     (empty viewerID).
//  4. Subscriber posts require an active subscription; price is irrelevant
//     for this tier even if nonzero.
//  5. Pay-per-view posts require an unlock record; an active subscription
//     does NOT substitute; the two tiers are independent grants.
//
// hasActiveSub and hasUnlock are supplied by the caller (the engine gathers
// them from the store) so that this predicate stays pure and is the single
// source of truth for both the view path and the unlock path.
func CanView(viewerID string, p *post.Post, hasActiveSub, hasUnlock bool) Decision {
	if p == nil {
		return deny(ReasonPostMissing)
	}
	if viewerID != "" && viewerID == p.CreatorID {
		return allow(ReasonOwnContent)
	}
	if p.Deleted {
		return deny(ReasonPostDeleted)
	}

	switch p.Visibility {
	case post.VisibilityFree:
		return allow(ReasonFree)
	case post.VisibilitySubscribers:
		if viewerID == "" {
			return deny(ReasonAnonymous)
		}
		if hasActiveSub {
			return allow(ReasonActiveSub)
		}
		return deny(ReasonNoSubscription)
	case post.VisibilityPPV:
		if viewerID == "" {
			return deny(ReasonAnonymous)
		}
		if hasUnlock {
			return allow(ReasonUnlocked)
		}
		return deny(ReasonNotUnlocked)
	default:
		return deny(ReasonUnknownVisibility)
	}
}
