// Package entitlement decides whether a viewer may see a post. The resolver
// is a pure function of its inputs: it performs no I/O, has no side effects,
// and is safe to call with arbitrary concurrency. Denial is a normal return
// value, never an error.
package entitlement

// Reason explains a decision; useful for logging and plugin hooks, never
// surfaced verbatim to end users.
type Reason string

const (
	ReasonOwnContent        Reason = "own_content"
	ReasonFree              Reason = "free"
	ReasonActiveSub         Reason = "active_subscription"
	ReasonUnlocked          Reason = "unlocked"
	ReasonNoSubscription    Reason = "no_active_subscription"
	ReasonNotUnlocked       Reason = "not_unlocked"
	ReasonAnonymous         Reason = "anonymous"
	ReasonPostMissing       Reason = "post_missing"
	ReasonPostDeleted       Reason = "post_deleted"
	ReasonCreatorBanned     Reason = "creator_banned"
	ReasonGeoBlocked        Reason = "geo_blocked"
	ReasonUnknownVisibility Reason = "unknown_visibility"
)

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// allow and deny keep the resolver terse.
func allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }
func deny(r Reason) Decision  { return Decision{Allowed: false, Reason: r} }
