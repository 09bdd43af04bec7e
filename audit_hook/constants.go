package audithook

// Action constants for audit events.
const (
	// Post actions
	ActionPostCreated = "post.created"
	ActionPostDeleted = "post.deleted"

	// Subscription actions
	ActionSubscriptionCreated  = "subscription.created"
	ActionSubscriptionCanceled = "subscription.canceled"
	ActionSubscriptionExpired  = "subscription.expired"

	// Unlock actions
	ActionPostUnlocked   = "unlock.granted"
	ActionUnlockRejected = "unlock.rejected"

	// Wallet actions
	ActionDeposited = "wallet.deposited"

	// Access actions
	ActionAccessChecked = "access.checked"
	ActionAccessDenied  = "access.denied"
	ActionGeoBlocked    = "access.geo_blocked"
)

// Resource constants for audit events.
const (
	ResourcePost         = "post"
	ResourceSubscription = "subscription"
	ResourceUnlock       = "unlock"
	ResourceWallet       = "wallet"
	ResourceAccess       = "access"
)

// Category constants for audit events.
const (
	CategoryContent      = "content"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
