// Package profile carries the account-level policy inputs the entitlement
// resolver reads. Profiles are owned and mutated by the surrounding account
// management system; this module only ever reads them.
package profile

import "github.com/xraph/paywall/types"

// Role is the account role.
type Role string

const (
	RoleFan     Role = "fan"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Profile is the per-user policy record.
type Profile struct {
	types.Entity
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	// BlockedCountries lists uppercase ISO country codes whose visitors must
	// not see this creator's content. Matching is case-insensitive; an empty
	// list blocks nobody.
	BlockedCountries []string `json:"blocked_countries,omitempty"`
	Banned           bool     `json:"banned"`
	AgeVerified      bool     `json:"age_verified"`
}

// IsCreator reports whether the profile can publish posts.
func (p *Profile) IsCreator() bool {
	return p.Role == RoleCreator || p.Role == RoleAdmin
}
