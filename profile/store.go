package profile

import "context"

// Store is the profile read/seed interface. Get is on the hot path of every
// access check; Upsert exists so the owning account system can sync policy
// changes in.
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}
