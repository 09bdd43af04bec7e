package entitlement

import "strings"

// GeoBlocked reports whether a visitor from visitorCountry is blocked by a
// creator's country list. The check fails open: an empty list blocks nobody,
// and a visitor whose country could not be determined (empty string) is
// never treated as blocked. Matching is a case-insensitive exact match.
//
// Callers apply this once per (creator, visitor) before any post-level
// check, and surface a block as not-found (an empty result set, never an
// explicit "blocked" error) so blocked visitors cannot probe which
// creators exist.
func GeoBlocked(blockedCountries []string, visitorCountry string) bool {
	if len(blockedCountries) == 0 || visitorCountry == "" {
		return false
	}
	for _, c := range blockedCountries {
		if strings.EqualFold(c, visitorCountry) {
			return true
		}
	}
	return false
}
