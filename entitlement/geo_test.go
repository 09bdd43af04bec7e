package entitlement

import "testing"

func TestGeoBlocked(t *testing.T) {
	tests := []struct {
		name    string
		blocked []string
		country string
		want    bool
	}{
		{"exact match", []string{"US"}, "US", true},
		{"case-insensitive match", []string{"US"}, "us", true},
		{"lowercase list", []string{"de", "fr"}, "FR", true},
		{"no match", []string{"US"}, "CA", false},
		{"empty list fails open", nil, "US", false},
		{"unknown country fails open", []string{"US"}, "", false},
		{"both empty", nil, "", false},
		{"no partial match", []string{"US"}, "USA", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GeoBlocked(tt.blocked, tt.country); got != tt.want {
				t.Errorf("GeoBlocked(%v, %q): got %v, want %v", tt.blocked, tt.country, got, tt.want)
			}
		})
	}
}
