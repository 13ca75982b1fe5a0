package geo

import "testing"

func TestClosestRegion(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		country  string
		want     Region
	}{
		{"us west coast", "America/Los_Angeles", "US", California},
		{"us mountain west", "America/Denver", "US", California},
		{"us east coast", "America/New_York", "US", Virginia},
		{"us central", "America/Chicago", "US", Virginia},
		{"canada west", "America/Vancouver", "CA", California},
		{"canada east", "America/Toronto", "CA", Virginia},
		{"mexico", "America/Mexico_City", "MX", California},
		{"germany", "Europe/Berlin", "DE", Germany},
		{"uk", "Europe/London", "GB", Germany},
		{"india", "Asia/Kolkata", "IN", India},
		{"pakistan", "Asia/Karachi", "PK", India},
		{"bangladesh", "Asia/Dhaka", "BD", India},
		{"sri lanka", "Asia/Colombo", "LK", India},
		{"japan", "Asia/Tokyo", "JP", Japan},
		{"south korea", "Asia/Seoul", "KR", Japan},
		{"taiwan", "Asia/Taipei", "TW", Japan},
		{"australia", "Australia/Sydney", "AU", Australia},
		{"new zealand", "Pacific/Auckland", "NZ", Australia},
		{"singapore", "Asia/Singapore", "SG", Singapore},
		{"fiji", "Pacific/Fiji", "FJ", Singapore},
		{"brazil", "America/Sao_Paulo", "BR", Brazil},
		{"argentina", "America/Argentina/Buenos_Aires", "AR", Brazil},
		{"africa defaults to germany", "Africa/Lagos", "NG", Germany},
		{"gulf routes via asia tag", "Asia/Dubai", "AE", Singapore},
		{"antarctica defaults to germany", "Antarctica/McMurdo", "AQ", Germany},
		{"unknown everything", "Nowhere", "XX", Germany},
		{"empty inputs", "", "", Germany},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClosestRegion(tt.timezone, tt.country); got != tt.want {
				t.Errorf("ClosestRegion(%q, %q) = %v, want %v", tt.timezone, tt.country, got, tt.want)
			}
		})
	}
}

func TestRulesAreOrdered(t *testing.T) {
	// A US caller in a Pacific timezone still routes by country first.
	if got := ClosestRegion("Pacific/Honolulu", "US"); got != Virginia {
		t.Errorf("US in Pacific timezone = %v, want Virginia", got)
	}
	// A European timezone wins over an Asian country code.
	if got := ClosestRegion("Europe/Istanbul", "TR"); got != Germany {
		t.Errorf("Europe/Istanbul = %v, want Germany", got)
	}
}
