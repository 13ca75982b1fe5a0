// Package geo maps a request's timezone and country to the closest
// rate-limit backend region.
package geo

import "strings"

// Region names one of the eight regional rate-limit backends.
type Region string

const (
	Virginia   Region = "Virginia"
	California Region = "California"
	Germany    Region = "Germany"
	Japan      Region = "Japan"
	Australia  Region = "Australia"
	Brazil     Region = "Brazil"
	India      Region = "India"
	Singapore  Region = "Singapore"
)

// West-coast city identifiers that route US/CA traffic to California.
var westLocations = map[string]bool{
	// US
	"Los_Angeles": true, "Denver": true, "San_Francisco": true,
	"Seattle": true, "Portland": true, "Phoenix": true,
	"Las_Vegas": true, "Boise": true,
	// Canada
	"Vancouver": true, "Calgary": true, "Edmonton": true,
	"Victoria": true, "Whitehorse": true, "Yellowknife": true,
	"Regina": true, "Saskatoon": true,
}

// ClosestRegion selects the regional backend for a timezone ("Europe/Berlin")
// and ISO country code ("DE"). Rules are evaluated in order, first match
// wins; anything unmatched (Africa, Middle East, Antarctica, Arctic,
// Atlantic, Indian-ocean regions, malformed input) lands on Germany.
func ClosestRegion(timezone, country string) Region {
	region, location, _ := strings.Cut(timezone, "/")

	// North America
	if country == "US" || country == "CA" || country == "MX" {
		if country == "MX" {
			return California
		}
		if westLocations[location] {
			return California
		}
		return Virginia
	}

	if region == "Europe" {
		return Germany
	}

	switch country {
	case "IN", "PK", "BD", "LK":
		return India
	case "JP", "KR", "TW":
		return Japan
	case "AU", "NZ":
		return Australia
	}

	if region == "Asia" || region == "Pacific" {
		return Singapore
	}

	// South America (any America/* not matched above)
	if region == "America" {
		return Brazil
	}

	return Germany
}
