// Package domain holds the core entities shared by the bulk loader and the
// incremental follower
package domain

import (
	"strings"
)

// Station is one detector channel of the highway operator, identified by the
// composite natural key "<group>:<channel>". Stations are created or refreshed
// on every catalog fetch and never deleted by this system
type Station struct {
	// Code is the natural key, "<group id>:<channel id>"
	Code string

	// Name is the display name: vendor description plus the derived
	// lane/direction text
	Name string

	// GeoPoint is "lat,long" as reported by the vendor
	GeoPoint string

	// Metadata is the remaining vendor fields of group and channel,
	// serialized deterministically for stable comparison and storage
	Metadata string
}

// GroupOf returns the group portion of a station code.
// ok is false when the code does not have the "<group>:<channel>" shape
func GroupOf(code string) (string, bool) {
	parts := strings.Split(code, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0], true
}

// TransitEvent is one vehicle transit observed by a station. Events are
// immutable once written; the natural key (StationCode, Timestamp) is not
// guaranteed unique by the source, so writes are insert-or-ignore
type TransitEvent struct {
	StationCode string
	Timestamp   int64 // Unix seconds, UTC

	Distance       float64
	Headway        float64
	Length         float64
	AxleCount      int
	AgainstTraffic bool
	VehicleClass   int
	Speed          float64
	Direction      int

	// CountryID is the vendor's numeric nationality id, nil when absent
	CountryID *int64

	// Country is the short code resolved through the country-code table
	Country *string

	// PlatePrefix is the leading license-plate characters; empty strings
	// from the source are normalized to nil
	PlatePrefix *string
}

// ResolveCountries fills in the Country short code for every event whose
// CountryID has a mapping in the given table. Unmapped or absent ids leave
// Country nil
func ResolveCountries(events []TransitEvent, codes map[int64]string) {
	if len(codes) == 0 {
		return
	}
	for i := range events {
		if events[i].CountryID == nil {
			continue
		}
		if c, ok := codes[*events[i].CountryID]; ok && c != "" {
			v := c
			events[i].Country = &v
		}
	}
}
