package domain

import (
	"context"
)

// SourceClient is the highway operator's web-service surface as consumed by
// the sync services. Implementations own session lifecycle and retry policy
type SourceClient interface {
	// Open performs the credential handshake and stores the session token
	Open(ctx context.Context) error

	// Close releases the current session token
	Close(ctx context.Context) error

	// ListStations fetches the catalog and flattens it into one station
	// per detector channel
	ListStations(ctx context.Context) ([]Station, error)

	// CountryCodes fetches the id-to-short-code nationality table
	CountryCodes(ctx context.Context) (map[int64]string, error)

	// FetchEvents fetches events for every group the given stations span,
	// bounded by [from, to] in Unix seconds. groupFrom overrides the
	// shared lower bound for the groups it names
	FetchEvents(ctx context.Context, stations []Station, from, to int64, groupFrom map[string]int64) ([]TransitEvent, error)
}

// BulkRunner is the one-shot historical loader
type BulkRunner interface {
	RunRange(ctx context.Context, start, end int64) error
}

// Follower is the perpetual incremental loop. Serve blocks until ctx is done
type Follower interface {
	Serve(ctx context.Context) error
}

// StorageRepo is the persistence surface for stations, events, bounds and
// ghost bookkeeping
type StorageRepo interface {
	UpsertStations(ctx context.Context, stations []Station) error
	UpsertStationMetadata(ctx context.Context, stations []Station) error

	// InsertEvents writes events with insert-or-ignore semantics and
	// reports how many rows were new versus already present
	InsertEvents(ctx context.Context, events []TransitEvent) (inserted, deduped int, err error)

	// GhostStationCodes lists recorded ghost codes that still have no
	// catalog row
	GhostStationCodes(ctx context.Context) ([]string, error)
	InsertGhostStations(ctx context.Context, codes []string) error

	// MaxEventTimestamp returns the newest event timestamp strictly above
	// cutoff across the given station codes. ok is false when no such
	// event exists
	MaxEventTimestamp(ctx context.Context, codes []string, cutoff int64) (max int64, ok bool, err error)

	// WidenStationBounds applies widen-only updates to the persisted
	// per-station min/max timestamps
	WidenStationBounds(ctx context.Context, bounds BoundsMap) error
}
