// Package repo implements the Postgres persistence for stations, transit
// events, ghost bookkeeping and the per-station timestamp bounds
package repo

import (
	"context"

	"transitsync/internal/modkit/repokit"
	"transitsync/internal/services/ingest/domain"

	perr "transitsync/internal/platform/errors"
)

// PG binds the storage repo to a Queryer
type PG struct{}

// NewPG returns a binder for the storage repo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

type queries struct {
	q repokit.Queryer
}

func (r *queries) UpsertStations(ctx context.Context, stations []domain.Station) error {
	const sql = `
		INSERT INTO stations (code, name, geo_point)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
		    geo_point = EXCLUDED.geo_point`

	for _, st := range stations {
		if _, err := r.q.Exec(ctx, sql, st.Code, st.Name, st.GeoPoint); err != nil {
			return perr.FromPostgresf(err, "upsert station %s", st.Code)
		}
	}
	return nil
}

func (r *queries) UpsertStationMetadata(ctx context.Context, stations []domain.Station) error {
	const sql = `
		INSERT INTO station_metadata (code, payload)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (code) DO UPDATE
		SET payload = EXCLUDED.payload`

	for _, st := range stations {
		if st.Metadata == "" {
			continue
		}
		if _, err := r.q.Exec(ctx, sql, st.Code, st.Metadata); err != nil {
			return perr.FromPostgresf(err, "upsert station metadata %s", st.Code)
		}
	}
	return nil
}

func (r *queries) InsertEvents(ctx context.Context, events []domain.TransitEvent) (int, int, error) {
	const sql = `
		INSERT INTO transit_events (
			station_code, recorded_at,
			distance, headway, length, axle_count, against_traffic,
			vehicle_class, speed, direction, country, plate_prefix
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (station_code, recorded_at) DO NOTHING`

	inserted, deduped := 0, 0
	for _, ev := range events {
		tag, err := r.q.Exec(ctx, sql,
			ev.StationCode, ev.Timestamp,
			ev.Distance, ev.Headway, ev.Length, ev.AxleCount, ev.AgainstTraffic,
			ev.VehicleClass, ev.Speed, ev.Direction, ev.Country, ev.PlatePrefix,
		)
		if err != nil {
			return inserted, deduped, perr.FromPostgresf(err, "insert event %s@%d", ev.StationCode, ev.Timestamp)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else {
			deduped++
		}
	}
	return inserted, deduped, nil
}

func (r *queries) GhostStationCodes(ctx context.Context) ([]string, error) {
	const sql = `
		SELECT code FROM ghost_stations
		EXCEPT
		SELECT code FROM stations`

	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, perr.FromPostgres(err, "list ghost stations")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, perr.FromPostgres(err, "scan ghost station")
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "list ghost stations")
	}
	return codes, nil
}

func (r *queries) InsertGhostStations(ctx context.Context, codes []string) error {
	const sql = `
		INSERT INTO ghost_stations (code)
		VALUES ($1)
		ON CONFLICT (code) DO NOTHING`

	for _, code := range codes {
		if _, err := r.q.Exec(ctx, sql, code); err != nil {
			return perr.FromPostgresf(err, "insert ghost station %s", code)
		}
	}
	return nil
}

func (r *queries) MaxEventTimestamp(ctx context.Context, codes []string, cutoff int64) (int64, bool, error) {
	const sql = `
		SELECT max(recorded_at)
		FROM transit_events
		WHERE station_code = ANY($1)
		  AND recorded_at > $2`

	var max *int64
	if err := r.q.QueryRow(ctx, sql, codes, cutoff).Scan(&max); err != nil {
		return 0, false, perr.FromPostgres(err, "max event timestamp")
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (r *queries) WidenStationBounds(ctx context.Context, bounds domain.BoundsMap) error {
	const sql = `
		UPDATE stations
		SET min_timestamp = CASE
			WHEN min_timestamp IS NULL OR min_timestamp > $1 THEN $1
			ELSE min_timestamp END,
		    max_timestamp = CASE
			WHEN max_timestamp IS NULL OR max_timestamp < $2 THEN $2
			ELSE max_timestamp END
		WHERE code = $3`

	for code, b := range bounds {
		if _, err := r.q.Exec(ctx, sql, b.Min, b.Max, code); err != nil {
			return perr.FromPostgresf(err, "widen bounds for %s", code)
		}
	}
	return nil
}
