// Package service implements the perpetual incremental follower: catalog
// sync, per-group watermarks, event fetch and ghost reconciliation on a
// fixed cadence
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"transitsync/internal/modkit/repokit"
	"transitsync/internal/platform/logger"
	"transitsync/internal/services/ingest/domain"
)

// Config tunes the follower loop
type Config struct {
	// Sleep is the pause between iterations
	Sleep time.Duration

	// Lookback bounds how far behind the watermarks may reach
	Lookback time.Duration
}

// Service is the follower. It satisfies suture's Service contract: Serve
// blocks and only returns when ctx is done
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.StorageRepo]
	client domain.SourceClient
	cfg    Config

	// now is a seam for watermark tests
	now func() time.Time
}

// New builds the follower and panics on nil deps (programmer error)
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], client domain.SourceClient, cfg Config) *Service {
	if db == nil {
		panic("follow.New: nil TxRunner")
	}
	if binder == nil {
		panic("follow.New: nil binder")
	}
	if client == nil {
		panic("follow.New: nil client")
	}
	if cfg.Sleep <= 0 {
		cfg.Sleep = 30 * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	return &Service{db: db, binder: binder, client: client, cfg: cfg, now: time.Now}
}

// Serve runs iterations until ctx is done. An iteration failure is logged and
// the loop sleeps and tries again; only ctx cancellation stops the follower
func (s *Service) Serve(ctx context.Context) error {
	for {
		ictx := logger.WithRun(ctx, uuid.NewString())
		began := time.Now()
		if err := s.iterate(ictx); err != nil {
			logger.C(ictx).Error().Err(err).Dur("took", time.Since(began)).Msg("iteration failed")
		} else {
			logger.C(ictx).Info().Dur("took", time.Since(began)).Msg("iteration complete")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Sleep):
		}
	}
}

// iterate runs one pass: sync the catalog, compute watermarks, fetch and
// write events, and reconcile ghosts. The session is opened fresh each pass
// so a long sleep never carries a stale token into the next one
func (s *Service) iterate(ctx context.Context) error {
	log := logger.C(ctx)

	if err := s.client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.client.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("session release failed")
		}
	}()

	// catalog sync
	stations, err := s.client.ListStations(ctx)
	if err != nil {
		return err
	}
	err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		repo := s.binder.Bind(q)
		if err := repo.UpsertStations(ctx, stations); err != nil {
			return err
		}
		return repo.UpsertStationMetadata(ctx, stations)
	})
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(stations))
	groups := map[string][]string{}
	for _, st := range stations {
		known[st.Code] = true
		if gid, ok := domain.GroupOf(st.Code); ok {
			groups[gid] = append(groups[gid], st.Code)
		}
	}

	// ghosts recorded earlier that the catalog still does not know keep
	// being followed so their history stays continuous
	repo := s.binder.Bind(s.db)
	ghosts, err := repo.GhostStationCodes(ctx)
	if err != nil {
		return err
	}
	ghostSet := make(map[string]bool, len(ghosts))
	fetchList := stations
	for _, code := range ghosts {
		gid, ok := domain.GroupOf(code)
		if !ok {
			log.Warn().Str("code", code).Msg("malformed ghost code, ignoring")
			continue
		}
		ghostSet[code] = true
		groups[gid] = append(groups[gid], code)
		fetchList = append(fetchList, domain.Station{Code: code})
	}

	// per-group watermarks: resume one second past the newest event inside
	// the lookback horizon, or at the horizon when the group is silent
	now := s.now().Unix()
	cutoff := now - int64(s.cfg.Lookback/time.Second)
	watermarks := make(map[string]int64, len(groups))
	for gid, codes := range groups {
		max, ok, err := repo.MaxEventTimestamp(ctx, codes, cutoff)
		if err != nil {
			return err
		}
		if ok {
			watermarks[gid] = max + 1
		} else {
			watermarks[gid] = cutoff
		}
	}

	countries, err := s.client.CountryCodes(ctx)
	if err != nil {
		return err
	}

	events, err := s.client.FetchEvents(ctx, fetchList, cutoff, now, watermarks)
	if err != nil {
		return err
	}
	domain.ResolveCountries(events, countries)

	// events from stations the catalog has never named are ghosts; record
	// each code once so future iterations follow it
	var newGhosts []string
	for _, ev := range events {
		if known[ev.StationCode] || ghostSet[ev.StationCode] {
			continue
		}
		ghostSet[ev.StationCode] = true
		newGhosts = append(newGhosts, ev.StationCode)
	}

	var inserted, deduped int
	err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		var err error
		inserted, deduped, err = s.binder.Bind(q).InsertEvents(ctx, events)
		return err
	})
	if err != nil {
		return err
	}

	if len(newGhosts) > 0 {
		if err := repo.InsertGhostStations(ctx, newGhosts); err != nil {
			return err
		}
		log.Warn().Strs("codes", newGhosts).Msg("ghost stations detected")
	}

	log.Info().
		Int("stations", len(stations)).
		Int("ghosts_followed", len(ghosts)).
		Int("groups", len(groups)).
		Int("events", len(events)).
		Int("inserted", inserted).
		Int("deduped", deduped).
		Msg("events written")
	return nil
}
