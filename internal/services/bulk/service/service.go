// Package service implements the one-shot parallel bulk load of a historical
// epoch range
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"transitsync/internal/modkit/repokit"
	"transitsync/internal/platform/logger"
	"transitsync/internal/services/ingest/domain"

	perr "transitsync/internal/platform/errors"
)

// Config tunes the bulk run
type Config struct {
	// Workers is the number of parallel range workers
	Workers int
}

// Service runs the bulk load. One service instance is good for one process;
// RunRange may be called once
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.StorageRepo]
	client domain.SourceClient
	cfg    Config
}

// New builds the bulk service and panics on nil deps (programmer error)
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], client domain.SourceClient, cfg Config) *Service {
	if db == nil {
		panic("bulk.New: nil TxRunner")
	}
	if binder == nil {
		panic("bulk.New: nil binder")
	}
	if client == nil {
		panic("bulk.New: nil client")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Service{db: db, binder: binder, client: client, cfg: cfg}
}

// RunRange loads every event in the inclusive [start, end] epoch range.
//
// The range is partitioned across workers; each worker walks its span in
// fixed windows, fetches one window at a time and writes it in one
// transaction. A failed worker abandons only its own span. When all workers
// are done the per-worker bounds, including those of failed workers, are
// merged and applied to the stations with widen-only semantics
func (s *Service) RunRange(ctx context.Context, start, end int64) error {
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx)

	if err := s.client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.client.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("session release failed")
		}
	}()

	stations, err := s.client.ListStations(ctx)
	if err != nil {
		return err
	}
	if err := s.syncCatalog(ctx, stations); err != nil {
		return err
	}

	countries, err := s.client.CountryCodes(ctx)
	if err != nil {
		return err
	}

	spans := Partition(start, end, s.cfg.Workers)
	log.Info().
		Int64("start", start).
		Int64("end", end).
		Int("workers", len(spans)).
		Int("stations", len(stations)).
		Msg("bulk run starting")

	bounds := make([]domain.BoundsMap, len(spans))
	errs := make([]error, len(spans))

	var wg sync.WaitGroup
	for i, sp := range spans {
		bounds[i] = domain.BoundsMap{}
		wg.Add(1)
		go func(i int, sp Span) {
			defer wg.Done()
			errs[i] = s.runSpan(ctx, i, sp, stations, countries, bounds[i])
		}(i, sp)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			log.Error().Err(err).Int("worker", i).Msg("worker abandoned its span")
		}
	}

	merged := domain.MergeBounds(bounds...)
	if len(merged) > 0 {
		err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			return s.binder.Bind(q).WidenStationBounds(ctx, merged)
		})
		if err != nil {
			return err
		}
	}

	log.Info().
		Int("stations_bounded", len(merged)).
		Int("workers_failed", failed).
		Msg("bulk run finished")

	if failed > 0 {
		return perr.Newf(perr.ErrorCodeTransient, "%d of %d workers failed", failed, len(spans))
	}
	return nil
}

// syncCatalog refreshes stations and their metadata before any events land,
// so event rows always reference a known station
func (s *Service) syncCatalog(ctx context.Context, stations []domain.Station) error {
	return repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		repo := s.binder.Bind(q)
		if err := repo.UpsertStations(ctx, stations); err != nil {
			return err
		}
		return repo.UpsertStationMetadata(ctx, stations)
	})
}

// runSpan walks one worker's span window by window. Bounds accumulate into wb
// as windows commit, so a mid-span failure still leaves the bounds of the
// committed windows behind
func (s *Service) runSpan(ctx context.Context, worker int, sp Span, stations []domain.Station, countries map[int64]string, wb domain.BoundsMap) error {
	log := logger.C(ctx).With().Int("worker", worker).Logger()

	for _, w := range windows(sp) {
		if err := ctx.Err(); err != nil {
			return err
		}

		began := time.Now()
		events, err := s.client.FetchEvents(ctx, stations, w.First, w.Last, nil)
		if err != nil {
			return fmt.Errorf("window [%d, %d]: %w", w.First, w.Last, err)
		}
		domain.ResolveCountries(events, countries)

		var inserted, deduped int
		err = repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			var err error
			inserted, deduped, err = s.binder.Bind(q).InsertEvents(ctx, events)
			return err
		})
		if err != nil {
			return fmt.Errorf("window [%d, %d]: %w", w.First, w.Last, err)
		}

		for _, ev := range events {
			wb.Observe(ev.StationCode, ev.Timestamp)
		}

		log.Debug().
			Int64("from", w.First).
			Int64("to", w.Last).
			Int("events", len(events)).
			Int("inserted", inserted).
			Int("deduped", deduped).
			Dur("took", time.Since(began)).
			Msg("window committed")
	}

	log.Info().Int64("first", sp.First).Int64("last", sp.Last).Msg("span complete")
	return nil
}
