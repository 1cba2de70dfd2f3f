// Command transitsync-bulk loads a historical epoch range of transit events
// from the highway operator's web service into Postgres, then exits
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"transitsync/internal/adapters/highway"
	"transitsync/internal/modkit"
	"transitsync/internal/platform/config"
	"transitsync/internal/platform/logger"
	"transitsync/internal/platform/store"
	bulkmod "transitsync/internal/services/bulk/module"
	"transitsync/internal/services/bulk/service"
)

func main() {
	_ = godotenv.Load()

	opt := logger.FromEnv()
	opt.Service = "transitsync-bulk"
	logger.Init(opt)
	log := logger.Get()

	var (
		month = flag.String("month", "", `calendar month to load, "YYYY-MM" (UTC)`)
		from  = flag.Int64("from", 0, "interval start, Unix seconds (inclusive)")
		to    = flag.Int64("to", 0, "interval end, Unix seconds (inclusive)")
	)
	flag.Parse()

	// the window is validated before anything dials out, so a typo'd year
	// never costs a connection
	start, end, err := resolveWindow(*month, *from, *to)
	if err != nil {
		log.Error().Err(err).Msg("invalid load window")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New()

	st, err := store.Open(ctx, storeConfig(cfg), store.WithLogger(*log))
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer func() { _ = st.Close(context.Background()) }()

	if err := st.Guard(ctx); err != nil {
		log.Fatal().Err(err).Msg("store not ready")
	}

	sc := cfg.Prefix("SOURCE_")
	client := highway.NewClient(highway.Options{
		BaseURL:  sc.MustString("BASE_URL"),
		Username: sc.MustString("USERNAME"),
		Password: sc.MustString("PASSWORD"),
		Timeout:  sc.MayDuration("TIMEOUT", 0),
	})

	deps := modkit.Deps{Log: *log, Cfg: cfg, PG: st.PG}
	mod := bulkmod.New(deps, client, bulkmod.FromConfig(cfg))

	if err := mod.Ports().Runner.RunRange(ctx, start, end); err != nil {
		log.Fatal().Err(err).Msg("bulk run failed")
	}
}

// resolveWindow turns the CLI flags into an inclusive [start, end] range
func resolveWindow(month string, from, to int64) (int64, int64, error) {
	switch {
	case month != "":
		var y, m int
		if n, err := fmt.Sscanf(month, "%d-%d", &y, &m); err != nil || n != 2 {
			return 0, 0, fmt.Errorf("month %q not in YYYY-MM form", month)
		}
		return service.MonthWindow(y, m)
	case from != 0 || to != 0:
		return service.IntervalWindow(from, to)
	default:
		return 0, 0, fmt.Errorf("one of -month or -from/-to is required")
	}
}

func storeConfig(cfg config.Conf) store.Config {
	pc := cfg.Prefix("SERVICE_PGSQL_")
	return store.Config{
		AppName: "transitsync-bulk",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pc.MustString("URL"),
			MaxConns:    int32(pc.MayInt("MAX_CONNS", 12)),
			LogSQL:      pc.MayBool("LOG_SQL", false),
			SlowQueryMs: pc.MayInt("SLOW_QUERY_MS", 200),
		},
	}
}
