// Command transitsync-follow tails the highway operator's web service and
// keeps Postgres current, iterating until terminated
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/thejerf/suture/v4"

	"transitsync/internal/adapters/highway"
	"transitsync/internal/modkit"
	"transitsync/internal/platform/config"
	"transitsync/internal/platform/logger"
	"transitsync/internal/platform/store"
	followmod "transitsync/internal/services/follow/module"
)

func main() {
	_ = godotenv.Load()

	opt := logger.FromEnv()
	opt.Service = "transitsync-follow"
	logger.Init(opt)
	log := logger.Get()

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
	mod := followmod.New(deps, client, followmod.FromConfig(cfg))

	// the supervisor restarts the follower if it ever panics; normal
	// iteration failures are absorbed inside the loop itself
	sup := suture.New("transitsync-follow", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Fields(e.Map()).Msg("supervisor event")
		},
	})
	sup.Add(mod.Ports().Follower)

	err = sup.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("follower exited")
	}
	log.Info().Msg("follower stopped")
}

func storeConfig(cfg config.Conf) store.Config {
	pc := cfg.Prefix("SERVICE_PGSQL_")
	return store.Config{
		AppName: "transitsync-follow",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pc.MustString("URL"),
			MaxConns:    int32(pc.MayInt("MAX_CONNS", 4)),
			LogSQL:      pc.MayBool("LOG_SQL", false),
			SlowQueryMs: pc.MayInt("SLOW_QUERY_MS", 200),
		},
	}
}
