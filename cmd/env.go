package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-sync/internal/apply"
	"github.com/sells-group/crm-sync/internal/config"
	"github.com/sells-group/crm-sync/internal/db"
	"github.com/sells-group/crm-sync/internal/monitoring"
	"github.com/sells-group/crm-sync/internal/normalize"
	"github.com/sells-group/crm-sync/internal/store"
	"github.com/sells-group/crm-sync/internal/syncer"
	"github.com/sells-group/crm-sync/pkg/airtable"
)

// syncEnv holds the store, clients and engine needed by plan, apply and
// serve.
type syncEnv struct {
	Store  store.Store
	Engine *syncer.Engine
	target *pgxpool.Pool
}

// Close releases resources held by the environment.
func (se *syncEnv) Close() {
	if se.target != nil {
		se.target.Close()
	}
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initSyncEnv validates config for mode, opens the run store and builds
// the engine. The target database is only connected in "apply" mode.
// Callers should defer env.Close().
func initSyncEnv(ctx context.Context, mode string) (*syncEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	fields, err := normalize.LoadFieldMap(cfg.Sync.FieldMap)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &syncEnv{Store: st}

	var opts []syncer.Option
	if cfg.Monitoring.WebhookURL != "" {
		opts = append(opts, syncer.WithNotifier(monitoring.NewAlerter(cfg.Monitoring)))
	}
	if mode == "apply" {
		pool, err := db.Connect(ctx, cfg.Target.DatabaseURL, nil)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "connect target database")
		}
		env.target = pool
		opts = append(opts, syncer.WithApplier(apply.NewExecutor(pool)))
	}

	env.Engine = syncer.New(cfg, st, newAirtableClient(cfg.Airtable), fields, opts...)
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func newAirtableClient(ac config.AirtableConfig) airtable.Client {
	timeout := time.Duration(ac.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return airtable.NewClient(ac.Token, ac.BaseID,
		airtable.WithBaseURL(ac.BaseURL),
		airtable.WithRateLimit(ac.RateLimit),
		airtable.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}
