package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adreport-cli/internal/db"
	"github.com/sells-group/adreport-cli/internal/pipeline"
	"github.com/sells-group/adreport-cli/internal/store"
	"github.com/sells-group/adreport-cli/pkg/meta"
)

// pipelineEnv holds the ledger, optional warehouse pool and the pipeline
// built for one command.
type pipelineEnv struct {
	Store    store.Store
	Pool     *pgxpool.Pool // may be nil
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Pool != nil {
		pe.Pool.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// envOptions selects the optional collaborators a command needs.
type envOptions struct {
	Meta      bool
	Warehouse bool
}

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DSN
	if dsn == "" {
		dsn = "adreport.db"
	}
	st, err := store.NewSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initMeta() meta.Client {
	timeout := time.Duration(cfg.Meta.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return meta.NewClient(cfg.Meta.AccessToken,
		meta.WithBaseURL(cfg.Meta.BaseURL),
		meta.WithAPIVersion(cfg.Meta.APIVersion),
		meta.WithAppSecret(cfg.Meta.AppSecret),
		meta.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

// initPipeline validates the config for command, opens the ledger and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, command string, opts envOptions) (*pipelineEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, eris.Wrap(pipeline.ErrPrecondition, err.Error())
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &pipelineEnv{Store: st}

	var client meta.Client
	if opts.Meta {
		client = initMeta()
	}

	var pool db.Pool
	if opts.Warehouse {
		if cfg.Warehouse.DatabaseURL == "" {
			zap.L().Warn("warehouse.database_url not set, export stage will be skipped")
		} else {
			p, err := db.Connect(ctx, cfg.Warehouse.DatabaseURL)
			if err != nil {
				env.Close()
				return nil, err
			}
			env.Pool = p
			pool = p
		}
	}

	env.Pipeline = pipeline.New(cfg, st, client, pool, os.Stdout)
	return env, nil
}
