package main

import (
	"context"
	"errors"
	"io/fs"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	agent "github.com/goliatone/go-issuer-agent"
	"github.com/goliatone/go-issuer-agent/adapters/gologger"
	"github.com/goliatone/go-issuer-agent/config"
	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/metrics"
	sqlstore "github.com/goliatone/go-issuer-agent/store/sql"
)

const ledgerCacheTTL = 30 * time.Second

// runtime holds everything a subcommand needs. Subcommands obtain the agent
// client from agents; close releases the database handle and flushes the
// logger.
type runtime struct {
	cfg      core.Config
	source   core.RawConfigLoader
	logger   *gologger.ZapLogger
	provider *gologger.ZapProvider
	promReg  *prometheus.Registry
	metrics  *metrics.PrometheusRecorder
	db       *persistence.Client
	ledger   sqlstore.OnboardingLedger
	agents   *agent.Registry
	opts     []agent.Option
}

func newRuntime(cCtx *cli.Context) (*runtime, error) {
	if err := godotenv.Load(cCtx.String(flagEnvFile.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	sugar, err := gologger.NewZap(cCtx.String(flagEnv.Name))
	if err != nil {
		return nil, err
	}
	provider := gologger.NewZapProvider(sugar)
	rt := &runtime{
		logger:   gologger.NewZapLogger(sugar.Named("agentctl")),
		provider: provider,
		promReg:  prometheus.NewRegistry(),
		source:   config.NewLoader(cCtx.String(flagConfig.Name)),
	}
	rt.metrics = metrics.NewPrometheusRecorder(rt.promReg, metrics.WithLogger(rt.logger))

	ctx := cCtx.Context
	rt.cfg, err = core.NewCfgxConfigProvider(rt.source).Load(ctx, core.DefaultConfig())
	if err != nil {
		rt.close()
		return nil, err
	}

	if rt.cfg.Database.DSN != "" {
		if err := rt.openLedger(ctx, cCtx.Bool(flagDebugSQL.Name)); err != nil {
			rt.close()
			return nil, err
		}
	}

	rt.opts = []agent.Option{
		agent.WithLoggerProvider(provider),
		agent.WithMetricsRecorder(rt.metrics),
	}
	if rt.ledger != nil {
		rt.opts = append(rt.opts, agent.WithOnboardingRecorder(rt.ledger))
	}
	rt.agents = agent.NewRegistry(agent.Config{}, rt.opts...)
	return rt, nil
}

// client returns the process client, waiting for the backend on first use.
func (rt *runtime) client(ctx context.Context) (*agent.Client, error) {
	client, err := rt.agents.Client(ctx, rt.source)
	if err != nil {
		return nil, err
	}
	rt.logger.Debug("agent client ready", "mode", client.Mode(), "ledger", rt.ledger != nil)
	return client, nil
}

// probeClient builds a client outside the registry for a single readiness
// probe; the registry always waits for the backend.
func (rt *runtime) probeClient(ctx context.Context) (*agent.Client, error) {
	opts := append(append([]agent.Option(nil), rt.opts...),
		agent.WithConfigProvider(core.NewCfgxConfigProvider(rt.source)),
	)
	return agent.NewClient(ctx, agent.Config{}, opts...)
}

func (rt *runtime) openLedger(ctx context.Context, debug bool) error {
	db, err := sqlstore.Open(ctx, rt.cfg.Database, sqlstore.WithDebug(debug))
	if err != nil {
		return err
	}
	rt.db = db

	cacheCfg := repositorycache.DefaultConfig()
	cacheCfg.TTL = ledgerCacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheCfg)
	if err != nil {
		return err
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(db, sqlstore.WithCacheService(cacheService))
	if err != nil {
		return err
	}
	rt.ledger = factory.Ledger()
	return nil
}

func (rt *runtime) close() {
	if rt == nil {
		return
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("close database", "error", err.Error())
		}
	}
	_ = rt.logger.Sync()
}
