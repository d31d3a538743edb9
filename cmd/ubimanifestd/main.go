// Command ubimanifestd runs the ubi-manifest HTTP API: it wires the
// content-store client, result store, content-config resolver, the
// three depsolvers, the coordinator, the task manager, and the HTTP
// server, then serves, grounded on cmd/libvulnhttp's construct-then-
// ListenAndServe shape.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quay/zlog"
	"github.com/rs/zerolog"

	"github.com/quay/ubi-manifest/config"
	"github.com/quay/ubi-manifest/contentstore"
	"github.com/quay/ubi-manifest/coordinator"
	"github.com/quay/ubi-manifest/depsolver/modulemd"
	"github.com/quay/ubi-manifest/depsolver/rpm"
	"github.com/quay/ubi-manifest/depsolver/srpm"
	"github.com/quay/ubi-manifest/httpapi"
	ctxlock "github.com/quay/ubi-manifest/pkg/ctxlock/v2"
	"github.com/quay/ubi-manifest/resultstore/postgres"
	"github.com/quay/ubi-manifest/task"
)

// settings is the process config, read entirely from the environment
// (distinct from the content config, which is operator-authored domain
// data loaded by the config package).
type settings struct {
	HTTPListenAddr    string
	PulpHost          string
	ConnString        string
	ContentConfigDir  string
	TopologyFile      string
	LogLevel          string
	DepsolverWorkers  int
	ModularWorkers    int
	SRPMWorkers       int
	TaskBatchSize     int
	ManifestTTL       time.Duration
	RequireRoles      bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func loadSettings() settings {
	return settings{
		HTTPListenAddr:   envOr("UBI_MANIFEST_HTTP_LISTEN_ADDR", "0.0.0.0:8080"),
		PulpHost:         envOr("UBI_MANIFEST_PULP_HOST", "http://localhost:8081"),
		ConnString:       envOr("UBI_MANIFEST_CONNECTION_STRING", "host=localhost port=5432 user=ubimanifest dbname=ubimanifest sslmode=disable"),
		ContentConfigDir: envOr("UBI_MANIFEST_CONTENT_CONFIG_DIR", "/etc/ubi-manifest/content-config"),
		TopologyFile:     envOr("UBI_MANIFEST_TOPOLOGY_FILE", "/etc/ubi-manifest/topology.json"),
		LogLevel:         envOr("UBI_MANIFEST_LOG_LEVEL", "info"),
		DepsolverWorkers: envIntOr("UBI_MANIFEST_DEPSOLVER_WORKERS", rpm.DefaultWorkers),
		ModularWorkers:   envIntOr("UBI_MANIFEST_MODULAR_DEPSOLVER_WORKERS", modulemd.DefaultWorkers),
		SRPMWorkers:      envIntOr("UBI_MANIFEST_SRPM_DEPSOLVER_WORKERS", srpm.DefaultWorkers),
		TaskBatchSize:    envIntOr("UBI_MANIFEST_TASK_BATCH_SIZE", task.DefaultBatchSize),
		ManifestTTL:      coordinator.DefaultTTL,
		RequireRoles:     envOr("UBI_MANIFEST_REQUIRE_ROLES", "true") != "false",
	}
}

func logLevel(s string) zerolog.Level {
	if l, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

func main() {
	ctx := context.Background()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true}).
		With().Timestamp().Caller().
		Logger()

	cfg := loadSettings()
	log = log.Level(logLevel(cfg.LogLevel))
	zlog.Set(&log)

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse connection string")
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create db pool")
	}
	store, err := postgres.Init(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize result store")
	}

	locker, err := ctxlock.New(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize distributed locker")
	}
	defer locker.Close(ctx)

	resolver, err := config.Load(cfg.ContentConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load content config")
	}

	topology, err := httpapi.LoadStaticTopology(cfg.TopologyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load repo topology")
	}

	client := &contentstore.Pulp{Host: cfg.PulpHost, Client: http.DefaultClient}

	c := &coordinator.Coordinator{
		Modulemd: &modulemd.Depsolver{Client: client, Workers: cfg.ModularWorkers},
		RPM:      &rpm.Depsolver{Client: client, Workers: cfg.DepsolverWorkers},
		SRPM:     &srpm.Depsolver{Client: client, Workers: cfg.SRPMWorkers},
		Store:    store,
		TTL:      cfg.ManifestTTL,
	}
	tasks := &task.Manager{Coordinator: c, BatchSize: cfg.TaskBatchSize, Locks: locker}

	srv := &httpapi.Server{
		Topology:     topology,
		Config:       resolver,
		Tasks:        tasks,
		Store:        store,
		Coordinator:  c,
		RequireRoles: cfg.RequireRoles,
	}

	httpSrv := &http.Server{
		Addr:        cfg.HTTPListenAddr,
		Handler:     srv.Mux(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	log.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting http server")
	if err := httpSrv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
}
