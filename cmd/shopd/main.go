package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/appworld/internal/shop"
	"github.com/psantana5/appworld/internal/shopapi"
	"github.com/psantana5/appworld/pkg/auth"
	"github.com/psantana5/appworld/pkg/logging"
	"github.com/psantana5/appworld/pkg/metrics"
	"github.com/psantana5/appworld/pkg/ratelimit"
	"github.com/psantana5/appworld/pkg/shutdown"
	"github.com/psantana5/appworld/pkg/store"
	"github.com/psantana5/appworld/pkg/tlsconf"
	"github.com/psantana5/appworld/pkg/tracing"
	"github.com/psantana5/appworld/pkg/world"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	listen := flag.String("listen", "", "Listen address override (e.g., :8085)")
	generateCert := flag.Bool("generate-cert", false, "Generate a self-signed certificate and exit")
	certHosts := flag.String("cert-hosts", "", "Comma-separated hostnames/IPs to include in certificate SANs")
	flag.Parse()

	cfg := shop.DefaultConfig()
	if *configPath != "" {
		loaded, err := shop.LoadConfig(*configPath)
		if err != nil {
			logging.NewLogger("shopd", logging.ERROR, false).
				Fatal("failed to load configuration", map[string]interface{}{
					"path":  *configPath,
					"error": err.Error(),
				})
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log := logging.NewLogger("shopd", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	if *generateCert {
		generateCertAndExit(log, cfg, *certHosts)
		return
	}

	log.Info("starting shopd", map[string]interface{}{
		"version":  version,
		"listen":   cfg.Listen,
		"world_id": cfg.WorldID,
		"store":    cfg.Store.Type,
	})

	st, err := store.NewStore(cfg.SnapshotStore())
	if err != nil {
		log.Fatal("failed to open snapshot store", map[string]interface{}{"error": err.Error()})
	}

	var catalog *shop.CatalogClient
	if cfg.Catalog.URL != "" {
		catalog = shop.NewCatalogClient(cfg.Catalog.URL, cfg.CatalogTimeout())
		log.Info("catalog syncing enabled", map[string]interface{}{
			"url":      cfg.Catalog.URL,
			"interval": cfg.CatalogInterval().String(),
		})
	}

	handle := world.New[shop.Msg](shop.NewShopWorld(shop.NewState(), shop.Resources{
		Snapshots: st,
		Catalog:   catalog,
		Log:       logging.NewLogger("shop", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON),
	}))

	if restored, ok := loadSnapshotState(log, st, cfg.WorldID); ok {
		if err := handle.Msg(shop.RestoreState{State: restored}); err != nil {
			log.Fatal("failed to restore state", map[string]interface{}{"error": err.Error()})
		}
	}

	tp, err := tracing.Init(tracing.Config{
		ServiceName:    "shopd",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("failed to initialize tracing", map[string]interface{}{"error": err.Error()})
	}

	// Issue one token per configured client. The plaintext shows up
	// exactly once, in this log; only hashes are kept in memory.
	stopCleanups := make(chan struct{})
	var tokens *auth.TokenManager
	if len(cfg.Auth.Clients) > 0 {
		tokens = auth.NewTokenManager()
		for _, client := range cfg.Auth.Clients {
			token, err := tokens.GenerateToken(client, cfg.TokenTTL())
			if err != nil {
				log.Fatal("failed to issue client token", map[string]interface{}{
					"client": client,
					"error":  err.Error(),
				})
			}
			log.Info("client token issued", map[string]interface{}{
				"client": client,
				"token":  token,
				"ttl":    cfg.TokenTTL().String(),
			})
		}
		go tokens.CleanupLoop(time.Hour, stopCleanups)
	}
	if cfg.Auth.AdminToken == "" && tokens == nil {
		log.Warn("no admin token or clients configured; mutating endpoints are open")
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.CleanupLoop(10*time.Minute, time.Hour, stopCleanups)
	}

	promclient.MustRegister(metrics.NewWorldCollector(handle))
	httpMetrics := metrics.NewHTTPMetrics(promclient.DefaultRegisterer)

	router := mux.NewRouter()
	router.Use(httpMetrics.Middleware)
	if cfg.Tracing.Enabled {
		router.Use(tp.Middleware)
	}

	handler := shopapi.NewHandler(shopapi.HandlerConfig{
		World:      handle,
		Store:      st,
		Tokens:     tokens,
		AdminToken: cfg.Auth.AdminToken,
		Limiter:    limiter,
		Log:        logging.NewLogger("shopapi", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON),
		WorldID:    cfg.WorldID,
		Version:    version,
	})
	handler.Routes(router)

	router.Handle("/metrics", metrics.NewExporter(st, cfg.WorldID, version)).Methods("GET")

	var syncer *shop.Syncer
	if catalog != nil {
		syncer = shop.NewSyncer(handle, cfg.CatalogInterval(),
			logging.NewLogger("syncer", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON))
		syncer.Start()
	}

	snapshotter := shop.NewSnapshotter(handle, st, cfg.WorldID, cfg.SnapshotInterval(), cfg.Snapshots.Keep,
		logging.NewLogger("snapshotter", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON))
	snapshotter.Start()

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.TLS.Enabled {
		tlsConfig, err := tlsconf.ServerConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile, cfg.TLS.RequireClientCert)
		if err != nil {
			log.Fatal("failed to load TLS configuration", map[string]interface{}{"error": err.Error()})
		}
		srv.TLSConfig = tlsConfig
		log.Info("TLS enabled", map[string]interface{}{"mtls": cfg.TLS.RequireClientCert})
	}

	// Hooks run in reverse registration order: server first, then the
	// loops, a final snapshot while the world is still open, and the
	// stores last.
	mgr := shutdown.New(30 * time.Second)
	mgr.Register("tracing", tp.Shutdown)
	mgr.Register("store", shutdown.CloseResource(st))
	mgr.Register("world", shutdown.CloseResource(handle))
	mgr.Register("final snapshot", func(ctx context.Context) error {
		snap, err := shop.TakeSnapshot(ctx, handle, st, cfg.WorldID)
		if err != nil {
			return err
		}
		log.Info("final snapshot saved", map[string]interface{}{"seq": snap.Seq})
		return nil
	})
	mgr.Register("background loops", func(ctx context.Context) error {
		if syncer != nil {
			syncer.Stop()
		}
		snapshotter.Stop()
		close(stopCleanups)
		return nil
	})
	mgr.Register("http server", shutdown.StopHTTPServer(srv))

	go func() {
		log.Info("listening", map[string]interface{}{"addr": cfg.Listen, "tls": cfg.TLS.Enabled})
		var err error
		if cfg.TLS.Enabled {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", map[string]interface{}{"error": err.Error()})
			mgr.Trigger()
		}
	}()

	if sig := mgr.Wait(); sig != nil {
		log.Info("signal received", map[string]interface{}{"signal": sig.String()})
	}

	for _, err := range mgr.Shutdown() {
		log.Error("shutdown hook failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("shopd stopped")
}

// loadSnapshotState decodes the newest snapshot, reporting false when
// none exists. An unreadable snapshot is logged and skipped rather
// than blocking startup.
func loadSnapshotState(log *logging.Logger, st store.Store, worldID string) (shop.State, bool) {
	snap, err := st.LatestSnapshot(worldID)
	if err != nil {
		if !errors.Is(err, store.ErrSnapshotNotFound) {
			log.Fatal("failed to load latest snapshot", map[string]interface{}{"error": err.Error()})
		}
		log.Info("no snapshot found, starting with empty state", map[string]interface{}{"world_id": worldID})
		return shop.State{}, false
	}

	state, err := shop.RestoreSnapshot(snap)
	if err != nil {
		log.Warn("ignoring unreadable snapshot", map[string]interface{}{
			"snapshot_id": snap.ID,
			"error":       err.Error(),
		})
		return shop.State{}, false
	}

	log.Info("state restored from snapshot", map[string]interface{}{
		"snapshot_id": snap.ID,
		"seq":         snap.Seq,
		"revision":    state.Revision,
	})
	return state, true
}

func generateCertAndExit(log *logging.Logger, cfg *shop.Config, hosts string) {
	certFile := cfg.TLS.CertFile
	keyFile := cfg.TLS.KeyFile
	if certFile == "" {
		certFile = "certs/shopd.crt"
	}
	if keyFile == "" {
		keyFile = "certs/shopd.key"
	}

	if dir := filepath.Dir(certFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("failed to create certificate directory", map[string]interface{}{"error": err.Error()})
		}
	}

	var sans []string
	for _, h := range strings.Split(hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			sans = append(sans, h)
		}
	}

	if err := tlsconf.GenerateSelfSignedCert(certFile, keyFile, "shopd", sans...); err != nil {
		log.Fatal("failed to generate certificate", map[string]interface{}{"error": err.Error()})
	}
	log.Info("certificate generated", map[string]interface{}{
		"cert": certFile,
		"key":  keyFile,
		"sans": sans,
	})
}
