package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/auth"
	httpx "storefront-api/services/storefront-api/internal/http"
	"storefront-api/services/storefront-api/internal/http/handlers"
	"storefront-api/services/storefront-api/internal/repo"
	"storefront-api/shared/pkg/cache"
	"storefront-api/shared/pkg/config"
	"storefront-api/shared/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Common.ServiceName, cfg.Common.LogLevel)

	// --- Storage ---
	ctxDB, cancelDB := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDB()

	store, err := repo.Open(ctxDB, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("storage connect failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()
	log.Info().Str("driver", cfg.Storage.Driver).Msg("storage connected")

	// --- Redis (optional key cache) ---
	var keyCache auth.KeyCache
	if cfg.Redis.Addr != "" {
		rdb := cache.New(cfg.Redis.Addr)
		defer func() { _ = rdb.Close() }()
		if waitRedis(rdb, log) {
			keyCache = &auth.RedisKeyCache{Redis: rdb}
		}
	}

	// --- Auth ---
	verifier := newVerifier(cfg.Firebase, keyCache, log)

	// --- HTTP ---
	router := httpx.NewRouter(cfg.Common.ServiceName, log, &httpx.Handlers{
		Health:       &handlers.Health{Storage: store, Log: log},
		Products:     &handlers.Products{Coll: store.Products, Log: log},
		Orders:       &handlers.Orders{Coll: store.Orders, Log: log},
		Reviews:      &handlers.Reviews{Coll: store.Reviews, Log: log},
		Users:        &handlers.Users{Coll: store.Users, Log: log},
		Identify:     auth.Identify(verifier, log),
		RequireAdmin: auth.RequireAdmin(store.Users, log),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msgf("Listening at %s", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http failed")
		}
	}()

	// --- Graceful shutdown ---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
}

// waitRedis pings until redis answers or 30s pass.
func waitRedis(rdb *cache.Redis, log zerolog.Logger) bool {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(pingCtx)
		pingCancel()

		if err == nil {
			return true
		}
		if time.Now().After(deadline) {
			log.Warn().Err(err).Msg("redis unavailable, continue without key cache")
			return false
		}
		time.Sleep(1 * time.Second)
	}
}

func newVerifier(cfg config.FirebaseConfig, keyCache auth.KeyCache, log zerolog.Logger) auth.Verifier {
	if cfg.ServiceAccount == "" {
		log.Warn().Msg("FIREBASE_SERVICE_ACCOUNT is empty, admin-only routes will refuse every caller")
		return auth.DenyAll{}
	}
	sa, err := auth.ParseServiceAccount([]byte(cfg.ServiceAccount))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid firebase service account")
	}
	keys := auth.NewKeySet(&auth.CertFetcher{URL: cfg.CertsURL}, keyCache, log)
	return auth.NewFirebaseVerifier(sa.ProjectID, keys)
}
