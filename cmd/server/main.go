// Command server runs the authentication and session API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"safeday/backend/internal/audit"
	auditrepo "safeday/backend/internal/audit/repository"
	authhandler "safeday/backend/internal/auth/handler"
	"safeday/backend/internal/auth/service"
	"safeday/backend/internal/config"
	"safeday/backend/internal/db"
	devicerepo "safeday/backend/internal/device/repository"
	"safeday/backend/internal/devotp"
	lookuphandler "safeday/backend/internal/lookup/handler"
	lookuprepo "safeday/backend/internal/lookup/repository"
	"safeday/backend/internal/notify"
	otprepo "safeday/backend/internal/otp/repository"
	"safeday/backend/internal/reaper"
	"safeday/backend/internal/security"
	"safeday/backend/internal/server"
	"safeday/backend/internal/server/middleware"
	sessionrepo "safeday/backend/internal/session/repository"
	userrepo "safeday/backend/internal/user/repository"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config failed")
	}
	if cfg.Env != "production" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres failed")
	}
	defer pool.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, rate limiting degraded")
		}
		defer rdb.Close()
	}

	sessions := sessionrepo.NewPostgresRepository(pool)
	users := userrepo.NewPostgresRepository(pool)
	challenges := otprepo.NewPostgresRepository(pool)
	devices := devicerepo.NewPostgresRepository(pool)
	audits := auditrepo.NewPostgresRepository(pool)
	lookups := lookuprepo.NewPostgresRepository(pool)

	var devCodes devotp.Store
	if cfg.OTPReturnToClient {
		devCodes = devotp.NewMemoryStore()
		log.Warn().Msg("dev OTP mode enabled, passcodes retrievable via GET /dev/otp")
	}

	auth := service.NewService(service.Params{
		Users:          users,
		Sessions:       sessions,
		Challenges:     challenges,
		Devices:        devices,
		Hasher:         security.NewHasher(cfg.BcryptCost),
		Tokens:         security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenLifetime()),
		Dispatcher:     notify.NewGatewayClient(cfg.GatewayAPIKey, cfg.GatewayURL, cfg.GatewaySender),
		DevCodes:       devCodes,
		Auditor:        audit.NewLogger(audits, middleware.ClientIP, log),
		Log:            log,
		Freshness:      cfg.Freshness(),
		Staleness:      cfg.Staleness(),
		Debounce:       cfg.Debounce(),
		OTPTTL:         cfg.OTPLifetime(),
		OTPCooldown:    cfg.OTPCooldown(),
		OTPMaxAttempts: cfg.OTPMaxAttempts,
		TakeoverGrace:  cfg.OTPLifetime(),
	})

	router := server.NewRouter(server.Deps{
		Auth:           authhandler.New(auth, devCodes, log),
		Lookup:         lookuphandler.New(lookups, log),
		AuthService:    auth,
		Redis:          rdb,
		DevOTPEnabled:  cfg.OTPReturnToClient,
		AllowedOrigins: cfg.AllowedOrigins(),
		Log:            log,
	})

	sweeper := reaper.New(sessions, cfg.ReapEvery(), cfg.Staleness(), log)
	sweeper.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	sweeper.Stop()
	log.Info().Msg("stopped")
}
