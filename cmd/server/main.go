package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/picvault/picvault/modules/albums"
	"github.com/picvault/picvault/modules/photos"
	"github.com/picvault/picvault/pkg/config"
	"github.com/picvault/picvault/pkg/httpx"
	"github.com/picvault/picvault/pkg/jwt"
	"github.com/picvault/picvault/pkg/logger"
	"github.com/picvault/picvault/pkg/pg"
	pvredis "github.com/picvault/picvault/pkg/redis"
	"github.com/picvault/picvault/pkg/reqctx"
	"github.com/picvault/picvault/pkg/session"
	"github.com/picvault/picvault/pkg/storage"
	"github.com/picvault/picvault/svc/auth"
	"github.com/picvault/picvault/svc/tenant"
)

type appConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY,required"`

	PG      pg.Config
	Redis   pvredis.Config
	Session session.Config
	OIDC    auth.Config
	S3      storage.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithLevel(parseLevel(cfg.LogLevel)),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithContextExtractors(reqctx.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.PG, pg.WithTenantEnforcement())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	redisClient, err := pvredis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	blobs, err := storage.New(ctx, cfg.S3)
	if err != nil {
		return err
	}

	jwtSvc, err := jwt.New([]byte(cfg.JWTSigningKey))
	if err != nil {
		return err
	}

	sessions := session.NewManager(session.NewRedisStore(redisClient, ""), cfg.Session)

	tenantSvc := tenant.NewService(
		tenant.NewPGTenantRepository(pool),
		tenant.NewPGUserRepository(pool),
		tenant.NewPGMembershipRepository(pool),
		sessions,
		tenant.WithLogger(log),
		tenant.WithBlobPurger(blobs),
	)
	authSvc := auth.NewService(
		cfg.OIDC,
		auth.NewRedisStateStore(redisClient, ""),
		tenant.NewPGUserRepository(pool),
		tenantSvc,
		auth.WithLogger(log),
	)

	photosHandler := photos.NewHandler(photos.NewService(
		photos.NewRepository(pool), blobs, photos.WithLogger(log),
	))

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(jwt.Middleware(jwtSvc))
	r.Use(tenant.Middleware(tenantSvc, sessions))

	r.Get("/healthz", healthz(pg.Healthcheck(pool), pvredis.Healthcheck(redisClient)))

	r.Mount("/auth", auth.NewHandler(authSvc, sessions).Router())
	r.Mount("/tenants", tenant.NewHandler(tenantSvc, sessions).Router())

	albumsRouter := albums.NewHandler(albums.NewRepository(pool)).Router()
	albumsRouter.Mount("/{albumID}/photos", photosHandler.AlbumRouter())
	r.Mount("/albums", albumsRouter)
	r.Mount("/photos", photosHandler.Router())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func healthz(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				httpx.Error(w, err)
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
