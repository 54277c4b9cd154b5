package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/docs"
	"github.com/hotelops/console/internal/api"
	"github.com/hotelops/console/internal/api/handler"
	"github.com/hotelops/console/internal/core/ports"
	"github.com/hotelops/console/internal/core/service"
	"github.com/hotelops/console/internal/infrastructure/config"
	"github.com/hotelops/console/internal/infrastructure/db/local"
	"github.com/hotelops/console/internal/infrastructure/db/mongo"
	"github.com/hotelops/console/internal/infrastructure/db/redis"
	"github.com/hotelops/console/internal/infrastructure/queue"
	"github.com/hotelops/console/pkg/logger"
)

var version = "0.1.0"

//	@title						Hotel Operations Console API
//	@description				Role-scoped access to the hotel operations modules.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.Production(),
		Service: "hotel-console",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Change feed ---
	dispatcher := queue.NewDispatcher(0, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	// --- Backends ---
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	localOpener := local.NewOpener(cfg.DataDir, logger.Component("local"))

	var (
		remoteOpener ports.BackendOpener
		lookup       ports.RoleLookup
		accounts     ports.RoleWriter
		notifier     ports.RoleChangePublisher = dispatcher
		probes       []handler.Probe
	)

	if cfg.RemoteConfigured() {
		client, db, err := mongo.Open(mongo.Config{
			URI:                    cfg.Remote.URL,
			Key:                    cfg.Remote.Key,
			User:                   cfg.Remote.User,
			Database:               cfg.Remote.Database,
			ServerSelectionTimeout: cfg.LookupTimeout,
		})
		if err != nil {
			// A remote that cannot be constructed leaves every consumer on the local backend.
			log.Warn().Err(err).Msg("remote backend unavailable, serving local data only")
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()

			watcher := mongo.NewChangeWatcher(ctx, db, dispatcher, logger.Component("change_stream"))
			remoteOpener = mongo.NewRecordOpener(db, dispatcher, watcher, logger.Component("remote"))

			repo := mongo.NewAccountRepository(db)
			indexCtx, cancel := context.WithTimeout(ctx, cfg.LookupTimeout)
			if err := repo.EnsureIndexes(indexCtx); err != nil {
				log.Warn().Err(err).Msg("account indexes not ensured")
			}
			cancel()
			lookup, accounts = repo, repo

			probes = append(probes, handler.Probe{Name: "remote", Check: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			}})
			log.Info().Str("database", cfg.Remote.Database).Msg("remote backend configured")
		}
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, role changes stay in-process")
		} else {
			defer client.Close()

			rn := redis.NewRoleNotifier(client, logger.Component("role_notifier"))
			notifier = rn
			go func() {
				if err := rn.Relay(ctx, dispatcher); err != nil {
					log.Error().Err(err).Msg("role change relay stopped")
				}
			}()

			probes = append(probes, handler.Probe{Name: "redis", Check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}})
		}
	}

	// --- Sessions ---
	sessions := service.NewSessionRegistry(ctx, lookup, dispatcher, logger.Component("sessions"))
	go sessions.Run(ctx, cfg.SessionIdleTTL)

	stores := service.NewStoreFactory(localOpener, remoteOpener, logger.Component("stores"))

	e := api.NewRouter(api.Deps{
		Log:           log,
		JWTSecret:     cfg.JWTSecret,
		LookupTimeout: cfg.LookupTimeout,
		Sessions:      sessions,
		Stores:        stores,
		Accounts:      accounts,
		Notifier:      notifier,
		Probes:        probes,
	})

	// Docs
	docs.SwaggerInfo.Version = version

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // session events are long-lived
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info().Msg("signal caught, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Bool("remote", stores.RemoteAvailable()).Msg("server has started")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdown; err != nil {
		return err
	}

	sessions.Close()
	log.Info().Str("addr", srv.Addr).Msg("server has stopped")
	return nil
}
