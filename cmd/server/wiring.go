package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/internal/audit"
	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/server"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/token/refresh"
	"github.com/jrsteele09/go-session-server/token/refresh/pgrepo"
	"github.com/jrsteele09/go-session-server/token/refresh/redisrepo"
	refreshrepofake "github.com/jrsteele09/go-session-server/token/refresh/repofake"
	"github.com/jrsteele09/go-session-server/users"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
	"github.com/rs/zerolog/log"
)

const auditQueueSize = 256

type application struct {
	handler http.Handler
	closers []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to release resource")
		}
	}
}

// build wires config, signer, refresh store, audit sinks and users into the HTTP server
func build(ctx context.Context, c config.Config) (*application, error) {
	app := &application{}

	signer, err := token.NewSignerFromConfig(c)
	if err != nil {
		return nil, err
	}
	tokens := token.NewService(
		token.NewCodec(signer),
		token.WithTokenTTLs(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL()),
		token.WithIssuer(c.GetJWTIssuer()),
	)

	store, check, err := newRefreshStore(ctx, c, app)
	if err != nil {
		app.close()
		return nil, err
	}

	sink := newAuditSink(c, app)

	userRepo := fakeuserrepo.NewFakeUserRepo()
	if err := seedUsers(c.GetUsersFile(), userRepo); err != nil {
		app.close()
		return nil, err
	}

	engine := refresh.NewEngine(tokens, store, auth.NewSubjectResolver(userRepo),
		refresh.WithLogger(log.Logger),
		refresh.WithAuditSink(sink),
		refresh.WithStoreTimeout(c.GetStoreTimeout()),
	)
	sessions, err := auth.NewSessionService(userRepo, tokens, engine, auth.WithAuditSink(sink))
	if err != nil {
		app.close()
		return nil, err
	}

	srv, err := server.New(c, sessions, server.WithHealthCheck("refresh_store", check))
	if err != nil {
		app.close()
		return nil, err
	}
	app.handler = srv

	if c.GetCookieSameSite() == http.SameSiteNoneMode && !c.GetCookieSecure() {
		log.Warn().Msg("SameSite=None cookies without Secure are rejected by browsers")
	}
	return app, nil
}

func newRefreshStore(ctx context.Context, c config.StoreConfig, app *application) (refresh.Store, server.HealthCheck, error) {
	switch backend := c.GetStoreBackend(); backend {
	case config.StoreBackendMemory:
		log.Warn().Msg("Using the in-memory refresh store, sessions do not survive a restart")
		return refreshrepofake.NewFakeRefreshRepo(), nil, nil

	case config.StoreBackendRedis:
		client, err := redisrepo.NewClient(c.GetRedisURL())
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, client.Close)

		repo := redisrepo.NewRepo(client, redisrepo.DefaultPrefix)
		if err := repo.Ping(ctx); err != nil {
			return nil, nil, err
		}
		log.Info().Str("backend", backend).Msg("Refresh store connected")
		return repo, repo.Ping, nil

	case config.StoreBackendPostgres:
		if c.GetDatabaseURL() == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the %s store", backend)
		}
		db, err := pgrepo.Open(ctx, c.GetDatabaseDriver(), c.GetDatabaseURL())
		if err != nil {
			return nil, nil, err
		}
		app.closers = append(app.closers, db.Close)

		if err := pgrepo.Migrate(ctx, db); err != nil {
			return nil, nil, err
		}
		log.Info().Str("backend", backend).Str("driver", c.GetDatabaseDriver()).Msg("Refresh store connected")
		return pgrepo.NewRepo(db), db.PingContext, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

// newAuditSink always logs; AMQP publishing is added when AMQP_URL is set and reachable
func newAuditSink(c config.AuditConfig, app *application) audit.Sink {
	sinks := audit.MultiSink{audit.NewLogSink(log.Logger)}

	url := c.GetAMQPURL()
	if url == "" {
		return sinks
	}
	amqpSink, closeFn, err := audit.DialAMQP(url, c.GetAMQPExchange())
	if err != nil {
		log.Warn().Err(err).Msg("AMQP audit sink disabled")
		return sinks
	}
	queued := audit.NewAsyncSink(amqpSink, auditQueueSize, log.Logger)
	app.closers = append(app.closers, closeFn, queued.Close)
	log.Info().Str("exchange", c.GetAMQPExchange()).Msg("Publishing audit events to AMQP")
	return append(sinks, queued)
}

func seedUsers(path string, repo users.UserRepo) error {
	if path == "" {
		log.Warn().Msg("USERS_FILE is not set, no user can log in")
		return nil
	}
	seeded, err := users.LoadSeedFile(path)
	if err != nil {
		return err
	}
	if err := users.Seed(repo, seeded); err != nil {
		return err
	}
	log.Info().Int("count", len(seeded)).Str("path", path).Msg("Users loaded")
	return nil
}
