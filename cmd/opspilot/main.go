package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/opspilot/internal/agent"
	"github.com/gosuda/opspilot/internal/auth"
	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/config"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/experience"
	"github.com/gosuda/opspilot/internal/gateway"
	"github.com/gosuda/opspilot/internal/gateway/connectors"
	"github.com/gosuda/opspilot/internal/integration"
	"github.com/gosuda/opspilot/internal/notify"
	"github.com/gosuda/opspilot/internal/reasoning"
	"github.com/gosuda/opspilot/internal/secrets"
	"github.com/gosuda/opspilot/internal/server"
	"github.com/gosuda/opspilot/internal/signals"
	"github.com/gosuda/opspilot/internal/store/memory"
	"github.com/gosuda/opspilot/internal/store/postgres"
	redisstore "github.com/gosuda/opspilot/internal/store/redis"
	"github.com/gosuda/opspilot/internal/store/seed"
	"github.com/gosuda/opspilot/internal/workflow"
)

// datastore is satisfied by both store backends.
type datastore interface {
	seed.Repositories
	Integrations() domain.IntegrationRepository
	Close()
}

// eventBus is satisfied by both pub/sub backends.
type eventBus interface {
	bus.PubSub
	Close() error
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	configureLogging(cfg.Log)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Store.Seed {
		seeded, seedErr := seed.Apply(ctx, store)
		if seedErr != nil {
			return seedErr
		}
		if seeded {
			log.Info().Msg("seeded demo workspace")
		}
	}

	pubsub, states, err := openBus(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := pubsub.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("close pub/sub")
		}
	}()

	vault, err := secrets.NewVaultFromPassphrase(cfg.Vault.Passphrase)
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}

	// Connectors resolve credentials through the integration service, which
	// in turn lists the gateway's tools; register them after both exist.
	gw := gateway.New()
	integrations := integration.NewService(store.Integrations(), gw, vault, states, pubsub, oauthProviders(cfg)...)

	slackOpts := []connectors.SlackOption{connectors.WithSlackBotToken(cfg.Slack.BotToken)}
	if cfg.Slack.APIURL != "" {
		slackOpts = append(slackOpts, connectors.WithSlackAPIURL(cfg.Slack.APIURL))
	}
	gw.Register(connectors.NewStripe())
	gw.Register(connectors.NewSupabase())
	gw.Register(connectors.NewGitHub(integrations))
	gw.Register(connectors.NewNotion(integrations))
	gw.Register(connectors.NewSlack(integrations, slackOpts...))

	sig := signals.New(store.Metrics(), store.Anomalies(), pubsub, signals.Config{
		Interval:   cfg.Signals.Interval,
		Workspaces: cfg.Signals.Workspaces,
	})
	ui := experience.New(store.UISchemas(), experience.Sources{
		Metrics:   store.Metrics(),
		Anomalies: store.Anomalies(),
		Workflows: store.Workflows(),
		Insights:  store.Insights(),
	}, pubsub)
	engine := workflow.NewEngine(store.Workflows(), gw, pubsub)
	scheduler := workflow.NewScheduler(engine)

	orchestrator := agent.NewOrchestrator(
		store.Sessions(),
		store.Agents(),
		agent.NewPlanComposer(planReasoner(cfg.Reasoning)),
		agent.NewInsightGenerator(sig),
		sig,
		gw,
		ui,
		agent.NewAdvisor(engine),
		pubsub,
		agent.Options{PersistOnAbandon: cfg.Chat.PersistOnAbandon},
	)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, server.Deps{
		Store:        store,
		PubSub:       pubsub,
		Chat:         orchestrator,
		Tools:        gw,
		Signals:      sig,
		Experience:   ui,
		Workflows:    engine,
		Integrations: integrations,
	})

	if err := scheduler.Start(ctx, cfg.Signals.Workspaces); err != nil {
		return err
	}
	log.Info().Int("entries", scheduler.Entries()).Msg("workflow scheduler started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sig.Run(gctx)
	})
	if cfg.Alerts.Channel != "" {
		alerts := notify.New(gw, notify.NewRegistry(cfg.Alerts.Channel), pubsub, domain.Severity(cfg.Alerts.MinSeverity))
		g.Go(func() error {
			return alerts.Run(gctx, cfg.Signals.Workspaces)
		})
		log.Info().Str("channel", cfg.Alerts.Channel).Msg("anomaly alerts enabled")
	}
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		// Block until shutdown signal or a sibling failure.
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func configureLogging(cfg config.LogConfig) {
	level, parseErr := zerolog.ParseLevel(cfg.Level)
	if parseErr != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (datastore, error) {
	if cfg.Store.Driver != config.StorePostgres {
		store, err := memory.New(cfg.Store.DataFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("data_file", cfg.Store.DataFile).Msg("using in-memory store")
		return store, nil
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// openBus connects to Redis when an address is configured and falls back to
// the in-process bus and state store otherwise.
func openBus(ctx context.Context, cfg *config.Config) (eventBus, integration.StateStore, error) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("OPSPILOT_REDIS_ADDR unset, using in-process event bus")
		return memory.NewPubSub(), memory.NewStateStore(), nil
	}

	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return pubsub, pubsub.StateStore(), nil
}

func oauthProviders(cfg *config.Config) []*auth.OAuthProvider {
	var providers []*auth.OAuthProvider
	if c := cfg.OAuth.GitHub; c.Enabled() {
		providers = append(providers, auth.NewGitHubProvider(c.ClientID, c.ClientSecret, cfg.OAuthRedirectURL("github")))
	}
	if c := cfg.OAuth.Slack; c.Enabled() {
		providers = append(providers, auth.NewSlackProvider(c.ClientID, c.ClientSecret, cfg.OAuthRedirectURL("slack")))
	}
	if c := cfg.OAuth.Stripe; c.Enabled() {
		providers = append(providers, auth.NewStripeProvider(c.ClientID, c.ClientSecret, cfg.OAuthRedirectURL("stripe")))
	}
	if c := cfg.OAuth.Notion; c.Enabled() {
		providers = append(providers, auth.NewNotionProvider(c.ClientID, c.ClientSecret, cfg.OAuthRedirectURL("notion")))
	}
	for _, p := range providers {
		log.Info().Str("provider", p.Name).Msg("oauth enabled")
	}
	return providers
}

// planReasoner returns nil, not a typed nil, when no service is configured.
func planReasoner(cfg config.ReasoningConfig) agent.Reasoner {
	if cfg.URL == "" {
		return nil
	}
	return reasoning.New(reasoning.Config{
		URL:        cfg.URL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
}
