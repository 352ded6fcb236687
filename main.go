package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	becknx "github.com/shreyvishal/beckn-deg-bot/agent/beckn"
	"github.com/shreyvishal/beckn-deg-bot/agent/classify"
	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
	llmx "github.com/shreyvishal/beckn-deg-bot/agent/llm"
	"github.com/shreyvishal/beckn-deg-bot/agent/prompt"
	"github.com/shreyvishal/beckn-deg-bot/agent/responder"
	routerx "github.com/shreyvishal/beckn-deg-bot/agent/router"
	statex "github.com/shreyvishal/beckn-deg-bot/agent/state"
	"github.com/shreyvishal/beckn-deg-bot/agent/transaction"
	configx "github.com/shreyvishal/beckn-deg-bot/pkg/config"
	_ "github.com/shreyvishal/beckn-deg-bot/pkg/logger/autoload"
	openrouterx "github.com/shreyvishal/beckn-deg-bot/pkg/openrouter"
	serverx "github.com/shreyvishal/beckn-deg-bot/server"
	userx "github.com/shreyvishal/beckn-deg-bot/user"
)

// AppConfig holds the top-level switches that are not owned by a component
// config. DatabaseURL and SessionMirror are both optional: without them the
// gateway runs unauthenticated with purely in-memory sessions.
type AppConfig struct {
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	SessionMirror bool   `envconfig:"SESSION_MIRROR"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid openrouter config")
	}

	rawClient := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.ModelRoleResponder))
	if rawClient == nil {
		log.Fatal().Msg("openrouter client not configured")
	}
	preflightCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := openrouterx.Preflight(preflightCtx, rawClient); err != nil {
		log.Warn().Err(err).Msg("openrouter preflight failed, continuing")
	}
	cancel()

	prompts := prompt.LoadPromptSet()

	intentModelCfg := llmCfg.OpenRouterFor(contractx.ModelRoleIntent)
	intentModel, err := intentModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("build intent model")
	}
	intents, err := classify.NewIntentClassifier(ctx, intentModel, prompts.Intent)
	if err != nil {
		log.Fatal().Err(err).Msg("build intent classifier")
	}

	domainModelCfg := llmCfg.OpenRouterFor(contractx.ModelRoleDomain)
	domainModel, err := domainModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("build domain model")
	}
	domains, err := classify.NewDomainClassifier(ctx, domainModel, prompts.Domain)
	if err != nil {
		log.Fatal().Err(err).Msg("build domain classifier")
	}

	responderModelCfg := llmCfg.OpenRouterFor(contractx.ModelRoleResponder)
	responderModel, err := responderModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("build responder model")
	}
	luma, err := responder.New(ctx, responderModel, prompts.Persona)
	if err != nil {
		log.Fatal().Err(err).Msg("build responder")
	}

	becknCfg := configx.MustNew[becknx.Config]("BECKN")
	network, err := becknx.NewClient(*becknCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build beckn client")
	}
	agent, err := transaction.New(network)
	if err != nil {
		log.Fatal().Err(err).Msg("build transaction agent")
	}

	var storeOpts []statex.StoreOption
	if appCfg.SessionMirror {
		mirrorCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		mirror, err := statex.NewUpstashRedisMirror(*mirrorCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build session mirror")
		}
		storeOpts = append(storeOpts, statex.WithMirror(mirror))
		log.Info().Msg("session mirror enabled")
	}
	store := statex.NewMemoryStore(storeOpts...)

	gateway, err := routerx.New(store, intents, domains, agent, luma)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	var accounts *serverx.AccountHandler
	if appCfg.DatabaseURL != "" {
		db := userx.OpenDB(appCfg.DatabaseURL)
		defer db.Close()

		userStore, err := userx.NewStore(db)
		if err != nil {
			log.Fatal().Err(err).Msg("build user store")
		}
		if err := userStore.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("init user tables")
		}
		accounts, err = serverx.NewAccountHandler(userStore)
		if err != nil {
			log.Fatal().Err(err).Msg("build account handler")
		}
		log.Info().Msg("auth subsystem enabled")
	} else {
		log.Info().Msg("auth subsystem disabled (DATABASE_URL not set)")
	}

	srvCfg := configx.MustNew[serverx.Config]("SERVER")
	srv, err := serverx.New(*srvCfg, gateway, accounts)
	if err != nil {
		log.Fatal().Err(err).Msg("build http server")
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
	log.Info().Msg("server stopped")
}
