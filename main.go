package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	bookingfsm "github.com/u4s-chat/server/internal/booking/fsm"
	"github.com/u4s-chat/server/internal/booking/model"
	"github.com/u4s-chat/server/internal/booking/pms"
	bookingrepo "github.com/u4s-chat/server/internal/booking/repo"
	"github.com/u4s-chat/server/internal/booking/slotfill"
	"github.com/u4s-chat/server/internal/chat"
	chatrepo "github.com/u4s-chat/server/internal/chat/repo"
	"github.com/u4s-chat/server/internal/core"
	"github.com/u4s-chat/server/internal/handler"
	"github.com/u4s-chat/server/internal/llm"
	"github.com/u4s-chat/server/internal/router"
	logx "github.com/u4s-chat/server/pkg/logger"
	pkgredis "github.com/u4s-chat/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment  string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":8080"`
	SessionTTL   string `envconfig:"SESSION_TTL" default:"72h"`
	IncludeDebug bool   `envconfig:"INCLUDE_DEBUG" default:"false"`

	// Infrastructure
	Redis pkgredis.Config

	// Booking dialogue
	Booking model.FSMConfig
	Nav     model.NavigationConfig

	// External collaborators
	Shelter pms.Config
	Gemini  llm.Config
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	ttl, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("Invalid SESSION_TTL '%s': %v", cfg.SessionTTL, err)
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	synth, err := llm.NewGeminiSynthesizer(ctx, cfg.Gemini)
	if err != nil {
		log.Fatalf("Failed to initialise answer synthesizer: %v", err)
	}

	stateStore := bookingrepo.NewRedisStateStore(rdb, ttl)
	historyRepo := chatrepo.NewRedisHistoryRepo(rdb, ttl)
	quoteProvider := pms.NewShelterClient(cfg.Shelter)

	bookingService := bookingfsm.NewService(
		stateStore,
		quoteProvider,
		slotfill.New(),
		bookingfsm.NewContextValidator(),
		bookingfsm.NewNavigationService(cfg.Nav),
		cfg.Booking,
	)

	// Retrieval pipeline is deployed separately; without it the synthesizer
	// answers from its prompt alone.
	composer := chat.NewComposer(bookingService, historyRepo, nil, synth, cfg.IncludeDebug)

	e := router.New(handler.NewChatHandler(composer))
	logx.Info().Str("addr", cfg.HTTPAddr).Str("env", env.String()).Msg("starting server")
	if err := e.Start(cfg.HTTPAddr); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}
