package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/internal/bus"
	"github.com/fxpilot/advisor/internal/database"
	"github.com/fxpilot/advisor/internal/engine"
	"github.com/fxpilot/advisor/internal/feed"
	"github.com/fxpilot/advisor/internal/ml"
	"github.com/fxpilot/advisor/internal/news"
	"github.com/fxpilot/advisor/internal/portfolio"
	"github.com/fxpilot/advisor/internal/risk"
	"github.com/fxpilot/advisor/internal/strategy"
	"github.com/fxpilot/advisor/internal/tradelog"
	"github.com/fxpilot/advisor/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	cfg := models.LoadConfig()
	setupLogger(cfg)

	log.Info().
		Strs("instruments", cfg.Instruments).
		Str("timeframe", cfg.Timeframe).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting advisor")

	eventBus := bus.New()
	journal := tradelog.NewLogger(cfg.TradesDir)
	guard := risk.NewGuard(cfg.MaxTradesPerDay, cfg.MaxTradesPerInstrumentPerDay, journal)
	oracle := ml.NewClient(cfg.MLBaseURL, cfg.MLTimeout)

	var calendar news.CalendarSource = news.NoopSource{}
	if cfg.CalendarFile != "" {
		source, err := news.NewFileSource(cfg.CalendarFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.CalendarFile).Msg("calendar unavailable, news checks disabled")
		} else {
			calendar = source
		}
	}

	strategies := []strategy.Strategy{
		strategy.NewTrendFollowing(),
		strategy.NewMomentumBreakout(),
		strategy.NewRangeReversion(),
	}
	engine.New(cfg, eventBus, strategies, guard, oracle, calendar, journal)

	store := portfolio.NewStore(cfg.ActiveTradesPath())
	if _, err := portfolio.NewManager(eventBus, store, journal, cfg.DecisionCacheTTL); err != nil {
		log.Fatal().Err(err).Msg("portfolio init failed")
	}

	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("trade archive unavailable, continuing without it")
		} else {
			defer db.Close()
			database.NewRecorder(db, eventBus)
		}
	}

	marketFeed := feed.NewRandomFeed(eventBus, cfg.Instruments, cfg.Timeframe, cfg.CandleCount, cfg.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go marketFeed.Run(ctx)

	eventBus.Run(ctx)
	log.Info().Msg("advisor stopped")
}

func setupLogger(cfg *models.Config) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.Logger.Level(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
