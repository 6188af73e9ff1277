package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/nsedesk/signalengine/internal/broadcast"
	"github.com/nsedesk/signalengine/internal/config"
	"github.com/nsedesk/signalengine/internal/database"
	"github.com/nsedesk/signalengine/internal/logger"
	"github.com/nsedesk/signalengine/internal/marketdata"
	"github.com/nsedesk/signalengine/internal/models"
	"github.com/nsedesk/signalengine/internal/pipeline"
	"github.com/nsedesk/signalengine/internal/scoring"
	"github.com/nsedesk/signalengine/internal/sentiment"
	"github.com/nsedesk/signalengine/internal/stream"
	syncscheduler "github.com/nsedesk/signalengine/internal/sync"
	"github.com/nsedesk/signalengine/pkg/api/handlers"
)

// Server wires every C1-C12 collaborator into a long-running daemon: a
// cron-scheduled sync+signal batch, and an HTTP surface exposing health,
// the last batch's summary, and an optional live WebSocket fan-out.
type Server struct {
	config *config.Config
	logger zerolog.Logger
	db     *database.DB

	instruments  *database.InstrumentStore
	candles      *database.CandleStore
	fundamentals *database.FundamentalsStore

	scheduler *syncscheduler.Scheduler
	pipeline  *pipeline.Pipeline

	streamServer  *stream.Server
	healthHandler *handlers.HealthHandler
	sink          *broadcast.Sink

	httpServer *http.Server
	router     *mux.Router
}

func main() {
	server, err := initializeServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize server: %v\n", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		server.logger.Fatal().Err(err).Msg("Failed to start server")
	}

	server.WaitForShutdown()
}

func initializeServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)
	appLogger.Info().Str("config", cfg.String()).Msg("Initializing signalengine server")

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	instruments, err := database.NewInstrumentStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrument store: %w", err)
	}
	candles, err := database.NewCandleStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create candle store: %w", err)
	}
	fundamentals, err := database.NewFundamentalsStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create fundamentals store: %w", err)
	}

	vendorClient := marketdata.NewHTTPClient(cfg.Vendor)
	scheduler := syncscheduler.NewScheduler(vendorClient, candles, cfg.Pipeline.WorkerCap, appLogger)

	strategy := scoring.NewStrategy(cfg.Pipeline.MinConfidence)

	var enricher pipeline.SentimentEnricher
	if cfg.Pipeline.SentimentEnabled {
		llmClient, err := sentiment.NewLLMClient(cfg.LLM.Provider, cfg.LLM.OpenAIAPIKey, cfg.LLM.AnthropicAPIKey, cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		newsFeed := sentiment.NewGoogleNewsFeed(cfg.News.BaseURL)
		enricher = sentiment.NewEnricher(newsFeed, llmClient, time.Duration(cfg.LLM.RequestInterval)*time.Second)
	}

	streamServer := stream.NewServer(appLogger)

	var sink *broadcast.Sink
	if cfg.Pipeline.BroadcastMode == "broadcast" {
		directory, err := database.NewPostgresUserDirectory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create user directory: %w", err)
		}
		deliverer := broadcast.NewTelegramDeliverer(cfg.Telegram.BroadcastToken)
		sink = broadcast.NewBroadcastSink(deliverer, directory, streamServer.Hub())
	} else {
		deliverer := broadcast.NewTelegramDeliverer(cfg.Telegram.BotToken)
		sink = broadcast.NewSingleSink(deliverer, cfg.Telegram.ChatID, streamServer.Hub())
	}

	signalPipeline := pipeline.New(candles, fundamentals, strategy, enricher, sink)

	router := mux.NewRouter()
	healthHandler := handlers.NewHealthHandler(db, "1.0.0")

	server := &Server{
		config:        cfg,
		logger:        appLogger,
		db:            db,
		instruments:   instruments,
		candles:       candles,
		fundamentals:  fundamentals,
		scheduler:     scheduler,
		pipeline:      signalPipeline,
		streamServer:  streamServer,
		healthHandler: healthHandler,
		sink:          sink,
		router:        router,
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      server.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return server, nil
}

func (s *Server) setupRoutes() {
	if s.config.Server.EnableCORS {
		s.router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusOK)
					return
				}
				next.ServeHTTP(w, r)
			})
		})
	}

	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	})

	apiRouter := s.router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", s.healthHandler.GetHealth).Methods("GET")
	apiRouter.HandleFunc("/summary", s.healthHandler.GetSummary).Methods("GET")

	s.streamServer.RegisterRoutes(s.router)

	s.logger.Info().Msg("Routes configured")
}

// Start schedules the daily sync+signal batch and brings up the HTTP
// server. The first run fires on ScheduleDaily's cron trigger, not at
// startup, matching spec.md §4.8's "runs on a schedule, not on demand".
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("Starting server")

	s.streamServer.Start()

	if err := s.scheduler.ScheduleDaily("0 18 * * 1-5", func() {
		s.runDailyBatch(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule daily batch: %w", err)
	}

	go func() {
		s.logger.Info().Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	return nil
}

// runDailyBatch reconciles every active instrument's candles against the
// vendor, then builds and broadcasts a signal per symbol, matching
// spec.md §7's sync-then-build batch contract.
func (s *Server) runDailyBatch(ctx context.Context) {
	timeframe, err := models.ParseTimeframe(s.config.Pipeline.Timeframe)
	if err != nil {
		s.logger.Error().Err(err).Msg("invalid pipeline.timeframe, aborting batch")
		return
	}

	instruments, err := s.instruments.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list active instruments")
		return
	}

	symbols := make([]string, 0, len(instruments))
	tasks := make([]syncscheduler.Task, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
		tasks = append(tasks, syncscheduler.Task{Symbol: inst.Symbol, Timeframe: timeframe})
	}

	mode := syncscheduler.Mode(s.config.Pipeline.SyncMode)
	syncResults := s.scheduler.Run(ctx, tasks, mode, time.Now())
	for r := range syncResults {
		if r.Status == syncscheduler.StatusError {
			s.logger.Warn().Str("symbol", r.Symbol).Err(r.Err).Msg("sync task failed")
		}
	}

	buildCfg := pipeline.Config{
		Timeframe:        timeframe,
		MinConfidence:    s.config.Pipeline.MinConfidence,
		SentimentEnabled: s.config.Pipeline.SentimentEnabled,
		BroadcastEnabled: true,
		Lookback:         s.config.Pipeline.LookbackCandles,
	}

	results := s.pipeline.RunBatch(ctx, symbols, buildCfg, s.config.Pipeline.WorkerCap)
	summary := pipeline.Summarize(results)

	s.healthHandler.RecordSummary(summary, symbols)
	s.logger.Info().
		Int("total", summary.Total).
		Int("signals", summary.Signals).
		Int("signals_sent", summary.SignalsSent).
		Int("errors", summary.Errors).
		Msg("Daily batch complete")

	s.sink.SendSummary(ctx, summary, symbols)
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then drains in-flight work.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	s.scheduler.Stop()
	s.streamServer.Stop()

	if err := s.db.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Database close error")
	}

	s.logger.Info().Msg("Server shutdown complete")
}
