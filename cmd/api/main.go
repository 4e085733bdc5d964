package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neoimplant/dental-assistant/internal/api/router"
	"github.com/neoimplant/dental-assistant/internal/app/bootstrap"
	"github.com/neoimplant/dental-assistant/internal/appointments"
	"github.com/neoimplant/dental-assistant/internal/auth"
	"github.com/neoimplant/dental-assistant/internal/chat"
	"github.com/neoimplant/dental-assistant/internal/clinic"
	appconfig "github.com/neoimplant/dental-assistant/internal/config"
	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/internal/notify"
	"github.com/neoimplant/dental-assistant/internal/observability/metrics"
	"github.com/neoimplant/dental-assistant/internal/patients"
	"github.com/neoimplant/dental-assistant/internal/webchat"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

func main() {
	// No .env in production, env vars come from the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" || cfg.JWTSecret == "" {
		logger.Error("api server requires DATABASE_URL and JWT_SECRET")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildDatabasePool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Clinic schedule and knowledge come from the same file.
	schedule, err := clinic.LoadSchedule(cfg.KnowledgePath, cfg.ClinicTimezone)
	if err != nil {
		logger.Error("failed to load clinic schedule", "error", err, "path", cfg.KnowledgePath)
		os.Exit(1)
	}
	validator := clinic.NewValidator(schedule)

	kb, err := conversation.LoadKnowledgeBase(cfg.KnowledgePath)
	if err != nil {
		logger.Error("failed to load knowledge base", "error", err, "path", cfg.KnowledgePath)
		os.Exit(1)
	}
	snippetStore := bootstrap.BuildSnippetStore(ctx, redisClient, kb, logger)

	llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}
	modelID := cfg.GeminiModelID
	if cfg.GeminiAPIKey == "" {
		modelID = cfg.BedrockModelID
	}
	responder := conversation.NewResponder(llm, snippetStore, cfg.ClinicName, cfg.ClinicPhone, modelID, logger.Logger)
	titler := conversation.NewTitler(llm, modelID, logger.Logger)

	patientStore := patients.NewStore(pool)
	appointmentStore := appointments.NewStore(pool)
	chatStore := chat.NewStore(pool)

	var turns conversation.ConversationStore = chatStore
	if redisClient != nil {
		cache := chat.NewHistoryCache(redisClient, nil)
		turns = chat.NewCachedStore(chatStore, cache, cfg.HistoryLimit, logger)
	}

	emailSender, err := bootstrap.BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build email sender", "error", err)
		os.Exit(1)
	}
	var notifyService *notify.Service
	if emailSender != nil {
		notifyService = notify.NewService(emailSender, cfg.ClinicName, cfg.ClinicPhone, logger)
	} else {
		logger.Warn("no email provider configured, confirmation emails disabled")
	}

	chatMetrics := metrics.NewChatMetrics(prometheus.DefaultRegisterer)

	orchestratorCfg := conversation.OrchestratorConfig{
		Validator:    validator,
		Turns:        turns,
		Appointments: appointmentStore,
		Patients:     patientStore,
		Responder:    responder,
		Titler:       titler,
		Metrics:      chatMetrics,
		Logger:       logger.Logger,
		HistoryLimit: cfg.HistoryLimit,
		ClinicPhone:  cfg.ClinicPhone,
	}
	if notifyService != nil {
		orchestratorCfg.Mailer = notifyService
	}
	orchestrator := conversation.NewOrchestrator(orchestratorCfg)

	var codeMailer auth.CodeMailer
	if notifyService != nil {
		codeMailer = notifyService
	}
	authService := auth.NewService(patientStore, codeMailer, auth.Config{
		JWTSecret:           cfg.JWTSecret,
		TokenTTL:            cfg.TokenTTL,
		VerificationCodeTTL: cfg.VerificationCodeTTL,
	}, logger)

	routerCfg := &router.Config{
		Logger:         logger,
		AuthService:    authService,
		AuthHandler:    auth.NewHandler(authService, logger),
		ChatHandler:    chat.NewHandler(chatStore, orchestrator, logger),
		WebchatHandler: webchat.NewHandler(authService, chatStore, orchestrator, logger),
		MetricsHandler: promhttp.Handler(),
		AuthRateLimit:  2,
		AuthRateBurst:  10,
	}
	r := router.New(routerCfg)

	// Read/write timeouts stay unset so /ws connections can live past one
	// request cycle.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
