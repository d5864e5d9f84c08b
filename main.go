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

	"github.com/rs/cors"

	"github.com/zarkopopovski/v2v-chat/config"
	"github.com/zarkopopovski/v2v-chat/controllers"
	"github.com/zarkopopovski/v2v-chat/db"
	"github.com/zarkopopovski/v2v-chat/llm"
	"github.com/zarkopopovski/v2v-chat/telemetry"
)

type Handlers struct {
	SessionController *controllers.SessionController
	ChatController    *controllers.ChatController
}

func newRouter(handlers *Handlers, allowedOrigins []string, logger *slog.Logger) http.Handler {
	httpRouter := http.NewServeMux()

	httpRouter.HandleFunc("GET /api", controllers.HealthCheck)

	//SESSION
	httpRouter.HandleFunc("POST /api/session", handlers.SessionController.CreateSession)
	httpRouter.HandleFunc("GET /api/session", handlers.SessionController.ListSessions)
	httpRouter.HandleFunc("GET /api/session/{sessionID}", handlers.SessionController.GetSession)
	httpRouter.HandleFunc("DELETE /api/session/{sessionID}", handlers.SessionController.DeleteSession)

	//CHAT
	httpRouter.HandleFunc("POST /api/chat", handlers.ChatController.Chat)
	httpRouter.HandleFunc("GET /api/gpt", handlers.ChatController.ChatFromQuery)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{controllers.RequestIDHeader},
	})

	return controllers.RequestLogger(logger, corsHandler.Handler(httpRouter))
}

// serve runs srv until it fails or a signal arrives on stop, then shuts it
// down gracefully.
func serve(srv *http.Server, stop <-chan os.Signal, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case thisSignal := <-stop:
		logger.Info("graceful shutdown", "signal", thisSignal.String())
	}

	timeOutContext, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(timeOutContext)
}

func main() {
	os.Exit(run())
}

// run returns the process exit code, so deferred closers run on every path.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return 1
	}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		slog.Error("failed to init logger", "err", err)
		return 1
	}
	defer closeLog()

	if cfg.OTelEnabled {
		shutdownTelemetry, err := telemetry.InitTelemetry(context.Background(), cfg.LogDir)
		if err != nil {
			logger.Error("failed to init telemetry", "err", err)
			return 1
		}
		defer shutdownTelemetry()
	}

	dbHandler, err := db.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		return 1
	}
	defer dbHandler.Close()

	completionClient, err := llm.NewClient(llm.Options{
		Token:   cfg.OpenAIToken,
		Model:   cfg.LLMModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		logger.Error("failed to create completion client", "err", err)
		return 1
	}
	if !completionClient.Configured() {
		logger.Warn("OPENAI_API_KEY is not set, chat endpoints will answer 503")
	}

	handlers := &Handlers{
		SessionController: &controllers.SessionController{
			DBManager: dbHandler,
		},
		ChatController: &controllers.ChatController{
			DBManager: dbHandler,
			Completer: completionClient,
		},
	}

	thisServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(handlers, cfg.AllowedOrigins, logger),
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 30*time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("start listening", "port", cfg.Port, "model", completionClient.Model())
	if err := serve(thisServer, sigChan, logger); err != nil {
		logger.Error("server stopped", "err", err)
		return 1
	}
	return 0
}
