package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BTreeMap/IntakeFlow/internal/flow"
	"github.com/BTreeMap/IntakeFlow/internal/genai"
	"github.com/BTreeMap/IntakeFlow/internal/messaging"
	"github.com/BTreeMap/IntakeFlow/internal/scheduler"
	"github.com/BTreeMap/IntakeFlow/internal/store"
	"github.com/BTreeMap/IntakeFlow/internal/twiliowhatsapp"
)

// Run wires all modules together and serves until SIGINT or SIGTERM.
//
// An unreachable conversation store is fatal: the process refuses to start
// rather than run without a recorder. A missing GenAI key is likewise fatal
// unless GenAI is explicitly disabled.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, twilioOpts []twiliowhatsapp.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:           DefaultAddr,
		SweepSchedule:  DefaultSweepSchedule,
		SessionMaxIdle: DefaultSessionMaxIdle,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := store.NewConversationStore(cfg.DBDriver, storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize conversation store: %w", err)
	}
	defer st.Close()
	slog.Info("Conversation store ready", "driver", cfg.DBDriver)

	var genaiClient genai.ClientInterface
	if cfg.DisableGenAI {
		slog.Warn("GenAI disabled, escalated turns will carry the apology text")
	} else {
		client, err := genai.NewClient(genaiOpts...)
		if err != nil {
			return fmt.Errorf("failed to initialize GenAI client: %w", err)
		}
		genaiClient = client
	}

	twilioClient, err := twiliowhatsapp.NewClient(twilioOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize Twilio client: %w", err)
	}
	msgService := messaging.NewTwilioService(twilioClient)

	sessions := flow.NewInMemorySessionStore()
	engine := flow.NewEngine(sessions, genaiClient, st)

	handler := messaging.NewResponseHandler(msgService, func(ctx context.Context, from, text string, _ int64) (string, error) {
		return engine.HandleMessage(ctx, from, text)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	handler.Start(ctx)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob(cfg.SweepSchedule, func() {
		sessions.SweepIdle(cfg.SessionMaxIdle)
	}); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	slog.Info("Session sweep scheduled", "schedule", cfg.SweepSchedule, "max_idle", cfg.SessionMaxIdle)

	server := NewServer(msgService, st, engine, msgService.WebhookHandler)
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: server.Routes()}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("IntakeFlow API listening", "addr", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := msgService.Stop(); err != nil {
		slog.Error("Messaging service stop failed", "error", err)
	}
	slog.Info("IntakeFlow stopped")
	return nil
}
