// PharmaPet Daemon - health companion background service
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmapet/pharmapet/internal/alert"
	"github.com/pharmapet/pharmapet/internal/api"
	"github.com/pharmapet/pharmapet/internal/config"
	"github.com/pharmapet/pharmapet/internal/email"
	"github.com/pharmapet/pharmapet/internal/health"
	"github.com/pharmapet/pharmapet/internal/llm"
	"github.com/pharmapet/pharmapet/internal/logging"
	"github.com/pharmapet/pharmapet/internal/notifications"
	"github.com/pharmapet/pharmapet/internal/reminder"
	"github.com/pharmapet/pharmapet/internal/report"
	"github.com/pharmapet/pharmapet/internal/scheduler"
	"github.com/pharmapet/pharmapet/internal/storage"
)

var (
	configPath string
	dataDir    string
	port       int
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pharmapet",
		Short: "PharmaPet Daemon - Your health companion",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if verbose {
		logging.SetLevel(logging.DEBUG)
	}
	log := logging.WithField("component", "daemon")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	log.Info("starting PharmaPet daemon")

	// Database
	dbPath := filepath.Join(cfg.DataDir, "pharmapet.db")
	db, err := storage.Open(storage.Config{Path: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Stores
	meds := storage.NewMedicationStore(db)
	metrics := storage.NewMetricStore(db)
	contacts := storage.NewContactStore(db)
	settings := storage.NewSettingsStore(db)

	// Daemon lifetime context. Background work (classification, alert
	// escalation) runs on this, never on a request context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Status cache
	statusCache := health.NewStatusCache(settings)
	if err := statusCache.Load(ctx); err != nil {
		log.Warn("restoring health status failed, using defaults: %v", err)
	}

	// Reasoning service
	llmClient := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenRouter.APIKey,
		BaseURL: cfg.OpenRouter.BaseURL,
		Model:   cfg.OpenRouter.Model,
		Timeout: 30 * time.Second,
	})
	if !llmClient.IsConfigured() {
		log.Warn("OPENROUTER_API_KEY not set, health analysis disabled")
	}

	// Notifications
	notifySvc := notifications.NewService(db)

	// Email + alert escalation
	sender := email.NewSender(email.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromEmail:   cfg.SMTP.FromEmail,
		FromName:    cfg.SMTP.FromName,
		UseStartTLS: cfg.SMTP.UseStartTLS,
	})
	if !sender.IsConfigured() {
		log.Warn("SMTP not configured, critical alerts will use the compose fallback")
	}

	reports := report.NewGenerator(llmClient, meds, metrics, settings, statusCache)

	escalator := alert.NewEscalator(
		email.NewBulkSender(sender),
		alert.NewMailtoComposer(),
		reports,
		func(nctx context.Context, title, body string) {
			if _, err := notifySvc.Raise(nctx, notifications.ChannelAlert, title, body, "alert-failure"); err != nil {
				log.Error("raising alert-failure notification failed: %v", err)
			}
		},
	)

	// Classifier with critical-alert hook
	classifier := health.NewClassifier(llmClient, statusCache, func(message string) {
		go func() {
			list, err := contacts.GetAll(ctx)
			if err != nil {
				log.Error("loading contacts for escalation failed: %v", err)
				return
			}
			if err := escalator.Escalate(ctx, list, message); err != nil {
				log.Error("escalation failed: %v", err)
			}
		}()
	})

	analyzer := health.NewAnalyzer(classifier, meds, metrics, settings)
	resolver := health.NewResolver(meds, metrics, statusCache, cfg.Pipeline.StalenessThreshold)

	// Periodic reminder check
	sched := scheduler.New()
	trigger := reminder.NewTrigger(meds, settings, resolver, notifySvc)
	if err := sched.Register(trigger.Task(cfg.Pipeline.ReminderInterval)); err != nil {
		return fmt.Errorf("registering reminder task: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// API server
	server := api.New(api.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Medications:   meds,
		Metrics:       metrics,
		Contacts:      contacts,
		Settings:      settings,
		StatusCache:   statusCache,
		Resolver:      resolver,
		Analyzer:      analyzer,
		Reports:       reports,
		Notification:  notifySvc,
		DaemonContext: ctx,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		sched.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Stop(shutdownCtx)
		cancel()
	}()

	log.Info("PharmaPet ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
