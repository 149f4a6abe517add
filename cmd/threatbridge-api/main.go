package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hive-corporation/threatbridge/internal/adapter/handler"
	"github.com/hive-corporation/threatbridge/internal/adapter/notifier"
	"github.com/hive-corporation/threatbridge/internal/adapter/threatconnect"
	"github.com/hive-corporation/threatbridge/internal/config"
	"github.com/hive-corporation/threatbridge/internal/core/reporter"
)

func main() {
	configPath := flag.String("config", "threatbridge.yml", "path to config file")
	flag.Parse()

	// Load .env file if it exists (credentials can come from the environment)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (this is fine if credentials are in the config file)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config %s: %v", *configPath, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	tcCfg := cfg.ThreatBridge.ThreatConnect
	tc, err := threatconnect.NewClient(tcCfg.APIAccessID, tcCfg.APISecretKey, tcCfg.TargetSource, tcCfg.APIBaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to create ThreatConnect client: %v", err)
	}

	reporter.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	rep := reporter.New(tc, reporter.Config{
		TargetSource:       tcCfg.TargetSource,
		ReportLinkTemplate: tcCfg.ReportLinkTemplate,
	})

	// Slack notifier (optional - only if token configured)
	var slackNotifier *notifier.SlackNotifier
	if slackCfg := cfg.ThreatBridge.Notify.Slack; slackCfg.BotToken != "" {
		slackNotifier = notifier.NewSlackNotifier(slackCfg.BotToken, slackCfg.Channel, slackCfg.MentionTeam)
		log.Println("✅ Slack notifier enabled")
	} else {
		log.Println("⚠️  Slack notifier disabled (no bot token)")
	}

	// HTTP router
	router := mux.NewRouter()

	restHandler := handler.NewRestHandler(rep, slackNotifier, tcCfg.ReportLinkTemplate)

	router.HandleFunc("/api/v1/health", restHandler.Health).Methods("GET")
	router.HandleFunc("/api/v1/reports", restHandler.SubmitReport).Methods("POST")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	addr := cfg.ThreatBridge.Server.Addr
	if addr == "" {
		addr = "localhost:8080" // Secure default - localhost only
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 6 * time.Minute, // report publishing is synchronous
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 ThreatBridge API listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Shutdown error: %v", err)
	}
}
