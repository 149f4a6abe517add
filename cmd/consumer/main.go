package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hive-corporation/threatbridge/internal/adapter/intake"
	"github.com/hive-corporation/threatbridge/internal/adapter/threatconnect"
	"github.com/hive-corporation/threatbridge/internal/config"
	"github.com/hive-corporation/threatbridge/internal/core/domain"
	"github.com/hive-corporation/threatbridge/internal/core/reporter"
)

func main() {
	configPath := flag.String("config", "threatbridge.yml", "path to config file")
	flag.Parse()

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
	rep := reporter.New(tc, reporter.Config{
		TargetSource:       tcCfg.TargetSource,
		ReportLinkTemplate: tcCfg.ReportLinkTemplate,
	})

	redisCfg := cfg.ThreatBridge.Intake.Redis
	if redisCfg.Key == "" {
		redisCfg.Key = "analysis_reports"
	}
	consumer, err := intake.NewRedisConsumer(intake.RedisConfig{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		Key:          redisCfg.Key,
		BlockTimeout: redisCfg.BlockTimeout,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create Redis consumer: %v", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("🚀 Consuming analysis reports from list %q...", redisCfg.Key)

	published := 0
	for {
		payload, err := consumer.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			log.Printf("❌ Error reading from queue: %v", err)
			continue
		}
		if payload == nil {
			// Queue stayed empty for one block interval.
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(payload, &raw); err != nil {
			log.Printf("❌ Skipping malformed report payload: %v", err)
			continue
		}

		if err := rep.Run(ctx, domain.NewReport(raw)); err != nil {
			// Fatal for this report only; the queue keeps moving.
			log.Printf("❌ Failed to publish report: %v", err)
			continue
		}
		published++
		log.Printf("📦 Report published (total: %d)", published)
	}

	log.Printf("🏁 Consumer stopped. Reports published: %d", published)
}
