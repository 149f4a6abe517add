package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hive-corporation/threatbridge/internal/adapter/threatconnect"
	"github.com/hive-corporation/threatbridge/internal/config"
	"github.com/hive-corporation/threatbridge/internal/core/domain"
	"github.com/hive-corporation/threatbridge/internal/core/reporter"
)

func main() {
	reportFile := flag.String("file", "report.json", "path to the analysis report JSON")
	configPath := flag.String("config", "threatbridge.yml", "path to config file")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall publish timeout")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded credentials from .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ error loading config: %v", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}

	data, err := os.ReadFile(*reportFile)
	if err != nil {
		log.Fatalf("❌ error reading report file: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Fatalf("❌ error parsing report file: %v", err)
	}

	tcCfg := cfg.ThreatBridge.ThreatConnect
	tc, err := threatconnect.NewClient(tcCfg.APIAccessID, tcCfg.APISecretKey, tcCfg.TargetSource, tcCfg.APIBaseURL)
	if err != nil {
		log.Fatalf("❌ error creating ThreatConnect client: %v", err)
	}

	rep := reporter.New(tc, reporter.Config{
		TargetSource:       tcCfg.TargetSource,
		ReportLinkTemplate: tcCfg.ReportLinkTemplate,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("🔍 publishing %s to %s...\n", *reportFile, tcCfg.APIBaseURL)

	if err := rep.Run(ctx, domain.NewReport(raw)); err != nil {
		log.Fatalf("❌ failed to publish report: %v", err)
	}

	fmt.Println("✅ report published")
}
