// File path: cmd/quizmatch/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/studyaid/quizmatch/internal/api"
	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/data/orchestrator"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("quizmatch: .env file not loaded", "error", err)
	} else {
		logger.Info("quizmatch: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite question catalog")
	maxBatch := flag.Int("max-batch", 0, "maximum questions accepted per bulk request (0 uses defaults)")
	flag.Parse()

	logger.Info("quizmatch: startup initiated", "addr", *addr, "catalog", *catalogPath)

	orchCfg, err := orchestrator.LoadConfig()
	if err != nil {
		logger.Error("quizmatch: orchestrator config load failed", "error", err)
		fmt.Println("orchestrator config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		orchCfg.SQLitePath = trimmed
	}
	if dir := filepath.Dir(orchCfg.SQLitePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("quizmatch: catalog directory creation failed", "dir", dir, "error", err)
			fmt.Println("catalog directory error:", err)
			os.Exit(1)
		}
	}

	orch, err := orchestrator.New(ctx, orchCfg)
	if err != nil {
		logger.Error("quizmatch: orchestrator initialization failed", "error", err)
		fmt.Println("orchestrator error:", err)
		os.Exit(1)
	}
	defer orch.Close()

	if index := orch.Index(); index != nil {
		if index.Available() {
			logger.Info("quizmatch: search index available")
		} else {
			logger.Warn("quizmatch: search index unreachable, matching degrades to store fallback")
		}
	} else {
		logger.Info("quizmatch: search index not configured")
	}
	logger.Info("quizmatch: cache state", "cache", orch.Cache().String())

	cfg := api.DefaultConfig()
	if *maxBatch > 0 {
		cfg.MaxBatchSize = *maxBatch
	}

	server, err := api.NewServer(orch, &cfg)
	if err != nil {
		logger.Error("quizmatch: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("quizmatch: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("quizmatch: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("quizmatch: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultCatalogPath() string {
	return filepath.Join("data", "quizmatch.db")
}
