package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"newsforge/internal/config"
	"newsforge/internal/domain"
	"newsforge/internal/llm"
	"newsforge/internal/logging"
	"newsforge/internal/pipeline"
)

var (
	configPath  = flag.String("config", "config.toml", "Path to configuration file")
	inputPath   = flag.String("input", "-", "Path to a JSON array of articles, or - for stdin")
	metricsAddr = flag.String("metrics", "", "Address to serve prometheus metrics on, empty to disable")
	pretty      = flag.Bool("pretty", false, "Indent the JSON output")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal: %v, cancelling batch\n", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New("newsforge", cfg.LogLevel)

	articles, err := readArticles(*inputPath)
	if err != nil {
		return err
	}

	var client llm.Client
	if cfg.LLM.Enabled {
		ollamaClient, err := llm.NewOllamaClient(cfg.LLM)
		if err != nil {
			return fmt.Errorf("failed to set up LLM client: %w", err)
		}
		client = ollamaClient
	}

	manager, err := pipeline.New(cfg, client, logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer manager.Close()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, manager, logger.With("component", "metrics"))
	}

	result, err := manager.Process(ctx, articles)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	return writeResult(os.Stdout, result, *pretty)
}

// loadConfig falls back to defaults when the default config file is
// absent, so `newsforge -input articles.json` works out of the box.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config.toml" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func readArticles(path string) ([]*domain.Article, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var articles []*domain.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to parse input articles: %w", err)
	}
	return articles, nil
}

func writeResult(w *os.File, result *domain.PipelineResult, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func serveMetrics(addr string, manager *pipeline.Manager, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", manager.Metrics().Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := manager.HealthCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
