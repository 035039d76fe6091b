package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Preprocess PreprocessConfig `toml:"preprocess"`
	Dedupe     DedupeConfig     `toml:"dedupe"`
	Noise      NoiseConfig      `toml:"noise"`
	Quality    QualityConfig    `toml:"quality"`
	LLM        LLMConfig        `toml:"llm"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Store      StoreConfig      `toml:"store"`
	LogLevel   string           `toml:"log_level"`
}

type PreprocessConfig struct {
	Enabled            bool     `toml:"enabled"`
	MinContentLength   int      `toml:"min_content_length"`
	MaxContentLength   int      `toml:"max_content_length"`
	MaxTitleLength     int      `toml:"max_title_length"`
	MaxSummaryLength   int      `toml:"max_summary_length"`
	BoilerplatePhrases []string `toml:"boilerplate_phrases"`
}

type DedupeConfig struct {
	Enabled             bool    `toml:"enabled"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	SemanticThreshold   float64 `toml:"semantic_threshold"`
	TimeWindowHours     int     `toml:"time_window_hours"`
	FingerprintTTL      string  `toml:"fingerprint_ttl"`
	VectorDims          int     `toml:"vector_dims"`
}

type NoiseConfig struct {
	Enabled            bool    `toml:"enabled"`
	MinContentLength   int     `toml:"min_content_length"`
	MinWordCount       int     `toml:"min_word_count"`
	MaxRepetitionRatio float64 `toml:"max_repetition_ratio"`
}

type QualityConfig struct {
	Enabled          bool    `toml:"enabled"`
	QualityThreshold float64 `toml:"quality_threshold"`
}

type LLMConfig struct {
	Enabled             bool    `toml:"enabled"`
	Model               string  `toml:"model"`
	MinQualityThreshold float64 `toml:"min_quality_threshold"`
	MaxProcessingTime   string  `toml:"max_processing_time"`
	CachingEnabled      bool    `toml:"caching_enabled"`
	CacheTTL            string  `toml:"cache_ttl"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

type PipelineConfig struct {
	MaxBatchSize             int    `toml:"max_batch_size"`
	ProcessingTimeout        string `toml:"processing_timeout"`
	EnableParallelProcessing bool   `toml:"enable_parallel_processing"`
	MaxConcurrency           int    `toml:"max_concurrency"`
	EnableStructuring        bool   `toml:"enable_structuring"`
}

type StoreConfig struct {
	Type string `toml:"type"`
	Path string `toml:"path"`
	Addr string `toml:"addr"`
	TTL  string `toml:"ttl"`
}

// Default returns a ready-to-use configuration for library callers that
// do not load a TOML file. All stages except LLM analysis are enabled;
// LLM analysis needs a reachable model and stays opt-in.
func Default() *Config {
	cfg := &Config{}
	cfg.Preprocess.Enabled = true
	cfg.Dedupe.Enabled = true
	cfg.Noise.Enabled = true
	cfg.Quality.Enabled = true
	cfg.Pipeline.EnableStructuring = true
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Preprocess.MinContentLength == 0 {
		cfg.Preprocess.MinContentLength = 50
	}
	if cfg.Preprocess.MaxContentLength == 0 {
		cfg.Preprocess.MaxContentLength = 10000
	}
	if cfg.Preprocess.MaxTitleLength == 0 {
		cfg.Preprocess.MaxTitleLength = 200
	}
	if cfg.Preprocess.MaxSummaryLength == 0 {
		cfg.Preprocess.MaxSummaryLength = 500
	}

	if cfg.Dedupe.SimilarityThreshold == 0 {
		cfg.Dedupe.SimilarityThreshold = 0.85
	}
	if cfg.Dedupe.SemanticThreshold == 0 {
		cfg.Dedupe.SemanticThreshold = 0.75
	}
	if cfg.Dedupe.TimeWindowHours == 0 {
		cfg.Dedupe.TimeWindowHours = 24
	}
	if cfg.Dedupe.FingerprintTTL == "" {
		cfg.Dedupe.FingerprintTTL = "24h"
	}
	if cfg.Dedupe.VectorDims == 0 {
		cfg.Dedupe.VectorDims = 256
	}

	if cfg.Noise.MinContentLength == 0 {
		cfg.Noise.MinContentLength = 50
	}
	if cfg.Noise.MinWordCount == 0 {
		cfg.Noise.MinWordCount = 10
	}
	if cfg.Noise.MaxRepetitionRatio == 0 {
		cfg.Noise.MaxRepetitionRatio = 0.3
	}

	if cfg.Quality.QualityThreshold == 0 {
		cfg.Quality.QualityThreshold = 0.5
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "qwen2.5:0.5b"
	}
	if cfg.LLM.MinQualityThreshold == 0 {
		cfg.LLM.MinQualityThreshold = 0.6
	}
	if cfg.LLM.MaxProcessingTime == "" {
		cfg.LLM.MaxProcessingTime = "30s"
	}
	if cfg.LLM.CacheTTL == "" {
		cfg.LLM.CacheTTL = "1h"
	}
	if cfg.LLM.ConfidenceThreshold == 0 {
		cfg.LLM.ConfidenceThreshold = 0.5
	}

	if cfg.Pipeline.MaxBatchSize == 0 {
		cfg.Pipeline.MaxBatchSize = 100
	}
	if cfg.Pipeline.ProcessingTimeout == "" {
		cfg.Pipeline.ProcessingTimeout = "60s"
	}
	if cfg.Pipeline.MaxConcurrency == 0 {
		cfg.Pipeline.MaxConcurrency = 8
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.TTL == "" {
		cfg.Store.TTL = "24h"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./newsforge.db"
	}
}

func validate(cfg *Config) error {
	if cfg.Dedupe.SimilarityThreshold < 0 || cfg.Dedupe.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %f", cfg.Dedupe.SimilarityThreshold)
	}
	if cfg.Noise.MaxRepetitionRatio < 0 || cfg.Noise.MaxRepetitionRatio > 1 {
		return fmt.Errorf("max_repetition_ratio must be in [0,1], got %f", cfg.Noise.MaxRepetitionRatio)
	}
	if cfg.Preprocess.MinContentLength > cfg.Preprocess.MaxContentLength {
		return fmt.Errorf("min_content_length %d exceeds max_content_length %d",
			cfg.Preprocess.MinContentLength, cfg.Preprocess.MaxContentLength)
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"fingerprint_ttl", cfg.Dedupe.FingerprintTTL},
		{"max_processing_time", cfg.LLM.MaxProcessingTime},
		{"cache_ttl", cfg.LLM.CacheTTL},
		{"processing_timeout", cfg.Pipeline.ProcessingTimeout},
		{"store ttl", cfg.Store.TTL},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}
	switch cfg.Store.Type {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
	return nil
}

// Duration parses a duration field, falling back when it was left empty
// or unparseable. Validation catches bad values at load time; this keeps
// call sites total.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
