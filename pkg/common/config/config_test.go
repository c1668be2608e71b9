package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SIGMATCH_DATA_DIR", "")
	t.Setenv("PIPELINE_SCRIPT", "")
	cfg := Load()
	if cfg.DataDir != "data/Sigmatch" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.PipelineScript != "orchestrate_pipeline.py" {
		t.Fatalf("expected default pipeline script, got %q", cfg.PipelineScript)
	}
	if cfg.PipelineStatusBackend != "memory" {
		t.Fatalf("expected memory status backend, got %q", cfg.PipelineStatusBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SIGMATCH_DATA_DIR", "/srv/sigmatch")
	t.Setenv("CORPUS_CACHE_TTL", "90s")
	t.Setenv("CORPUS_WATCH", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	if cfg.DataDir != "/srv/sigmatch" {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
	if cfg.CorpusCacheTTL != 90*time.Second {
		t.Fatalf("unexpected cache ttl %v", cfg.CorpusCacheTTL)
	}
	if cfg.CorpusWatch {
		t.Fatal("expected corpus watch disabled")
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("expected fallback redis db 0, got %d", cfg.RedisDB)
	}
}
