package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{APIKey: "test-key"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validConfig()
		cfg.HTTP.Port = port
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d: expected error", port)
		}
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database.addrs")
	}
}

func TestValidate_MissingEmbeddingKey(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.APIKey = ""
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding.api_key")
	}
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Rerank.HighThreshold = 3.0
	cfg.Rerank.AcceptableThreshold = 4.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for high below acceptable")
	}

	cfg = validConfig()
	cfg.ApplyDefaults()
	cfg.Rerank.AcceptableThreshold = 1.0
	cfg.Rerank.LowThreshold = 1.4
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for acceptable below low")
	}
}

func TestValidate_BelowAcceptableMaxRange(t *testing.T) {
	for _, v := range []float64{-0.1, 1.5} {
		cfg := validConfig()
		cfg.ApplyDefaults()
		cfg.Rerank.BelowAcceptableMax = v
		if err := cfg.Validate(); err == nil {
			t.Errorf("below_acceptable_max %.2f: expected error", v)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Rerank.HighThreshold != 6.0 {
		t.Errorf("high threshold: got %.2f, want 6.0", cfg.Rerank.HighThreshold)
	}
	if cfg.Rerank.AcceptableThreshold != 4.5 {
		t.Errorf("acceptable threshold: got %.2f, want 4.5", cfg.Rerank.AcceptableThreshold)
	}
	if cfg.Rerank.LowThreshold != 1.4 {
		t.Errorf("low threshold: got %.2f, want 1.4", cfg.Rerank.LowThreshold)
	}
	if cfg.Rerank.ModerateThreshold != 5.0 {
		t.Errorf("moderate threshold: got %.2f, want 5.0", cfg.Rerank.ModerateThreshold)
	}
	if cfg.Rerank.MinPrimary != 3 || cfg.Rerank.MinHighCount != 2 {
		t.Errorf("selection defaults: got %d/%d", cfg.Rerank.MinPrimary, cfg.Rerank.MinHighCount)
	}
	if cfg.Rerank.BelowAcceptableMax != 0.6 {
		t.Errorf("below acceptable max: got %.2f, want 0.6", cfg.Rerank.BelowAcceptableMax)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("top_k: got %d, want 10", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("dimensions: got %d, want 1536", cfg.Embedding.Dimensions)
	}
}

func TestApplyDefaults_PreservesExplicit(t *testing.T) {
	cfg := validConfig()
	cfg.Rerank.HighThreshold = 8.0
	cfg.Retrieval.TopK = 25
	cfg.ApplyDefaults()

	if cfg.Rerank.HighThreshold != 8.0 {
		t.Errorf("explicit high threshold overwritten: got %.2f", cfg.Rerank.HighThreshold)
	}
	if cfg.Retrieval.TopK != 25 {
		t.Errorf("explicit top_k overwritten: got %d", cfg.Retrieval.TopK)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis-1:6379")
	os.Unsetenv("TEST_UNSET_VAR")

	in := []byte("addr: ${TEST_REDIS_ADDR}\nkey: ${TEST_UNSET_VAR:-fallback}\nempty: ${TEST_UNSET_VAR}")
	out := string(expandEnvVars(in))

	want := "addr: redis-1:6379\nkey: fallback\nempty: "
	if out != want {
		t.Errorf("expansion:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if env := GetEnv(); env != "local" {
		t.Errorf("default env: got %q, want local", env)
	}
	t.Setenv("ENV", "prod")
	if env := GetEnv(); env != "prod" {
		t.Errorf("explicit env: got %q, want prod", env)
	}
}
