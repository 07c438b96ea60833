package config

import (
	"testing"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/registry")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReconBatchSize != 50 {
		t.Errorf("expected default batch size 50, got %d", cfg.ReconBatchSize)
	}
	if cfg.SimilarityThreshold != 90 {
		t.Errorf("expected default similarity threshold 90, got %v", cfg.SimilarityThreshold)
	}
	if cfg.ExactThreshold != 100 {
		t.Errorf("expected default exact threshold 100, got %v", cfg.ExactThreshold)
	}
	if cfg.BackupDir != "backups" {
		t.Errorf("expected default backup dir, got %q", cfg.BackupDir)
	}
	if !cfg.IsDev() {
		t.Error("expected development env by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/registry")
	t.Setenv("SIMILARITY_THRESHOLD", "85")
	t.Setenv("RECON_BATCH_SIZE", "25")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SimilarityThreshold != 85 {
		t.Errorf("expected threshold 85, got %v", cfg.SimilarityThreshold)
	}
	if cfg.ReconBatchSize != 25 {
		t.Errorf("expected batch size 25, got %d", cfg.ReconBatchSize)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			SimilarityThreshold: 90,
			ExactThreshold:      100,
			ReconBatchSize:      50,
			BackupDir:           "backups",
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.SimilarityThreshold = 120
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for threshold > 100")
	}

	cfg = base()
	cfg.ExactThreshold = 80
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when exact threshold < similarity threshold")
	}

	cfg = base()
	cfg.ReconBatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero batch size")
	}

	cfg = base()
	cfg.BackupDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty backup dir")
	}
}
