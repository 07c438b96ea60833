package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string  `mapstructure:"PORT"`
	Env                 string  `mapstructure:"ENV"`
	DatabaseURL         string  `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32   `mapstructure:"DB_MIN_CONNS"`
	BackupDir           string  `mapstructure:"BACKUP_DIR"`
	ReportDir           string  `mapstructure:"REPORT_DIR"`
	ReconBatchSize      int     `mapstructure:"RECON_BATCH_SIZE"`
	SimilarityThreshold float64 `mapstructure:"SIMILARITY_THRESHOLD"`
	ExactThreshold      float64 `mapstructure:"EXACT_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("BACKUP_DIR", "backups")
	v.SetDefault("REPORT_DIR", "reports")
	v.SetDefault("RECON_BATCH_SIZE", 50)
	v.SetDefault("SIMILARITY_THRESHOLD", 90)
	v.SetDefault("EXACT_THRESHOLD", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("BACKUP_DIR")
	v.BindEnv("REPORT_DIR")
	v.BindEnv("RECON_BATCH_SIZE")
	v.BindEnv("SIMILARITY_THRESHOLD")
	v.BindEnv("EXACT_THRESHOLD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the reconciliation knobs are sane before a run starts.
// A similarity threshold outside [0,100] or a non-positive batch size would
// silently turn the detector into a no-op or an unbounded delete, so the run
// refuses to start instead.
func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 100 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0,100], got %v", c.SimilarityThreshold)
	}
	if c.ExactThreshold < c.SimilarityThreshold || c.ExactThreshold > 100 {
		return fmt.Errorf("EXACT_THRESHOLD must be within [SIMILARITY_THRESHOLD,100], got %v", c.ExactThreshold)
	}
	if c.ReconBatchSize <= 0 {
		return fmt.Errorf("RECON_BATCH_SIZE must be positive, got %d", c.ReconBatchSize)
	}
	if c.BackupDir == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	return nil
}
