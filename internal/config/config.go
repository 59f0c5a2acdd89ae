// Package config loads service settings from defaults, an optional config
// file and SOKONE_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SOKONE"

type Config struct {
	Port              string `mapstructure:"port"`
	DBPath            string `mapstructure:"db_path"`
	LogLevel          string `mapstructure:"log_level"`
	BaseURL           string `mapstructure:"base_url"`
	NewProductsHidden bool   `mapstructure:"new_products_hidden"`

	Scan     ScanConfig     `mapstructure:"scan"`
	S3       S3Config       `mapstructure:"s3"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// ScanConfig names the reader devices standing in for the rear and front
// cameras.
type ScanConfig struct {
	RearDevice  string        `mapstructure:"rear_device"`
	FrontDevice string        `mapstructure:"front_device"`
	StartDelay  time.Duration `mapstructure:"start_delay"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type SnapshotConfig struct {
	Passphrase string `mapstructure:"passphrase"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "sokone.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "")
	v.SetDefault("new_products_hidden", true)

	v.SetDefault("scan.rear_device", "")
	v.SetDefault("scan.front_device", "")
	v.SetDefault("scan.start_delay", 300*time.Millisecond)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	v.SetDefault("snapshot.passphrase", "")
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply. Nested keys map to env vars with dots replaced
// by underscores, e.g. SOKONE_S3_BUCKET.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("port must not be empty")
	}
	if cfg.Scan.StartDelay < 0 {
		return nil, fmt.Errorf("scan.start_delay must not be negative")
	}
	return &cfg, nil
}
