package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings carries the tunable analysis and server configuration.
// Precedence: flags > env (NGRAM_*) > config file > defaults.
type Settings struct {
	Brand           string   `mapstructure:"brand"`
	GramSizes       []int    `mapstructure:"gram_sizes"`
	WastedSpendMin  float64  `mapstructure:"wasted_spend_min"`
	TopK            int      `mapstructure:"top_k"`
	ACOSLimit       float64  `mapstructure:"acos_limit"`
	DedupeWithinRow bool     `mapstructure:"dedupe_within_row"`
	AliasFile       string   `mapstructure:"alias_file"`
	HTTPAddr        string   `mapstructure:"http_addr"`
	AllowedDirs     []string `mapstructure:"allowed_dirs"`
	MaxUploadBytes  int64    `mapstructure:"max_upload_bytes"`
	MaxReportRows   int      `mapstructure:"max_report_rows"`
}

// Load reads configuration from an optional YAML file plus NGRAM_* env vars.
// An empty path searches for .ngram.yaml in the working directory and $HOME.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("NGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("gram_sizes", DefaultGramSizes())
	v.SetDefault("wasted_spend_min", DefaultWastedSpendMin)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("acos_limit", DefaultACOSLimit)
	v.SetDefault("dedupe_within_row", false)
	v.SetDefault("http_addr", DefaultHTTPAddr)
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)
	v.SetDefault("max_report_rows", DefaultMaxReportRows)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".ngram")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		// Missing file is fine; env and defaults still apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	for _, n := range s.GramSizes {
		if n < 1 || n > MaxGramSize {
			return nil, fmt.Errorf("config: gram size %d out of range 1..%d", n, MaxGramSize)
		}
	}
	return &s, nil
}
