package main

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// config mirrors SPEC_FULL.md §10.3: a TOML file read first, then
// overridden by whichever flags the caller actually passed (cmd/inox's
// own CLI does the same flags-override-file-values layering, stdlib
// flag rather than a cobra-style framework).
type config struct {
	CacheDir            string `toml:"cache_dir"`
	ExcludeManifest     string `toml:"exclude_manifest"`
	UseCache            bool   `toml:"use_cache"`
	GenerateLineControl bool   `toml:"generate_line_control"`
	MaxExecutionDepth   int    `toml:"max_execution_depth"`
	LogLevel            string `toml:"log_level"`
	HTTPTimeoutSeconds  int    `toml:"http_timeout_seconds"`
	HTTPMaxRetries      int    `toml:"http_max_retries"`
}

func defaultConfig() config {
	return config{
		CacheDir:           ".preproc-cache",
		UseCache:           true,
		LogLevel:           "info",
		HTTPTimeoutSeconds: 10,
		HTTPMaxRetries:     3,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return config{}, err
	}
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}

func (c config) httpTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
