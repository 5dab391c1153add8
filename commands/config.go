package commands

import (
	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds defaults taken from GCT_* environment variables. Flags
// given on the command line always win.
type EnvConfig struct {
	ThemesDir   string `envconfig:"THEMES_DIR"`
	PageSize    int    `envconfig:"PAGE_SIZE" default:"5"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"bolt"`
	StorePath   string `envconfig:"STORE_PATH"`
	LogFile     string `envconfig:"LOG_FILE" default:"~/.go-claude-transcripts/logs/app.log"`
	Timezone    string `envconfig:"TIMEZONE" default:"UTC"`
	Addr        string `envconfig:"ADDR" default:"127.0.0.1:8080"`
}

const envPrefix = "GCT"

func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envDefaults is resolved once when flags are registered. A malformed
// environment falls back to built-in defaults and is reported when a command
// runs.
var envDefaults, envErr = loadEnvDefaults()

func loadEnvDefaults() (*EnvConfig, error) {
	cfg, err := LoadEnvConfig()
	if err != nil {
		return &EnvConfig{
			PageSize:    5,
			StoreDriver: "bolt",
			LogFile:     "~/.go-claude-transcripts/logs/app.log",
			Timezone:    "UTC",
			Addr:        "127.0.0.1:8080",
		}, err
	}
	return cfg, nil
}
