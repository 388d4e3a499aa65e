package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"` // DB and lock location; KELOKE_DATA_DIR overrides
	} `yaml:"app"`

	Marketplace struct {
		APIBase        string  `yaml:"api_base"`
		Country        string  `yaml:"country"`
		UserAgent      string  `yaml:"user_agent"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
		Burst          int     `yaml:"burst"`
	} `yaml:"marketplace"`

	Worker struct {
		Batch      int `yaml:"batch"`
		Limit      int `yaml:"limit"`
		RunSeconds int `yaml:"run_seconds"` // >0 runs a batch on this interval
	} `yaml:"worker"`

	OAuth struct {
		ClientID       string `yaml:"client_id"`       // MELI_CLIENT_ID overrides
		KeyringAccount string `yaml:"keyring_account"` // client secret account; MELI_CLIENT_SECRET is the fallback
	} `yaml:"oauth"`
}

const (
	DefaultCountry   = "CL"
	DefaultBatch     = 5
	DefaultLimit     = 50
	DefaultUserAgent = "keloke-trends-worker/1.0"
	DefaultAPIBase   = "https://api.mercadolibre.com"
)

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// SiteID maps a two-letter country code to a marketplace site id
// ("CL" -> "MLC", "AR" -> "MLA"). Empty country falls back to the default.
func SiteID(country string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	if c == "" {
		c = DefaultCountry
	}
	return "ML" + c
}

// ResolveDataDir picks the runtime data directory for the database and run
// lock: the environment value wins, then app.data_dir, then the current
// directory (where the config was bootstrapped).
func (c Config) ResolveDataDir(env string) string {
	if v := strings.TrimSpace(env); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.App.DataDir); v != "" {
		return v
	}
	return "."
}

// ClientID resolves the OAuth app id: env wins over the config file.
func (c Config) ClientID() string {
	if v := strings.TrimSpace(os.Getenv("MELI_CLIENT_ID")); v != "" {
		return v
	}
	return strings.TrimSpace(c.OAuth.ClientID)
}
