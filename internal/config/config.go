package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Load      LoadConfig      `yaml:"load" mapstructure:"load"`
	Runner    RunnerConfig    `yaml:"runner" mapstructure:"runner"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PathsConfig names the file each stage reads and writes.
type PathsConfig struct {
	Roster     string `yaml:"roster" mapstructure:"roster"`
	Discovered string `yaml:"discovered" mapstructure:"discovered"`
	Extracted  string `yaml:"extracted" mapstructure:"extracted"`
	Enriched   string `yaml:"enriched" mapstructure:"enriched"`
}

// DiscoveryConfig configures website discovery.
type DiscoveryConfig struct {
	// Backend is "duckduckgo" or "jina".
	Backend      string        `yaml:"backend" mapstructure:"backend"`
	Country      string        `yaml:"country" mapstructure:"country"`
	Jurisdiction string        `yaml:"jurisdiction" mapstructure:"jurisdiction"`
	Region       string        `yaml:"region" mapstructure:"region"`
	DelayMin     time.Duration `yaml:"delay_min" mapstructure:"delay_min"`
	DelayMax     time.Duration `yaml:"delay_max" mapstructure:"delay_max"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// RulesFile is an optional YAML file overriding the match rules.
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ExtractConfig configures page fetching and extraction.
type ExtractConfig struct {
	// Region is the default phone region, e.g. "SG".
	Region            string        `yaml:"region" mapstructure:"region"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// EnrichConfig configures the language model oracle.
type EnrichConfig struct {
	// Backend is "chat", "anthropic" or "command".
	Backend     string        `yaml:"backend" mapstructure:"backend"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	Command     []string      `yaml:"command" mapstructure:"command"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LoadConfig configures the database loader.
type LoadConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// RunnerConfig sets the checkpoint interval per stage.
type RunnerConfig struct {
	DiscoverInterval int `yaml:"discover_interval" mapstructure:"discover_interval"`
	ExtractInterval  int `yaml:"extract_interval" mapstructure:"extract_interval"`
	EnrichInterval   int `yaml:"enrich_interval" mapstructure:"enrich_interval"`
}

// ServerConfig configures the lookup API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to Unmarshal unless bound.
	for _, key := range []string{
		"anthropic.key", "jina.key", "enrich.api_key", "enrich.temperature",
		"discovery.rules_file", "extract.user_agent", "store.min_conns",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("paths.roster", "data/input/rrr_data.csv")
	v.SetDefault("paths.discovered", "data/output/rrr_data_with_websites.csv")
	v.SetDefault("paths.extracted", "data/output/rrr_data_enriched.csv")
	v.SetDefault("paths.enriched", "data/output/rrr_data_llm.csv")
	v.SetDefault("discovery.backend", "duckduckgo")
	v.SetDefault("discovery.country", "Singapore")
	v.SetDefault("discovery.jurisdiction", ".sg")
	v.SetDefault("discovery.region", "sg-en")
	v.SetDefault("discovery.delay_min", 8*time.Second)
	v.SetDefault("discovery.delay_max", 15*time.Second)
	v.SetDefault("discovery.timeout", 20*time.Second)
	v.SetDefault("extract.region", "SG")
	v.SetDefault("extract.timeout", 15*time.Second)
	v.SetDefault("extract.requests_per_second", 2.0)
	v.SetDefault("enrich.backend", "chat")
	v.SetDefault("enrich.base_url", "http://localhost:11434/v1")
	v.SetDefault("enrich.model", "mistral")
	v.SetDefault("enrich.command", []string{"ollama", "run", "mistral"})
	v.SetDefault("enrich.timeout", 60*time.Second)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/companies.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("load.batch_size", 50)
	v.SetDefault("runner.discover_interval", 5)
	v.SetDefault("runner.extract_interval", 10)
	v.SetDefault("runner.enrich_interval", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on.
func (c *Config) Validate(command string) error {
	var problems []string

	needStore := command == "load" || command == "migrate" || command == "serve" || command == "pipeline"
	if needStore {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	if command == "discover" || command == "pipeline" {
		switch c.Discovery.Backend {
		case "duckduckgo":
		case "jina":
			if c.Jina.Key == "" {
				problems = append(problems, "jina.key is required for the jina backend")
			}
		default:
			problems = append(problems, "discovery.backend must be duckduckgo or jina")
		}
		if c.Discovery.DelayMax < c.Discovery.DelayMin {
			problems = append(problems, "discovery.delay_max must not be less than discovery.delay_min")
		}
	}

	if command == "enrich" || command == "pipeline" {
		switch c.Enrich.Backend {
		case "chat":
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required for the anthropic backend")
			}
		case "command":
			if len(c.Enrich.Command) == 0 {
				problems = append(problems, "enrich.command is required for the command backend")
			}
		default:
			problems = append(problems, "enrich.backend must be chat, anthropic or command")
		}
	}

	if command == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be between 1 and 65535")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", command, strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
