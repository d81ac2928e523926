package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all mnemo configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Bind string `yaml:"bind" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`

	// Autosave persists the graph on this interval while serving; 0 disables it.
	Autosave time.Duration `yaml:"autosave" validate:"gte=0"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // empty resolves to store.DefaultDBPath()
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// EngineConfig carries every tunable of the memory engine.
type EngineConfig struct {
	// Spreading activation
	Gamma              float64 `yaml:"gamma" validate:"gt=0,lte=1"`
	Theta              float64 `yaml:"theta" validate:"gte=0"`
	HeatBias           float64 `yaml:"heat_bias" validate:"gte=0,lte=1"`
	MaxActivationDepth int     `yaml:"max_activation_depth" validate:"gt=0"`

	// Candidate selection
	MMRLambda  float64 `yaml:"mmr_lambda" validate:"gte=0,lte=1"`
	MaxResults int     `yaml:"max_results" validate:"gte=0"`

	// Feature toggles
	EnableSpreadingActivation bool `yaml:"enable_spreading_activation"`
	EnableHebbian             bool `yaml:"enable_hebbian"`
	EnableMemoryExpansion     bool `yaml:"enable_memory_expansion"`
	EnablePruning             bool `yaml:"enable_pruning"`
	EnableHyperedges          bool `yaml:"enable_hyperedges"`
	PruneConsolidatedEdges    bool `yaml:"prune_consolidated_edges"`
	EnableConsolidation       bool `yaml:"enable_consolidation"`

	ConsolidationInterval int     `yaml:"consolidation_interval" validate:"gt=0"`
	GlobalEnergyBudget    float64 `yaml:"global_energy_budget" validate:"gt=0"`
	PruneThreshold        float64 `yaml:"prune_threshold" validate:"gte=0,lt=1"`

	// Neurogenesis rate limits
	MaxRelationshipsPerCall    int           `yaml:"max_relationships_per_call" validate:"gt=0"`
	MaxRelationshipsPerSession int           `yaml:"max_relationships_per_session" validate:"gt=0"`
	SessionIdleTimeout         time.Duration `yaml:"session_idle_timeout" validate:"gt=0"`

	InitialPhase string `yaml:"initial_phase" validate:"oneof=explore inference consolidate"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:     "127.0.0.1",
			Port:     37778,
			Autosave: 5 * time.Minute,
		},
		Engine: DefaultEngine(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultEngine returns the engine defaults on their own, for library use.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		Gamma:                      0.85,
		Theta:                      0.1,
		HeatBias:                   0.2,
		MaxActivationDepth:         3,
		MMRLambda:                  0.7,
		MaxResults:                 10,
		EnableSpreadingActivation:  true,
		EnableHebbian:              true,
		EnableMemoryExpansion:      true,
		EnablePruning:              true,
		EnableHyperedges:           true,
		PruneConsolidatedEdges:     true,
		EnableConsolidation:        true,
		ConsolidationInterval:      10,
		GlobalEnergyBudget:         50,
		PruneThreshold:             0.05,
		MaxRelationshipsPerCall:    10,
		MaxRelationshipsPerSession: 100,
		SessionIdleTimeout:         time.Hour,
		InitialPhase:               "explore",
	}
}

// Load reads a YAML config file over the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MNEMO_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MNEMO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MNEMO_PHASE"); v != "" {
		c.Engine.InitialPhase = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the whole config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks the engine section alone.
func (e EngineConfig) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// DefaultConfigPath returns ~/.mnemo/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".mnemo", "config.yaml"), nil
}
