// Package config loads the runtime configuration surface described in
// §6: gate thresholds, backtest timeout, execution mode, window-set
// choice, and remote credentials path.
//
// Grounded on the teacher's internal/application config loaders
// (LoadWeightsConfig, LoadLimitsConfig, etc.): a plain struct with
// yaml tags, a Load function that reads the file and unmarshals it,
// and defaults applied after unmarshal rather than via struct tag
// magic.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/extremevalue/quantvalid/internal/errs"
	"github.com/extremevalue/quantvalid/internal/gateeval"
	"github.com/extremevalue/quantvalid/internal/stats"
	"github.com/extremevalue/quantvalid/internal/walkforward"
)

// ExecutionMode selects how C4 runs backtests.
type ExecutionMode string

const (
	ExecutionLocal ExecutionMode = "local"
	ExecutionCloud ExecutionMode = "cloud"
)

// BacktestConfig is config.backtest.* from §6.
type BacktestConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Mode           string `yaml:"mode"`
	EngineBinary   string `yaml:"engine_binary,omitempty"`
	ProjectRoot    string `yaml:"project_root,omitempty"`
	CredentialsPath string `yaml:"credentials_path,omitempty"`
}

// GatesConfig is config.gates.* from §6.
type GatesConfig struct {
	MinSharpe      float64 `yaml:"min_sharpe"`
	MinConsistency float64 `yaml:"min_consistency"`
	MaxDrawdown    float64 `yaml:"max_drawdown"`
	MinCAGR        float64 `yaml:"min_cagr"`
}

// StatisticalConfig is the Bonferroni significance-test configuration
// consumed by internal/stats.
type StatisticalConfig struct {
	Comparisons int     `yaml:"comparisons"`
	Alpha       float64 `yaml:"alpha"`
}

// WalkForwardConfig selects which literal window set (§4.6) to run.
type WalkForwardConfig struct {
	WindowSet string `yaml:"window_set"`
}

// CorrectionConfig bounds C5's retry loop.
type CorrectionConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// LLMConfig points the code generator's fallback path at a chat-completion
// endpoint; an empty BaseURL means "template path only", which is a valid,
// fully offline configuration.
type LLMConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// RedisConfig points the cloud quota counter at a Redis instance; an
// empty Addr falls back to the in-process quota counter.
type RedisConfig struct {
	Addr   string `yaml:"addr,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// CatalogIndexConfig points at the optional Postgres catalog-index cache
// (§6 `catalog.<db>`); an empty DSN means no catalog index is opened.
type CatalogIndexConfig struct {
	DSN            string `yaml:"dsn,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Config is the full runtime configuration document (config.<ext>, §6).
type Config struct {
	Backtest     BacktestConfig      `yaml:"backtest"`
	Gates        GatesConfig         `yaml:"gates"`
	Statistical  StatisticalConfig   `yaml:"statistical"`
	WalkForward  WalkForwardConfig   `yaml:"walk_forward"`
	Correction   CorrectionConfig    `yaml:"correction"`
	LLM          LLMConfig           `yaml:"llm"`
	Redis        RedisConfig         `yaml:"redis"`
	CatalogIndex CatalogIndexConfig  `yaml:"catalog_index"`
	WorkspaceDir string              `yaml:"workspace_dir"`
}

// Load reads and parses a config document at path, applying defaults
// for any field the document leaves at its zero value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, fmt.Sprintf("reading config %s: %s", path, err))
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errs.Wrap(errs.ErrConfiguration, fmt.Sprintf("parsing config %s: %s", path, err))
	}
	c.applyDefaults()
	return &c, nil
}

// applyDefaults fills every field the document left unset with the
// value §6 documents as default, so a minimal or empty config file is
// always usable.
func (c *Config) applyDefaults() {
	if c.Backtest.TimeoutSeconds == 0 {
		c.Backtest.TimeoutSeconds = 600
	}
	if c.Backtest.Mode == "" {
		c.Backtest.Mode = string(ExecutionLocal)
	}
	if c.Backtest.CredentialsPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Backtest.CredentialsPath = filepath.Join(home, ".quantengine", "credentials")
		}
	}
	if c.Gates.MinSharpe == 0 {
		c.Gates.MinSharpe = 0.5
	}
	if c.Gates.MinConsistency == 0 {
		c.Gates.MinConsistency = 0.5
	}
	if c.Gates.MaxDrawdown == 0 {
		c.Gates.MaxDrawdown = 0.25
	}
	if c.Gates.MinCAGR == 0 {
		c.Gates.MinCAGR = 0.05
	}
	if c.Statistical.Comparisons == 0 {
		c.Statistical.Comparisons = stats.DefaultConfig().Comparisons
	}
	if c.Statistical.Alpha == 0 {
		c.Statistical.Alpha = stats.DefaultConfig().Alpha
	}
	if c.WalkForward.WindowSet == "" {
		c.WalkForward.WindowSet = string(walkforward.WindowSet5)
	}
	if c.Correction.MaxAttempts == 0 {
		c.Correction.MaxAttempts = 3
	}
	if c.WorkspaceDir == "" {
		c.WorkspaceDir = "."
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "quantvalid"
	}
	if c.CatalogIndex.TimeoutSeconds == 0 {
		c.CatalogIndex.TimeoutSeconds = 5
	}
}

// GateThresholds adapts this config's gate section into the shape
// gateeval.Evaluate expects.
func (c *Config) GateThresholds() gateeval.Gates {
	return gateeval.Gates{
		MinSharpe:      c.Gates.MinSharpe,
		MinConsistency: c.Gates.MinConsistency,
		MaxDrawdown:    c.Gates.MaxDrawdown,
		MinCAGR:        c.Gates.MinCAGR,
	}
}

// StatisticalSignificance adapts this config's statistical section into
// the shape stats.Evaluate expects.
func (c *Config) StatisticalSignificance() stats.Config {
	return stats.Config{Comparisons: c.Statistical.Comparisons, Alpha: c.Statistical.Alpha}
}
