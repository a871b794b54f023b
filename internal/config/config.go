// Package config loads simulation settings from a YAML file overlaid by
// COMPLIANCESIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/compliance-sim/internal/behavior"
)

// ErrInvalid marks a configuration that cannot drive a simulation.
var ErrInvalid = errors.New("invalid config")

// Config is the complete run configuration.
type Config struct {
	Seed         int64         `yaml:"seed" env:"COMPLIANCESIM_SEED"`
	Agents       int           `yaml:"agents" env:"COMPLIANCESIM_AGENTS"`
	Periods      int           `yaml:"periods" env:"COMPLIANCESIM_PERIODS"`
	PeriodLength time.Duration `yaml:"period_length" env:"COMPLIANCESIM_PERIOD_LENGTH"`
	StartDate    string        `yaml:"start_date" env:"COMPLIANCESIM_START_DATE"`
	Interval     time.Duration `yaml:"interval" env:"COMPLIANCESIM_INTERVAL"`
	ReportEvery  int           `yaml:"report_every" env:"COMPLIANCESIM_REPORT_EVERY"`

	Map      MapConfig       `yaml:"map"`
	Model    ModelConfig     `yaml:"model"`
	Network  NetworkConfig   `yaml:"network"`
	Statutes []StatuteConfig `yaml:"statutes"`
	Storage  StorageConfig   `yaml:"storage"`
	Log      LogConfig       `yaml:"log"`
	API      APIConfig       `yaml:"api"`
}

// MapConfig shapes the jurisdiction map.
type MapConfig struct {
	Radius         int     `yaml:"radius" env:"COMPLIANCESIM_MAP_RADIUS"`
	MinEnforcement float64 `yaml:"min_enforcement" env:"COMPLIANCESIM_MAP_MIN_ENFORCEMENT"`
	MaxEnforcement float64 `yaml:"max_enforcement" env:"COMPLIANCESIM_MAP_MAX_ENFORCEMENT"`
}

// ModelConfig applies to every agent's decision model.
type ModelConfig struct {
	HistoryLimit    int     `yaml:"history_limit" env:"COMPLIANCESIM_HISTORY_LIMIT"`
	Learning        string  `yaml:"learning" env:"COMPLIANCESIM_LEARNING"` // "ledger" or "reinforce"
	EstimateWorkers int     `yaml:"estimate_workers" env:"COMPLIANCESIM_ESTIMATE_WORKERS"`
	Jitter          float64 `yaml:"jitter" env:"COMPLIANCESIM_JITTER"`
	InstitutionRate float64 `yaml:"institution_rate" env:"COMPLIANCESIM_INSTITUTION_RATE"`
}

// NetworkConfig shapes the communication network.
type NetworkConfig struct {
	Communicate      bool    `yaml:"communicate" env:"COMPLIANCESIM_COMMUNICATE"`
	LocalLinks       int     `yaml:"local_links" env:"COMPLIANCESIM_LOCAL_LINKS"`
	RemoteLinks      int     `yaml:"remote_links" env:"COMPLIANCESIM_REMOTE_LINKS"`
	LocalTrust       float64 `yaml:"local_trust" env:"COMPLIANCESIM_LOCAL_TRUST"`
	RemoteTrust      float64 `yaml:"remote_trust" env:"COMPLIANCESIM_REMOTE_TRUST"`
	MessageRetention int     `yaml:"message_retention" env:"COMPLIANCESIM_MESSAGE_RETENTION"`
}

// StatuteConfig describes one simulated statute.
type StatuteConfig struct {
	ID                string  `yaml:"id"`
	Title             string  `yaml:"title"`
	EnforcementWeight float64 `yaml:"enforcement_weight"`
	PenaltySeverity   float64 `yaml:"penalty_severity"`
	EvasionBenefit    float64 `yaml:"evasion_benefit"`
	ComplianceCost    float64 `yaml:"compliance_cost"`
}

// StorageConfig controls the report database. An empty DBPath disables it.
type StorageConfig struct {
	DBPath           string `yaml:"db_path" env:"COMPLIANCESIM_DB_PATH"`
	SaveInteractions bool   `yaml:"save_interactions" env:"COMPLIANCESIM_SAVE_INTERACTIONS"`
}

// LogConfig controls the log handler.
type LogConfig struct {
	Level string `yaml:"level" env:"COMPLIANCESIM_LOG_LEVEL"`
}

// APIConfig controls the HTTP status server. Port 0 disables it.
type APIConfig struct {
	Port int `yaml:"port" env:"COMPLIANCESIM_API_PORT"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Seed:         42,
		Agents:       500,
		Periods:      12,
		PeriodLength: 30 * 24 * time.Hour,
		StartDate:    "2026-01-01",
		ReportEvery:  1,
		Map: MapConfig{
			Radius:         4,
			MinEnforcement: 0.05,
			MaxEnforcement: 0.6,
		},
		Model: ModelConfig{
			HistoryLimit:    behavior.DefaultHistoryLimit,
			Learning:        behavior.LearnLedgerOnly.String(),
			Jitter:          0.05,
			InstitutionRate: 0.2,
		},
		Network: NetworkConfig{
			Communicate:      true,
			LocalLinks:       4,
			RemoteLinks:      1,
			LocalTrust:       0.65,
			RemoteTrust:      0.4,
			MessageRetention: 2,
		},
		Statutes: []StatuteConfig{
			{ID: "tax-101", Title: "Annual income filing", EnforcementWeight: 1, PenaltySeverity: 300, EvasionBenefit: 80, ComplianceCost: 20},
			{ID: "permit-7", Title: "Building permit", EnforcementWeight: 0.6, PenaltySeverity: 150, EvasionBenefit: 60, ComplianceCost: 120},
			{ID: "waste-3", Title: "Hazardous waste disposal", EnforcementWeight: 0.4, PenaltySeverity: 500, EvasionBenefit: 40, ComplianceCost: 35},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies the environment. A missing
// file is not an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			slog.Debug("config file not found, using defaults", "path", path)
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every shape error in the configuration.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Agents < 1 {
		invalid("agents must be positive, got %d", c.Agents)
	}
	if c.Periods < 0 {
		invalid("periods must not be negative, got %d", c.Periods)
	}
	if c.PeriodLength <= 0 {
		invalid("period_length must be positive, got %s", c.PeriodLength)
	}
	if _, err := c.Start(); err != nil {
		invalid("start_date %q: want YYYY-MM-DD", c.StartDate)
	}
	if c.Map.Radius < 0 {
		invalid("map.radius must not be negative, got %d", c.Map.Radius)
	}
	if c.Map.MinEnforcement < 0 || c.Map.MaxEnforcement > 1 || c.Map.MinEnforcement > c.Map.MaxEnforcement {
		invalid("map enforcement bounds [%g, %g] must be ordered within [0, 1]", c.Map.MinEnforcement, c.Map.MaxEnforcement)
	}
	if _, err := c.LearningPolicy(); err != nil {
		invalid("model.learning: %v", err)
	}
	if c.Model.HistoryLimit < 1 {
		invalid("model.history_limit must be positive, got %d", c.Model.HistoryLimit)
	}
	if c.Network.MessageRetention < 0 {
		invalid("network.message_retention must not be negative, got %d", c.Network.MessageRetention)
	}
	if len(c.Statutes) == 0 {
		invalid("at least one statute is required")
	}
	seen := make(map[string]bool, len(c.Statutes))
	for i, st := range c.Statutes {
		if st.ID == "" {
			invalid("statutes[%d] has no id", i)
			continue
		}
		if seen[st.ID] {
			invalid("duplicate statute id %q", st.ID)
		}
		seen[st.ID] = true
		if st.PenaltySeverity < 0 || st.EvasionBenefit < 0 || st.ComplianceCost < 0 || st.EnforcementWeight < 0 {
			invalid("statute %q has a negative cost, benefit, penalty or weight", st.ID)
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		invalid("log.level %q", c.Log.Level)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		invalid("api.port %d out of range", c.API.Port)
	}

	return errors.Join(errs...)
}

// Start parses StartDate.
func (c *Config) Start() (time.Time, error) {
	return time.Parse(time.DateOnly, c.StartDate)
}

// LearningPolicy parses Model.Learning.
func (c *Config) LearningPolicy() (behavior.LearningPolicy, error) {
	return behavior.ParseLearningPolicy(c.Model.Learning)
}

// SlogLevel parses Log.Level ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}
