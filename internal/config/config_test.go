package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/compliance-sim/internal/behavior"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Agents, cfg.Agents)
	assert.Len(t, cfg.Statutes, 3)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
seed: 7
agents: 50
period_length: 168h
start_date: "2027-06-01"
model:
  learning: reinforce
statutes:
  - id: noise-1
    title: Quiet hours
    enforcement_weight: 0.3
    penalty_severity: 40
    evasion_benefit: 5
    compliance_cost: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 50, cfg.Agents)
	assert.Equal(t, 168*time.Hour, cfg.PeriodLength)
	require.Len(t, cfg.Statutes, 1)
	assert.Equal(t, "noise-1", cfg.Statutes[0].ID)

	policy, err := cfg.LearningPolicy()
	require.NoError(t, err)
	assert.Equal(t, behavior.LearnReinforce, policy)

	start, err := cfg.Start()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC), start)

	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Network, cfg.Network)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "agents: 50\n")
	t.Setenv("COMPLIANCESIM_AGENTS", "75")
	t.Setenv("COMPLIANCESIM_LOG_LEVEL", "debug")
	t.Setenv("COMPLIANCESIM_PERIOD_LENGTH", "24h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Agents)
	assert.Equal(t, 24*time.Hour, cfg.PeriodLength)
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "agents: [oops\n"))
	assert.Error(t, err)
}

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Agents = 0
	cfg.StartDate = "yesterday"
	cfg.Model.Learning = "osmosis"
	cfg.Statutes = append(cfg.Statutes, StatuteConfig{ID: "tax-101"}, StatuteConfig{})
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"agents", "start_date", "model.learning", "duplicate statute", "statutes[4]", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_EnforcementBounds(t *testing.T) {
	cfg := Default()
	cfg.Map.MinEnforcement = 0.7
	cfg.Map.MaxEnforcement = 0.2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}
