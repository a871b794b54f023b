package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEstimateCmd(t *testing.T) {
	out, err := execute(t, "estimate", "--strategy", "rulefollowing", "--decisions", "5", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy RuleFollowing")
	assert.Contains(t, out, "P(comply) =")
	assert.Contains(t, out, "Statute cli:")

	_, err = execute(t, "estimate", "--strategy", "chaotic", "--log-level", "error")
	assert.Error(t, err)
}

func TestRunThenReport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
agents: 30
periods: 2
map:
  radius: 1
  min_enforcement: 0.1
  max_enforcement: 0.5
storage:
  save_interactions: true
log:
  level: error
`), 0o600))
	dbPath := filepath.Join(dir, "out", "reports.db")

	out, err := execute(t, "run", "--config", cfgPath, "--db", dbPath, "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Period 1 (2026-01-01)")
	assert.Contains(t, out, "Period 2 (2026-01-31)")
	assert.Contains(t, out, "STATUTE")
	assert.Contains(t, out, "tax-101")

	out, err = execute(t, "report", dbPath, "--statute", "tax-101", "--events", "3", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "seed:")
	assert.Contains(t, out, "PERIOD")
	assert.Contains(t, out, "2026-01-31")
	assert.Contains(t, out, "interactions stored")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--agents", "0", "--log-level", "error")
	assert.Error(t, err)
}
