package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/world"
)

func TestSpawnPopulation_IDsAndHome(t *testing.T) {
	s := NewSpawner(DefaultSpawnConfig(7))
	region := &world.Region{Coord: world.HexCoord{Q: 1, R: -1}, Regime: world.RegimeModerate, Norm: 0.5}

	residents := s.SpawnPopulation(10, region)
	require.Len(t, residents, 10)
	for i, r := range residents {
		assert.Equal(t, behavior.AgentID(i+1), r.ID)
		assert.Equal(t, region.Coord, r.Home)
		assert.NotEmpty(t, r.Entity.Name)
		p := r.Profile()
		assert.GreaterOrEqual(t, p.BaseCompliance, 0.0)
		assert.LessOrEqual(t, p.BaseCompliance, 1.0)
	}
}

func TestSpawnPopulation_Deterministic(t *testing.T) {
	region := &world.Region{Regime: world.RegimeLax, Norm: 0.3}
	a := NewSpawner(DefaultSpawnConfig(11)).SpawnPopulation(20, region)
	b := NewSpawner(DefaultSpawnConfig(11)).SpawnPopulation(20, region)
	for i := range a {
		assert.Equal(t, a[i].Profile(), b[i].Profile())
		assert.Equal(t, a[i].Entity, b[i].Entity)
	}
}

func TestStrategyMix_FollowsRegime(t *testing.T) {
	count := func(regime world.Regime, strategy behavior.DecisionStrategy) int {
		s := NewSpawner(SpawnConfig{Seed: 5})
		n := 0
		for i := 0; i < 2000; i++ {
			if s.strategyForRegime(regime) == strategy {
				n++
			}
		}
		return n
	}
	assert.Greater(t, count(world.RegimeStrict, behavior.StrategyRuleFollowing),
		count(world.RegimeLax, behavior.StrategyRuleFollowing))
	assert.Greater(t, count(world.RegimeLax, behavior.StrategyOpportunistic),
		count(world.RegimeStrict, behavior.StrategyOpportunistic))
}

func TestPopulate_ExactTotal(t *testing.T) {
	m := world.Generate(world.SmallTestConfig())
	for _, total := range []int{1, m.RegionCount(), 137} {
		residents := NewSpawner(DefaultSpawnConfig(3)).Populate(m, total)
		assert.Len(t, residents, total)

		seen := map[behavior.AgentID]bool{}
		for _, r := range residents {
			assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
			seen[r.ID] = true
			assert.NotNil(t, m.Get(r.Home))
		}
	}
	assert.Empty(t, NewSpawner(DefaultSpawnConfig(3)).Populate(m, 0))
}

func TestSpawner_PassesModelOptions(t *testing.T) {
	cfg := DefaultSpawnConfig(1)
	cfg.HistoryLimit = 2
	region := &world.Region{Regime: world.RegimeModerate, Norm: 0.5}
	r := NewSpawner(cfg).SpawnPopulation(1, region)[0]

	for i := 0; i < 5; i++ {
		r.LearnFromOutcome("s", true, -1)
	}
	assert.Len(t, r.Model.History("s"), 2)
}
