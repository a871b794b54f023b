package behavior

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/compliance-sim/internal/entropy"
)

// fixedSource returns the same value forever.
type fixedSource float64

func (f fixedSource) Float() float64 { return float64(f) }

// seqSource replays a fixed sequence, then repeats the last value.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float() float64 {
	v := s.vals[s.i]
	if s.i < len(s.vals)-1 {
		s.i++
	}
	return v
}

func baseContext() ComplianceContext {
	return ComplianceContext{
		StatuteID:              "tax-101",
		EnforcementProbability: 0.5,
		PenaltySeverity:        100,
		EvasionBenefit:         20,
		ComplianceCost:         10,
		SocialNorm:             0.6,
	}
}

func TestDecide_UnawareWhenDrawExceedsKnowledge(t *testing.T) {
	p := RationalProfile()
	p.KnowledgeLevel = 0.3
	m := NewComplianceModel(p, WithRand(fixedSource(0.5)))
	assert.Equal(t, DecisionUnaware, m.Decide(baseContext()))
}

func TestDecide_HistoryBoostsAwareness(t *testing.T) {
	p := RationalProfile()
	p.KnowledgeLevel = 0.4
	m := NewComplianceModel(p, WithRand(fixedSource(0.5)))
	ctx := baseContext()

	require.Equal(t, DecisionUnaware, m.Decide(ctx))

	m.RecordOutcome(ctx.StatuteID, true, -10)
	// 0.4 + 0.2 = 0.6 > 0.5, so the agent is now aware.
	assert.NotEqual(t, DecisionUnaware, m.Decide(ctx))

	other := ctx
	other.StatuteID = "other"
	assert.Equal(t, DecisionUnaware, m.Decide(other), "boost applies only to the known statute")
}

func TestDecide_Rational(t *testing.T) {
	p := RationalProfile()
	p.KnowledgeLevel = 1.0
	m := NewComplianceModel(p, WithSeed(1))

	tests := []struct {
		name string
		ctx  ComplianceContext
		want ComplianceDecision
	}{
		{
			name: "deterrence exceeds benefit",
			ctx:  ComplianceContext{EnforcementProbability: 0.5, PenaltySeverity: 100, EvasionBenefit: 20},
			want: DecisionComply,
		},
		{
			name: "benefit exceeds expected penalty",
			ctx:  ComplianceContext{EnforcementProbability: 0.1, PenaltySeverity: 50, EvasionBenefit: 20, ComplianceCost: 10},
			want: DecisionEvade,
		},
		{
			name: "tie goes to compliance",
			ctx:  ComplianceContext{EnforcementProbability: 0.5, PenaltySeverity: 20, EvasionBenefit: 0, ComplianceCost: 10},
			want: DecisionComply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Decide(tt.ctx))
		})
	}
}

func TestDecide_RationalCompliesWhenDeterred(t *testing.T) {
	rng := entropy.NewSeeded(7)
	for i := 0; i < 200; i++ {
		p := RationalProfile()
		p.KnowledgeLevel = rng.Float()
		m := NewComplianceModel(p, WithRand(rng))
		ctx := ComplianceContext{
			StatuteID:              "s",
			EnforcementProbability: 0.2 + rng.Float()*0.8,
			PenaltySeverity:        50 + rng.Float()*100,
		}
		ctx.EvasionBenefit = ctx.ExpectedPenalty() * rng.Float() * 0.99

		d := m.Decide(ctx)
		if d != DecisionUnaware {
			require.Equal(t, DecisionComply, d, "case %d: %+v", i, ctx)
		}
	}
}

func TestDecide_RuleFollowingNeverEvades(t *testing.T) {
	rng := entropy.NewSeeded(11)
	m := NewComplianceModel(RuleFollowingProfile(), WithRand(rng))
	for i := 0; i < 500; i++ {
		ctx := ComplianceContext{
			StatuteID:              "s",
			EnforcementProbability: rng.Float(),
			PenaltySeverity:        rng.Float() * 500,
			EvasionBenefit:         rng.Float() * 500,
			ComplianceCost:         rng.Float() * 500,
			SocialNorm:             rng.Float(),
		}
		require.NotEqual(t, DecisionEvade, m.Decide(ctx))
	}
}

func TestDecide_RuleFollowingSeeksGuidanceOnCostlyUnpopularRule(t *testing.T) {
	m := NewComplianceModel(RuleFollowingProfile(), WithSeed(3))
	ctx := ComplianceContext{StatuteID: "s", ComplianceCost: 200, SocialNorm: 0.1}
	for i := 0; i < 20; i++ {
		d := m.Decide(ctx)
		if d == DecisionUnaware {
			continue
		}
		assert.Equal(t, DecisionSeekGuidance, d)
	}

	ctx.SocialNorm = 0.5
	m = NewComplianceModel(RuleFollowingProfile(), WithRand(fixedSource(0)))
	assert.Equal(t, DecisionComply, m.Decide(ctx))
}

func TestDecide_Opportunistic(t *testing.T) {
	p := OpportunisticProfile()
	p.KnowledgeLevel = 1
	p.RiskAversion = 0.5 // threshold 0.35
	m := NewComplianceModel(p, WithRand(fixedSource(0)))

	ctx := baseContext()
	ctx.EnforcementProbability = 0.4
	assert.Equal(t, DecisionComply, m.Decide(ctx))

	ctx.EnforcementProbability = 0.35
	assert.Equal(t, DecisionEvade, m.Decide(ctx))
}

func TestDecide_Random(t *testing.T) {
	p := RandomProfile()
	p.KnowledgeLevel = 1
	p.BaseCompliance = 0.7

	m := NewComplianceModel(p, WithRand(&seqSource{vals: []float64{0, 0.69}}))
	assert.Equal(t, DecisionComply, m.Decide(baseContext()))

	m = NewComplianceModel(p, WithRand(&seqSource{vals: []float64{0, 0.7}}))
	assert.Equal(t, DecisionEvade, m.Decide(baseContext()))
}

func TestDecide_BoundedRationalUsesNormsAndBias(t *testing.T) {
	p := BoundedRationalProfile()
	p.KnowledgeLevel = 1 // no perception noise
	p.RiskAversion = 0
	m := NewComplianceModel(p, WithRand(fixedSource(0.5)))

	// Evading pays 30 - 0.1*50 = 25; complying costs 20.
	ctx := ComplianceContext{
		StatuteID:              "s",
		EnforcementProbability: 0.1,
		PenaltySeverity:        50,
		EvasionBenefit:         30,
		ComplianceCost:         20,
	}
	p.BaseCompliance = 0
	p.SocialInfluence = 0
	*m.MutableProfile() = p
	assert.Equal(t, DecisionEvade, m.Decide(ctx))

	// Social pressure 1*1*10 plus bias 1*5 is not enough: -20+10+5 = -5 < 25.
	p.BaseCompliance = 1
	p.SocialInfluence = 1
	ctx.SocialNorm = 1
	*m.MutableProfile() = p
	assert.Equal(t, DecisionEvade, m.Decide(ctx))

	// Cheap compliance tips it.
	ctx.ComplianceCost = 0
	ctx.EvasionBenefit = 10
	assert.Equal(t, DecisionComply, m.Decide(ctx))

	// Risk aversion doubles the perceived penalty to 200, so evading nets 10 - 20 = -10.
	p.BaseCompliance = 0
	p.SocialInfluence = 0
	p.RiskAversion = 1
	*m.MutableProfile() = p
	ctx.PenaltySeverity = 100
	assert.Equal(t, DecisionComply, m.Decide(ctx))
}

func TestRecordOutcome_ExperienceAccumulates(t *testing.T) {
	p := BoundedRationalProfile()
	p.LearningRate = 0.15
	m := NewComplianceModel(p, WithSeed(1))
	const k = 37
	for i := 0; i < k; i++ {
		m.RecordOutcome("s", i%2 == 0, float64(i))
	}
	assert.InDelta(t, k*0.15, m.Experience(), 1e-9)
	assert.Len(t, m.History("s"), k)
	assert.Equal(t, p, m.Profile(), "ledger-only policy leaves the profile alone")
}

func TestRecordOutcome_HistoryIsBounded(t *testing.T) {
	m := NewComplianceModel(RationalProfile(), WithSeed(1), WithHistoryLimit(4))
	for i := 0; i < 10; i++ {
		m.RecordOutcome("s", true, float64(i))
	}
	h := m.History("s")
	require.Len(t, h, 4)
	assert.Equal(t, 6.0, h[0].Outcome)
	assert.Equal(t, 9.0, h[3].Outcome)
	assert.InDelta(t, 10*0.1, m.Experience(), 1e-9)
}

func TestRecordOutcome_Reinforce(t *testing.T) {
	p := BoundedRationalProfile()
	p.LearningRate = 1
	m := NewComplianceModel(p, WithSeed(1), WithLearning(LearnReinforce))

	m.RecordOutcome("s", false, -100) // caught evading
	got := m.Profile()
	assert.Greater(t, got.BaseCompliance, p.BaseCompliance)
	assert.Greater(t, got.RiskAversion, p.RiskAversion)

	before := m.Profile()
	m.RecordOutcome("s", false, 40) // evasion paid off
	assert.Less(t, m.Profile().BaseCompliance, before.BaseCompliance)

	for i := 0; i < 1000; i++ {
		m.RecordOutcome("s", true, 1e9)
	}
	assert.LessOrEqual(t, m.Profile().BaseCompliance, 1.0)
}

func TestClone_IsIndependent(t *testing.T) {
	m := NewComplianceModel(RationalProfile(), WithSeed(1))
	m.RecordOutcome("s", true, 1)

	c := m.Clone()
	c.RecordOutcome("s", false, 2)
	c.MutableProfile().BaseCompliance = 0

	assert.Len(t, m.History("s"), 1)
	assert.Len(t, c.History("s"), 2)
	assert.Equal(t, 0.5, m.Profile().BaseCompliance)
}

func TestComplianceProbability(t *testing.T) {
	ctx := baseContext()

	t.Run("rule follower always aware complies", func(t *testing.T) {
		p := RuleFollowingProfile()
		p.KnowledgeLevel = 1
		m := NewComplianceModel(p, WithSeed(5))
		assert.Equal(t, 1.0, m.ComplianceProbability(ctx))
	})

	t.Run("unaware population", func(t *testing.T) {
		p := RuleFollowingProfile()
		p.KnowledgeLevel = 0
		m := NewComplianceModel(p, WithSeed(5))
		assert.Equal(t, 0.0, m.ComplianceProbability(ctx))
	})

	t.Run("random strategy tracks base compliance", func(t *testing.T) {
		p := RandomProfile()
		p.KnowledgeLevel = 1
		p.BaseCompliance = 0.5
		m := NewComplianceModel(p, WithSeed(9))
		got := m.ComplianceProbability(ctx)
		assert.InDelta(t, 0.5, got, 0.2)
	})

	t.Run("does not mutate the model", func(t *testing.T) {
		m := NewComplianceModel(RandomProfile(), WithSeed(2))
		m.ComplianceProbability(ctx)
		assert.False(t, m.HasHistory(ctx.StatuteID))
		assert.Zero(t, m.Experience())
	})
}

func TestComplianceProbability_ReproducibleAcrossWorkerCounts(t *testing.T) {
	ctx := baseContext()
	serial := NewComplianceModel(RandomProfile(), WithSeed(77), WithEstimateWorkers(1))
	parallel := NewComplianceModel(RandomProfile(), WithSeed(77), WithEstimateWorkers(8))
	for i := 0; i < 5; i++ {
		assert.Equal(t, serial.ComplianceProbability(ctx), parallel.ComplianceProbability(ctx))
	}
}

func TestComplianceProbability_PinnedSeedIsStable(t *testing.T) {
	ctx := baseContext()
	m := NewComplianceModel(RandomProfile(), WithSeed(3), WithEstimateSeed(1234))
	first := m.ComplianceProbability(ctx)
	for i := 0; i < 5; i++ {
		m.Decide(ctx) // advancing the model stream must not matter
		assert.Equal(t, first, m.ComplianceProbability(ctx))
	}
}

func TestComplianceModel_JSON(t *testing.T) {
	m := NewComplianceModel(RuleFollowingProfile(), WithSeed(1))
	m.RecordOutcome("s", true, -5)

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Contains(t, out, "decision_history")
	assert.Contains(t, out, "experience")
	profile := out["profile"].(map[string]any)
	assert.Equal(t, "RuleFollowing", profile["strategy"])
	assert.Equal(t, 1.0, profile["base_compliance"])
}

func TestComplianceModel_JSONRestoresState(t *testing.T) {
	m := NewComplianceModel(RuleFollowingProfile(), WithSeed(1))
	m.RecordOutcome("s", true, -5)
	m.RecordOutcome("s", false, -50)

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var got ComplianceModel
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, m.Profile(), got.Profile())
	assert.InDelta(t, m.Experience(), got.Experience(), 1e-12)
	assert.Equal(t, m.History("s"), got.History("s"))
	assert.True(t, got.HasHistory("s"))

	// A decoded model is usable, not just populated.
	got.RecordOutcome("t", true, -1)
	assert.Len(t, got.History("t"), 1)
	assert.NotPanics(t, func() {
		got.Decide(ComplianceContext{StatuteID: "s", ComplianceCost: 10})
	})
}

func TestComplianceModel_JSONKeepsConfiguredSource(t *testing.T) {
	src := fixedSource(0)
	m := NewComplianceModel(RationalProfile(), WithRand(src), WithHistoryLimit(2))
	require.NoError(t, json.Unmarshal([]byte(`{
		"profile": {"strategy": "RuleFollowing", "base_compliance": 2, "knowledge_level": 1},
		"decision_history": {"s": [
			{"complied": true, "outcome": -1},
			{"complied": true, "outcome": -2},
			{"complied": false, "outcome": -3}
		]},
		"experience": 0.3
	}`), m))

	assert.Equal(t, StrategyRuleFollowing, m.Profile().Strategy)
	assert.Equal(t, 1.0, m.Profile().BaseCompliance, "decoded profile is clamped")
	assert.Equal(t, []Outcome{{Complied: true, Outcome: -2}, {Complied: false, Outcome: -3}}, m.History("s"))
	assert.Equal(t, DecisionComply, m.Decide(ComplianceContext{StatuteID: "s"}))
}

func TestOutcomeLog_JSONRoundTrip(t *testing.T) {
	l := NewOutcomeLog(3)
	for i := 0; i < 5; i++ {
		l.Add(Outcome{Complied: i%2 == 0, Outcome: float64(i)})
	}
	b, err := json.Marshal(l)
	require.NoError(t, err)

	var got OutcomeLog
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, l.Entries(), got.Entries())
	assert.Equal(t, DefaultHistoryLimit, got.Cap())

	got.Add(Outcome{Outcome: 9})
	assert.Equal(t, 4, got.Len())
}

func TestClone_ConcurrentWithLockedSource(t *testing.T) {
	m := NewComplianceModel(OpportunisticProfile(), WithRand(entropy.NewLocked(entropy.NewSeeded(5))))
	ctx := ComplianceContext{StatuteID: "s", EnforcementProbability: 0.4}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		c := m.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordOutcome("s", c.Decide(ctx).Complied(), -1)
			}
		}()
	}
	wg.Wait()
	assert.Empty(t, m.History("s"), "clones do not write back to the original")
}
