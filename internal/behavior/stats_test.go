package behavior

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplianceStats_Record(t *testing.T) {
	s := NewComplianceStats("tax-101")
	s.Record(DecisionComply, 0.9)
	s.Record(DecisionComply, 0.8)
	s.Record(DecisionEvade, 0.3)
	s.Record(DecisionUnaware, 0.0)

	assert.Equal(t, 4, s.TotalAgents)
	assert.Equal(t, 2, s.Complied)
	assert.Equal(t, 1, s.Evaded)
	assert.Equal(t, 1, s.Unaware)
	assert.Equal(t, 0, s.SoughtGuidance)
	assert.InDelta(t, 0.5, s.ComplianceRate(), 1e-12)
	assert.InDelta(t, 0.25, s.EvasionRate(), 1e-12)
	assert.InDelta(t, 0.5, s.AvgComplianceProb, 1e-12)
}

func TestComplianceStats_Empty(t *testing.T) {
	s := NewComplianceStats("x")
	assert.Equal(t, 0.0, s.ComplianceRate())
	assert.Equal(t, 0.0, s.EvasionRate())
	assert.Equal(t, 0.0, s.UnawareRate())
	assert.Equal(t, 0.0, s.GuidanceRate())
}

func TestComplianceStats_CountsAlwaysBalance(t *testing.T) {
	s := NewComplianceStats("x")
	decisions := []ComplianceDecision{DecisionComply, DecisionEvade, DecisionUnaware, DecisionSeekGuidance}
	for i := 0; i < 103; i++ {
		s.Record(decisions[i%len(decisions)], float64(i%10)/10)
		require.Equal(t, s.TotalAgents, s.Complied+s.Evaded+s.Unaware+s.SoughtGuidance)
		require.LessOrEqual(t, s.ComplianceRate()+s.EvasionRate(), 1.0)
	}
}

func TestComplianceStats_Merge(t *testing.T) {
	a := NewComplianceStats("x")
	a.Record(DecisionComply, 1.0)
	a.Record(DecisionComply, 1.0)
	b := NewComplianceStats("x")
	b.Record(DecisionEvade, 0.0)
	b.Record(DecisionSeekGuidance, 0.4)

	a.Merge(b)
	assert.Equal(t, 4, a.TotalAgents)
	assert.Equal(t, 2, a.Complied)
	assert.Equal(t, 1, a.Evaded)
	assert.Equal(t, 1, a.SoughtGuidance)
	assert.InDelta(t, 0.6, a.AvgComplianceProb, 1e-12)
}

func TestComplianceStats_Summary(t *testing.T) {
	s := NewComplianceStats("tax-101")
	s.Record(DecisionComply, 0.9)
	s.Record(DecisionComply, 0.8)
	s.Record(DecisionEvade, 0.3)
	s.Record(DecisionUnaware, 0.0)

	assert.Equal(t,
		"Statute tax-101: Compliance=50.0% (2/4), Evasion=25.0% (1/4), Unaware=1 Avg P(comply)=0.500",
		s.Summary())
}

func TestBehavioralAgent_RecordsEveryDecision(t *testing.T) {
	p := RuleFollowingProfile()
	p.KnowledgeLevel = 0.5
	a := NewBehavioralAgent(1, EntityRef{ID: "acme", Kind: "institution"},
		NewComplianceModel(p, WithSeed(4)))

	statute := Statute{ID: "s-1"}
	ctx := ComplianceContext{StatuteID: statute.ID, ComplianceCost: 500, SocialNorm: 0}
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seen := map[ComplianceDecision]int{}
	for i := 0; i < 50; i++ {
		d := a.DecideCompliance(statute, ctx, day.AddDate(0, 0, i))
		seen[d]++
	}
	require.Len(t, a.InteractionHistory, 50)
	assert.Positive(t, seen[DecisionUnaware], "low knowledge should produce some unaware draws")
	assert.Positive(t, seen[DecisionSeekGuidance])
	assert.Zero(t, seen[DecisionEvade])

	last, ok := a.LastInteraction()
	require.True(t, ok)
	assert.Equal(t, day.AddDate(0, 0, 49), last.Date)
	assert.Equal(t, "s-1", last.StatuteID)

	assert.InDelta(t, float64(seen[DecisionSeekGuidance])/50, a.ComplianceRate("s-1"), 1e-12)
	assert.Zero(t, a.ComplianceRate("unknown"))
}

func TestBehavioralAgent_LearnFromOutcomeForwards(t *testing.T) {
	a := NewBehavioralAgent(2, EntityRef{ID: "p"}, NewComplianceModel(RationalProfile(), WithSeed(1)))
	a.LearnFromOutcome("s", false, -50)
	a.LearnFromOutcome("s", true, -5)
	assert.Len(t, a.Model.History("s"), 2)
	assert.InDelta(t, 0.2, a.Model.Experience(), 1e-12)
}

func TestParseNames(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("nope")
	assert.Error(t, err)

	d, err := ParseDecision("seekguidance")
	require.NoError(t, err)
	assert.Equal(t, DecisionSeekGuidance, d)
}

func TestProfileClamp(t *testing.T) {
	p := BehavioralProfile{
		BaseCompliance:  2,
		RiskAversion:    -1,
		DiscountRate:    -0.5,
		KnowledgeLevel:  999,
		SocialInfluence: -3,
		LearningRate:    1.5,
	}
	p.Clamp()
	assert.Equal(t, BehavioralProfile{BaseCompliance: 1, KnowledgeLevel: 1, LearningRate: 1}, p)
}

func TestBehavioralAgent_JSONRoundTrip(t *testing.T) {
	a := NewBehavioralAgent(7, EntityRef{ID: "acme", Kind: "institution", Name: "Acme"},
		NewComplianceModel(RuleFollowingProfile(), WithSeed(3)))
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.DecideCompliance(Statute{ID: "s"}, ComplianceContext{StatuteID: "s"}, day)
	a.LearnFromOutcome("s", true, -5)
	a.LearnFromOutcome("s", false, -50)

	b, err := json.Marshal(a)
	require.NoError(t, err)

	var got BehavioralAgent
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Entity, got.Entity)
	require.Len(t, got.InteractionHistory, 1)
	assert.True(t, got.InteractionHistory[0].Date.Equal(day))

	require.NotNil(t, got.Model)
	assert.Equal(t, RuleFollowingProfile(), got.Profile())
	assert.InDelta(t, 0.2, got.Model.Experience(), 1e-12)
	assert.Equal(t, a.Model.History("s"), got.Model.History("s"))

	got.LearnFromOutcome("s", true, -1)
	assert.Len(t, got.Model.History("s"), 3)
	assert.NotPanics(t, func() {
		got.DecideCompliance(Statute{ID: "s"}, ComplianceContext{StatuteID: "s"}, day.AddDate(0, 1, 0))
	})
}
