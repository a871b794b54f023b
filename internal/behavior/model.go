// ComplianceModel: the decision engine bound to one profile.
// An awareness gate runs first; aware agents then choose by their strategy.
package behavior

import (
	"encoding/json"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/compliance-sim/internal/entropy"
)

// EstimateTrials is the number of Monte Carlo trials per probability estimate.
const EstimateTrials = 100

const (
	repeatAwarenessBoost  = 0.2   // Familiar statutes are easier to notice
	guidanceCostThreshold = 100.0 // Rule followers balk above this cost...
	guidanceNormThreshold = 0.3   // ...when few peers comply
	perceptionNoise       = 0.2   // Perception error at zero knowledge
	socialPressureWeight  = 10.0
	complianceBiasWeight  = 5.0
)

// ComplianceModel decides, records outcomes, and estimates compliance probability.
// Not safe for concurrent use; ComplianceProbability parallelizes internally.
type ComplianceModel struct {
	profile    BehavioralProfile
	history    map[string]*OutcomeLog
	experience float64

	rng          entropy.Source
	historyLimit int
	learning     LearningPolicy
	workers      int
	estimateSeed *int64
}

// Option configures a ComplianceModel.
type Option func(*ComplianceModel)

// WithRand sets the random source. Without it the model uses crypto randomness
// and output is not reproducible.
func WithRand(src entropy.Source) Option {
	return func(m *ComplianceModel) { m.rng = src }
}

// WithSeed gives the model its own seeded generator.
func WithSeed(seed int64) Option {
	return func(m *ComplianceModel) { m.rng = entropy.NewSeeded(seed) }
}

// WithHistoryLimit bounds outcomes kept per statute.
func WithHistoryLimit(n int) Option {
	return func(m *ComplianceModel) { m.historyLimit = n }
}

// WithLearning selects how recorded outcomes feed back into the profile.
func WithLearning(p LearningPolicy) Option {
	return func(m *ComplianceModel) { m.learning = p }
}

// WithEstimateWorkers caps parallel Monte Carlo trials (default GOMAXPROCS).
func WithEstimateWorkers(n int) Option {
	return func(m *ComplianceModel) { m.workers = n }
}

// WithEstimateSeed pins the Monte Carlo trial seeds so repeated estimates for
// the same model state and context return the same value.
func WithEstimateSeed(seed int64) Option {
	return func(m *ComplianceModel) {
		s := seed
		m.estimateSeed = &s
	}
}

// NewComplianceModel creates a model for profile.
func NewComplianceModel(profile BehavioralProfile, opts ...Option) *ComplianceModel {
	m := &ComplianceModel{
		profile:      profile,
		history:      make(map[string]*OutcomeLog),
		historyLimit: DefaultHistoryLimit,
		workers:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = entropy.Crypto{}
	}
	if m.workers < 1 {
		m.workers = 1
	}
	return m
}

// Profile returns a copy of the current profile.
func (m *ComplianceModel) Profile() BehavioralProfile {
	return m.profile
}

// MutableProfile returns the profile for in-place update by the communication
// network. Callers must re-clamp after writing.
func (m *ComplianceModel) MutableProfile() *BehavioralProfile {
	return &m.profile
}

// Experience returns the accumulated experience.
func (m *ComplianceModel) Experience() float64 {
	return m.experience
}

// History returns retained outcomes for a statute, oldest first.
func (m *ComplianceModel) History(statuteID string) []Outcome {
	log, ok := m.history[statuteID]
	if !ok {
		return nil
	}
	return log.Entries()
}

// HasHistory reports whether any outcome was recorded for the statute.
func (m *ComplianceModel) HasHistory(statuteID string) bool {
	_, ok := m.history[statuteID]
	return ok
}

// Decide runs the awareness gate and then the profile's strategy.
func (m *ComplianceModel) Decide(ctx ComplianceContext) ComplianceDecision {
	awareness := m.profile.KnowledgeLevel
	if m.HasHistory(ctx.StatuteID) {
		awareness = math.Min(awareness+repeatAwarenessBoost, 1.0)
	}
	if m.rng.Float() > awareness {
		return DecisionUnaware
	}

	switch m.profile.Strategy {
	case StrategyRational:
		return m.decideRational(ctx)
	case StrategyBoundedRational:
		return m.decideBoundedRational(ctx)
	case StrategyRuleFollowing:
		return m.decideRuleFollowing(ctx)
	case StrategyOpportunistic:
		return m.decideOpportunistic(ctx)
	default:
		return m.decideRandom()
	}
}

func (m *ComplianceModel) decideRational(ctx ComplianceContext) ComplianceDecision {
	complyUtility := -ctx.ComplianceCost
	evadeUtility := ctx.EvasionBenefit - ctx.ExpectedPenalty()
	if complyUtility >= evadeUtility {
		return DecisionComply
	}
	return DecisionEvade
}

func (m *ComplianceModel) decideBoundedRational(ctx ComplianceContext) ComplianceDecision {
	p := m.profile
	noise := perceptionNoise * (1 - p.KnowledgeLevel)

	perceivedEnforcement := clamp01(ctx.EnforcementProbability + (m.rng.Float()-0.5)*noise)
	perceivedPenalty := ctx.PenaltySeverity * (1 + (m.rng.Float()-0.5)*noise)
	if perceivedPenalty < 0 {
		perceivedPenalty = 0
	}
	perceivedPenalty *= 1 + p.RiskAversion

	socialPressure := ctx.SocialNorm * p.SocialInfluence * socialPressureWeight
	bias := p.BaseCompliance * complianceBiasWeight

	complyUtility := -ctx.ComplianceCost + socialPressure
	evadeUtility := ctx.EvasionBenefit - perceivedEnforcement*perceivedPenalty
	if complyUtility+bias >= evadeUtility {
		return DecisionComply
	}
	return DecisionEvade
}

func (m *ComplianceModel) decideRuleFollowing(ctx ComplianceContext) ComplianceDecision {
	if ctx.ComplianceCost > guidanceCostThreshold && ctx.SocialNorm < guidanceNormThreshold {
		return DecisionSeekGuidance
	}
	return DecisionComply
}

func (m *ComplianceModel) decideOpportunistic(ctx ComplianceContext) ComplianceDecision {
	threshold := 0.5 - m.profile.RiskAversion*0.3
	if ctx.EnforcementProbability > threshold {
		return DecisionComply
	}
	return DecisionEvade
}

func (m *ComplianceModel) decideRandom() ComplianceDecision {
	if m.rng.Float() < m.profile.BaseCompliance {
		return DecisionComply
	}
	return DecisionEvade
}

// RecordOutcome stores the consequence of a decision and grows experience by
// the learning rate. Under the Reinforce policy it also adjusts the profile.
func (m *ComplianceModel) RecordOutcome(statuteID string, complied bool, outcome float64) {
	log, ok := m.history[statuteID]
	if !ok {
		log = NewOutcomeLog(m.historyLimit)
		m.history[statuteID] = log
	}
	log.Add(Outcome{Complied: complied, Outcome: outcome})
	m.experience += m.profile.LearningRate

	if m.learning == LearnReinforce {
		reinforce(&m.profile, complied, outcome)
	}
}

// Clone returns a deep copy that shares the model's random source. Use the
// clone from another goroutine only if that source is an entropy.Locked.
func (m *ComplianceModel) Clone() *ComplianceModel {
	return m.cloneWithRand(m.rng)
}

func (m *ComplianceModel) cloneWithRand(src entropy.Source) *ComplianceModel {
	c := *m
	c.rng = src
	c.history = make(map[string]*OutcomeLog, len(m.history))
	for id, log := range m.history {
		c.history[id] = log.Clone()
	}
	return &c
}

// ComplianceProbability estimates P(Comply or SeekGuidance) by running Decide on
// EstimateTrials fresh clones. Each trial has its own seeded generator derived
// from one draw of the model's stream (or from the pinned estimate seed), so the
// result does not depend on worker scheduling.
func (m *ComplianceModel) ComplianceProbability(ctx ComplianceContext) float64 {
	var base int64
	if m.estimateSeed != nil {
		base = *m.estimateSeed
	} else {
		base = entropy.DeriveSeed(m.rng)
	}

	var complied atomic.Int64
	var g errgroup.Group
	g.SetLimit(m.workers)
	for trial := 0; trial < EstimateTrials; trial++ {
		g.Go(func() error {
			clone := m.cloneWithRand(entropy.NewSeeded(entropy.TrialSeed(base, trial)))
			if clone.Decide(ctx).Complied() {
				complied.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	p := float64(complied.Load()) / EstimateTrials
	slog.Debug("compliance estimate", "statute", ctx.StatuteID, "strategy", m.profile.Strategy, "p", p)
	return p
}

// MarshalJSON encodes the model with its profile, history and experience.
func (m *ComplianceModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Profile         BehavioralProfile      `json:"profile"`
		DecisionHistory map[string]*OutcomeLog `json:"decision_history"`
		Experience      float64                `json:"experience"`
	}{m.profile, m.history, m.experience})
}

// UnmarshalJSON restores profile, history and experience. Settings a decoded
// model cannot carry (random source, history limit, workers) keep their current
// values, or the NewComplianceModel defaults on a zero model.
func (m *ComplianceModel) UnmarshalJSON(b []byte) error {
	var raw struct {
		Profile         BehavioralProfile    `json:"profile"`
		DecisionHistory map[string][]Outcome `json:"decision_history"`
		Experience      float64              `json:"experience"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	if m.rng == nil {
		*m = *NewComplianceModel(BehavioralProfile{})
	}
	if m.historyLimit < 1 {
		m.historyLimit = DefaultHistoryLimit
	}
	if m.workers < 1 {
		m.workers = 1
	}

	m.profile = raw.Profile
	m.profile.Clamp()
	m.experience = raw.Experience
	m.history = make(map[string]*OutcomeLog, len(raw.DecisionHistory))
	for id, outcomes := range raw.DecisionHistory {
		log := NewOutcomeLog(m.historyLimit)
		for _, o := range outcomes {
			log.Add(o)
		}
		m.history[id] = log
	}
	return nil
}
