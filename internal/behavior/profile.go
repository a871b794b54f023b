// Package behavior provides the compliance decision model: agent dispositions,
// per-decision context, the stateful ComplianceModel, agents and population stats.
package behavior

import (
	"fmt"
	"math"
	"strings"
)

// DecisionStrategy names the algorithm an aware agent uses to choose.
type DecisionStrategy uint8

const (
	StrategyRational        DecisionStrategy = iota // Expected-utility maximizer
	StrategyBoundedRational                         // Noisy perception, norms and habits matter
	StrategyRuleFollowing                           // Complies unless the rule is unworkable
	StrategyOpportunistic                           // Evades when enforcement looks weak
	StrategyRandom                                  // Coin flip weighted by base compliance
)

var strategyNames = [...]string{
	StrategyRational:        "Rational",
	StrategyBoundedRational: "BoundedRational",
	StrategyRuleFollowing:   "RuleFollowing",
	StrategyOpportunistic:   "Opportunistic",
	StrategyRandom:          "Random",
}

// Strategies lists every strategy in declaration order.
var Strategies = []DecisionStrategy{
	StrategyRational,
	StrategyBoundedRational,
	StrategyRuleFollowing,
	StrategyOpportunistic,
	StrategyRandom,
}

func (s DecisionStrategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("DecisionStrategy(%d)", uint8(s))
}

// MarshalText encodes the strategy by name.
func (s DecisionStrategy) MarshalText() ([]byte, error) {
	if int(s) >= len(strategyNames) {
		return nil, fmt.Errorf("unknown strategy %d", uint8(s))
	}
	return []byte(strategyNames[s]), nil
}

// UnmarshalText decodes a strategy name (case-insensitive).
func (s *DecisionStrategy) UnmarshalText(b []byte) error {
	st, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStrategy resolves a strategy name.
func ParseStrategy(name string) (DecisionStrategy, error) {
	for i, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return DecisionStrategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// BehavioralProfile is an agent's stable disposition. Every field except
// DiscountRate is a probability or rate in [0, 1].
type BehavioralProfile struct {
	Strategy        DecisionStrategy `json:"strategy" yaml:"strategy"`
	BaseCompliance  float64          `json:"base_compliance" yaml:"base_compliance"`
	RiskAversion    float64          `json:"risk_aversion" yaml:"risk_aversion"`
	DiscountRate    float64          `json:"discount_rate" yaml:"discount_rate"`
	KnowledgeLevel  float64          `json:"knowledge_level" yaml:"knowledge_level"`
	SocialInfluence float64          `json:"social_influence" yaml:"social_influence"`
	LearningRate    float64          `json:"learning_rate" yaml:"learning_rate"`
}

// Clamp forces the bounded fields back into [0, 1]. DiscountRate is only floored at 0.
func (p *BehavioralProfile) Clamp() {
	p.BaseCompliance = clamp01(p.BaseCompliance)
	p.RiskAversion = clamp01(p.RiskAversion)
	p.KnowledgeLevel = clamp01(p.KnowledgeLevel)
	p.SocialInfluence = clamp01(p.SocialInfluence)
	p.LearningRate = clamp01(p.LearningRate)
	if math.IsNaN(p.DiscountRate) || p.DiscountRate < 0 {
		p.DiscountRate = 0
	}
}

// RationalProfile is a well-informed expected-utility maximizer.
func RationalProfile() BehavioralProfile {
	return BehavioralProfile{
		Strategy:        StrategyRational,
		BaseCompliance:  0.5,
		RiskAversion:    0.5,
		DiscountRate:    0.05,
		KnowledgeLevel:  0.9,
		SocialInfluence: 0.2,
		LearningRate:    0.1,
	}
}

// BoundedRationalProfile is the typical citizen: partly informed, norm-sensitive.
func BoundedRationalProfile() BehavioralProfile {
	return BehavioralProfile{
		Strategy:        StrategyBoundedRational,
		BaseCompliance:  0.6,
		RiskAversion:    0.5,
		DiscountRate:    0.1,
		KnowledgeLevel:  0.6,
		SocialInfluence: 0.5,
		LearningRate:    0.2,
	}
}

// RuleFollowingProfile complies by default and asks for guidance when stuck.
func RuleFollowingProfile() BehavioralProfile {
	return BehavioralProfile{
		Strategy:        StrategyRuleFollowing,
		BaseCompliance:  1.0,
		RiskAversion:    1.0,
		DiscountRate:    0.02,
		KnowledgeLevel:  0.8,
		SocialInfluence: 0.3,
		LearningRate:    0.1,
	}
}

// OpportunisticProfile watches enforcement and little else.
func OpportunisticProfile() BehavioralProfile {
	return BehavioralProfile{
		Strategy:        StrategyOpportunistic,
		BaseCompliance:  0.3,
		RiskAversion:    0.2,
		DiscountRate:    0.3,
		KnowledgeLevel:  0.7,
		SocialInfluence: 0.4,
		LearningRate:    0.3,
	}
}

// RandomProfile decides by weighted coin flip.
func RandomProfile() BehavioralProfile {
	return BehavioralProfile{
		Strategy:        StrategyRandom,
		BaseCompliance:  0.5,
		RiskAversion:    0.5,
		DiscountRate:    0.1,
		KnowledgeLevel:  0.5,
		SocialInfluence: 0.5,
		LearningRate:    0.1,
	}
}

// ProfileFor returns the preset for a strategy.
func ProfileFor(s DecisionStrategy) BehavioralProfile {
	switch s {
	case StrategyRational:
		return RationalProfile()
	case StrategyBoundedRational:
		return BoundedRationalProfile()
	case StrategyRuleFollowing:
		return RuleFollowingProfile()
	case StrategyOpportunistic:
		return OpportunisticProfile()
	default:
		return RandomProfile()
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
