package behavior

import (
	"fmt"
	"strings"
)

// Statute is the inbound reference to a rule evaluated elsewhere. Only ID is read here.
type Statute struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// ComplianceContext holds the situational facts for one decision.
// Probabilities are expected in [0, 1]; severities, benefits and costs are
// non-negative utility units. Values are not validated.
type ComplianceContext struct {
	StatuteID string `json:"statute_id"`

	// LegalResult is the evaluated legal effect, carried through untouched for
	// the caller's downstream use.
	LegalResult any `json:"legal_result,omitempty"`

	EnforcementProbability float64 `json:"enforcement_probability"`
	PenaltySeverity        float64 `json:"penalty_severity"`
	EvasionBenefit         float64 `json:"evasion_benefit"`
	ComplianceCost         float64 `json:"compliance_cost"`
	SocialNorm             float64 `json:"social_norm"` // Share of peers believed to comply
}

// ExpectedPenalty is enforcement probability times penalty severity.
func (c ComplianceContext) ExpectedPenalty() float64 {
	return c.EnforcementProbability * c.PenaltySeverity
}

// ComplianceDecision is the outcome of one decision.
type ComplianceDecision uint8

const (
	DecisionComply ComplianceDecision = iota
	DecisionEvade
	DecisionUnaware
	DecisionSeekGuidance
)

var decisionNames = [...]string{
	DecisionComply:       "Comply",
	DecisionEvade:        "Evade",
	DecisionUnaware:      "Unaware",
	DecisionSeekGuidance: "SeekGuidance",
}

func (d ComplianceDecision) String() string {
	if int(d) < len(decisionNames) {
		return decisionNames[d]
	}
	return fmt.Sprintf("ComplianceDecision(%d)", uint8(d))
}

// Complied reports whether the decision counts toward compliance
// (Comply or SeekGuidance).
func (d ComplianceDecision) Complied() bool {
	return d == DecisionComply || d == DecisionSeekGuidance
}

// MarshalText encodes the decision by name.
func (d ComplianceDecision) MarshalText() ([]byte, error) {
	if int(d) >= len(decisionNames) {
		return nil, fmt.Errorf("unknown decision %d", uint8(d))
	}
	return []byte(decisionNames[d]), nil
}

// UnmarshalText decodes a decision name.
func (d *ComplianceDecision) UnmarshalText(b []byte) error {
	dec, err := ParseDecision(string(b))
	if err != nil {
		return err
	}
	*d = dec
	return nil
}

// ParseDecision resolves a decision name (case-insensitive).
func ParseDecision(name string) (ComplianceDecision, error) {
	for i, n := range decisionNames {
		if strings.EqualFold(n, name) {
			return ComplianceDecision(i), nil
		}
	}
	return 0, fmt.Errorf("unknown decision %q", name)
}
