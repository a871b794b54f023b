package behavior

import (
	"fmt"
	"math"
	"strings"
)

// LearningPolicy controls whether recorded outcomes change the profile.
type LearningPolicy uint8

const (
	// LearnLedgerOnly records outcomes and grows experience; the profile is untouched.
	LearnLedgerOnly LearningPolicy = iota
	// LearnReinforce nudges base compliance toward whichever choice paid off,
	// and raises risk aversion after a costly evasion.
	LearnReinforce
)

// outcomeScale is the utility magnitude at which feedback saturates.
const outcomeScale = 50.0

// reinforcementStep is the largest single-outcome change, before the learning rate.
const reinforcementStep = 0.1

func (p LearningPolicy) String() string {
	switch p {
	case LearnLedgerOnly:
		return "ledger"
	case LearnReinforce:
		return "reinforce"
	default:
		return fmt.Sprintf("LearningPolicy(%d)", uint8(p))
	}
}

// ParseLearningPolicy resolves "ledger" or "reinforce".
func ParseLearningPolicy(name string) (LearningPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ledger":
		return LearnLedgerOnly, nil
	case "reinforce":
		return LearnReinforce, nil
	}
	return 0, fmt.Errorf("unknown learning policy %q", name)
}

// reinforce applies one outcome to the profile. The step is
// learning_rate × 0.1 × tanh(outcome/50), so it is bounded and sign-aware:
// a good outcome after complying raises compliance, a good outcome after
// evading lowers it, and vice versa.
func reinforce(p *BehavioralProfile, complied bool, outcome float64) {
	if math.IsNaN(outcome) {
		return
	}
	signal := math.Tanh(outcome / outcomeScale)
	step := p.LearningRate * reinforcementStep * signal

	if complied {
		p.BaseCompliance += step
	} else {
		p.BaseCompliance -= step
		if outcome < 0 {
			p.RiskAversion -= step // step < 0 here, so risk aversion rises
		}
	}
	p.Clamp()
}
