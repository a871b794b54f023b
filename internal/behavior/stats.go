package behavior

import "fmt"

// ComplianceStats aggregates decisions on one statute across a population.
// Counts always satisfy Complied+Evaded+Unaware+SoughtGuidance == TotalAgents.
type ComplianceStats struct {
	StatuteID         string  `json:"statute_id"`
	TotalAgents       int     `json:"total_agents"`
	Complied          int     `json:"complied"`
	Evaded            int     `json:"evaded"`
	Unaware           int     `json:"unaware"`
	SoughtGuidance    int     `json:"sought_guidance"`
	AvgComplianceProb float64 `json:"avg_compliance_prob"`
}

// NewComplianceStats creates an empty accumulator for a statute.
func NewComplianceStats(statuteID string) *ComplianceStats {
	return &ComplianceStats{StatuteID: statuteID}
}

// Record adds one decision and its estimated compliance probability.
// The mean is updated incrementally.
func (s *ComplianceStats) Record(decision ComplianceDecision, probability float64) {
	s.TotalAgents++
	n := float64(s.TotalAgents)
	s.AvgComplianceProb = (s.AvgComplianceProb*(n-1) + probability) / n

	switch decision {
	case DecisionComply:
		s.Complied++
	case DecisionEvade:
		s.Evaded++
	case DecisionUnaware:
		s.Unaware++
	case DecisionSeekGuidance:
		s.SoughtGuidance++
	}
}

// Merge folds another accumulator for the same statute into s.
func (s *ComplianceStats) Merge(o *ComplianceStats) {
	total := s.TotalAgents + o.TotalAgents
	if total > 0 {
		s.AvgComplianceProb = (s.AvgComplianceProb*float64(s.TotalAgents) +
			o.AvgComplianceProb*float64(o.TotalAgents)) / float64(total)
	}
	s.TotalAgents = total
	s.Complied += o.Complied
	s.Evaded += o.Evaded
	s.Unaware += o.Unaware
	s.SoughtGuidance += o.SoughtGuidance
}

// ComplianceRate is Complied/TotalAgents, or 0 with no agents.
func (s *ComplianceStats) ComplianceRate() float64 {
	return s.rate(s.Complied)
}

// EvasionRate is Evaded/TotalAgents, or 0 with no agents.
func (s *ComplianceStats) EvasionRate() float64 {
	return s.rate(s.Evaded)
}

// UnawareRate is Unaware/TotalAgents, or 0 with no agents.
func (s *ComplianceStats) UnawareRate() float64 {
	return s.rate(s.Unaware)
}

// GuidanceRate is SoughtGuidance/TotalAgents, or 0 with no agents.
func (s *ComplianceStats) GuidanceRate() float64 {
	return s.rate(s.SoughtGuidance)
}

func (s *ComplianceStats) rate(n int) float64 {
	if s.TotalAgents == 0 {
		return 0
	}
	return float64(n) / float64(s.TotalAgents)
}

// Summary renders a one-line report.
func (s *ComplianceStats) Summary() string {
	return fmt.Sprintf("Statute %s: Compliance=%.1f%% (%d/%d), Evasion=%.1f%% (%d/%d), Unaware=%d Avg P(comply)=%.3f",
		s.StatuteID,
		s.ComplianceRate()*100, s.Complied, s.TotalAgents,
		s.EvasionRate()*100, s.Evaded, s.TotalAgents,
		s.Unaware,
		s.AvgComplianceProb,
	)
}
