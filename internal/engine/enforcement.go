// Enforcement: resolving what a decision actually cost, and what the agent
// tells its neighbors afterwards.
package engine

import (
	"time"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/network"
	"github.com/talgya/compliance-sim/internal/population"
	"github.com/talgya/compliance-sim/internal/world"
)

const (
	guidanceCostShare   = 0.5 // Guidance halves the cost of complying
	caughtAlertLevel    = 0.9 // Enforcement level reported by someone just penalized
	experienceCredBase  = 0.3 // Credibility of a first-hand report at zero knowledge
	informedKnowledge   = 0.8 // Knowledge needed to recommend a statute to others
	speakerCredibility  = 0.7
	guidanceCredibility = 0.6
)

// resolution is the real-world consequence of one decision.
type resolution struct {
	complied bool
	detected bool
	learned  bool // The agent knows what happened and records it
	outcome  float64
}

// resolve draws detection for non-compliance. Compliers pay the cost; caught
// evaders pay the penalty; undetected evaders bank the benefit. Unaware agents
// only learn anything when they are caught.
func (s *Simulation) resolve(ctx behavior.ComplianceContext, d behavior.ComplianceDecision) resolution {
	switch d {
	case behavior.DecisionComply:
		return resolution{complied: true, learned: true, outcome: -ctx.ComplianceCost}
	case behavior.DecisionSeekGuidance:
		return resolution{complied: true, learned: true, outcome: -ctx.ComplianceCost * guidanceCostShare}
	}

	if s.rng.Float() < ctx.EnforcementProbability {
		return resolution{detected: true, learned: true, outcome: -ctx.PenaltySeverity}
	}
	if d == behavior.DecisionUnaware {
		return resolution{}
	}
	return resolution{learned: true, outcome: ctx.EvasionBenefit}
}

// emit broadcasts what r learned this period to its neighbors.
func (s *Simulation) emit(r *population.Resident, st StatuteTerms, d behavior.ComplianceDecision, res resolution, date time.Time) {
	if !res.learned {
		return
	}
	profile := r.Profile()
	cred := experienceCredBase + (1-experienceCredBase)*profile.KnowledgeLevel

	s.Network.SendMessage(network.NewBroadcast(r.ID, network.ComplianceExperience{
		StatuteID: st.ID,
		Complied:  res.complied,
		Outcome:   res.outcome,
	}, date, cred))

	switch {
	case res.detected:
		s.Network.SendMessage(network.NewBroadcast(r.ID, network.EnforcementAlert{
			StatuteID:        st.ID,
			EnforcementLevel: caughtAlertLevel,
		}, date, cred))
	case d == behavior.DecisionSeekGuidance:
		s.Network.SendMessage(network.NewBroadcast(r.ID, network.Advice{
			StatuteID: st.ID,
			Text:      "guidance obtained on " + st.ID,
		}, date, guidanceCredibility))
	case res.complied && profile.KnowledgeLevel >= informedKnowledge:
		s.Network.SendMessage(network.NewBroadcast(r.ID, network.StatuteInfo{
			StatuteID:             st.ID,
			ComplianceRecommended: true,
		}, date, cred))
	case !res.complied && profile.KnowledgeLevel >= informedKnowledge:
		// Knowledgeable evaders who got away with it talk the statute down.
		s.Network.SendMessage(network.NewBroadcast(r.ID, network.StatuteInfo{
			StatuteID:             st.ID,
			ComplianceRecommended: false,
		}, date, cred))
	}
}

// broadcastNorms has each region's speaker announce last period's local compliance share.
func (s *Simulation) broadcastNorms(date time.Time) {
	for _, coord := range s.Map.Coords() {
		speaker, ok := s.speakers[coord]
		if !ok {
			continue
		}
		rates := s.observed[coord]
		for _, st := range s.Statutes {
			rate, ok := rates[st.ID]
			if !ok {
				continue
			}
			s.Network.SendMessage(network.NewBroadcast(speaker, network.SocialNorm{
				StatuteID:      st.ID,
				ComplianceRate: rate,
			}, date, speakerCredibility))
		}
	}
}

// RegionCompliance returns the last observed compliance share for a region and statute.
func (s *Simulation) RegionCompliance(coord world.HexCoord, statuteID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.observed[coord][statuteID]
	return rate, ok
}
