package behavior

import "time"

// AgentID is a unique identifier for a simulated actor.
type AgentID uint64

// EntityRef points at the domain entity (person, firm, agency) an agent simulates.
// The engine never interprets it.
type EntityRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"` // "individual", "institution", ...
	Name string `json:"name,omitempty"`
}

// Interaction is one entry in an agent's audit trail.
type Interaction struct {
	Date      time.Time          `json:"date"`
	StatuteID string             `json:"statute_id"`
	Decision  ComplianceDecision `json:"decision"`
}

// BehavioralAgent binds a decision model to an identity and records every decision.
type BehavioralAgent struct {
	ID                 AgentID          `json:"id"`
	Entity             EntityRef        `json:"entity"`
	Model              *ComplianceModel `json:"model"`
	InteractionHistory []Interaction    `json:"interaction_history"`
}

// NewBehavioralAgent creates an agent around model.
func NewBehavioralAgent(id AgentID, entity EntityRef, model *ComplianceModel) *BehavioralAgent {
	return &BehavioralAgent{
		ID:     id,
		Entity: entity,
		Model:  model,
	}
}

// DecideCompliance delegates to the model and appends the result to the
// interaction history, whatever the decision.
func (a *BehavioralAgent) DecideCompliance(statute Statute, ctx ComplianceContext, date time.Time) ComplianceDecision {
	decision := a.Model.Decide(ctx)
	a.InteractionHistory = append(a.InteractionHistory, Interaction{
		Date:      date,
		StatuteID: statute.ID,
		Decision:  decision,
	})
	return decision
}

// LearnFromOutcome forwards to the model's RecordOutcome.
func (a *BehavioralAgent) LearnFromOutcome(statuteID string, complied bool, outcome float64) {
	a.Model.RecordOutcome(statuteID, complied, outcome)
}

// Profile returns a copy of the agent's current profile.
func (a *BehavioralAgent) Profile() BehavioralProfile {
	return a.Model.Profile()
}

// ComplianceRate returns the share of this agent's decisions on a statute that
// counted as compliance. Zero when the agent never decided on it.
func (a *BehavioralAgent) ComplianceRate(statuteID string) float64 {
	total, complied := 0, 0
	for _, in := range a.InteractionHistory {
		if in.StatuteID != statuteID {
			continue
		}
		total++
		if in.Decision.Complied() {
			complied++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(complied) / float64(total)
}

// LastInteraction returns the most recent interaction, if any.
func (a *BehavioralAgent) LastInteraction() (Interaction, bool) {
	if len(a.InteractionHistory) == 0 {
		return Interaction{}, false
	}
	return a.InteractionHistory[len(a.InteractionHistory)-1], true
}
