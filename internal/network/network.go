package network

import (
	"log/slog"
	"slices"
	"time"

	"github.com/talgya/compliance-sim/internal/behavior"
)

// DefaultTrust applies to any pair with no explicit trust entry.
const DefaultTrust = 0.5

// Per-message effect sizes, scaled by influence.
const (
	statuteInfoComplianceStep = 0.1
	statuteInfoKnowledgeStep  = 0.05
	experienceComplianceStep  = 0.05
	alertRiskStep             = 0.1
	alertThreshold            = 0.7
	adviceKnowledgeStep       = 0.02
)

// CommunicationNetwork is an undirected connectivity graph with directed trust
// and an ordered message log. Not safe for concurrent use.
type CommunicationNetwork struct {
	connections map[behavior.AgentID][]behavior.AgentID
	trust       map[behavior.AgentID]map[behavior.AgentID]float64
	messages    []AgentMessage
}

// New creates an empty network.
func New() *CommunicationNetwork {
	return &CommunicationNetwork{
		connections: make(map[behavior.AgentID][]behavior.AgentID),
		trust:       make(map[behavior.AgentID]map[behavior.AgentID]float64),
	}
}

// Connect links a and b in both directions. Self-links and duplicates are ignored.
func (n *CommunicationNetwork) Connect(a, b behavior.AgentID) {
	if a == b {
		return
	}
	if !slices.Contains(n.connections[a], b) {
		n.connections[a] = append(n.connections[a], b)
	}
	if !slices.Contains(n.connections[b], a) {
		n.connections[b] = append(n.connections[b], a)
	}
}

// Connected reports whether a and b share an edge.
func (n *CommunicationNetwork) Connected(a, b behavior.AgentID) bool {
	return slices.Contains(n.connections[a], b)
}

// Neighbors returns a copy of a's connections in the order they were made.
func (n *CommunicationNetwork) Neighbors(a behavior.AgentID) []behavior.AgentID {
	return slices.Clone(n.connections[a])
}

// Degree returns the number of connections a has.
func (n *CommunicationNetwork) Degree(a behavior.AgentID) int {
	return len(n.connections[a])
}

// SetTrust records how much from trusts to, clamped to [0, 1].
func (n *CommunicationNetwork) SetTrust(from, to behavior.AgentID, level float64) {
	row, ok := n.trust[from]
	if !ok {
		row = make(map[behavior.AgentID]float64)
		n.trust[from] = row
	}
	row[to] = clamp01(level)
}

// Trust returns how much from trusts to, or DefaultTrust if never set.
func (n *CommunicationNetwork) Trust(from, to behavior.AgentID) float64 {
	if row, ok := n.trust[from]; ok {
		if v, ok := row[to]; ok {
			return v
		}
	}
	return DefaultTrust
}

// SendMessage appends msg to the log and returns its id.
func (n *CommunicationNetwork) SendMessage(msg AgentMessage) string {
	msg.Credibility = clamp01(msg.Credibility)
	n.messages = append(n.messages, msg)
	return msg.ID
}

// Len returns the number of stored messages.
func (n *CommunicationNetwork) Len() int {
	return len(n.messages)
}

// Messages returns a copy of the message log in send order.
func (n *CommunicationNetwork) Messages() []AgentMessage {
	return slices.Clone(n.messages)
}

// GetMessagesFor returns messages visible to agent: sent at or after since,
// broadcast or addressed to agent, and from a sender connected to agent.
func (n *CommunicationNetwork) GetMessagesFor(agent behavior.AgentID, since time.Time) []AgentMessage {
	var out []AgentMessage
	for _, m := range n.messages {
		if m.Timestamp.Before(since) {
			continue
		}
		if m.Receiver != nil && *m.Receiver != agent {
			continue
		}
		if !n.Connected(agent, m.Sender) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// InfluenceReport summarizes what processing did to a profile.
type InfluenceReport struct {
	Messages        int
	BaseCompliance  float64 // Net change after clamping
	KnowledgeLevel  float64
	RiskAversion    float64
	StrongestSender behavior.AgentID
	MaxInfluence    float64
}

// ProcessMessagesForAgent applies every visible message to profile in place.
// influence = trust(agent, sender) × credibility × social_influence. The bounded
// fields are re-clamped afterwards.
func (n *CommunicationNetwork) ProcessMessagesForAgent(agent behavior.AgentID, profile *behavior.BehavioralProfile, since time.Time) InfluenceReport {
	before := *profile
	var report InfluenceReport

	for _, m := range n.GetMessagesFor(agent, since) {
		influence := n.Trust(agent, m.Sender) * m.Credibility * profile.SocialInfluence
		if influence > report.MaxInfluence {
			report.MaxInfluence = influence
			report.StrongestSender = m.Sender
		}
		applyMessage(profile, m.MessageType, influence)
		report.Messages++
	}
	profile.Clamp()

	report.BaseCompliance = profile.BaseCompliance - before.BaseCompliance
	report.KnowledgeLevel = profile.KnowledgeLevel - before.KnowledgeLevel
	report.RiskAversion = profile.RiskAversion - before.RiskAversion
	if report.Messages > 0 {
		slog.Debug("processed messages",
			"agent", agent,
			"messages", report.Messages,
			"d_compliance", report.BaseCompliance,
			"d_knowledge", report.KnowledgeLevel,
			"d_risk", report.RiskAversion,
		)
	}
	return report
}

func applyMessage(p *behavior.BehavioralProfile, payload MessageType, influence float64) {
	switch msg := payload.(type) {
	case StatuteInfo:
		if msg.ComplianceRecommended {
			p.BaseCompliance += influence * statuteInfoComplianceStep
		} else {
			p.BaseCompliance -= influence * statuteInfoComplianceStep
		}
		p.KnowledgeLevel += influence * statuteInfoKnowledgeStep
	case ComplianceExperience:
		if msg.Complied {
			p.BaseCompliance += influence * experienceComplianceStep
		} else {
			p.BaseCompliance -= influence * experienceComplianceStep
		}
	case EnforcementAlert:
		if msg.EnforcementLevel > alertThreshold {
			p.RiskAversion += influence * alertRiskStep
		}
	case SocialNorm:
		// Pull toward the stated rate rather than a flat bump.
		p.BaseCompliance += (msg.ComplianceRate - p.BaseCompliance) * influence
	case Advice:
		p.KnowledgeLevel += influence * adviceKnowledgeStep
	}
}

// ClearMessagesBefore drops messages older than cutoff and returns how many were removed.
func (n *CommunicationNetwork) ClearMessagesBefore(cutoff time.Time) int {
	before := len(n.messages)
	n.messages = slices.DeleteFunc(n.messages, func(m AgentMessage) bool {
		return m.Timestamp.Before(cutoff)
	})
	return before - len(n.messages)
}

// EdgeCount returns the number of undirected edges.
func (n *CommunicationNetwork) EdgeCount() int {
	total := 0
	for _, peers := range n.connections {
		total += len(peers)
	}
	return total / 2
}

// AgentCount returns the number of agents with at least one connection.
func (n *CommunicationNetwork) AgentCount() int {
	return len(n.connections)
}
