package engine

import (
	"slices"
	"time"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/world"
)

// Status is a point-in-time summary of the simulation.
type Status struct {
	Period   int       `json:"period"`
	Date     time.Time `json:"date"`
	Agents   int       `json:"agents"`
	Regions  int       `json:"regions"`
	Statutes []string  `json:"statutes"`
	Edges    int       `json:"edges"`
	Messages int       `json:"messages"`
	Events   int       `json:"events"`
}

// Status returns a consistent summary of the current state.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.Statutes))
	for _, st := range s.Statutes {
		ids = append(ids, st.ID)
	}
	return Status{
		Period:   s.Period,
		Date:     s.LastDate,
		Agents:   len(s.Residents),
		Regions:  s.Map.RegionCount(),
		Statutes: ids,
		Edges:    s.Network.EdgeCount(),
		Messages: s.Network.Len(),
		Events:   len(s.Events),
	}
}

// LatestReport returns the most recent period report, if any.
func (s *Simulation) LatestReport() (PeriodReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Reports) == 0 {
		return PeriodReport{}, false
	}
	return s.Reports[len(s.Reports)-1], true
}

// RecentEvents returns up to limit of the newest events, newest last.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.Events) > limit {
		start = len(s.Events) - limit
	}
	return slices.Clone(s.Events[start:])
}

// AgentView is a read-only snapshot of one resident.
type AgentView struct {
	ID           behavior.AgentID           `json:"id"`
	Entity       behavior.EntityRef         `json:"entity"`
	Home         world.HexCoord             `json:"home"`
	Profile      behavior.BehavioralProfile `json:"profile"`
	Experience   float64                    `json:"experience"`
	Interactions int                        `json:"interactions"`
	Compliance   map[string]float64         `json:"compliance"` // Share of decisions that complied, per statute
	Connections  []behavior.AgentID         `json:"connections"`
}

// Agent returns a snapshot of the resident with id.
func (s *Simulation) Agent(id behavior.AgentID) (AgentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.Index[id]
	if !ok {
		return AgentView{}, false
	}
	view := AgentView{
		ID:           r.ID,
		Entity:       r.Entity,
		Home:         r.Home,
		Profile:      r.Profile(),
		Experience:   r.Model.Experience(),
		Interactions: len(r.InteractionHistory),
		Compliance:   make(map[string]float64, len(s.Statutes)),
		Connections:  s.Network.Neighbors(r.ID),
	}
	for _, st := range s.Statutes {
		view.Compliance[st.ID] = r.ComplianceRate(st.ID)
	}
	return view, true
}

// NetworkView summarizes the communication network.
type NetworkView struct {
	Agents       int            `json:"agents"`
	Edges        int            `json:"edges"`
	Messages     int            `json:"messages"`
	AvgDegree    float64        `json:"avg_degree"`
	MaxDegree    int            `json:"max_degree"`
	MessageKinds map[string]int `json:"message_kinds"`
}

// NetworkSummary returns degree and message statistics.
func (s *Simulation) NetworkSummary() NetworkView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := NetworkView{
		Agents:       s.Network.AgentCount(),
		Edges:        s.Network.EdgeCount(),
		Messages:     s.Network.Len(),
		MessageKinds: make(map[string]int),
	}
	total := 0
	for _, r := range s.Residents {
		d := s.Network.Degree(r.ID)
		total += d
		view.MaxDegree = max(view.MaxDegree, d)
	}
	if len(s.Residents) > 0 {
		view.AvgDegree = float64(total) / float64(len(s.Residents))
	}
	for _, m := range s.Network.Messages() {
		view.MessageKinds[m.MessageType.Kind()]++
	}
	return view
}

// EventsForPeriod returns the retained events of one period.
func (s *Simulation) EventsForPeriod(period int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.Events {
		if e.Period == period {
			out = append(out, e)
		}
	}
	return out
}
