// Simulation ties agents, the jurisdiction map and the communication network
// together and runs one compliance period at a time.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/entropy"
	"github.com/talgya/compliance-sim/internal/network"
	"github.com/talgya/compliance-sim/internal/population"
	"github.com/talgya/compliance-sim/internal/world"
)

const (
	maxEvents  = 1000
	maxReports = 1000
)

// StatuteTerms are the economics of one statute before regional scaling.
type StatuteTerms struct {
	behavior.Statute
	EnforcementWeight float64 // Multiplies regional enforcement
	PenaltySeverity   float64 // Multiplied by regional penalty scale
	EvasionBenefit    float64
	ComplianceCost    float64
	LegalResult       any // Carried into every context untouched
}

// SimConfig controls a Simulation.
type SimConfig struct {
	Seed             int64
	PeriodLength     time.Duration
	MessageRetention int  // Periods a message stays in the network
	Communicate      bool // Apply messages to profiles at the start of each period
}

// DefaultSimConfig returns the configuration used by the CLI.
func DefaultSimConfig(seed int64) SimConfig {
	return SimConfig{
		Seed:             seed,
		PeriodLength:     PeriodMonth,
		MessageRetention: 2,
		Communicate:      true,
	}
}

// Event is a notable occurrence in the simulation.
type Event struct {
	Period      int              `json:"period" db:"period"`
	Date        time.Time        `json:"date" db:"date"`
	AgentID     behavior.AgentID `json:"agent_id,omitempty" db:"agent_id"`
	Description string           `json:"description" db:"description"`
	Category    string           `json:"category" db:"category"` // "enforcement", "guidance", "period"
}

// InteractionRecord is the full trace of one agent's decision on one statute.
type InteractionRecord struct {
	Period      int                         `json:"period"`
	Date        time.Time                   `json:"date"`
	AgentID     behavior.AgentID            `json:"agent_id"`
	StatuteID   string                      `json:"statute_id"`
	Region      world.HexCoord              `json:"region"`
	Decision    behavior.ComplianceDecision `json:"decision"`
	Probability float64                     `json:"probability"`
	Detected    bool                        `json:"detected"`
	Outcome     float64                     `json:"outcome"`
}

// PeriodReport summarizes one period.
type PeriodReport struct {
	Period         int                         `json:"period"`
	Date           time.Time                   `json:"date"`
	Stats          []*behavior.ComplianceStats `json:"stats"` // One per statute, in statute order
	Interactions   []InteractionRecord         `json:"-"`
	MessagesSent   int                         `json:"messages_sent"`
	MessagesPruned int                         `json:"messages_pruned"`
	Detections     int                         `json:"detections"`
	PenaltiesPaid  float64                     `json:"penalties_paid"`
}

// Simulation holds the complete state and wires the systems together.
// Step takes the write lock; the read accessors take the read lock.
type Simulation struct {
	mu sync.RWMutex

	Map       *world.Map
	Residents []*population.Resident
	Index     map[behavior.AgentID]*population.Resident
	Network   *network.CommunicationNetwork
	Statutes  []StatuteTerms
	Events    []Event
	Reports   []PeriodReport
	Period    int
	LastDate  time.Time

	cfg SimConfig
	rng entropy.Source // Enforcement draws

	// Observed compliance share per region and statute in the last period.
	observed map[world.HexCoord]map[string]float64
	// Highest-degree resident per region; broadcasts the local norm.
	speakers map[world.HexCoord]behavior.AgentID
}

// NewSimulation creates a Simulation from generated components.
func NewSimulation(cfg SimConfig, m *world.Map, residents []*population.Resident, net *network.CommunicationNetwork, statutes []StatuteTerms) *Simulation {
	index := make(map[behavior.AgentID]*population.Resident, len(residents))
	for _, r := range residents {
		index[r.ID] = r
	}
	if net == nil {
		net = network.New()
	}

	sim := &Simulation{
		Map:       m,
		Residents: residents,
		Index:     index,
		Network:   net,
		Statutes:  statutes,
		cfg:       cfg,
		rng:       entropy.NewSeeded(cfg.Seed + 500),
		observed:  make(map[world.HexCoord]map[string]float64),
	}
	sim.electSpeakers()
	return sim
}

// Step runs one period dated date:
//  1. apply messages sent since the previous period,
//  2. build a context per resident and statute from the resident's region,
//  3. decide,
//  4. estimate the compliance probability and record both into the statute's stats,
//  5. resolve the consequence, learn from it, and tell the neighbors.
//
// Old messages are pruned at the end.
func (s *Simulation) Step(date time.Time) PeriodReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Period++
	report := PeriodReport{Period: s.Period, Date: date}
	sentBefore := s.Network.Len()

	if s.cfg.Communicate {
		for _, r := range s.Residents {
			s.Network.ProcessMessagesForAgent(r.ID, r.Model.MutableProfile(), s.LastDate)
		}
	}

	stats := make(map[string]*behavior.ComplianceStats, len(s.Statutes))
	tally := make(map[world.HexCoord]map[string]*behavior.ComplianceStats)
	for _, st := range s.Statutes {
		cs := behavior.NewComplianceStats(st.ID)
		stats[st.ID] = cs
		report.Stats = append(report.Stats, cs)
	}

	for _, r := range s.Residents {
		for _, st := range s.Statutes {
			ctx := s.contextFor(r, st)
			decision := r.DecideCompliance(st.Statute, ctx, date)
			prob := r.Model.ComplianceProbability(ctx)
			stats[st.ID].Record(decision, prob)
			regionStats(tally, r.Home, st.ID).Record(decision, prob)

			res := s.resolve(ctx, decision)
			if res.learned {
				r.LearnFromOutcome(st.ID, res.complied, res.outcome)
			}
			if res.detected {
				report.Detections++
				report.PenaltiesPaid += -res.outcome
				s.addEvent(Event{
					Period:      s.Period,
					Date:        date,
					AgentID:     r.ID,
					Description: detectionDescription(r, st, decision, -res.outcome),
					Category:    "enforcement",
				})
			}
			if decision == behavior.DecisionSeekGuidance {
				s.addEvent(Event{
					Period:      s.Period,
					Date:        date,
					AgentID:     r.ID,
					Description: fmt.Sprintf("%s sought guidance on %s", r.Entity.Name, st.ID),
					Category:    "guidance",
				})
			}
			s.emit(r, st, decision, res, date)

			report.Interactions = append(report.Interactions, InteractionRecord{
				Period:      s.Period,
				Date:        date,
				AgentID:     r.ID,
				StatuteID:   st.ID,
				Region:      r.Home,
				Decision:    decision,
				Probability: prob,
				Detected:    res.detected,
				Outcome:     res.outcome,
			})
		}
	}

	s.observe(tally)
	s.broadcastNorms(date)
	report.MessagesSent = s.Network.Len() - sentBefore

	if s.cfg.MessageRetention > 0 && s.cfg.PeriodLength > 0 {
		cutoff := date.Add(-time.Duration(s.cfg.MessageRetention) * s.cfg.PeriodLength)
		report.MessagesPruned = s.Network.ClearMessagesBefore(cutoff)
	}
	s.LastDate = date

	for _, cs := range report.Stats {
		slog.Info("period report",
			"period", s.Period,
			"date", date.Format(time.DateOnly),
			"statute", cs.StatuteID,
			"compliance", fmt.Sprintf("%.3f", cs.ComplianceRate()),
			"evasion", fmt.Sprintf("%.3f", cs.EvasionRate()),
			"unaware", cs.Unaware,
			"guidance", cs.SoughtGuidance,
			"avg_p", fmt.Sprintf("%.3f", cs.AvgComplianceProb),
		)
	}
	slog.Debug("period messages", "sent", report.MessagesSent, "pruned", report.MessagesPruned, "live", s.Network.Len())

	s.addEvent(Event{
		Period:      s.Period,
		Date:        date,
		Description: fmt.Sprintf("%s: %d detections, %.0f in penalties", PeriodLabel(s.Period, date), report.Detections, report.PenaltiesPaid),
		Category:    "period",
	})

	s.Reports = append(s.Reports, report)
	if len(s.Reports) > maxReports {
		s.Reports = s.Reports[len(s.Reports)-maxReports:]
	}
	return report
}

// contextFor builds the situational facts for r deciding on st.
func (s *Simulation) contextFor(r *population.Resident, st StatuteTerms) behavior.ComplianceContext {
	enforcement, norm, scale := 0.0, 0.5, 1.0
	if region := s.Map.Get(r.Home); region != nil {
		enforcement = region.Enforcement
		norm = region.Norm
		scale = region.PenaltyScale
	}
	if seen, ok := s.observed[r.Home][st.ID]; ok {
		norm = seen
	}
	return behavior.ComplianceContext{
		StatuteID:              st.ID,
		LegalResult:            st.LegalResult,
		EnforcementProbability: clamp01(enforcement * st.EnforcementWeight),
		PenaltySeverity:        st.PenaltySeverity * scale,
		EvasionBenefit:         st.EvasionBenefit,
		ComplianceCost:         st.ComplianceCost,
		SocialNorm:             norm,
	}
}

func regionStats(tally map[world.HexCoord]map[string]*behavior.ComplianceStats, coord world.HexCoord, statuteID string) *behavior.ComplianceStats {
	row, ok := tally[coord]
	if !ok {
		row = make(map[string]*behavior.ComplianceStats)
		tally[coord] = row
	}
	cs, ok := row[statuteID]
	if !ok {
		cs = behavior.NewComplianceStats(statuteID)
		row[statuteID] = cs
	}
	return cs
}

// observe replaces the per-region norms with this period's compliance shares.
func (s *Simulation) observe(tally map[world.HexCoord]map[string]*behavior.ComplianceStats) {
	for coord, row := range tally {
		rates := make(map[string]float64, len(row))
		for id, cs := range row {
			rates[id] = cs.ComplianceRate()
		}
		s.observed[coord] = rates
	}
}

// electSpeakers picks the best-connected resident of each region.
func (s *Simulation) electSpeakers() {
	s.speakers = make(map[world.HexCoord]behavior.AgentID)
	best := make(map[world.HexCoord]int)
	for _, r := range s.Residents {
		d := s.Network.Degree(r.ID)
		if cur, ok := best[r.Home]; !ok || d > cur {
			best[r.Home] = d
			s.speakers[r.Home] = r.ID
		}
	}
}

func (s *Simulation) addEvent(e Event) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

func detectionDescription(r *population.Resident, st StatuteTerms, d behavior.ComplianceDecision, penalty float64) string {
	if d == behavior.DecisionUnaware {
		return fmt.Sprintf("%s was penalized %.0f under %s without knowing it applied", r.Entity.Name, penalty, st.ID)
	}
	return fmt.Sprintf("%s was caught evading %s and penalized %.0f", r.Entity.Name, st.ID, penalty)
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
