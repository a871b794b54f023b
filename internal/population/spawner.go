// Agent spawning: creates the initial population of a jurisdiction with a
// strategy mix shaped by each region's regime.
package population

import (
	"fmt"

	"github.com/talgya/compliance-sim/internal/behavior"
	"github.com/talgya/compliance-sim/internal/entropy"
	"github.com/talgya/compliance-sim/internal/world"
)

// SpawnConfig controls population generation.
type SpawnConfig struct {
	Seed            int64
	HistoryLimit    int                     // Per-statute outcomes kept by each model (0 = default)
	Learning        behavior.LearningPolicy // Outcome feedback policy for every model
	EstimateWorkers int                     // Monte Carlo parallelism per model (0 = GOMAXPROCS)
	Jitter          float64                 // Std-dev of per-agent profile noise
	InstitutionRate float64                 // Share of agents that simulate firms rather than people
}

// DefaultSpawnConfig returns the configuration used by the CLI.
func DefaultSpawnConfig(seed int64) SpawnConfig {
	return SpawnConfig{
		Seed:            seed,
		Jitter:          0.05,
		InstitutionRate: 0.2,
	}
}

// Resident is an agent together with the region it lives in.
type Resident struct {
	*behavior.BehavioralAgent
	Home world.HexCoord `json:"home"`
}

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *entropy.Seeded
	cfg    SpawnConfig
	nextID behavior.AgentID
}

// NewSpawner creates an agent spawner from cfg.
func NewSpawner(cfg SpawnConfig) *Spawner {
	return &Spawner{
		rng:    entropy.NewSeeded(cfg.Seed + 300),
		cfg:    cfg,
		nextID: 1,
	}
}

// SetNextID sets the next agent ID to be issued.
func (s *Spawner) SetNextID(id behavior.AgentID) {
	s.nextID = id
}

// SpawnPopulation creates count residents of region.
func (s *Spawner) SpawnPopulation(count int, region *world.Region) []*Resident {
	residents := make([]*Resident, 0, count)
	for i := 0; i < count; i++ {
		residents = append(residents, s.spawnOne(region))
	}
	return residents
}

// Populate distributes total agents over m in proportion to region density.
// Every region receives at least one agent while total allows.
func (s *Spawner) Populate(m *world.Map, total int) []*Resident {
	coords := m.Coords()
	if len(coords) == 0 || total <= 0 {
		return nil
	}

	weight := 0.0
	for _, c := range coords {
		weight += m.Get(c).Density + 0.1
	}

	counts := make([]int, len(coords))
	assigned := 0
	for i, c := range coords {
		n := int(float64(total) * (m.Get(c).Density + 0.1) / weight)
		if n < 1 {
			n = 1
		}
		if assigned+n > total {
			n = total - assigned
		}
		counts[i] = n
		assigned += n
	}
	// Rounding remainder goes to the densest region.
	if assigned < total {
		best := 0
		for i, c := range coords {
			if m.Get(c).Density > m.Get(coords[best]).Density {
				best = i
			}
		}
		counts[best] += total - assigned
	}

	residents := make([]*Resident, 0, total)
	for i, c := range coords {
		residents = append(residents, s.SpawnPopulation(counts[i], m.Get(c))...)
	}
	return residents
}

func (s *Spawner) spawnOne(region *world.Region) *Resident {
	id := s.nextID
	s.nextID++

	strategy := s.strategyForRegime(region.Regime)
	profile := behavior.ProfileFor(strategy)

	// Residents absorb some of the local norm before any messages flow.
	profile.BaseCompliance += (region.Norm - 0.5) * 0.2
	s.jitter(&profile)
	profile.Clamp()

	opts := []behavior.Option{
		behavior.WithSeed(entropy.DeriveSeed(s.rng)),
		behavior.WithLearning(s.cfg.Learning),
	}
	if s.cfg.HistoryLimit > 0 {
		opts = append(opts, behavior.WithHistoryLimit(s.cfg.HistoryLimit))
	}
	if s.cfg.EstimateWorkers > 0 {
		opts = append(opts, behavior.WithEstimateWorkers(s.cfg.EstimateWorkers))
	}

	model := behavior.NewComplianceModel(profile, opts...)
	agent := behavior.NewBehavioralAgent(id, s.generateEntity(id), model)
	return &Resident{BehavioralAgent: agent, Home: region.Coord}
}

// strategyForRegime picks a decision strategy. Strict regions breed rule
// followers, lax ones opportunists.
func (s *Spawner) strategyForRegime(regime world.Regime) behavior.DecisionStrategy {
	r := s.rng.Float()
	switch regime {
	case world.RegimeStrict:
		switch {
		case r < 0.20:
			return behavior.StrategyRational
		case r < 0.50:
			return behavior.StrategyBoundedRational
		case r < 0.85:
			return behavior.StrategyRuleFollowing
		case r < 0.95:
			return behavior.StrategyOpportunistic
		default:
			return behavior.StrategyRandom
		}
	case world.RegimeLax:
		switch {
		case r < 0.15:
			return behavior.StrategyRational
		case r < 0.50:
			return behavior.StrategyBoundedRational
		case r < 0.60:
			return behavior.StrategyRuleFollowing
		case r < 0.90:
			return behavior.StrategyOpportunistic
		default:
			return behavior.StrategyRandom
		}
	default:
		switch {
		case r < 0.20:
			return behavior.StrategyRational
		case r < 0.60:
			return behavior.StrategyBoundedRational
		case r < 0.80:
			return behavior.StrategyRuleFollowing
		case r < 0.95:
			return behavior.StrategyOpportunistic
		default:
			return behavior.StrategyRandom
		}
	}
}

func (s *Spawner) jitter(p *behavior.BehavioralProfile) {
	if s.cfg.Jitter <= 0 {
		return
	}
	p.BaseCompliance += s.rng.NormFloat() * s.cfg.Jitter
	p.RiskAversion += s.rng.NormFloat() * s.cfg.Jitter
	p.KnowledgeLevel += s.rng.NormFloat() * s.cfg.Jitter
	p.SocialInfluence += s.rng.NormFloat() * s.cfg.Jitter
}

func (s *Spawner) generateEntity(id behavior.AgentID) behavior.EntityRef {
	if s.rng.Float() < s.cfg.InstitutionRate {
		name := lastNames[s.pick(len(lastNames))] + " " + firmSuffixes[s.pick(len(firmSuffixes))]
		return behavior.EntityRef{ID: fmt.Sprintf("org-%d", id), Kind: "institution", Name: name}
	}
	name := firstNames[s.pick(len(firstNames))] + " " + lastNames[s.pick(len(lastNames))]
	return behavior.EntityRef{ID: fmt.Sprintf("person-%d", id), Kind: "individual", Name: name}
}

func (s *Spawner) pick(n int) int {
	i := int(s.rng.Float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Name pools for procedural generation.
var firstNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Jasper", "Leif", "Magnus", "Oswin", "Rowan", "Theron",
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Iris", "Juno", "Kira", "Lena", "Mira", "Petra", "Thea", "Vera",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Dunmore", "Greenvale",
	"Hearthstone", "Millward", "Copperfield", "Silverdale", "Deepwell",
	"Brightwater", "Redforge", "Windholm", "Goldhaven", "Riverstone",
	"Holloway", "Dawnridge", "Farrow", "Thatcher", "Caldwell", "Mercer",
}

var firmSuffixes = []string{"& Sons", "Holdings", "Trading Co.", "Works", "Partners", "Mills"}
