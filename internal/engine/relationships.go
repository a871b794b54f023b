// Relationship wiring: builds the communication network from where residents live.
package engine

import (
	"github.com/talgya/compliance-sim/internal/entropy"
	"github.com/talgya/compliance-sim/internal/network"
	"github.com/talgya/compliance-sim/internal/population"
	"github.com/talgya/compliance-sim/internal/world"
)

// NetworkConfig controls BuildNetwork.
type NetworkConfig struct {
	Seed        int64
	LocalLinks  int     // Links each resident attempts within its own region
	RemoteLinks int     // Links each resident attempts into adjacent regions
	LocalTrust  float64 // Mean trust between neighbors in the same region
	RemoteTrust float64 // Mean trust across a region border
	TrustSpread float64 // Uniform noise half-width applied to each directed trust
}

// DefaultNetworkConfig returns the configuration used by the CLI.
func DefaultNetworkConfig(seed int64) NetworkConfig {
	return NetworkConfig{
		Seed:        seed,
		LocalLinks:  4,
		RemoteLinks: 1,
		LocalTrust:  0.65,
		RemoteTrust: 0.4,
		TrustSpread: 0.15,
	}
}

// institutionTrustBonus is extra trust individuals place in institutions.
const institutionTrustBonus = 0.1

// BuildNetwork connects residents to random co-located peers and to peers in
// adjacent regions, seeding directed trust from distance. The same inputs and
// seed always produce the same network.
func BuildNetwork(residents []*population.Resident, m *world.Map, cfg NetworkConfig) *network.CommunicationNetwork {
	rng := entropy.NewSeeded(cfg.Seed + 400)
	net := network.New()

	byRegion := make(map[world.HexCoord][]*population.Resident)
	for _, r := range residents {
		byRegion[r.Home] = append(byRegion[r.Home], r)
	}

	link := func(a, b *population.Resident, mean float64) {
		if a.ID == b.ID || net.Connected(a.ID, b.ID) {
			return
		}
		net.Connect(a.ID, b.ID)
		net.SetTrust(a.ID, b.ID, trustFor(rng, a, b, mean, cfg.TrustSpread))
		net.SetTrust(b.ID, a.ID, trustFor(rng, b, a, mean, cfg.TrustSpread))
	}

	for _, r := range residents {
		local := byRegion[r.Home]
		if len(local) > 1 {
			for i := 0; i < cfg.LocalLinks; i++ {
				link(r, local[pick(rng, len(local))], cfg.LocalTrust)
			}
		}

		var remote []*population.Resident
		for _, nc := range r.Home.Neighbors() {
			if m != nil && !m.InBounds(nc) {
				continue
			}
			remote = append(remote, byRegion[nc]...)
		}
		if len(remote) == 0 {
			continue
		}
		for i := 0; i < cfg.RemoteLinks; i++ {
			link(r, remote[pick(rng, len(remote))], cfg.RemoteTrust)
		}
	}

	return net
}

// trustFor returns how much from trusts to.
func trustFor(rng entropy.Source, from, to *population.Resident, mean, spread float64) float64 {
	t := mean + entropy.Uniform(rng, -spread, spread)
	if to.Entity.Kind == "institution" && from.Entity.Kind != "institution" {
		t += institutionTrustBonus
	}
	return clamp01(t)
}

func pick(rng entropy.Source, n int) int {
	i := int(rng.Float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
