// Jurisdiction generation using layered simplex noise.
// Independent fields for enforcement, norm, sentencing climate and density,
// so neighboring regions resemble each other.
package world

import (
	"math"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds jurisdiction generation parameters.
type GenConfig struct {
	Radius int   // Hex grid radius
	Seed   int64 // Noise seed (0 = random)

	// Bounds for the enforcement field. Noise is rescaled into [Min, Max].
	MinEnforcement float64
	MaxEnforcement float64

	// Regions whose enforcement+norm average crosses these are Strict / Lax.
	StrictThreshold float64
	LaxThreshold    float64
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:          4,
		MinEnforcement:  0.05,
		MaxEnforcement:  0.6,
		StrictThreshold: 0.55,
		LaxThreshold:    0.35,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Radius = 2
	cfg.Seed = 42
	return cfg
}

// Generate creates a complete jurisdiction map.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int64()
	}
	lo, hi := cfg.MinEnforcement, cfg.MaxEnforcement
	if hi < lo {
		lo, hi = hi, lo
	}

	enfNoise := opensimplex.NewNormalized(seed)
	normNoise := opensimplex.NewNormalized(seed + 1)
	penaltyNoise := opensimplex.NewNormalized(seed + 2)
	densityNoise := opensimplex.NewNormalized(seed + 3)

	m := NewMap(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}

			// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			enf := octaveNoise(enfNoise, x, y, 3, 0.15, 0.5)
			norm := octaveNoise(normNoise, x, y, 3, 0.12, 0.5)
			pen := octaveNoise(penaltyNoise, x, y, 2, 0.1, 0.5)
			dens := octaveNoise(densityNoise, x, y, 2, 0.2, 0.5)

			// Enforcement concentrates toward the center (the capital).
			dist := 0.0
			if cfg.Radius > 0 {
				dist = float64(Distance(coord, HexCoord{})) / float64(cfg.Radius)
			}
			enf = enf*0.8 + (1-dist)*0.2

			region := &Region{
				Coord:        coord,
				Enforcement:  lo + clamp01(enf)*(hi-lo),
				Norm:         clamp01(norm),
				PenaltyScale: 0.5 + clamp01(pen),
				Density:      clamp01(dens*0.7 + (1-dist)*0.3),
			}
			region.Regime = deriveRegime(region, cfg)
			m.Set(region)
		}
	}

	return m
}

// deriveRegime classifies a region from its enforcement and norm, each rescaled to [0, 1].
func deriveRegime(r *Region, cfg GenConfig) Regime {
	enf := r.Enforcement
	if span := cfg.MaxEnforcement - cfg.MinEnforcement; span > 0 {
		enf = (r.Enforcement - cfg.MinEnforcement) / span
	}
	score := (enf + r.Norm) / 2
	switch {
	case score >= cfg.StrictThreshold:
		return RegimeStrict
	case score < cfg.LaxThreshold:
		return RegimeLax
	default:
		return RegimeModerate
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// RegimeCounts returns a summary of regime distribution.
func RegimeCounts(m *Map) map[Regime]int {
	counts := make(map[Regime]int)
	for _, r := range m.Regions {
		counts[r.Regime]++
	}
	return counts
}
