// Package world provides the jurisdiction map: an axial hex grid whose regions
// carry the local enforcement and social-norm climate agents decide under.
package world

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Regime classifies a region by how hard the law bites there.
type Regime uint8

const (
	RegimeLax      Regime = iota // Weak enforcement, permissive norms
	RegimeModerate               // Typical jurisdiction
	RegimeStrict                 // Heavy enforcement, strong norms
)

// RegimeName returns a human-readable name for a regime.
func RegimeName(r Regime) string {
	switch r {
	case RegimeLax:
		return "Lax"
	case RegimeModerate:
		return "Moderate"
	case RegimeStrict:
		return "Strict"
	default:
		return "Unknown"
	}
}

// Region is one hex of the jurisdiction map.
type Region struct {
	Coord  HexCoord `json:"coord"`
	Regime Regime   `json:"regime"`

	// Enforcement is the base probability an evasion here is detected, 0.0–1.0.
	Enforcement float64 `json:"enforcement"`
	// Norm is the prior share of residents who comply, 0.0–1.0.
	Norm float64 `json:"norm"`
	// PenaltyScale multiplies statutory penalties (sentencing climate), 0.5–1.5.
	PenaltyScale float64 `json:"penalty_scale"`
	// Density weights how many agents settle here, 0.0–1.0.
	Density float64 `json:"density"`
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
