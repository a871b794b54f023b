package world

import (
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b HexCoord
		want int
	}{
		{HexCoord{0, 0}, HexCoord{0, 0}, 0},
		{HexCoord{0, 0}, HexCoord{1, 0}, 1},
		{HexCoord{0, 0}, HexCoord{2, -1}, 2},
		{HexCoord{-2, 1}, HexCoord{2, -1}, 4},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNeighborsAreAdjacent(t *testing.T) {
	c := HexCoord{Q: 3, R: -1}
	for _, n := range c.Neighbors() {
		if d := Distance(c, n); d != 1 {
			t.Errorf("neighbor %v at distance %d", n, d)
		}
	}
}

func TestGenerate_RegionCountAndBounds(t *testing.T) {
	cfg := SmallTestConfig()
	m := Generate(cfg)

	// 3R(R+1)+1 hexes in a radius-R hexagon.
	want := 3*cfg.Radius*(cfg.Radius+1) + 1
	if m.RegionCount() != want {
		t.Fatalf("RegionCount = %d, want %d", m.RegionCount(), want)
	}

	for _, c := range m.Coords() {
		r := m.Get(c)
		if r.Enforcement < cfg.MinEnforcement || r.Enforcement > cfg.MaxEnforcement {
			t.Errorf("%v enforcement %f outside [%f, %f]", c, r.Enforcement, cfg.MinEnforcement, cfg.MaxEnforcement)
		}
		if r.Norm < 0 || r.Norm > 1 {
			t.Errorf("%v norm %f outside [0, 1]", c, r.Norm)
		}
		if r.PenaltyScale < 0.5 || r.PenaltyScale > 1.5 {
			t.Errorf("%v penalty scale %f outside [0.5, 1.5]", c, r.PenaltyScale)
		}
		if r.Density < 0 || r.Density > 1 {
			t.Errorf("%v density %f outside [0, 1]", c, r.Density)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(SmallTestConfig())
	b := Generate(SmallTestConfig())
	for _, c := range a.Coords() {
		if *a.Get(c) != *b.Get(c) {
			t.Fatalf("region %v differs between identical seeds", c)
		}
	}
}

func TestCoords_StableOrder(t *testing.T) {
	m := Generate(SmallTestConfig())
	first := m.Coords()
	for i := 0; i < 5; i++ {
		again := m.Coords()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("Coords order changed at %d", j)
			}
		}
	}
}

func TestRegimeCounts_Total(t *testing.T) {
	m := Generate(SmallTestConfig())
	total := 0
	for _, n := range RegimeCounts(m) {
		total += n
	}
	if total != m.RegionCount() {
		t.Errorf("regime total %d != regions %d", total, m.RegionCount())
	}
}
