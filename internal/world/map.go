package world

import (
	"fmt"
	"sort"
)

// Map holds every region of the jurisdiction.
type Map struct {
	Regions map[HexCoord]*Region `json:"-"`
	Radius  int                  `json:"radius"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	return &Map{
		Regions: make(map[HexCoord]*Region),
		Radius:  radius,
	}
}

// Get returns the region at the given coordinate, or nil if absent.
func (m *Map) Get(coord HexCoord) *Region {
	return m.Regions[coord]
}

// Set places a region at its coordinate.
func (m *Map) Set(r *Region) {
	m.Regions[r.Coord] = r
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return Distance(coord, HexCoord{}) <= m.Radius
}

// Coords returns every coordinate in a stable order (by r, then q), so that
// iteration over the map is reproducible.
func (m *Map) Coords() []HexCoord {
	coords := make([]HexCoord, 0, len(m.Regions))
	for c := range m.Regions {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].R != coords[j].R {
			return coords[i].R < coords[j].R
		}
		return coords[i].Q < coords[j].Q
	})
	return coords
}

// RegionCount returns the total number of regions in the map.
func (m *Map) RegionCount() int {
	return len(m.Regions)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, regions=%d)", m.Radius, m.RegionCount())
}
