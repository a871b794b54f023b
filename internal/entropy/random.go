// Package entropy provides explicitly owned random sources for stochastic decisions.
// Nothing here is process-global: every model, trial or simulation holds its own Source.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand/v2"
	"sync"
)

// Source yields uniform float64 values in [0, 1).
type Source interface {
	Float() float64
}

// Seeded is a PCG generator owned by a single simulation or trial.
type Seeded struct {
	rng *mrand.Rand
}

// NewSeeded creates a generator whose stream is fully determined by seed.
func NewSeeded(seed int64) *Seeded {
	s := uint64(seed)
	return &Seeded{rng: mrand.New(mrand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// Float returns the next value in [0, 1).
func (s *Seeded) Float() float64 {
	return s.rng.Float64()
}

// NormFloat returns a standard normal deviate from the same stream.
func (s *Seeded) NormFloat() float64 {
	return s.rng.NormFloat64()
}

// LCG reproduces the legacy linear-congruential stream: the state advances by
// one multiply-add on every draw and the top 53 bits become the float.
// Not safe for concurrent use; wrap it in Locked to share it.
type LCG struct {
	state uint64
}

const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

// NewLCG creates a linear-congruential source starting at seed.
func NewLCG(seed uint64) *LCG {
	return &LCG{state: seed}
}

// Float advances the state and returns a value in [0, 1).
func (l *LCG) Float() float64 {
	l.state = l.state*lcgMultiplier + lcgIncrement
	return float64(l.state>>11) / float64(1<<53)
}

// State returns the current generator state (for replay).
func (l *LCG) State() uint64 {
	return l.state
}

// Locked serializes access to a shared Source. Draw order across goroutines is
// the order in which they acquire the lock.
type Locked struct {
	mu  sync.Mutex
	src Source
}

// NewLocked wraps src for concurrent use.
func NewLocked(src Source) *Locked {
	return &Locked{src: src}
}

// Float returns the next value of the wrapped source.
func (l *Locked) Float() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float()
}

// Crypto draws from crypto/rand. Used when the caller supplies no seed;
// output is not reproducible.
type Crypto struct{}

// Float returns a value in [0, 1).
func (Crypto) Float() float64 {
	return cryptoRandFloat()
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// DeriveSeed consumes exactly one draw from src and turns it into a seed.
func DeriveSeed(src Source) int64 {
	return int64(src.Float() * float64(math.MaxInt64))
}

// TrialSeed spreads a base seed into independent per-trial seeds (splitmix64 finalizer).
func TrialSeed(base int64, trial int) int64 {
	z := uint64(base) + uint64(trial+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// Uniform maps a draw from src onto [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float()*(hi-lo)
}
