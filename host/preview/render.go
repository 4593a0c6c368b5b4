// Package preview plays a wave on the host sound card by running the
// firmware player against a software tick source.
package preview

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"

	"coildriver/core"
)

// MaxTicksPerSample bounds the work done for one audio sample
const MaxTicksPerSample = 4096

// Renderer is both the output and the tick source of a core.Player.
// Read produces mono float32 little-endian samples.
type Renderer struct {
	player     *core.Player
	clockRate  float64
	sampleRate float64
	Volume     float32

	tickRate atomic.Uint64 // float64 bits, written by ConfigureTicks
	acc      float64
	level    float32
	pinHigh  bool
}

// New creates a Renderer producing sampleRate samples per second for hw.
func New(hw core.Hardware, sampleRate int) (*Renderer, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	r := &Renderer{
		clockRate:  float64(hw.ClockRate),
		sampleRate: float64(sampleRate),
		Volume:     0.5,
	}
	p, err := core.NewPlayer(hw, r, r)
	if err != nil {
		return nil, err
	}
	r.player = p
	return r, nil
}

// Apply switches the wave being rendered.
func (r *Renderer) Apply(cfg core.WaveConfig) error {
	return r.player.Apply(cfg)
}

// Player returns the underlying player.
func (r *Renderer) Player() *core.Player {
	return r.player
}

// SetPWMLevel implements core.OutputDriver
func (r *Renderer) SetPWMLevel(level uint8) {
	r.level = float32(int(level)-core.MidScale) / core.HalfRange
}

// TogglePin implements core.OutputDriver
func (r *Renderer) TogglePin() {
	r.pinHigh = !r.pinHigh
	if r.pinHigh {
		r.level = 1
	} else {
		r.level = -1
	}
}

// ConfigureTicks implements core.TickDriver
func (r *Renderer) ConfigureTicks(interval uint32) error {
	if interval == 0 {
		return errors.New("tick interval is zero")
	}
	r.tickRate.Store(math.Float64bits(r.clockRate / float64(interval)))
	return nil
}

// Read renders len(p)/4 samples.
func (r *Renderer) Read(p []byte) (int, error) {
	step := math.Float64frombits(r.tickRate.Load()) / r.sampleRate

	n := len(p) / 4
	for i := 0; i < n; i++ {
		r.acc += step
		ticks := 0
		for r.acc >= 1 && ticks < MaxTicksPerSample {
			r.player.Tick()
			r.acc--
			ticks++
		}
		if ticks == MaxTicksPerSample {
			r.acc = 0
		}

		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.level*r.Volume))
	}
	return n * 4, nil
}
