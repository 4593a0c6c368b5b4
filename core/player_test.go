package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOutput records everything the player writes
type mockOutput struct {
	levels  []uint8
	toggles int
}

func (m *mockOutput) SetPWMLevel(level uint8) { m.levels = append(m.levels, level) }
func (m *mockOutput) TogglePin()              { m.toggles++ }

// mockBridge also has a complementary channel
type mockBridge struct {
	mockOutput
	complement []uint8
}

func (m *mockBridge) SetComplementLevel(level uint8) { m.complement = append(m.complement, level) }

type mockTicks struct {
	intervals []uint32
	err       error
}

func (m *mockTicks) ConfigureTicks(interval uint32) error {
	if m.err != nil {
		return m.err
	}
	m.intervals = append(m.intervals, interval)
	return nil
}

// testHardware ticks the table at ClockRate so frequencies map to small tables
func testHardware(clock uint32, capacity uint16) Hardware {
	return Hardware{ClockRate: clock, TablePrescaler: 1, MinRepeat: 2, TableCapacity: capacity}
}

func newTestPlayer(t *testing.T, hw Hardware) (*Player, *mockOutput, *mockTicks) {
	t.Helper()
	out := &mockOutput{}
	ticks := &mockTicks{}
	p, err := NewPlayer(hw, out, ticks)
	require.NoError(t, err)
	return p, out, ticks
}

func tickN(p *Player, n int) {
	for i := 0; i < n; i++ {
		p.Tick()
	}
}

func TestPlayerIdle(t *testing.T) {
	p, out, _ := newTestPlayer(t, DefaultHardware())

	tickN(p, 10)
	assert.Empty(t, out.levels)
	assert.Zero(t, out.toggles)

	_, active := p.Config()
	assert.False(t, active)
}

func TestPlayerTable(t *testing.T) {
	// 4 ticks per period: sine table of 4, scale 1
	p, out, ticks := newTestPlayer(t, testHardware(1000, 500))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))

	assert.Equal(t, []uint32{1}, ticks.intervals)

	tickN(p, 8)
	assert.Equal(t, []uint8{127, 255, 127, 0, 127, 255, 127, 0}, out.levels)
}

func TestPlayerTableScale(t *testing.T) {
	// 16 ticks per period with a 4 entry table: each sample held 4 ticks
	p, out, _ := newTestPlayer(t, testHardware(16, 4))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 1}))

	prog, ok := p.Program().(TableProgram)
	require.True(t, ok)
	assert.Equal(t, TableParams{Length: 4, Scale: 4}, prog.Params)

	tickN(p, 16)
	assert.Equal(t, []uint8{127, 255, 127, 0}, out.levels)

	tickN(p, 1)
	assert.Equal(t, uint8(127), out.levels[4])
}

func TestPlayerSquare(t *testing.T) {
	// Half period of 12 ticks: repeat 2, interval 6
	p, out, ticks := newTestPlayer(t, testHardware(24, 500))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSquare, Frequency: 1}))

	prog, ok := p.Program().(SquareProgram)
	require.True(t, ok)
	assert.Equal(t, SquareTiming{RepeatCount: 2, Interval: 6}, prog.Timing)
	assert.Equal(t, []uint32{6}, ticks.intervals)

	tickN(p, 6)
	assert.Equal(t, 3, out.toggles)
	assert.Empty(t, out.levels)
}

func TestPlayerFullCapacity(t *testing.T) {
	p, out, _ := newTestPlayer(t, DefaultHardware())
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSaw, Frequency: 125}))

	prog := p.Program().(TableProgram)
	require.Equal(t, uint16(TableCapacity), prog.Params.Length)

	tickN(p, 2*TableCapacity+1)
	require.Len(t, out.levels, 2*TableCapacity+1)
	assert.Equal(t, out.levels[:TableCapacity], out.levels[TableCapacity:2*TableCapacity])
	assert.Equal(t, out.levels[0], out.levels[2*TableCapacity])
}

func TestPlayerSingleEntry(t *testing.T) {
	p, out, _ := newTestPlayer(t, DefaultHardware())
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 62500}))

	tickN(p, 3)
	assert.Equal(t, []uint8{127, 127, 127}, out.levels)
}

func TestPlayerRejectKeepsProgram(t *testing.T) {
	p, out, ticks := newTestPlayer(t, testHardware(1000, 500))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	tickN(p, 2)

	err := p.Apply(WaveConfig{Shape: ShapeSaw, Frequency: 1e6})
	assert.ErrorIs(t, err, ErrFrequencyOutOfRange)

	cfg, active := p.Config()
	assert.True(t, active)
	assert.Equal(t, ShapeSine, cfg.Shape)
	assert.Len(t, ticks.intervals, 1)

	// Playback continues where it was
	tickN(p, 2)
	assert.Equal(t, []uint8{127, 255, 127, 0}, out.levels)
}

func TestPlayerTickDriverError(t *testing.T) {
	p, _, ticks := newTestPlayer(t, testHardware(1000, 500))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	first := p.Program()

	ticks.err = errors.New("timer busy")
	assert.Error(t, p.Apply(WaveConfig{Shape: ShapeSquare, Frequency: 1}))
	assert.Equal(t, first, p.Program())
}

func TestPlayerReconfigureResets(t *testing.T) {
	p, out, _ := newTestPlayer(t, testHardware(1000, 500))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 125}))
	tickN(p, 5)

	// The new table is shorter than the old position
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	out.levels = nil
	tickN(p, 4)
	assert.Equal(t, []uint8{127, 255, 127, 0}, out.levels)
}

func TestPlayerSwapsArenas(t *testing.T) {
	p, _, _ := newTestPlayer(t, testHardware(1000, 500))

	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	first := p.Program().(TableProgram).Table

	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSaw, Frequency: 100}))
	second := p.Program().(TableProgram).Table
	assert.NotSame(t, first, second)

	// A square program leaves the spare arena alone
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSquare, Frequency: 1}))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	assert.Same(t, first, p.Program().(TableProgram).Table)
}

func TestPlayerBidirectional(t *testing.T) {
	out := &mockBridge{}
	p, err := NewPlayer(testHardware(1000, 500), out, &mockTicks{})
	require.NoError(t, err)

	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250, Bidirectional: true}))
	tickN(p, 4)
	assert.Equal(t, []uint8{127, 255, 127, 0}, out.levels)
	assert.Equal(t, []uint8{128, 0, 128, 255}, out.complement)

	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	tickN(p, 4)
	assert.Len(t, out.complement, 4)
}

func TestPlayerEvents(t *testing.T) {
	ClearEventRing()
	p, _, _ := newTestPlayer(t, DefaultHardware())

	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSquare, Frequency: 400}))
	require.Error(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: -1}))

	events := Events()
	require.Len(t, events, 2)
	assert.Equal(t, WaveEvent{EventType: EvtApply, Shape: uint8(ShapeSquare), Value1: 80, Value2: 250}, events[0])
	assert.Equal(t, uint8(EvtReject), events[1].EventType)
}

func TestPlayerConcurrentApply(t *testing.T) {
	p, _, _ := newTestPlayer(t, testHardware(1000, 500))
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 10}))

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				p.Tick()
			}
		}
	}()

	freqs := []float64{10, 3, 250, 7, 100}
	for i := 0; i < 200; i++ {
		shape := ShapeSine
		if i%2 == 1 {
			shape = ShapeSaw
		}
		require.NoError(t, p.Apply(WaveConfig{Shape: shape, Frequency: freqs[i%len(freqs)]}))
	}
	close(done)
	wg.Wait()
}

func TestDriverRegistry(t *testing.T) {
	defer SetOutputDriver(nil)
	defer SetTickDriver(nil)

	SetOutputDriver(nil)
	SetTickDriver(nil)
	assert.Panics(t, func() { MustOutput() })
	assert.Panics(t, func() { MustTick() })

	out := &mockOutput{}
	ticks := &mockTicks{}
	SetOutputDriver(out)
	SetTickDriver(ticks)

	p, err := NewPlayer(testHardware(1000, 500), MustOutput(), MustTick())
	require.NoError(t, err)
	require.NoError(t, p.Apply(WaveConfig{Shape: ShapeSine, Frequency: 250}))
	p.Tick()
	assert.Equal(t, []uint8{127}, out.levels)
}
