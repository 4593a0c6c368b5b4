package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSquare440(t *testing.T) {
	hw := DefaultHardware()

	st, err := ResolveSquare(440, hw)
	require.NoError(t, err)

	// round(8000000/440) = 18182 has no factor in [64,255]
	assert.Equal(t, uint8(202), st.RepeatCount)
	assert.Equal(t, uint16(90), st.Interval)

	// The approximation error is below one repeat step
	diff := int64(18182) - int64(st.HalfPeriod())
	assert.Less(t, abs64(diff), int64(st.RepeatCount))
}

func TestResolveSquareExact(t *testing.T) {
	hw := DefaultHardware()

	st, err := ResolveSquare(400, hw)
	require.NoError(t, err)
	assert.Equal(t, SquareTiming{RepeatCount: 80, Interval: 250}, st)
	assert.Equal(t, uint32(20000), st.HalfPeriod())

	st, err = ResolveSquare(8000000.0/36000.0, hw)
	require.NoError(t, err)
	assert.Equal(t, uint32(36000), st.HalfPeriod())
	assert.Equal(t, uint8(72), st.RepeatCount)
}

func TestResolveSquareOutOfRange(t *testing.T) {
	hw := DefaultHardware()

	for _, freq := range []float64{0, -5, math.NaN(), math.Inf(1), 0.1, 1e6, 1e9} {
		_, err := ResolveSquare(freq, hw)
		assert.ErrorIs(t, err, ErrFrequencyOutOfRange, "frequency %v", freq)
	}
}

func TestResolveTable(t *testing.T) {
	// 1.2MHz clock without prescaler: 1kHz is 1200 ticks
	hw := Hardware{ClockRate: 1200000, TablePrescaler: 1, MinRepeat: 64, TableCapacity: 500}

	tp, err := ResolveTable(1000, hw)
	require.NoError(t, err)
	assert.Equal(t, TableParams{Length: 400, Scale: 3}, tp)
}

func TestResolveTableDefaultHardware(t *testing.T) {
	hw := DefaultHardware()

	cases := []struct {
		freq   float64
		params TableParams
	}{
		{125, TableParams{Length: 500, Scale: 1}},   // 500 ticks fills the table
		{62500, TableParams{Length: 1, Scale: 1}},   // one tick per period
		{52, TableParams{Length: 401, Scale: 3}},    // 1201.9 ticks
		{440, TableParams{Length: 142, Scale: 1}},   // 142.05 ticks
		{0.5, TableParams{Length: 500, Scale: 250}}, // 125000 ticks
	}

	for _, c := range cases {
		tp, err := ResolveTable(c.freq, hw)
		require.NoError(t, err, "frequency %v", c.freq)
		assert.Equal(t, c.params, tp, "frequency %v", c.freq)
		assert.LessOrEqual(t, tp.Length, hw.TableCapacity)
		assert.GreaterOrEqual(t, tp.Length, uint16(1))
	}
}

func TestResolveTableOutOfRange(t *testing.T) {
	hw := DefaultHardware()

	for _, freq := range []float64{0, -1, math.NaN(), math.Inf(1), 70000, 0.1} {
		_, err := ResolveTable(freq, hw)
		assert.ErrorIs(t, err, ErrFrequencyOutOfRange, "frequency %v", freq)
	}
}

func TestResolveTableBadCapacity(t *testing.T) {
	hw := DefaultHardware()
	hw.TableCapacity = TableCapacity + 1

	_, err := ResolveTable(100, hw)
	assert.ErrorIs(t, err, ErrTableOverflow)
}

func TestHardwareValidate(t *testing.T) {
	assert.NoError(t, DefaultHardware().Validate())

	hw := DefaultHardware()
	hw.MinRepeat = 0
	assert.ErrorIs(t, hw.Validate(), ErrInvalidParameter)

	hw = DefaultHardware()
	hw.TablePrescaler = 0
	assert.ErrorIs(t, hw.Validate(), ErrInvalidParameter)

	hw = DefaultHardware()
	hw.TableCapacity = 0
	assert.ErrorIs(t, hw.Validate(), ErrTableOverflow)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
