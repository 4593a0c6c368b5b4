package core

import (
	"fmt"
	"math"
)

// TableCapacity is the number of samples a table can hold.
// 500 bytes fits the 512 bytes of RAM on the smallest supported part.
const TableCapacity = 500

// Amplitude limits of the 8-bit PWM output
const (
	MidScale  = 127
	HalfRange = 128
	MaxLevel  = 255
)

// SampleTable is a fixed-capacity buffer holding one period of a waveform.
type SampleTable struct {
	samples [TableCapacity]uint8
	length  uint16
}

// Len returns the number of valid samples.
func (t *SampleTable) Len() uint16 {
	return t.length
}

// At returns sample i. i must be below Len.
func (t *SampleTable) At(i uint16) uint8 {
	return t.samples[i]
}

// Samples returns the valid part of the table.
func (t *SampleTable) Samples() []uint8 {
	return t.samples[:t.length]
}

// Fill regenerates the table with one period of shape spread over length samples.
func (t *SampleTable) Fill(shape Shape, length uint16) error {
	if length == 0 || length > TableCapacity {
		return fmt.Errorf("%w: %d entries", ErrTableOverflow, length)
	}

	switch shape {
	case ShapeSaw:
		fillSaw(t.samples[:length])
	case ShapeSine:
		fillSine(t.samples[:length])
	default:
		return fmt.Errorf("%w: %s has no table", ErrUnknownShape, shape)
	}

	t.length = length
	return nil
}

// level maps j/span of the half range onto the output scale.
func level(j, span int) uint8 {
	v := MidScale + j*HalfRange/span
	if v < 0 {
		return 0
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return uint8(v)
}

// fillSaw writes a bipolar saw: mid to max over the first quarter, max to
// min over the middle half, min back to mid over the remainder.
func fillSaw(buf []uint8) {
	n := len(buf)
	q := n / 4
	if q == 0 {
		for i := range buf {
			buf[i] = MidScale
		}
		return
	}

	for i := 0; i < q; i++ {
		buf[i] = level(i, q)
	}

	for i := q; i < 3*q; i++ {
		buf[i] = level(2*q-i, q)
	}

	// The last segment absorbs the remainder of n/4
	tail := n - 3*q
	for i := 3 * q; i < n; i++ {
		buf[i] = level(i-n, tail)
	}
}

func fillSine(buf []uint8) {
	step := 2 * math.Pi / float64(len(buf))
	for i := range buf {
		v := math.Round(MidScale + HalfRange*math.Sin(step*float64(i)))
		if v < 0 {
			v = 0
		} else if v > MaxLevel {
			v = MaxLevel
		}
		buf[i] = uint8(v)
	}
}
