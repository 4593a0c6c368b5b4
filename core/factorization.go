package core

import "math"

// MaxFactor is the largest value an 8-bit repeat register can hold.
const MaxFactor = 255

// Factorize returns the smallest factor of value in [min, MaxFactor].
// The boolean is false when value has no factor in that range.
// min must be at least 1.
func Factorize(value uint32, min uint8) (uint8, bool) {
	if min == 0 {
		panic(ErrInvalidParameter)
	}

	for i := uint32(min); i <= MaxFactor; i++ {
		if value%i == 0 {
			return uint8(i), true
		}
	}

	return 0, false
}

// ApproximateFactor picks the candidate in [min, MaxFactor] whose quotient
// value/candidate has the smallest fractional part and returns it with the
// rounded quotient. Ties keep the first (lowest) candidate.
// The quotient is not range checked; callers validate it against their register.
func ApproximateFactor(value uint32, min uint8) (factor uint8, companion uint32) {
	if min == 0 {
		panic(ErrInvalidParameter)
	}

	v := float64(value)
	closest := 1.0
	factor = min

	for i := uint32(min); i <= MaxFactor; i++ {
		q := v / float64(i)
		fraction := q - math.Floor(q)

		if fraction < closest {
			closest = fraction
			factor = uint8(i)
			companion = uint32(math.Round(q))
		}
	}

	return factor, companion
}
