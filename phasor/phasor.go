// Package phasor provides the complex impedance arithmetic of capacitor elements.
package phasor

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
)

// Short is the impedance written in place of a sub-capacitor whose fuse has blown.
// It is finite so that its admittance dominates a parallel sum without dividing by zero.
const Short complex128 = 1e-99

var (
	ErrNonPositiveFrequency   = errors.New("phasor: frequency must be greater than 0")
	ErrNonPositiveCapacitance = errors.New("phasor: capacitance must be greater than 0")
	ErrDivisionSingularity    = errors.New("phasor: impedance or admittance sum is zero")
)

// Returns the angular frequency 2*pi*f.
func AngularFrequency(f float64) float64 {
	return 2 * math.Pi * f
}

// Returns the impedance Z=1/(jwC) of a capacitance c (farads) at frequency f (hertz).
func CapacitiveImpedance(c, f float64) (complex128, error) {
	if f <= 0 {
		return 0, ErrNonPositiveFrequency
	}
	if c <= 0 {
		return 0, ErrNonPositiveCapacitance
	}
	return 1 / complex(0, AngularFrequency(f)*c), nil
}

// Returns the capacitance C=-1/(Im(Z)*w) equivalent to z at frequency f.
// A purely resistive z (e.g. Short) gives an infinite capacitance.
func Capacitance(z complex128, f float64) float64 {
	return -1 / (imag(z) * AngularFrequency(f))
}

// Returns the series equivalent of zs, the plain complex sum.
func Series(zs ...complex128) complex128 {
	return cmplxs.Sum(zs)
}

// Returns the parallel equivalent 1/sum(1/Z) of zs.
func Parallel(zs ...complex128) (complex128, error) {
	if len(zs) == 0 {
		return 0, ErrDivisionSingularity
	}
	if len(zs) == 1 && zs[0] != 0 {
		return zs[0], nil // exact, no reciprocal round trip
	}
	var y complex128
	for _, z := range zs {
		if z == 0 {
			return 0, ErrDivisionSingularity
		}
		y += 1 / z
	}
	if y == 0 {
		return 0, ErrDivisionSingularity
	}
	return 1 / y, nil
}

// Returns the phase-to-neutral voltage phasor of a three-phase system with line voltage
// lineKV (kilovolts), rotated by offset radians.
func PhaseVoltage(lineKV, offset float64) complex128 {
	return cmplx.Rect(lineKV*1e3/math.Sqrt(3), offset)
}

// Returns the magnitudes of zs.
func Magnitudes(zs []complex128) []float64 {
	mags := make([]float64, len(zs))
	for i, z := range zs {
		mags[i] = cmplx.Abs(z)
	}
	return mags
}
