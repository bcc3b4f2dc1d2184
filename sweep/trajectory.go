package sweep

import (
	"math/cmplx"

	"github.com/google/uuid"
	"github.com/synaptecltd/splitwye/network"
)

// Point is the state of the bank at one step of a sweep.
type Point struct {
	Step       int // 0 is the healthy bank
	Row        int // series position of network 1 being faulted
	BlownFuses int // shorted rows in the bundle at Row

	Differential     float64 // |V_lv2 - V_lv1| seen by the neutral potential transformer
	HealthyVoltagePU float64 // voltage of the last element of network 1, per unit

	LowVoltage1, LowVoltage2                           float64 // tap voltage magnitudes
	LowVoltageCurrent1, LowVoltageCurrent2             float64 // tap current magnitudes
	LowVoltageReactivePower1, LowVoltageReactivePower2 float64
	BranchReactivePower1, BranchReactivePower2         float64 // sums over each reactive power grid

	Analysis *network.Analysis
}

func newPoint(snap snapshot, a *network.Analysis, referenceVoltage float64) Point {
	rows, cols := a.Network1.Voltage.Dims()
	return Point{
		Step:       snap.step,
		Row:        snap.row,
		BlownFuses: snap.blown,

		Differential:     a.LowVoltageDifference,
		HealthyVoltagePU: cmplx.Abs(a.Network1.Voltage.At(rows-1, cols-1)) / referenceVoltage,

		LowVoltage1:              cmplx.Abs(a.Network1.LowVoltage),
		LowVoltage2:              cmplx.Abs(a.Network2.LowVoltage),
		LowVoltageCurrent1:       cmplx.Abs(a.Network1.LowVoltageCurrent),
		LowVoltageCurrent2:       cmplx.Abs(a.Network2.LowVoltageCurrent),
		LowVoltageReactivePower1: a.Network1.LowVoltageReactivePower,
		LowVoltageReactivePower2: a.Network2.LowVoltageReactivePower,
		BranchReactivePower1:     a.Network1.BranchReactivePower,
		BranchReactivePower2:     a.Network2.BranchReactivePower,

		Analysis: a,
	}
}

// Returns the reactive power of both taps and both ladders at this point.
func (p Point) ReactivePower() float64 {
	return p.LowVoltageReactivePower1 + p.LowVoltageReactivePower2 + p.BranchReactivePower1 + p.BranchReactivePower2
}

// Trajectory is the ordered result of a sweep, one point per step.
type Trajectory struct {
	ID               uuid.UUID
	ReferenceVoltage float64
	Points           []Point
}

// Returns the differential voltage of every step.
func (t *Trajectory) Differentials() []float64 {
	values := make([]float64, len(t.Points))
	for i, p := range t.Points {
		values[i] = p.Differential
	}
	return values
}

// Returns the per-unit voltage of the last element of network 1 at every step.
func (t *Trajectory) HealthyVoltages() []float64 {
	values := make([]float64, len(t.Points))
	for i, p := range t.Points {
		values[i] = p.HealthyVoltagePU
	}
	return values
}

// ReactivePowerSeries returns the bank reactive power as a function of blown fuses: each
// step's own reactive power plus twice the reactive power of step 0. Capacitive elements
// count as positive reactive power, so values are the negation of a |I|²·Im(Z) convention.
//
// TODO: the doubled step 0 term has no derivation; confirm the weighting with protection
// engineering before using the series for sizing.
func (t *Trajectory) ReactivePowerSeries() []float64 {
	if len(t.Points) == 0 {
		return nil
	}
	baseline := 2 * t.Points[0].ReactivePower()
	values := make([]float64, len(t.Points))
	for i, p := range t.Points {
		values[i] = p.ReactivePower() + baseline
	}
	return values
}

// VoltagePU returns |V|/ReferenceVoltage of every element of network 1 at step, flattened
// row by row.
func (t *Trajectory) VoltagePU(step int) []float64 {
	v := t.Points[step].Analysis.Network1.Voltage
	rows, cols := v.Dims()
	values := make([]float64, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			values = append(values, cmplx.Abs(v.At(row, col))/t.ReferenceVoltage)
		}
	}
	return values
}
