// Package network solves the steady-state phasor quantities of a capacitor ladder
// (series positions x parallel branches) that reaches the neutral through a low voltage
// tap capacitor, and compares two such ladders sharing a source voltage.
package network

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/synaptecltd/splitwye/phasor"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidGeometry     = errors.New("network: grid must have at least one row and one column")
	ErrZeroTap             = errors.New("network: low voltage tap impedance must be non-zero")
	ErrZeroVoltage         = errors.New("network: phase voltage magnitude must be greater than 0")
	ErrDivisionSingularity = phasor.ErrDivisionSingularity
)

// Network is one capacitor ladder plus its low voltage tap, solved for a phase voltage.
//
// All derived quantities are solved when the network is constructed and the impedance grid
// is a private copy, so a Network never changes. Use WithImpedance to obtain a network with
// a modified element.
type Network struct {
	impedance    *mat.CDense // rows are series positions, columns parallel branches
	lowVoltage   complex128  // tap impedance between the ladder and the neutral
	phaseVoltage complex128

	// solved state
	seriesEq   []complex128 // per branch series sums
	seriesSum  complex128   // sum of seriesEq, weights the branch current divider
	parallelEq complex128
	total      complex128
	current    complex128
}

// Returns a rows x cols grid where every element is z.
func UniformGrid(rows, cols int, z complex128) (*mat.CDense, error) {
	if rows < 1 || cols < 1 {
		return nil, ErrInvalidGeometry
	}
	data := make([]complex128, rows*cols)
	for i := range data {
		data[i] = z
	}
	return mat.NewCDense(rows, cols, data), nil
}

// Returns a deep copy of grid.
func CloneGrid(grid mat.CMatrix) *mat.CDense {
	r, c := grid.Dims()
	clone := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			clone.Set(i, j, grid.At(i, j))
		}
	}
	return clone
}

// NewNetwork copies grid and solves the network for phaseVoltage applied across the
// ladder in series with the lowVoltage tap impedance.
func NewNetwork(grid mat.CMatrix, lowVoltage, phaseVoltage complex128) (*Network, error) {
	if grid == nil {
		return nil, ErrInvalidGeometry
	}
	if r, c := grid.Dims(); r < 1 || c < 1 {
		return nil, ErrInvalidGeometry
	}
	if lowVoltage == 0 {
		return nil, ErrZeroTap
	}
	if cmplx.Abs(phaseVoltage) == 0 {
		return nil, ErrZeroVoltage
	}

	n := &Network{
		impedance:    CloneGrid(grid),
		lowVoltage:   lowVoltage,
		phaseVoltage: phaseVoltage,
	}
	if err := n.solve(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) solve() error {
	n.seriesEq = n.SeriesEquivalentImpedances()
	for col, z := range n.seriesEq {
		if z == 0 {
			return fmt.Errorf("network: branch %d series sum: %w", col, ErrDivisionSingularity)
		}
	}

	n.seriesSum = phasor.Series(n.seriesEq...)
	if n.seriesSum == 0 {
		return fmt.Errorf("network: sum of branch impedances: %w", ErrDivisionSingularity)
	}

	parallelEq, err := n.ParallelEquivalentImpedance(n.seriesEq)
	if err != nil {
		return err
	}
	n.parallelEq = parallelEq

	n.total = n.parallelEq + n.lowVoltage
	if n.total == 0 {
		return fmt.Errorf("network: total impedance: %w", ErrDivisionSingularity)
	}
	n.current = n.phaseVoltage / n.total
	return nil
}

// WithImpedance returns a new solved network equal to n except that element (row, col)
// has impedance z.
func (n *Network) WithImpedance(row, col int, z complex128) (*Network, error) {
	rows, cols := n.Dims()
	if row < 0 || row >= rows || col < 0 || col >= cols {
		return nil, fmt.Errorf("network: element (%d, %d) outside %dx%d grid: %w", row, col, rows, cols, ErrInvalidGeometry)
	}
	grid := CloneGrid(n.impedance)
	grid.Set(row, col, z)
	return NewNetwork(grid, n.lowVoltage, n.phaseVoltage)
}

// Returns the number of series positions and parallel branches.
func (n *Network) Dims() (rows, cols int) {
	return n.impedance.Dims()
}

// Returns the impedance of element (row, col).
func (n *Network) Impedance(row, col int) complex128 {
	return n.impedance.At(row, col)
}

// Returns a copy of the impedance grid.
func (n *Network) ImpedanceGrid() *mat.CDense {
	return CloneGrid(n.impedance)
}

func (n *Network) LowVoltageImpedance() complex128 {
	return n.lowVoltage
}

func (n *Network) PhaseVoltage() complex128 {
	return n.phaseVoltage
}

// SeriesEquivalentImpedances returns, for each parallel branch, the sum of its series
// impedances.
func (n *Network) SeriesEquivalentImpedances() []complex128 {
	rows, cols := n.impedance.Dims()
	seriesEq := make([]complex128, cols)
	column := make([]complex128, rows)
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			column[row] = n.impedance.At(row, col)
		}
		seriesEq[col] = phasor.Series(column...)
	}
	return seriesEq
}

// ParallelEquivalentImpedance returns 1/sum(1/Z) over seriesEq.
func (n *Network) ParallelEquivalentImpedance(seriesEq []complex128) (complex128, error) {
	z, err := phasor.Parallel(seriesEq...)
	if err != nil {
		return 0, fmt.Errorf("network: parallel equivalent: %w", err)
	}
	return z, nil
}

// TotalImpedance is the parallel equivalent of all branches in series with the tap.
func (n *Network) TotalImpedance() complex128 {
	return n.total
}

// TotalCurrent is the phase voltage divided by the total impedance.
func (n *Network) TotalCurrent() complex128 {
	return n.current
}

// BranchCurrent returns the share of the total current carried by branch col.
//
// The share is weighted by the branch's own series impedance over the sum of all branch
// series impedances, I_total*(Z_col/sum(Z)). This is not the classical inverse-impedance
// divider; it only agrees with it when all branches are equal.
func (n *Network) BranchCurrent(col int) complex128 {
	return n.current * (n.seriesEq[col] / n.seriesSum)
}

// VoltageGrid returns the voltage across every element and across the tap.
func (n *Network) VoltageGrid() (*mat.CDense, complex128) {
	rows, cols := n.impedance.Dims()
	voltage := mat.NewCDense(rows, cols, nil)
	for col := 0; col < cols; col++ {
		branchCurrent := n.BranchCurrent(col)
		for row := 0; row < rows; row++ {
			voltage.Set(row, col, branchCurrent*n.impedance.At(row, col))
		}
	}
	return voltage, n.current * n.lowVoltage
}

// CurrentGrid returns the current through every element and through the tap. Elements in
// the same branch carry the same current.
func (n *Network) CurrentGrid() (*mat.CDense, complex128) {
	rows, cols := n.impedance.Dims()
	current := mat.NewCDense(rows, cols, nil)
	for col := 0; col < cols; col++ {
		branchCurrent := n.BranchCurrent(col)
		for row := 0; row < rows; row++ {
			current.Set(row, col, branchCurrent)
		}
	}
	return current, n.current
}

// ReactivePowerGrid returns the reactive power of every element, Q=-|I|^2*Im(Z).
// Capacitive elements have Im(Z) < 0 and so report a non-negative Q.
func (n *Network) ReactivePowerGrid() *mat.Dense {
	rows, cols := n.impedance.Dims()
	q := mat.NewDense(rows, cols, nil)
	for col := 0; col < cols; col++ {
		mag := cmplx.Abs(n.BranchCurrent(col))
		for row := 0; row < rows; row++ {
			q.Set(row, col, reactivePower(mag, n.impedance.At(row, col)))
		}
	}
	return q
}

// LowVoltageReactivePower returns the reactive power of the tap capacitor.
func (n *Network) LowVoltageReactivePower() float64 {
	return reactivePower(cmplx.Abs(n.current), n.lowVoltage)
}

// BranchReactivePower returns the sum of ReactivePowerGrid.
func (n *Network) BranchReactivePower() float64 {
	return mat.Sum(n.ReactivePowerGrid())
}

// CapacitanceGrid converts each element back into a capacitance at frequency f.
// Shorted elements report an infinite capacitance.
func (n *Network) CapacitanceGrid(f float64) *mat.Dense {
	rows, cols := n.impedance.Dims()
	c := mat.NewDense(rows, cols, nil)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c.Set(row, col, phasor.Capacitance(n.impedance.At(row, col), f))
		}
	}
	return c
}

// LowVoltageCapacitance converts the tap impedance back into a capacitance at frequency f.
func (n *Network) LowVoltageCapacitance(f float64) float64 {
	return phasor.Capacitance(n.lowVoltage, f)
}

func reactivePower(currentMag float64, z complex128) float64 {
	q := -currentMag * currentMag * imag(z)
	if q == 0 {
		return 0 // avoid reporting -0 for shorted elements
	}
	return q
}
