package network

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Side is the input for one of the two ladders of a split-wye bank.
type Side struct {
	Grid       mat.CMatrix // impedance of every element, rows are series positions
	LowVoltage complex128  // tap impedance to the neutral
}

// Result holds the solved quantities of one network of an Analysis.
type Result struct {
	Network *Network

	Voltage           *mat.CDense // voltage across each element
	LowVoltage        complex128  // voltage across the tap
	Current           *mat.CDense // current through each element
	LowVoltageCurrent complex128  // current through the tap

	ReactivePower           *mat.Dense // reactive power of each element
	LowVoltageReactivePower float64    // reactive power of the tap
	BranchReactivePower     float64    // sum of ReactivePower
}

// Analysis compares two networks driven by the same phase voltage. The voltage difference
// between their taps is what the neutral potential transformer measures: it is zero for a
// balanced bank and grows as elements of one side fail.
type Analysis struct {
	Network1 Result
	Network2 Result

	LowVoltageDifference float64 // |V_lv2 - V_lv1|
}

// Analyse builds and solves both networks and computes their tap voltage difference.
// The input grids are copied and never modified.
func Analyse(side1, side2 Side, phaseVoltage complex128) (*Analysis, error) {
	n1, err := NewNetwork(side1.Grid, side1.LowVoltage, phaseVoltage)
	if err != nil {
		return nil, fmt.Errorf("network 1: %w", err)
	}
	n2, err := NewNetwork(side2.Grid, side2.LowVoltage, phaseVoltage)
	if err != nil {
		return nil, fmt.Errorf("network 2: %w", err)
	}
	return AnalyseNetworks(n1, n2), nil
}

// AnalyseNetworks computes the Analysis of two already solved networks.
func AnalyseNetworks(n1, n2 *Network) *Analysis {
	a := &Analysis{
		Network1: newResult(n1),
		Network2: newResult(n2),
	}
	a.LowVoltageDifference = cmplx.Abs(a.Network2.LowVoltage - a.Network1.LowVoltage)
	return a
}

// Returns the result of network 1 or 2.
func (a *Analysis) Result(network int) (*Result, error) {
	switch network {
	case 1:
		return &a.Network1, nil
	case 2:
		return &a.Network2, nil
	default:
		return nil, fmt.Errorf("network: no network %d in analysis", network)
	}
}

func newResult(n *Network) Result {
	r := Result{Network: n}
	r.Voltage, r.LowVoltage = n.VoltageGrid()
	r.Current, r.LowVoltageCurrent = n.CurrentGrid()
	r.ReactivePower = n.ReactivePowerGrid()
	r.LowVoltageReactivePower = n.LowVoltageReactivePower()
	r.BranchReactivePower = mat.Sum(r.ReactivePower)
	return r
}
