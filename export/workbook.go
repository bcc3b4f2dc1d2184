// Package export writes analysis and sweep results as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/synaptecltd/splitwye/network"
	"github.com/synaptecltd/splitwye/sweep"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

// Sheet names of an analysis workbook, in workbook order.
const (
	Network1VoltageSheet       = "Network 1 Voltage Magnitude"
	Network2VoltageSheet       = "Network 2 Voltage Magnitude"
	Network1ReactivePowerSheet = "Network 1 Reactive Power"
	Network2ReactivePowerSheet = "Network 2 Reactive Power"
	Network1CurrentSheet       = "Network 1 Current Magnitude"
	Network2CurrentSheet       = "Network 2 Current Magnitude"
	LowVoltageDifferenceSheet  = "Low Voltage Difference"
	Network1CapacitanceSheet   = "Network 1 Capacitance"
	Network2CapacitanceSheet   = "Network 2 Capacitance"
)

// Sheet names of a sweep workbook.
const (
	FaultProgressionSheet = "Fault Progression"
	PowerSheet            = "Power vs Blown Fuses"
	VoltagePUSheet        = "Network 1 Voltage PU"
)

// table returns the per element values of one network quantity and the value of the tap,
// appended as an extra row.
type table func(r *network.Result, frequency float64) (*mat.Dense, float64)

var analysisSheets = []struct {
	name    string
	network int
	table   table
}{
	{Network1VoltageSheet, 1, voltageTable},
	{Network2VoltageSheet, 2, voltageTable},
	{Network1ReactivePowerSheet, 1, reactivePowerTable},
	{Network2ReactivePowerSheet, 2, reactivePowerTable},
	{Network1CurrentSheet, 1, currentTable},
	{Network2CurrentSheet, 2, currentTable},
	{LowVoltageDifferenceSheet, 0, nil},
	{Network1CapacitanceSheet, 1, capacitanceTable},
	{Network2CapacitanceSheet, 2, capacitanceTable},
}

func voltageTable(r *network.Result, _ float64) (*mat.Dense, float64) {
	return magnitudes(r.Voltage), cmplx.Abs(r.LowVoltage)
}

func currentTable(r *network.Result, _ float64) (*mat.Dense, float64) {
	return magnitudes(r.Current), cmplx.Abs(r.LowVoltageCurrent)
}

func reactivePowerTable(r *network.Result, _ float64) (*mat.Dense, float64) {
	return r.ReactivePower, r.LowVoltageReactivePower
}

func capacitanceTable(r *network.Result, frequency float64) (*mat.Dense, float64) {
	return r.Network.CapacitanceGrid(frequency), r.Network.LowVoltageCapacitance(frequency)
}

func magnitudes(m *mat.CDense) *mat.Dense {
	rows, cols := m.Dims()
	mags := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			mags.Set(i, j, cmplx.Abs(m.At(i, j)))
		}
	}
	return mags
}

// WithExtraRow returns m with one row appended holding extra in the first column and zeros
// elsewhere.
func WithExtraRow(m mat.Matrix, extra float64) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows+1, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	out.Set(rows, 0, extra)
	return out
}

// WriteAnalysis writes the grids of both networks of a, one sheet per quantity, with the tap
// quantity appended as the last row of each sheet. Capacitances are computed at frequency.
func WriteAnalysis(w io.Writer, a *network.Analysis, frequency float64) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range analysisSheets {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return err
		}
		if sheet.table == nil {
			if err := writeRows(f, sheet.name, []string{LowVoltageDifferenceSheet}, [][]float64{{a.LowVoltageDifference}}); err != nil {
				return err
			}
			continue
		}

		r, err := a.Result(sheet.network)
		if err != nil {
			return err
		}
		values, extra := sheet.table(r, frequency)
		if err := writeMatrix(f, sheet.name, WithExtraRow(values, extra)); err != nil {
			return err
		}
	}

	return save(f, w)
}

// WriteTrajectory writes the points of t, the aggregated reactive power series and the per
// unit voltage of every network 1 element at every step.
func WriteTrajectory(w io.Writer, t *sweep.Trajectory) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{Identifier: t.ID.String(), Title: "Fault progression"}); err != nil {
		return err
	}

	header := []string{
		"Step", "Row", "Blown Fuses",
		"Potential Transformer DDP", "Voltage Healthy Capacitors",
		"Low Voltage 1", "Low Voltage 2",
		"Low Voltage Current 1", "Low Voltage Current 2",
		"Low Voltage Reactive Power 1", "Low Voltage Reactive Power 2",
		"Branch Reactive Power 1", "Branch Reactive Power 2",
	}
	rows := make([][]float64, len(t.Points))
	for i, p := range t.Points {
		rows[i] = []float64{
			float64(p.Step), float64(p.Row), float64(p.BlownFuses),
			p.Differential, p.HealthyVoltagePU,
			p.LowVoltage1, p.LowVoltage2,
			p.LowVoltageCurrent1, p.LowVoltageCurrent2,
			p.LowVoltageReactivePower1, p.LowVoltageReactivePower2,
			p.BranchReactivePower1, p.BranchReactivePower2,
		}
	}
	if _, err := f.NewSheet(FaultProgressionSheet); err != nil {
		return err
	}
	if err := writeRows(f, FaultProgressionSheet, header, rows); err != nil {
		return err
	}

	power := t.ReactivePowerSeries()
	rows = make([][]float64, len(power))
	for i, q := range power {
		rows[i] = []float64{float64(i), q}
	}
	if _, err := f.NewSheet(PowerSheet); err != nil {
		return err
	}
	if err := writeRows(f, PowerSheet, []string{"Step", "Reactive Power"}, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(VoltagePUSheet); err != nil {
		return err
	}
	for i := range t.Points {
		column := t.VoltagePU(i)
		values := make([]interface{}, 0, len(column)+1)
		values = append(values, fmt.Sprintf("V (pu) %d", i))
		for _, v := range column {
			values = append(values, cellValue(v))
		}
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetSheetCol(VoltagePUSheet, cell, &values); err != nil {
			return err
		}
	}

	return save(f, w)
}

// writeMatrix writes m under a "Branch n" header.
func writeMatrix(f *excelize.File, sheet string, m *mat.Dense) error {
	rows, cols := m.Dims()
	header := make([]string, cols)
	for j := range header {
		header[j] = fmt.Sprintf("Branch %d", j+1)
	}
	values := make([][]float64, rows)
	for i := range values {
		values[i] = m.RawRowView(i)
	}
	return writeRows(f, sheet, header, values)
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]float64) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// cellValue leaves non-finite values blank, xlsx has no representation for them.
func cellValue(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}

// save drops the default sheet and writes the workbook with its first sheet active.
func save(f *excelize.File, w io.Writer) error {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}
