// Package sweep emulates fuses blowing one after another inside the sub-capacitor bundles
// of a split-wye bank and records how the neutral differential voltage responds.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/synaptecltd/splitwye/network"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultTargetRows are the series positions of network 1 whose bundles are blown, in order,
// when Params.TargetRows is empty. Later positions are never faulted.
var DefaultTargetRows = []int{0, 1, 2}

// Parameters of a fault progression sweep.
type Params struct {
	RunID uuid.UUID // identifies the resulting trajectory, generated if uuid.Nil

	Grid         mat.CMatrix // healthy impedance grid shared by both networks
	LowVoltage   complex128  // tap impedance of both networks
	PhaseVoltage complex128

	SubImpedance complex128 // impedance of one sub-capacitor inside a bundle
	SubSeries    int        // series rows per bundle
	SubParallel  int        // sub-capacitors in parallel per row

	TargetRows   []int // series positions of network 1 faulted in turn, empty for DefaultTargetRows
	TargetColumn int   // parallel branch holding the faulted elements

	ReferenceVoltage float64 // divisor for per-unit voltages
	Workers          int     // concurrent step analyses, 0 for GOMAXPROCS
}

// Sweep is a validated fault progression.
type Sweep struct {
	runID uuid.UUID

	healthy      *mat.CDense
	lowVoltage   complex128
	phaseVoltage complex128

	subImpedance complex128
	subSeries    int
	subParallel  int

	targetRows   []int
	targetColumn int

	referenceVoltage float64
	workers          int
}

// snapshot is the network 1 grid at one step of the sweep.
type snapshot struct {
	step  int
	row   int
	blown int
	grid  *mat.CDense
}

// Returns a Sweep with the requested parameters, checking for invalid values.
func NewSweep(params Params) (*Sweep, error) {
	if params.Grid == nil {
		return nil, network.ErrInvalidGeometry
	}
	if r, c := params.Grid.Dims(); r < 1 || c < 1 {
		return nil, network.ErrInvalidGeometry
	}

	s := &Sweep{
		runID:        params.RunID,
		healthy:      network.CloneGrid(params.Grid),
		lowVoltage:   params.LowVoltage,
		phaseVoltage: params.PhaseVoltage,
		subImpedance: params.SubImpedance,
	}
	if s.runID == uuid.Nil {
		s.runID = uuid.New()
	}

	if err := s.SetBundleGeometry(params.SubSeries, params.SubParallel); err != nil {
		return nil, err
	}
	if err := s.SetTargets(params.TargetRows, params.TargetColumn); err != nil {
		return nil, err
	}
	if err := s.SetReferenceVoltage(params.ReferenceVoltage); err != nil {
		return nil, err
	}
	if err := s.SetWorkers(params.Workers); err != nil {
		return nil, err
	}
	return s, nil
}

// Sets the series and parallel counts of each bundle if both are at least 1.
func (s *Sweep) SetBundleGeometry(series, parallel int) error {
	if series < 1 || parallel < 1 {
		return fmt.Errorf("sub-series and sub-parallel counts must be at least 1, got %dx%d: %w", series, parallel, network.ErrInvalidGeometry)
	}
	s.subSeries = series
	s.subParallel = parallel
	return nil
}

// Sets the faulted series positions and branch if they are distinct and inside the grid.
func (s *Sweep) SetTargets(rows []int, column int) error {
	if len(rows) == 0 {
		rows = DefaultTargetRows
	}
	gridRows, gridCols := s.healthy.Dims()
	if column < 0 || column >= gridCols {
		return fmt.Errorf("target column %d outside grid with %d branches", column, gridCols)
	}

	seen := make(map[int]bool, len(rows))
	for _, row := range rows {
		if row < 0 || row >= gridRows {
			return fmt.Errorf("target row %d outside grid with %d series positions", row, gridRows)
		}
		if seen[row] {
			return fmt.Errorf("target row %d listed more than once", row)
		}
		seen[row] = true
	}

	s.targetRows = append([]int(nil), rows...)
	s.targetColumn = column
	return nil
}

// Sets the per-unit reference voltage if it is greater than 0.
func (s *Sweep) SetReferenceVoltage(v float64) error {
	if v <= 0 {
		return errors.New("reference voltage must be greater than 0")
	}
	s.referenceVoltage = v
	return nil
}

// Sets the number of concurrent step analyses, 0 selects GOMAXPROCS.
func (s *Sweep) SetWorkers(workers int) error {
	if workers < 0 {
		return errors.New("workers must be greater than or equal to 0")
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	s.workers = workers
	return nil
}

func (s *Sweep) RunID() uuid.UUID {
	return s.runID
}

func (s *Sweep) TargetRows() []int {
	return append([]int(nil), s.targetRows...)
}

// Returns the number of points in the trajectory: one per blown fuse row plus the healthy step.
func (s *Sweep) Steps() int {
	return len(s.targetRows)*s.subSeries + 1
}

// Returns which target (index into TargetRows) is faulted at step, and how many of its rows
// are blown. Step 0 is the healthy bundle of the first target.
func (s *Sweep) locate(step int) (target, blown int) {
	if step == 0 {
		return 0, 0
	}
	target = (step - 1) / s.subSeries
	return target, step - target*s.subSeries
}

// Builds the network 1 grid of every step. Each step keeps the fuses blown by earlier steps.
func (s *Sweep) snapshots() ([]snapshot, error) {
	bundles := make([]*Bundle, len(s.targetRows))
	for i := range bundles {
		b, err := NewBundle(s.subSeries, s.subParallel, s.subImpedance)
		if err != nil {
			return nil, err
		}
		bundles[i] = b
	}

	grid := network.CloneGrid(s.healthy)
	snaps := make([]snapshot, 0, s.Steps())
	for step := 0; step < s.Steps(); step++ {
		target, blown := s.locate(step)
		row := s.targetRows[target]

		if err := bundles[target].Blow(blown); err != nil {
			return nil, err
		}
		z, err := bundles[target].Equivalent()
		if err != nil {
			return nil, fmt.Errorf("sweep: step %d: %w", step, err)
		}
		grid.Set(row, s.targetColumn, z)

		snaps = append(snaps, snapshot{
			step:  step,
			row:   row,
			blown: blown,
			grid:  network.CloneGrid(grid),
		})
	}
	return snaps, nil
}

// Run analyses every step of the sweep against the healthy network 2. Steps are analysed
// concurrently but the trajectory is ordered by step.
func (s *Sweep) Run(ctx context.Context) (*Trajectory, error) {
	snaps, err := s.snapshots()
	if err != nil {
		return nil, err
	}

	healthy, err := network.NewNetwork(s.healthy, s.lowVoltage, s.phaseVoltage)
	if err != nil {
		return nil, fmt.Errorf("sweep: network 2: %w", err)
	}

	points := make([]Point, len(snaps))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range snaps {
		snap := snaps[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			faulted, err := network.NewNetwork(snap.grid, s.lowVoltage, s.phaseVoltage)
			if err != nil {
				return fmt.Errorf("sweep: step %d: network 1: %w", snap.step, err)
			}
			points[snap.step] = newPoint(snap, network.AnalyseNetworks(faulted, healthy), s.referenceVoltage)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Trajectory{
		ID:               s.runID,
		ReferenceVoltage: s.referenceVoltage,
		Points:           points,
	}, nil
}
