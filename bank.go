// Package splitwye models a split-wye fuseless capacitor bank: two identical ladders of
// capacitor elements in parallel, each over a low voltage tap, whose neutral differential
// voltage reveals internal element failures.
package splitwye

import (
	"context"
	"fmt"
	"math/cmplx"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptecltd/splitwye/network"
	"github.com/synaptecltd/splitwye/phasor"
	"github.com/synaptecltd/splitwye/sweep"
	"gonum.org/v1/gonum/mat"
)

// Bank holds the impedances derived from a validated BankConfig.
type Bank struct {
	Config BankConfig

	Omega               float64    // angular frequency in rad/s
	PhaseVoltage        complex128 // phase-to-neutral voltage of the selected phase in V
	NominalImpedance    complex128 // impedance of one healthy element
	LowVoltageImpedance complex128 // impedance of the low voltage tap
	SubImpedance        complex128 // impedance of one sub-capacitor inside an element

	log *logrus.Entry
}

type Option func(*Bank)

// Sets the logger used by the bank, logrus.StandardLogger by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Bank) {
		b.log = l.WithField("component", "bank")
	}
}

// Returns a Bank for cfg, checking for invalid values.
func NewBank(cfg BankConfig, opts ...Option) (*Bank, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	phase, err := ParsePhase(cfg.Phase)
	if err != nil {
		return nil, err
	}

	b := &Bank{
		Config:       cfg,
		Omega:        phasor.AngularFrequency(cfg.Frequency),
		PhaseVoltage: SourceVoltage(cfg.LineVoltageKV, cfg.PhaseOffset, phase),
		log:          logrus.StandardLogger().WithField("component", "bank"),
	}
	for _, opt := range opts {
		opt(b)
	}

	c := cfg.CapacitanceUF * 1e-6
	if b.NominalImpedance, err = phasor.CapacitiveImpedance(c, cfg.Frequency); err != nil {
		return nil, err
	}
	if b.LowVoltageImpedance, err = phasor.CapacitiveImpedance(cfg.LowVoltageCapacitanceUF*1e-6, cfg.Frequency); err != nil {
		return nil, err
	}
	// sub-capacitors sized so that a healthy bundle matches the element it replaces
	subC := c * float64(cfg.SubSeries) / float64(cfg.SubParallel)
	if b.SubImpedance, err = phasor.CapacitiveImpedance(subC, cfg.Frequency); err != nil {
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"series":   cfg.Series,
		"parallel": cfg.Parallel,
		"phase":    phase,
		"zNominal": fmt.Sprintf("%.6g", b.NominalImpedance),
		"zLow":     fmt.Sprintf("%.6g", b.LowVoltageImpedance),
	}).Debug("bank created")

	return b, nil
}

// Returns a new grid with every element at the nominal impedance.
func (b *Bank) NominalGrid() *mat.CDense {
	grid, _ := network.UniformGrid(b.Config.Series, b.Config.Parallel, b.NominalImpedance)
	return grid
}

// Analyses both networks with every element healthy.
func (b *Bank) Nominal() (*network.Analysis, error) {
	return b.Analyse(b.NominalGrid(), b.NominalGrid())
}

// Analyses the bank with arbitrary element grids for each network, both over the configured
// low voltage tap.
func (b *Bank) Analyse(grid1, grid2 mat.CMatrix) (*network.Analysis, error) {
	a, err := network.Analyse(
		network.Side{Grid: grid1, LowVoltage: b.LowVoltageImpedance},
		network.Side{Grid: grid2, LowVoltage: b.LowVoltageImpedance},
		b.PhaseVoltage,
	)
	if err != nil {
		return nil, err
	}
	b.log.WithFields(logrus.Fields{
		"differential": a.LowVoltageDifference,
		"current":      cmplx.Abs(a.Network1.Network.TotalCurrent()),
	}).Info("networks analysed")
	return a, nil
}

// Returns the fault progression sweep of the bank, not yet run.
func (b *Bank) NewSweep() (*sweep.Sweep, error) {
	return sweep.NewSweep(sweep.Params{
		RunID:            uuid.New(),
		Grid:             b.NominalGrid(),
		LowVoltage:       b.LowVoltageImpedance,
		PhaseVoltage:     b.PhaseVoltage,
		SubImpedance:     b.SubImpedance,
		SubSeries:        b.Config.SubSeries,
		SubParallel:      b.Config.SubParallel,
		TargetRows:       b.Config.TargetRows,
		TargetColumn:     b.Config.TargetColumn,
		ReferenceVoltage: b.Config.ReferenceVoltage,
		Workers:          b.Config.Workers,
	})
}

// Runs the fault progression sweep of the bank.
func (b *Bank) Sweep(ctx context.Context) (*sweep.Trajectory, error) {
	s, err := b.NewSweep()
	if err != nil {
		return nil, err
	}

	log := b.log.WithField("run", s.RunID())
	log.WithFields(logrus.Fields{
		"steps":  s.Steps(),
		"rows":   s.TargetRows(),
		"column": b.Config.TargetColumn,
	}).Info("sweep started")

	trajectory, err := s.Run(ctx)
	if err != nil {
		log.WithError(err).Error("sweep failed")
		return nil, fmt.Errorf("sweep %s: %w", s.RunID(), err)
	}

	for _, p := range trajectory.Points {
		log.WithFields(logrus.Fields{
			"step":         p.Step,
			"row":          p.Row,
			"blown":        p.BlownFuses,
			"differential": p.Differential,
			"healthyPU":    p.HealthyVoltagePU,
		}).Debug("sweep step")
	}
	last := trajectory.Points[len(trajectory.Points)-1]
	log.WithFields(logrus.Fields{
		"differential": last.Differential,
		"healthyPU":    last.HealthyVoltagePU,
	}).Info("sweep finished")

	return trajectory, nil
}
