package splitwye

import (
	"bytes"
	"context"
	"math"
	"math/cmplx"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/splitwye/phasor"
)

func createBank(t testing.TB, cfg BankConfig) (*Bank, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	b, err := NewBank(cfg, WithLogger(logger))
	require.NoError(t, err)
	return b, hook
}

func TestNewBankImpedances(t *testing.T) {
	b, _ := createBank(t, DefaultBankConfig())

	assert.InDelta(t, 2*math.Pi*60, b.Omega, 1e-12)
	assert.InEpsilon(t, -325.0714, imag(b.NominalImpedance), 1e-6)
	assert.InEpsilon(t, -13.26291, imag(b.LowVoltageImpedance), 1e-6)
	assert.InDelta(t, 79674.3, cmplx.Abs(b.PhaseVoltage), 0.1)

	// a healthy bundle of 4 x 9 sub-capacitors matches one element
	assert.InDelta(t, imag(b.NominalImpedance), 4*imag(b.SubImpedance)/9, 1e-9)
}

func TestNewBankInvalidConfig(t *testing.T) {
	cfg := DefaultBankConfig()
	cfg.CapacitanceUF = 0
	_, err := NewBank(cfg)
	assert.ErrorIs(t, err, phasor.ErrNonPositiveCapacitance)
}

func TestNominalAnalysis(t *testing.T) {
	b, hook := createBank(t, DefaultBankConfig())
	a, err := b.Nominal()
	require.NoError(t, err)

	assert.InDelta(t, 0.0, a.LowVoltageDifference, 1e-9)
	assert.InDelta(t, 20.356, cmplx.Abs(a.Network1.Network.TotalCurrent()), 0.01)
	assert.InDelta(t, 0.8305, cmplx.Abs(a.Network1.Voltage.At(11, 0))/b.Config.ReferenceVoltage, 1e-3)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "networks analysed", entry.Message)
	assert.Equal(t, "bank", entry.Data["component"])
}

func TestNominalGrid(t *testing.T) {
	cfg := DefaultBankConfig()
	cfg.Parallel = 3
	b, _ := createBank(t, cfg)

	grid := b.NominalGrid()
	rows, cols := grid.Dims()
	assert.Equal(t, 12, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, b.NominalImpedance, grid.At(11, 2))

	// every call returns a fresh grid
	grid.Set(0, 0, phasor.Short)
	assert.Equal(t, b.NominalImpedance, b.NominalGrid().At(0, 0))
}

func TestAnalyseFaultedGrid(t *testing.T) {
	b, _ := createBank(t, DefaultBankConfig())
	faulted := b.NominalGrid()
	faulted.Set(0, 0, phasor.Short)

	a, err := b.Analyse(faulted, b.NominalGrid())
	require.NoError(t, err)
	assert.Greater(t, a.LowVoltageDifference, 1.0)
}

func TestSourcePhaseRotatesVoltage(t *testing.T) {
	cfg := DefaultBankConfig()
	bankA, _ := createBank(t, cfg)
	cfg.Phase = "B"
	bankB, _ := createBank(t, cfg)

	assert.InDelta(t, 0.0, cmplx.Phase(bankA.PhaseVoltage), 1e-12)
	assert.InDelta(t, -TwoPiOverThree, cmplx.Phase(bankB.PhaseVoltage), 1e-12)

	// the differential magnitude does not depend on the phase angle
	trajectoryA, err := bankA.Sweep(context.Background())
	require.NoError(t, err)
	trajectoryB, err := bankB.Sweep(context.Background())
	require.NoError(t, err)
	assert.InDeltaSlice(t, trajectoryA.Differentials(), trajectoryB.Differentials(), 1e-6)
}

func TestSourceVoltages(t *testing.T) {
	v := SourceVoltages(138, 0)
	sum := v[0] + v[1] + v[2]
	assert.InDelta(t, 0.0, cmplx.Abs(sum), 1e-6)
	for _, p := range v {
		assert.InDelta(t, 79674.3, cmplx.Abs(p), 0.1)
	}
	assert.InDelta(t, TwoPiOverThree, cmplx.Phase(v[2]), 1e-12)
}

func TestParsePhase(t *testing.T) {
	testCases := []struct {
		in       string
		expected Phase
	}{
		{"", PhaseA},
		{"a", PhaseA},
		{"B", PhaseB},
		{" c ", PhaseC},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			p, err := ParsePhase(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}

	_, err := ParsePhase("N")
	assert.Error(t, err)
	assert.Equal(t, "C", PhaseC.String())
}

func TestWrapAngle(t *testing.T) {
	assert.InDelta(t, -math.Pi/2, wrapAngle(3*math.Pi/2), 1e-12)
	assert.InDelta(t, math.Pi/2, wrapAngle(-3*math.Pi/2), 1e-12)
	assert.InDelta(t, math.Pi, wrapAngle(-math.Pi), 1e-12)
	assert.InDelta(t, 0.5, wrapAngle(0.5), 1e-12)
}

func TestBankSweep(t *testing.T) {
	b, hook := createBank(t, DefaultBankConfig())
	trajectory, err := b.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, trajectory.Points, 13)
	assert.InDelta(t, 0.8305, trajectory.Points[0].HealthyVoltagePU, 1e-3)
	assert.Greater(t, trajectory.Points[12].Differential, trajectory.Points[4].Differential)

	var started, steps int
	for _, entry := range hook.AllEntries() {
		switch entry.Message {
		case "sweep started":
			started++
			assert.Equal(t, trajectory.ID, entry.Data["run"])
		case "sweep step":
			steps++
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 13, steps)
	assert.Equal(t, "sweep finished", hook.LastEntry().Message)
}

func TestBankSweepCancelled(t *testing.T) {
	b, hook := createBank(t, DefaultBankConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestWithLoggerWritesToLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	b, err := NewBank(DefaultBankConfig(), WithLogger(logger))
	require.NoError(t, err)
	_, err = b.Nominal()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"networks analysed"`)
}

func BenchmarkBankSweep(b *testing.B) {
	bank, _ := createBank(b, DefaultBankConfig())
	for i := 0; i < b.N; i++ {
		if _, err := bank.Sweep(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
