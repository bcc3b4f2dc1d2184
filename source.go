package splitwye

import (
	"fmt"
	"math"
	"strings"

	"github.com/synaptecltd/splitwye/phasor"
)

const TwoPiOverThree = 2 * math.Pi / 3

// Phase of the three-phase source that feeds a bank.
type Phase int

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
)

func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Parses "A", "B" or "C", in either case. An empty string is phase A.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "A":
		return PhaseA, nil
	case "B":
		return PhaseB, nil
	case "C":
		return PhaseC, nil
	}
	return 0, fmt.Errorf("unknown phase %q, expected A, B or C", s)
}

// Returns the phase-to-neutral voltage phasor of phase p of a balanced positive sequence source
// with line voltage lineKV in kV and phase A at offset radians.
func SourceVoltage(lineKV, offset float64, p Phase) complex128 {
	return phasor.PhaseVoltage(lineKV, wrapAngle(offset-float64(p)*TwoPiOverThree))
}

// Returns the phasors of all three phases, A first.
func SourceVoltages(lineKV, offset float64) [3]complex128 {
	return [3]complex128{
		SourceVoltage(lineKV, offset, PhaseA),
		SourceVoltage(lineKV, offset, PhaseB),
		SourceVoltage(lineKV, offset, PhaseC),
	}
}

// wrapAngle maps a to (-pi, pi].
func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
