package splitwye

import (
	"errors"
	"fmt"
	"os"

	"github.com/synaptecltd/splitwye/network"
	"github.com/synaptecltd/splitwye/phasor"
	"gopkg.in/yaml.v2"
)

var ErrNonPositiveVoltage = errors.New("splitwye: voltage must be greater than 0")

// BankConfig is the complete parameter set of a split-wye fuseless bank study.
type BankConfig struct {
	Frequency     float64 `yaml:"Frequency"`     // system frequency in Hz
	LineVoltageKV float64 `yaml:"LineVoltageKV"` // line-to-line voltage in kV
	PhaseOffset   float64 `yaml:"PhaseOffset"`   // angle of phase A in radians, default 0
	Phase         string  `yaml:"Phase"`         // phase feeding the bank: A, B or C, default A

	Series                  int     `yaml:"Series"`                  // series positions per network
	Parallel                int     `yaml:"Parallel"`                // parallel branches per network
	CapacitanceUF           float64 `yaml:"CapacitanceUF"`           // capacitance of each element in uF
	LowVoltageCapacitanceUF float64 `yaml:"LowVoltageCapacitanceUF"` // capacitance of the low voltage tap in uF

	SubSeries        int     `yaml:"SubSeries"`        // series rows of sub-capacitors inside each element
	SubParallel      int     `yaml:"SubParallel"`      // parallel sub-capacitors per row
	ReferenceVoltage float64 `yaml:"ReferenceVoltage"` // rated element voltage in V, divisor for per-unit values

	TargetRows   []int `yaml:"TargetRows,flow"` // series positions faulted in turn by the sweep, empty for 0, 1, 2
	TargetColumn int   `yaml:"TargetColumn"`    // branch holding the faulted elements
	Workers      int   `yaml:"Workers"`         // concurrent sweep step analyses, 0 for one per CPU
}

// Returns the 138 kV, 60 Hz bank with 12 series elements of 8.16 uF, each built from 4 x 9
// sub-capacitors, over a 200 uF tap.
func DefaultBankConfig() BankConfig {
	return BankConfig{
		Frequency:               60,
		LineVoltageKV:           138,
		Phase:                   "A",
		Series:                  12,
		Parallel:                1,
		CapacitanceUF:           8.16,
		LowVoltageCapacitanceUF: 200,
		SubSeries:               4,
		SubParallel:             9,
		ReferenceVoltage:        7967.4,
	}
}

// Validate checks every field for physically meaningful values.
func (c *BankConfig) Validate() error {
	if c.Frequency <= 0 {
		return fmt.Errorf("Frequency %v: %w", c.Frequency, phasor.ErrNonPositiveFrequency)
	}
	if c.LineVoltageKV <= 0 {
		return fmt.Errorf("LineVoltageKV %v: %w", c.LineVoltageKV, ErrNonPositiveVoltage)
	}
	if _, err := ParsePhase(c.Phase); err != nil {
		return err
	}
	if c.Series < 1 || c.Parallel < 1 {
		return fmt.Errorf("Series %d, Parallel %d: %w", c.Series, c.Parallel, network.ErrInvalidGeometry)
	}
	if c.SubSeries < 1 || c.SubParallel < 1 {
		return fmt.Errorf("SubSeries %d, SubParallel %d: %w", c.SubSeries, c.SubParallel, network.ErrInvalidGeometry)
	}
	if c.CapacitanceUF <= 0 {
		return fmt.Errorf("CapacitanceUF %v: %w", c.CapacitanceUF, phasor.ErrNonPositiveCapacitance)
	}
	if c.LowVoltageCapacitanceUF <= 0 {
		return fmt.Errorf("LowVoltageCapacitanceUF %v: %w", c.LowVoltageCapacitanceUF, phasor.ErrNonPositiveCapacitance)
	}
	if c.ReferenceVoltage <= 0 {
		return fmt.Errorf("ReferenceVoltage %v: %w", c.ReferenceVoltage, ErrNonPositiveVoltage)
	}
	if c.TargetColumn < 0 || c.TargetColumn >= c.Parallel {
		return fmt.Errorf("TargetColumn %d outside %d branches: %w", c.TargetColumn, c.Parallel, network.ErrInvalidGeometry)
	}
	for _, row := range c.targetRows() {
		if row < 0 || row >= c.Series {
			return fmt.Errorf("TargetRows entry %d outside %d series positions: %w", row, c.Series, network.ErrInvalidGeometry)
		}
	}
	if c.Workers < 0 {
		return errors.New("Workers must be greater than or equal to 0")
	}
	return nil
}

func (c *BankConfig) targetRows() []int {
	if len(c.TargetRows) == 0 {
		return []int{0, 1, 2}
	}
	return c.TargetRows
}

// Fills a BankConfig from yaml, starting from DefaultBankConfig for fields that are absent,
// and validates the result.
func (c *BankConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain BankConfig
	cfg := DefaultBankConfig()
	if err := unmarshal((*plain)(&cfg)); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Reads a yaml BankConfig from path. Unknown fields are rejected.
func LoadConfig(path string) (BankConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BankConfig{}, err
	}
	return ParseConfig(data)
}

// Parses a yaml BankConfig. Unknown fields are rejected.
func ParseConfig(data []byte) (BankConfig, error) {
	var cfg BankConfig
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return BankConfig{}, fmt.Errorf("splitwye: config: %w", err)
	}
	return cfg, nil
}
