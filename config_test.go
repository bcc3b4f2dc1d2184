package splitwye_test

import (
	"errors"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/synaptecltd/splitwye"
	"github.com/synaptecltd/splitwye/network"
	"github.com/synaptecltd/splitwye/phasor"
	"gopkg.in/yaml.v2"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestDefaultBankConfigIsValid(t *testing.T) {
	cfg := splitwye.DefaultBankConfig()
	assert.NilError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.Series)
	assert.Equal(t, 7967.4, cfg.ReferenceVoltage)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := splitwye.LoadConfig("testdata/bank.yaml")
	assert.NilError(t, err)

	expected := splitwye.DefaultBankConfig()
	expected.Phase = "B"
	expected.Parallel = 2
	expected.TargetRows = []int{0, 1, 2, 3}
	expected.TargetColumn = 1
	expected.Workers = 4
	assert.DeepEqual(t, expected, cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := splitwye.LoadConfig("testdata/missing.yaml")
	assert.Assert(t, err != nil)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := splitwye.ParseConfig([]byte("Series: 6\n"))
	assert.NilError(t, err)

	expected := splitwye.DefaultBankConfig()
	expected.Series = 6
	assert.DeepEqual(t, expected, cfg)
}

func TestParseConfigErrors(t *testing.T) {
	testCases := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"unknown field", "Voltage: 138\n", "Voltage"},
		{"zero frequency", "Frequency: 0\n", "Frequency"},
		{"negative capacitance", "CapacitanceUF: -1\n", "CapacitanceUF"},
		{"no series", "Series: 0\n", "Series"},
		{"row outside ladder", "TargetRows: [12]\n", "TargetRows"},
		{"column outside bank", "TargetColumn: 1\n", "TargetColumn"},
		{"unknown phase", "Phase: D\n", "phase"},
		{"not yaml", "Series: [\n", "config"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := splitwye.ParseConfig([]byte(tc.yaml))
			assert.ErrorContains(t, err, tc.contains)
		})
	}
}

func TestValidateWrapsSentinels(t *testing.T) {
	cfg := splitwye.DefaultBankConfig()
	cfg.Frequency = -50
	assert.Assert(t, errors.Is(cfg.Validate(), phasor.ErrNonPositiveFrequency))

	cfg = splitwye.DefaultBankConfig()
	cfg.SubParallel = 0
	assert.Assert(t, errors.Is(cfg.Validate(), network.ErrInvalidGeometry))

	cfg = splitwye.DefaultBankConfig()
	cfg.LineVoltageKV = 0
	assert.Assert(t, errors.Is(cfg.Validate(), splitwye.ErrNonPositiveVoltage))
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := splitwye.DecodeConfig(map[string]interface{}{
		"line_voltage_kv": "69",
		"series":          8,
		"Parallel":        "2",
		"target-rows":     "0, 2,4",
		"TargetColumn":    1,
		"phase":           "c",
	})
	assert.NilError(t, err)
	assert.Equal(t, 69.0, cfg.LineVoltageKV)
	assert.Equal(t, 8, cfg.Series)
	assert.Equal(t, 2, cfg.Parallel)
	assert.Check(t, is.DeepEqual([]int{0, 2, 4}, cfg.TargetRows))
	assert.Equal(t, 1, cfg.TargetColumn)
	assert.Equal(t, "c", cfg.Phase)
	assert.Equal(t, 60.0, cfg.Frequency)
}

func TestDecodeConfigErrors(t *testing.T) {
	_, err := splitwye.DecodeConfig(map[string]interface{}{"Voltage": 138})
	assert.ErrorContains(t, err, "Voltage")

	_, err = splitwye.DecodeConfig(map[string]interface{}{"TargetRows": "0,x"})
	assert.ErrorContains(t, err, "0,x")

	_, err = splitwye.DecodeConfig(map[string]interface{}{"Series": 2})
	assert.ErrorContains(t, err, "TargetRows")
}

// a bank embedded in a larger yaml document, as read by a generic config loader
func TestGetDecodeHook(t *testing.T) {
	type study struct {
		Name string
		Bank splitwye.BankConfig
	}

	var raw map[string]interface{}
	doc := []byte("Name: substation\nBank:\n  Series: 10\n  TargetRows: \"1,2\"\n")
	assert.NilError(t, yaml.Unmarshal(doc, &raw))
	raw["Bank"] = stringKeys(raw["Bank"])

	var s study
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: splitwye.GetDecodeHook(),
		Result:     &s,
	})
	assert.NilError(t, err)
	assert.NilError(t, decoder.Decode(raw))

	assert.Equal(t, "substation", s.Name)
	assert.Equal(t, 10, s.Bank.Series)
	assert.Check(t, is.DeepEqual([]int{1, 2}, s.Bank.TargetRows))
	assert.Equal(t, 8.16, s.Bank.CapacitanceUF)
}

// converts the map[interface{}]interface{} produced by yaml.v2 for nested mappings
func stringKeys(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, val := range v.(map[interface{}]interface{}) {
		out[k.(string)] = val
	}
	return out
}
