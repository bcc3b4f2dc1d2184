package splitwye

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Decodes a generic map, such as one produced by a yaml or json parser or by spf13/viper, into a
// validated BankConfig. Absent fields keep their DefaultBankConfig values and unknown fields are
// rejected. Keys match field names ignoring case, underscores and dashes, so "line_voltage_kv"
// fills LineVoltageKV. TargetRows may be given as a comma separated string.
func DecodeConfig(m map[string]interface{}) (BankConfig, error) {
	cfg := DefaultBankConfig()
	if err := decodeInto(&cfg, m); err != nil {
		return BankConfig{}, fmt.Errorf("splitwye: config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return BankConfig{}, err
	}
	return cfg, nil
}

// Returns a decodeHook function that builds a BankConfig with DecodeConfig wherever one is
// found inside a larger structure decoded with mapstructure.
func GetDecodeHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(BankConfig{}) || f == t {
			return data, nil
		}
		m, ok := data.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected map[string]interface{}, got %T", data)
		}
		return DecodeConfig(m)
	}
}

func decodeInto(cfg *BankConfig, m map[string]interface{}) error {
	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToIntSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(normaliseKeys(m))
}

// normaliseKeys drops underscores and dashes from the keys of m. mapstructure already
// matches field names without regard to case.
func normaliseKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	replacer := strings.NewReplacer("_", "", "-", "")
	for k, v := range m {
		out[replacer.Replace(k)] = v
	}
	return out
}

// Returns a DecodeHookFunc that splits a string such as "0, 1, 2" into an int slice.
func stringToIntSliceHookFunc(sep string) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]int{}) {
			return data, nil
		}
		raw := strings.TrimSpace(reflect.ValueOf(data).String())
		if raw == "" {
			return []int{}, nil
		}
		fields := strings.Split(raw, sep)
		values := make([]int, len(fields))
		for i, field := range fields {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as a list of integers: %w", raw, err)
			}
			values[i] = v
		}
		return values, nil
	}
}
