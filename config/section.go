package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/junioryono/servreg"
)

var _ servreg.SectionBinder = (*Source)(nil)

// BindSection decodes the section called name into out and validates it.
// Keys match field tags case-insensitively. Values missing from the section
// keep what out already holds, so callers can pre-fill defaults.
func (s *Source) BindSection(name string, out any) error {
	// AllSettings merges env, file and defaults; viper keys are lower case.
	settings, _ := s.v.AllSettings()[strings.ToLower(name)].(map[string]any)
	if settings == nil {
		settings = map[string]any{}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHooks(),
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("section %s: %w", name, err)
	}

	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("section %s: %w", name, err)
	}

	if reflect.Indirect(reflect.ValueOf(out)).Kind() == reflect.Struct {
		if err := validate.Struct(out); err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}
	}

	return nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts "30s"-style strings and raw numbers to
// time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
