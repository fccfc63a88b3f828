package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeOptions decodes a free-form options map into a typed options struct.
// Strings are weakly converted, so "5s" and "a,b" decode into durations and slices.
func DecodeOptions(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create options decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("failed to decode options: %w", err)
	}
	return nil
}
