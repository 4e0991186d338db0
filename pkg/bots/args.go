package bots

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// IntArg reads an integer argument decoded from JSON, accepting whole
// floats and numeric strings.
func IntArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%s: unexpected type %T", key, v)
	}
}

// DecodeArgs copies call arguments into the struct pointed to by out,
// matching fields by their json tags. Numeric strings and whole floats
// are converted to the field type. Keys without a field are ignored.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
