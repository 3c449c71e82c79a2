package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// toFloat coerces an API scalar to float64. Anything missing or
// non-numeric is 0.
func toFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// toInt coerces an API scalar to int64. Fractional values, including
// strings such as "3.7", are truncated toward zero rather than rejected.
func toInt(v any) int64 {
	return int64(toFloat(v))
}

// toString renders ids that may arrive as strings or numbers.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// roundHalfEven rounds x to places decimals, ties to even.
func roundHalfEven(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}

// action is one typed entry of an action list field.
type action struct {
	Type  string
	Value any
}

// actions reads a list of {"action_type", "value"} entries. Entries of the
// wrong shape are skipped.
func actions(v any) []action {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]action, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		t, _ := m["action_type"].(string)
		out = append(out, action{Type: t, Value: m["value"]})
	}
	return out
}

// sumActions adds the values of every entry of type t.
func sumActions(v any, t string) int64 {
	var total float64
	for _, a := range actions(v) {
		if a.Type == t {
			total += toFloat(a.Value)
		}
	}
	return int64(total)
}
