package compiler

import (
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Expressions emitted into compiled documents. The leading "=" marks the
// value as an engine expression; the {{ }} body must be plain ES5 so every
// engine runtime version evaluates it.
const nowExpression = "={{ new Date().toISOString() }}"
const employeeEmailExpression = "={{ $json.employee.email }}"

func employeeFieldFallback(field string) string {
	return "={{ $json.body.employee ? $json.body.employee." + field + " : \"\" }}"
}

type paramPair struct {
	Name  string
	Value string
}

// parseKeyValueBlock understands the two formats authors write headers and
// bodies in: a JSON object string, or newline-delimited "key: value" lines.
// Parsing is forgiving - lines without a colon are dropped, invalid JSON
// falls back to line parsing. JSON keys are sorted so compilation stays
// deterministic; line order is the author's order.
func parseKeyValueBlock(raw string) []paramPair {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]paramPair, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, paramPair{Name: k, Value: stringifyValue(obj[k])})
			}
			return pairs
		}
	}
	var pairs []paramPair
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pairs = append(pairs, paramPair{Name: name, Value: strings.TrimSpace(value)})
	}
	return pairs
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func pairsToParameterList(pairs []paramPair) map[string]any {
	list := make([]any, 0, len(pairs))
	for _, p := range pairs {
		list = append(list, map[string]any{"name": p.Name, "value": p.Value})
	}
	return map[string]any{"parameter": list}
}
