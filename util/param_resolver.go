package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile(`{(.*?)}`)

// ResolveString substitutes every {$.path} token in s with the value found
// at that jsonpath inside data. Tokens that do not resolve are replaced by
// the empty string; non-token text passes through untouched.
func ResolveString(data map[string]any, s string) string {
	tokens := tokenPattern.FindAllString(s, -1)
	if len(tokens) == 0 {
		return s
	}
	out := s
	for _, token := range tokens {
		tmatch := strings.ReplaceAll(token, "{", "")
		tmatch = strings.ReplaceAll(tmatch, "}", "")
		if !strings.HasPrefix(tmatch, "$") {
			continue
		}
		value, err := jsonpath.JsonPathLookup(data, tmatch)
		if err != nil {
			out = strings.ReplaceAll(out, token, "")
			continue
		}
		out = strings.ReplaceAll(out, token, fmt.Sprintf("%v", value))
	}
	return out
}

// ResolveParams walks params and substitutes {$.path} tokens in every string
// value, descending into nested maps and lists. Non-string scalars are
// copied as-is. The input map is not mutated.
func ResolveParams(data map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any, len(params))
	for k, v := range params {
		output[k] = resolveValue(data, v)
	}
	return output
}

func resolveValue(data map[string]any, v any) any {
	switch tv := v.(type) {
	case string:
		return ResolveString(data, tv)
	case map[string]any:
		return ResolveParams(data, tv)
	case []any:
		out := make([]any, 0, len(tv))
		for _, item := range tv {
			out = append(out, resolveValue(data, item))
		}
		return out
	default:
		return v
	}
}

// LookupPath returns the value at a $-rooted jsonpath inside data, or nil
// when the path does not resolve.
func LookupPath(data map[string]any, path string) any {
	value, err := jsonpath.JsonPathLookup(data, path)
	if err != nil {
		return nil
	}
	return value
}
