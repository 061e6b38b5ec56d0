package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveString(t *testing.T) {
	data := map[string]any{
		"employee": map[string]any{"name": "Ada", "email": "ada@corp.test"},
		"count":    float64(2),
	}

	require.Equal(t, "hello Ada", ResolveString(data, "hello {$.employee.name}"))
	require.Equal(t, "ada@corp.test", ResolveString(data, "{$.employee.email}"))
	require.Equal(t, "missing: ", ResolveString(data, "missing: {$.employee.phone}"))
	require.Equal(t, "plain text", ResolveString(data, "plain text"))
	require.Equal(t, "{not a path}", ResolveString(data, "{not a path}"))
	require.Equal(t, "n=2", ResolveString(data, "n={$.count}"))
}

func TestResolveParams(t *testing.T) {
	data := map[string]any{"order": map[string]any{"id": "o-1"}}
	params := map[string]any{
		"url":  "https://api.test/orders/{$.order.id}",
		"deep": map[string]any{"ref": "{$.order.id}"},
		"list": []any{"{$.order.id}", float64(7)},
		"n":    42,
	}

	out := ResolveParams(data, params)

	require.Equal(t, "https://api.test/orders/o-1", out["url"])
	require.Equal(t, map[string]any{"ref": "o-1"}, out["deep"])
	require.Equal(t, []any{"o-1", float64(7)}, out["list"])
	require.Equal(t, 42, out["n"])
	require.Equal(t, "https://api.test/orders/{$.order.id}", params["url"])
}

func TestLookupPath(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": "c"}}

	require.Equal(t, "c", LookupPath(data, "$.a.b"))
	require.Nil(t, LookupPath(data, "$.a.missing"))
}
