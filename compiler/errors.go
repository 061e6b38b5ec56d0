package compiler

import (
	"fmt"
	"strings"

	"github.com/hrflow/hrflow/allowlist"
)

// ConfigError is a deployment-level problem (missing credential identifiers
// and the like) discovered while compiling. It aborts the whole compile; no
// partial document is handed to the engine.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return "workflow configuration error: " + e.Message
}

// PolicyError aborts compilation because the allow-list denied one or more
// URLs. Denials stay enumerable so callers can store and display every
// violation, not just the first.
type PolicyError struct {
	Denials []allowlist.Denial
}

func (e PolicyError) Error() string {
	parts := make([]string, 0, len(e.Denials))
	for _, d := range e.Denials {
		parts = append(parts, fmt.Sprintf("node %d: %s (%s)", d.NodeId, d.URL, d.Reason))
	}
	return "blocked by allow-list: " + strings.Join(parts, "; ")
}
