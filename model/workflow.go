package model

import (
	"fmt"
	"strconv"
	"strings"
)

type NodeKind string

const KIND_TRIGGER NodeKind = "trigger"
const KIND_HTTP NodeKind = "http"
const KIND_EMAIL NodeKind = "email"
const KIND_DATABASE NodeKind = "database"
const KIND_CONDITION NodeKind = "condition"
const KIND_VARIABLE NodeKind = "variable"
const KIND_LOGGER NodeKind = "logger"
const KIND_DATETIME NodeKind = "datetime"
const KIND_CV_PARSE NodeKind = "cv_parse"

// ToNodeKind normalizes a stored kind string. Unknown kinds survive as-is;
// the compiler maps them to an inert pass-through node.
func ToNodeKind(kind string) NodeKind {
	return NodeKind(strings.ToLower(strings.TrimSpace(kind)))
}

func (k NodeKind) Known() bool {
	switch k {
	case KIND_TRIGGER, KIND_HTTP, KIND_EMAIL, KIND_DATABASE, KIND_CONDITION,
		KIND_VARIABLE, KIND_LOGGER, KIND_DATETIME, KIND_CV_PARSE:
		return true
	}
	return false
}

// EmployeeFields is the flattened employee payload contract: the trigger
// compiler, the webhook body normalizer and the default mail/SQL templates
// all agree on these field names.
var EmployeeFields = []string{"name", "email", "department", "role", "startDate", "managerEmail"}

// NodeConfig is the open, per-kind parameter map of a node. The schema
// varies by kind; values are scalars or nested maps authored in the builder
// UI and stored opaquely.
type NodeConfig map[string]any

func (c NodeConfig) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// GetString returns the value under key rendered as a string. Numeric and
// boolean scalars are formatted; absent or empty values return "".
func (c NodeConfig) GetString(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		if tv == float64(int64(tv)) {
			return strconv.FormatInt(int64(tv), 10)
		}
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int:
		return strconv.Itoa(tv)
	case int64:
		return strconv.FormatInt(tv, 10)
	case bool:
		return strconv.FormatBool(tv)
	default:
		return fmt.Sprintf("%v", tv)
	}
}

func (c NodeConfig) GetInt(key string) (int, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	switch tv := v.(type) {
	case int:
		return tv, true
	case int64:
		return int(tv), true
	case float64:
		return int(tv), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(tv))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

type WorkflowNode struct {
	Id     int64      `json:"id"`
	Kind   NodeKind   `json:"kind"`
	Name   string     `json:"name"`
	Config NodeConfig `json:"config"`
	PosX   float64    `json:"posX"`
	PosY   float64    `json:"posY"`
}

// DisplayName is the label part of the node's stable compiled name. It
// falls back to the kind when the author left the node unnamed.
func (n WorkflowNode) DisplayName() string {
	if strings.TrimSpace(n.Name) != "" {
		return n.Name
	}
	return string(n.Kind)
}

type WorkflowEdge struct {
	Id         int64          `json:"id"`
	FromNodeId int64          `json:"fromNodeId"`
	ToNodeId   int64          `json:"toNodeId"`
	Priority   int            `json:"priority"`
	Label      string         `json:"label"`
	Condition  map[string]any `json:"condition"`
}

// Workflow is the read model handed over by the graph store. EngineRef and
// WebhookPath are written back after the first successful remote upsert and
// reused on later runs.
type Workflow struct {
	Id          int64          `json:"id"`
	Name        string         `json:"name"`
	Active      bool           `json:"active"`
	EngineRef   string         `json:"engineRef"`
	WebhookPath string         `json:"webhookPath"`
	Nodes       []WorkflowNode `json:"nodes"`
	Edges       []WorkflowEdge `json:"edges"`
}
