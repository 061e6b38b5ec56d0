package model

import "time"

type ExecutionStatus string

const EXECUTION_RUNNING ExecutionStatus = "running"
const EXECUTION_COMPLETED ExecutionStatus = "completed"
const EXECUTION_ENGINE_ERROR ExecutionStatus = "engine_error"
const EXECUTION_FAILED ExecutionStatus = "failed"

// Terminal reports whether no further status transition is allowed.
func (s ExecutionStatus) Terminal() bool {
	return s == EXECUTION_COMPLETED || s == EXECUTION_ENGINE_ERROR || s == EXECUTION_FAILED
}

type StepStatus string

const STEP_COMPLETED StepStatus = "completed"
const STEP_SKIPPED StepStatus = "skipped"

// ExecutionRecord is created in running state before the engine is touched
// and mutated exactly once to a terminal state.
type ExecutionRecord struct {
	Id             string          `json:"id"`
	WorkflowId     int64           `json:"workflowId"`
	TriggerType    string          `json:"triggerType"`
	Status         ExecutionStatus `json:"status"`
	RunContext     map[string]any  `json:"runContext"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	DurationMillis int64           `json:"durationMs"`
	ErrorMessage   string          `json:"errorMessage"`
}

// ExecutionStep is the flat per-node provenance row materialized in bulk
// once the execution reaches a terminal state. One step exists per node in
// the workflow regardless of whether the engine actually exercised it.
type ExecutionStep struct {
	Id          string         `json:"id"`
	ExecutionId string         `json:"executionId"`
	NodeId      int64          `json:"nodeId"`
	Status      StepStatus     `json:"status"`
	Input       map[string]any `json:"inputSnapshot"`
	Output      map[string]any `json:"outputSnapshot"`
	Logs        string         `json:"logs"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
}

type ExecutionRunRequest struct {
	TriggerType string         `json:"triggerType"`
	Input       map[string]any `json:"input"`
}

type ExecutionResult struct {
	ExecutionId string          `json:"executionId"`
	Status      ExecutionStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	Steps       []ExecutionStep `json:"steps,omitempty"`
}
