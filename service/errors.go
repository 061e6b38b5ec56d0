package service

import "fmt"

type PreconditionReason string

const PRECONDITION_NOT_FOUND PreconditionReason = "workflow not found"
const PRECONDITION_INACTIVE PreconditionReason = "workflow is not active"
const PRECONDITION_EMPTY PreconditionReason = "workflow has no nodes"

// PreconditionError rejects an execution request before any execution
// record exists. Callers distinguish the reasons to pick a response code.
type PreconditionError struct {
	Reason     PreconditionReason
	WorkflowId int64
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("workflow %d: %s", e.WorkflowId, e.Reason)
}
