package persistence

import (
	"fmt"

	"github.com/hrflow/hrflow/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// WorkflowStorage is the read side of the graph store, the ingest call the
// editing collaborator pushes definitions through, and the single write-back
// the orchestrator performs after a successful remote upsert. The execution
// core itself only ever reads and saves the engine ref.
type WorkflowStorage interface {
	SaveWorkflow(wf model.Workflow) error
	GetWorkflow(workflowId int64) (*model.Workflow, error)
	GetNodes(workflowId int64) ([]model.WorkflowNode, error)
	GetEdges(workflowId int64) ([]model.WorkflowEdge, error)
	SaveEngineRef(workflowId int64, engineRef string, webhookPath string) error
}

// ExecutionStorage persists execution records and their step rows. An
// execution is created once in running state and finished once with a
// terminal status; steps are written in a single batch afterwards.
type ExecutionStorage interface {
	CreateExecution(rec *model.ExecutionRecord) error
	FinishExecution(rec *model.ExecutionRecord) error
	GetExecution(executionId string) (*model.ExecutionRecord, error)
	SaveSteps(executionId string, steps []model.ExecutionStep) error
	GetSteps(executionId string) ([]model.ExecutionStep, error)
}

// DomainStorage holds the outbound-URL allow-list rules. An empty list
// means open mode: every URL is admitted. The validator only lists;
// AddDomain serves the administrative surface.
type DomainStorage interface {
	ListDomains() ([]string, error)
	AddDomain(domain string) error
}
