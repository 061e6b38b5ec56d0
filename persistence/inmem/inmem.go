// Package inmem backs the persistence contracts with process-local caches.
// It serves tests and single-node evaluation setups; production deployments
// use the redis implementations.
package inmem

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/persistence"
	c "github.com/patrickmn/go-cache"
)

var _ persistence.WorkflowStorage = new(InMemWorkflowStorage)

type InMemWorkflowStorage struct {
	mu        sync.Mutex
	workflows *c.Cache
}

func NewInMemWorkflowStorage() *InMemWorkflowStorage {
	return &InMemWorkflowStorage{
		workflows: c.New(c.NoExpiration, 0),
	}
}

func workflowCacheKey(workflowId int64) string {
	return fmt.Sprintf("%d", workflowId)
}

func (s *InMemWorkflowStorage) SaveWorkflow(wf model.Workflow) error {
	s.workflows.Set(workflowCacheKey(wf.Id), wf, c.NoExpiration)
	return nil
}

func (s *InMemWorkflowStorage) GetWorkflow(workflowId int64) (*model.Workflow, error) {
	v, found := s.workflows.Get(workflowCacheKey(workflowId))
	if !found {
		return nil, persistence.NotFoundError{Kind: "workflow", Key: workflowCacheKey(workflowId)}
	}
	wf := v.(model.Workflow)
	return &wf, nil
}

func (s *InMemWorkflowStorage) GetNodes(workflowId int64) ([]model.WorkflowNode, error) {
	wf, err := s.GetWorkflow(workflowId)
	if err != nil {
		return nil, err
	}
	return wf.Nodes, nil
}

func (s *InMemWorkflowStorage) GetEdges(workflowId int64) ([]model.WorkflowEdge, error) {
	wf, err := s.GetWorkflow(workflowId)
	if err != nil {
		return nil, err
	}
	return wf.Edges, nil
}

func (s *InMemWorkflowStorage) SaveEngineRef(workflowId int64, engineRef string, webhookPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.GetWorkflow(workflowId)
	if err != nil {
		return err
	}
	wf.EngineRef = engineRef
	wf.WebhookPath = webhookPath
	s.workflows.Set(workflowCacheKey(workflowId), *wf, c.NoExpiration)
	return nil
}

var _ persistence.ExecutionStorage = new(InMemExecutionStorage)

type InMemExecutionStorage struct {
	executions *c.Cache
	steps      *c.Cache
}

func NewInMemExecutionStorage() *InMemExecutionStorage {
	return &InMemExecutionStorage{
		executions: c.New(c.NoExpiration, 0),
		steps:      c.New(c.NoExpiration, 0),
	}
}

func (s *InMemExecutionStorage) CreateExecution(rec *model.ExecutionRecord) error {
	s.executions.Set(rec.Id, *rec, c.NoExpiration)
	return nil
}

func (s *InMemExecutionStorage) FinishExecution(rec *model.ExecutionRecord) error {
	s.executions.Set(rec.Id, *rec, c.NoExpiration)
	return nil
}

func (s *InMemExecutionStorage) GetExecution(executionId string) (*model.ExecutionRecord, error) {
	v, found := s.executions.Get(executionId)
	if !found {
		return nil, persistence.NotFoundError{Kind: "execution", Key: executionId}
	}
	rec := v.(model.ExecutionRecord)
	return &rec, nil
}

func (s *InMemExecutionStorage) SaveSteps(executionId string, steps []model.ExecutionStep) error {
	s.steps.Set(executionId, steps, c.NoExpiration)
	return nil
}

func (s *InMemExecutionStorage) GetSteps(executionId string) ([]model.ExecutionStep, error) {
	v, found := s.steps.Get(executionId)
	if !found {
		return []model.ExecutionStep{}, nil
	}
	return v.([]model.ExecutionStep), nil
}

// ListExecutions returns every stored record sorted by start time, newest
// first.
func (s *InMemExecutionStorage) ListExecutions() []model.ExecutionRecord {
	items := s.executions.Items()
	out := make([]model.ExecutionRecord, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(model.ExecutionRecord))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

var _ persistence.DomainStorage = new(InMemDomainStorage)

type InMemDomainStorage struct {
	mu      sync.Mutex
	domains []string
}

func NewInMemDomainStorage(domains ...string) *InMemDomainStorage {
	return &InMemDomainStorage{domains: domains}
}

func (s *InMemDomainStorage) ListDomains() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.domains))
	copy(out, s.domains)
	return out, nil
}

func (s *InMemDomainStorage) AddDomain(domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = append(s.domains, domain)
	return nil
}
