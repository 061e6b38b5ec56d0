// Package service drives exactly one execution of a workflow through the
// external engine: compile, upsert, activate, invoke, classify, record.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hrflow/hrflow/audit"
	"github.com/hrflow/hrflow/compiler"
	"github.com/hrflow/hrflow/cvparser"
	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/graph"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/persistence"
	"go.uber.org/zap"
)

type WorkflowExecutionService struct {
	workflowStorage  persistence.WorkflowStorage
	executionStorage persistence.ExecutionStorage
	compiler         *compiler.Compiler
	engineClient     engine.Client
	cvClient         cvparser.Client
}

func NewWorkflowExecutionService(
	workflowStorage persistence.WorkflowStorage,
	executionStorage persistence.ExecutionStorage,
	comp *compiler.Compiler,
	engineClient engine.Client,
	cvClient cvparser.Client,
) *WorkflowExecutionService {
	return &WorkflowExecutionService{
		workflowStorage:  workflowStorage,
		executionStorage: executionStorage,
		compiler:         comp,
		engineClient:     engineClient,
		cvClient:         cvClient,
	}
}

// ExecuteWorkflow runs one synchronous execution. Precondition failures
// surface as an error before any record exists. Once the record is created
// every outcome, including compile and policy failures, lands on it as a
// terminal status and the materialized result is returned without error.
func (s *WorkflowExecutionService) ExecuteWorkflow(ctx context.Context, workflowId int64, request model.ExecutionRunRequest) (*model.ExecutionResult, error) {
	wf, err := s.loadForExecution(workflowId)
	if err != nil {
		return nil, err
	}

	triggerType := strings.TrimSpace(request.TriggerType)
	if triggerType == "" {
		triggerType = "manual"
	}
	rec := &model.ExecutionRecord{
		Id:          uuid.NewString(),
		WorkflowId:  workflowId,
		TriggerType: triggerType,
		Status:      model.EXECUTION_RUNNING,
		RunContext: map[string]any{
			"input":  request.Input,
			"engine": map[string]any{},
		},
		StartedAt: time.Now(),
	}
	if err := s.executionStorage.CreateExecution(rec); err != nil {
		return nil, err
	}
	audit.RecordExecutionStarted(wf.Name, wf.Id, rec.Id, triggerType)
	logger.Info("execution started",
		zap.String("executionId", rec.Id),
		zap.Int64("workflowId", wf.Id),
		zap.String("trigger", triggerType))

	lc := newLifecycle()
	body := normalizeTriggerBody(wf, request.Input)
	s.preParseCVs(ctx, wf, body, rec)

	webhookPath := wf.WebhookPath
	if webhookPath == "" {
		webhookPath = fmt.Sprintf("hrflow-%d-%s", wf.Id, uuid.NewString())
		wf.WebhookPath = webhookPath
	}

	doc, err := s.compiler.Compile(wf)
	if err != nil {
		return s.finish(wf, rec, lc, classify(err), err.Error(), nil), nil
	}

	upsert, err := s.engineClient.UpsertDocument(ctx, doc)
	if err != nil {
		return s.finish(wf, rec, lc, classify(err), err.Error(), nil), nil
	}
	operation := "updated"
	if upsert.Created {
		operation = "created"
	}
	audit.RecordEngineSync(wf.Name, wf.Id, upsert.RemoteId, operation)
	if err := s.workflowStorage.SaveEngineRef(wf.Id, upsert.RemoteId, webhookPath); err != nil {
		return s.finish(wf, rec, lc, triggerFail, err.Error(), nil), nil
	}
	wf.EngineRef = upsert.RemoteId
	engineMeta := map[string]any{
		"remoteId":    upsert.RemoteId,
		"webhookPath": webhookPath,
	}

	if err := s.engineClient.Activate(ctx, upsert.RemoteId); err != nil {
		return s.finish(wf, rec, lc, classify(err), err.Error(), engineMeta), nil
	}
	resp, err := s.engineClient.InvokeWebhook(ctx, webhookPath, body)
	if err != nil {
		return s.finish(wf, rec, lc, classify(err), err.Error(), engineMeta), nil
	}
	engineMeta["webhookStatus"] = resp.StatusCode
	return s.finish(wf, rec, lc, triggerComplete, "", engineMeta), nil
}

func (s *WorkflowExecutionService) loadForExecution(workflowId int64) (*model.Workflow, error) {
	wf, err := s.workflowStorage.GetWorkflow(workflowId)
	if err != nil {
		var notFound persistence.NotFoundError
		if errors.As(err, &notFound) {
			return nil, PreconditionError{Reason: PRECONDITION_NOT_FOUND, WorkflowId: workflowId}
		}
		return nil, err
	}
	if !wf.Active {
		return nil, PreconditionError{Reason: PRECONDITION_INACTIVE, WorkflowId: workflowId}
	}
	if len(wf.Nodes) == 0 {
		return nil, PreconditionError{Reason: PRECONDITION_EMPTY, WorkflowId: workflowId}
	}
	return wf, nil
}

// finish stamps the terminal state on the record, persists it, audits it,
// and materializes the flat per-node step list. engineMeta amends the
// record's runContext when the engine was actually reached.
func (s *WorkflowExecutionService) finish(wf *model.Workflow, rec *model.ExecutionRecord, lc *lifecycle, t trigger, errMsg string, engineMeta map[string]any) *model.ExecutionResult {
	status := lc.fire(t, rec.Id)
	now := time.Now()
	rec.Status = status
	rec.ErrorMessage = errMsg
	rec.FinishedAt = now
	rec.DurationMillis = now.Sub(rec.StartedAt).Milliseconds()
	if engineMeta != nil {
		rec.RunContext["engine"] = engineMeta
	}
	if err := s.executionStorage.FinishExecution(rec); err != nil {
		logger.Error("failed to persist terminal execution state", zap.String("executionId", rec.Id), zap.Error(err))
	}
	audit.RecordExecutionFinished(wf.Name, wf.Id, rec.Id, string(status), errMsg)

	steps := materializeSteps(wf, rec)
	if err := s.executionStorage.SaveSteps(rec.Id, steps); err != nil {
		logger.Error("failed to persist execution steps", zap.String("executionId", rec.Id), zap.Error(err))
	}
	logger.Info("execution finished",
		zap.String("executionId", rec.Id),
		zap.String("status", string(status)),
		zap.Int64("durationMs", rec.DurationMillis))
	return &model.ExecutionResult{
		ExecutionId: rec.Id,
		Status:      status,
		Error:       errMsg,
		Steps:       steps,
	}
}

// materializeSteps reconstructs one step per node in deterministic graph
// order: all completed when the run succeeded, all skipped otherwise. The
// engine does not report per-node telemetry, so snapshots stay empty and the
// narrative is synthetic.
func materializeSteps(wf *model.Workflow, rec *model.ExecutionRecord) []model.ExecutionStep {
	stepStatus := model.STEP_SKIPPED
	if rec.Status == model.EXECUTION_COMPLETED {
		stepStatus = model.STEP_COMPLETED
	}
	ordered := graph.Order(wf.Nodes, wf.Edges)
	steps := make([]model.ExecutionStep, 0, len(ordered))
	for _, node := range ordered {
		steps = append(steps, model.ExecutionStep{
			Id:          uuid.NewString(),
			ExecutionId: rec.Id,
			NodeId:      node.Id,
			Status:      stepStatus,
			Input:       map[string]any{},
			Output:      map[string]any{},
			Logs:        stepNarrative(node, rec.Status),
			StartedAt:   rec.StartedAt,
			FinishedAt:  rec.FinishedAt,
		})
	}
	return steps
}

func stepNarrative(node model.WorkflowNode, status model.ExecutionStatus) string {
	if status == model.EXECUTION_COMPLETED {
		return fmt.Sprintf("%s node %q completed in engine run", node.Kind, node.DisplayName())
	}
	return fmt.Sprintf("%s node %q skipped (%s)", node.Kind, node.DisplayName(), status)
}

func (s *WorkflowExecutionService) GetExecution(executionId string) (*model.ExecutionRecord, error) {
	return s.executionStorage.GetExecution(executionId)
}

func (s *WorkflowExecutionService) GetExecutionSteps(executionId string) ([]model.ExecutionStep, error) {
	return s.executionStorage.GetSteps(executionId)
}

// CompileWorkflow is the dry run behind the compile-preview endpoint: no
// execution record, no engine calls. Inactive workflows may be previewed.
func (s *WorkflowExecutionService) CompileWorkflow(workflowId int64) (*engine.Document, error) {
	wf, err := s.workflowStorage.GetWorkflow(workflowId)
	if err != nil {
		var notFound persistence.NotFoundError
		if errors.As(err, &notFound) {
			return nil, PreconditionError{Reason: PRECONDITION_NOT_FOUND, WorkflowId: workflowId}
		}
		return nil, err
	}
	return s.compiler.Compile(wf)
}
