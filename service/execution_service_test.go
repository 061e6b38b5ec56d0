package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hrflow/hrflow/allowlist"
	"github.com/hrflow/hrflow/compiler"
	"github.com/hrflow/hrflow/config"
	"github.com/hrflow/hrflow/cvparser"
	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/persistence/inmem"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	upsertErr    error
	activateErr  error
	invokeErr    error
	remoteId     string
	created      bool
	upserts      int
	activations  int
	lastDoc      *engine.Document
	webhookPaths []string
	bodies       []map[string]any
}

func (f *fakeEngine) UpsertDocument(ctx context.Context, doc *engine.Document) (*engine.UpsertResult, error) {
	f.upserts++
	f.lastDoc = doc
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &engine.UpsertResult{RemoteId: f.remoteId, Created: f.created}, nil
}

func (f *fakeEngine) Activate(ctx context.Context, remoteId string) error {
	f.activations++
	return f.activateErr
}

func (f *fakeEngine) InvokeWebhook(ctx context.Context, webhookPath string, body map[string]any) (*engine.WebhookResponse, error) {
	f.webhookPaths = append(f.webhookPaths, webhookPath)
	f.bodies = append(f.bodies, body)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return &engine.WebhookResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
}

type fakeCvParser struct {
	err   error
	data  cvparser.ParsedCV
	calls []string
}

func (f *fakeCvParser) ParseURL(ctx context.Context, sourceUrl string) (*cvparser.ParseResponse, error) {
	f.calls = append(f.calls, sourceUrl)
	if f.err != nil {
		return nil, f.err
	}
	return &cvparser.ParseResponse{Success: true, Source: "url", Data: f.data}, nil
}

func (f *fakeCvParser) Health(ctx context.Context) error { return nil }

type fixture struct {
	workflows  *inmem.InMemWorkflowStorage
	executions *inmem.InMemExecutionStorage
	engine     *fakeEngine
	cv         *fakeCvParser
	service    *WorkflowExecutionService
}

func testCreds() config.CredentialsConfig {
	return config.CredentialsConfig{
		SmtpCredentialId:   "cred-smtp-1",
		SmtpCredentialName: "HR SMTP",
		DbCredentialId:     "cred-db-1",
		DbCredentialName:   "HR Postgres",
		DefaultSenderEmail: "hr@corp.test",
	}
}

func newFixture(domains ...string) *fixture {
	workflows := inmem.NewInMemWorkflowStorage()
	executions := inmem.NewInMemExecutionStorage()
	eng := &fakeEngine{remoteId: "wf-100", created: true}
	cv := &fakeCvParser{data: cvparser.ParsedCV{Name: "Ada Lovelace", Email: "ada@corp.test"}}
	comp := compiler.New(allowlist.NewValidator(allowlist.StaticDomainSource(domains)), testCreds())
	return &fixture{
		workflows:  workflows,
		executions: executions,
		engine:     eng,
		cv:         cv,
		service:    NewWorkflowExecutionService(workflows, executions, comp, eng, cv),
	}
}

func onboardingWorkflow() model.Workflow {
	return model.Workflow{
		Id:     42,
		Name:   "Onboarding",
		Active: true,
		Nodes: []model.WorkflowNode{
			{Id: 1, Kind: model.KIND_TRIGGER, Name: "New Hire"},
			{Id: 2, Kind: model.KIND_EMAIL, Name: "Welcome Mail"},
			{Id: 3, Kind: model.KIND_DATABASE, Name: "Provision Account"},
		},
		Edges: []model.WorkflowEdge{
			{Id: 10, FromNodeId: 1, ToNodeId: 2},
			{Id: 11, FromNodeId: 2, ToNodeId: 3},
		},
	}
}

func TestExecuteWorkflow(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"completed run materializes completed steps":  testRunCompletes,
		"engine failure lands engine_error":           testEngineFailure,
		"upsert transport failure is an engine error": testUpsertFailure,
		"activation failure is an engine error":       testActivateFailure,
		"policy denial fails the run":                 testPolicyDenial,
		"webhook path survives across runs":           testWebhookPathReuse,
		"cv parse failure is not fatal":               testCvFailureTolerated,
		"cv results land in run context":              testCvResultsRecorded,
		"preconditions refuse before any record":      testPreconditions,
		"compile preview has no side effects":         testCompilePreview,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture())
		})
	}
}

func testRunCompletes(t *testing.T, f *fixture) {
	require.NoError(t, f.workflows.SaveWorkflow(onboardingWorkflow()))

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{
		TriggerType: "webhook",
		Input:       map[string]any{"employee": map[string]any{"name": "Ada", "email": "ada@corp.test"}},
	})
	require.NoError(t, err)

	require.Equal(t, model.EXECUTION_COMPLETED, result.Status)
	require.Empty(t, result.Error)
	require.Len(t, result.Steps, 3)
	for _, step := range result.Steps {
		require.Equal(t, model.STEP_COMPLETED, step.Status)
		require.Equal(t, result.ExecutionId, step.ExecutionId)
	}
	require.Equal(t, []int64{1, 2, 3},
		[]int64{result.Steps[0].NodeId, result.Steps[1].NodeId, result.Steps[2].NodeId})

	require.Equal(t, 1, f.engine.upserts)
	require.Equal(t, 1, f.engine.activations)
	require.Equal(t, []map[string]any{
		{"employee": map[string]any{"name": "Ada", "email": "ada@corp.test"}},
	}, f.engine.bodies)

	rec, err := f.executions.GetExecution(result.ExecutionId)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, rec.Status)
	require.Equal(t, "webhook", rec.TriggerType)
	require.False(t, rec.FinishedAt.IsZero())
	engineMeta := rec.RunContext["engine"].(map[string]any)
	require.Equal(t, "wf-100", engineMeta["remoteId"])
	require.Equal(t, 200, engineMeta["webhookStatus"])

	steps, err := f.executions.GetSteps(result.ExecutionId)
	require.NoError(t, err)
	require.Len(t, steps, 3)
}

func testEngineFailure(t *testing.T, f *fixture) {
	require.NoError(t, f.workflows.SaveWorkflow(onboardingWorkflow()))
	f.engine.invokeErr = engine.RequestError{Op: "webhook", URL: "http://e.test/webhook/x", StatusCode: 504}

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)

	require.Equal(t, model.EXECUTION_ENGINE_ERROR, result.Status)
	require.Contains(t, result.Error, "engine webhook")
	require.Len(t, result.Steps, 3)
	for _, step := range result.Steps {
		require.Equal(t, model.STEP_SKIPPED, step.Status)
		require.Contains(t, step.Logs, "skipped")
	}

	rec, err := f.executions.GetExecution(result.ExecutionId)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_ENGINE_ERROR, rec.Status)
	require.Equal(t, "manual", rec.TriggerType)
	require.NotEmpty(t, rec.ErrorMessage)
}

func testUpsertFailure(t *testing.T, f *fixture) {
	require.NoError(t, f.workflows.SaveWorkflow(onboardingWorkflow()))
	f.engine.upsertErr = engine.RequestError{Op: "update", URL: "http://e.test/api/v1/workflows/wf-1",
		Err: errors.New("dial tcp: i/o timeout")}

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)

	require.Equal(t, model.EXECUTION_ENGINE_ERROR, result.Status)
	require.Contains(t, result.Error, "i/o timeout")
	require.Equal(t, 0, f.engine.activations)

	rec, err := f.executions.GetExecution(result.ExecutionId)
	require.NoError(t, err)
	require.Contains(t, rec.ErrorMessage, "i/o timeout")
}

func testActivateFailure(t *testing.T, f *fixture) {
	require.NoError(t, f.workflows.SaveWorkflow(onboardingWorkflow()))
	f.engine.activateErr = engine.RequestError{Op: "activate", URL: "http://e.test", StatusCode: 502}

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)

	require.Equal(t, model.EXECUTION_ENGINE_ERROR, result.Status)
	require.Empty(t, f.engine.webhookPaths)
}

func testPolicyDenial(t *testing.T, _ *fixture) {
	f := newFixture("corp.test")
	wf := onboardingWorkflow()
	wf.Nodes = append(wf.Nodes, model.WorkflowNode{Id: 4, Kind: model.KIND_HTTP,
		Config: model.NodeConfig{"url": "https://exfil.example.net/x"}})
	wf.Edges = append(wf.Edges, model.WorkflowEdge{Id: 12, FromNodeId: 3, ToNodeId: 4})
	require.NoError(t, f.workflows.SaveWorkflow(wf))

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)

	require.Equal(t, model.EXECUTION_FAILED, result.Status)
	require.Contains(t, result.Error, "blocked by allow-list")
	require.Contains(t, result.Error, "https://exfil.example.net/x")
	require.Equal(t, 0, f.engine.upserts)
	require.Len(t, result.Steps, 4)
	for _, step := range result.Steps {
		require.Equal(t, model.STEP_SKIPPED, step.Status)
	}

	rec, err := f.executions.GetExecution(result.ExecutionId)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_FAILED, rec.Status)
}

func testWebhookPathReuse(t *testing.T, f *fixture) {
	require.NoError(t, f.workflows.SaveWorkflow(onboardingWorkflow()))

	first, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, first.Status)

	stored, err := f.workflows.GetWorkflow(42)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.WebhookPath, "hrflow-42-"), stored.WebhookPath)
	require.Equal(t, "wf-100", stored.EngineRef)

	second, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, second.Status)

	require.Equal(t, []string{stored.WebhookPath, stored.WebhookPath}, f.engine.webhookPaths)
	require.Equal(t, stored.WebhookPath, f.engine.lastDoc.Nodes[0].Parameters["path"])
}

func testCvFailureTolerated(t *testing.T, f *fixture) {
	wf := onboardingWorkflow()
	wf.Nodes = append(wf.Nodes, model.WorkflowNode{Id: 4, Kind: model.KIND_CV_PARSE,
		Config: model.NodeConfig{"sourceUrl": "https://cdn.test/cv.pdf"}})
	require.NoError(t, f.workflows.SaveWorkflow(wf))
	f.cv.err = cvparser.ServiceError{StatusCode: 501, Detail: "unsupported"}

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.NoError(t, err)

	require.Equal(t, model.EXECUTION_COMPLETED, result.Status)
	require.Equal(t, []string{"https://cdn.test/cv.pdf"}, f.cv.calls)

	rec, err := f.executions.GetExecution(result.ExecutionId)
	require.NoError(t, err)
	require.NotContains(t, rec.RunContext, "cvParse")
}

func testCvResultsRecorded(t *testing.T, f *fixture) {
	wf := onboardingWorkflow()
	wf.Nodes = append(wf.Nodes, model.WorkflowNode{Id: 4, Kind: model.KIND_CV_PARSE,
		Config: model.NodeConfig{"sourceUrl": "{$.employee.cvUrl}"}})
	require.NoError(t, f.workflows.SaveWorkflow(wf))

	result, err := f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{
		Input: map[string]any{"employee": map[string]any{"name": "Ada", "cvUrl": "https://cdn.test/ada.pdf"}},
	})
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, result.Status)

	require.Equal(t, []string{"https://cdn.test/ada.pdf"}, f.cv.calls)
	rec, err := f.executions.GetExecution(result.ExecutionId)
	require.NoError(t, err)
	parsed := rec.RunContext["cvParse"].(map[string]any)["4"].(cvparser.ParsedCV)
	require.Equal(t, "Ada Lovelace", parsed.Name)
}

func testPreconditions(t *testing.T, f *fixture) {
	var pe PreconditionError

	_, err := f.service.ExecuteWorkflow(context.Background(), 404, model.ExecutionRunRequest{})
	require.ErrorAs(t, err, &pe)
	require.Equal(t, PRECONDITION_NOT_FOUND, pe.Reason)

	inactive := onboardingWorkflow()
	inactive.Active = false
	require.NoError(t, f.workflows.SaveWorkflow(inactive))
	_, err = f.service.ExecuteWorkflow(context.Background(), 42, model.ExecutionRunRequest{})
	require.ErrorAs(t, err, &pe)
	require.Equal(t, PRECONDITION_INACTIVE, pe.Reason)

	require.NoError(t, f.workflows.SaveWorkflow(model.Workflow{Id: 43, Name: "Empty", Active: true}))
	_, err = f.service.ExecuteWorkflow(context.Background(), 43, model.ExecutionRunRequest{})
	require.ErrorAs(t, err, &pe)
	require.Equal(t, PRECONDITION_EMPTY, pe.Reason)

	require.Empty(t, f.executions.ListExecutions())
	require.Equal(t, 0, f.engine.upserts)
}

func testCompilePreview(t *testing.T, f *fixture) {
	wf := onboardingWorkflow()
	wf.Active = false
	require.NoError(t, f.workflows.SaveWorkflow(wf))

	doc, err := f.service.CompileWorkflow(42)
	require.NoError(t, err)
	require.Equal(t, "HRFlow 42: Onboarding", doc.Name)
	require.Equal(t, "hrflow-42-preview", doc.Nodes[0].Parameters["path"])

	require.Empty(t, f.executions.ListExecutions())
	require.Equal(t, 0, f.engine.upserts)

	_, err = f.service.CompileWorkflow(404)
	var pe PreconditionError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, PRECONDITION_NOT_FOUND, pe.Reason)
}
