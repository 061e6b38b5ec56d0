package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/hrflow/hrflow/audit"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/util"
	"go.uber.org/zap"
)

// normalizeTriggerBody resolves the triggering input into the
// {employee: {...}} shape the compiled trigger node reads. Sources in
// order: an explicit employee sub-object, the input itself when it looks
// like an employee record, the trigger node's static config, and finally an
// empty object.
func normalizeTriggerBody(wf *model.Workflow, input map[string]any) map[string]any {
	if emp, ok := input["employee"].(map[string]any); ok {
		return map[string]any{"employee": emp}
	}
	if looksLikeEmployee(input) {
		return map[string]any{"employee": input}
	}
	if emp := triggerConfigEmployee(wf); len(emp) > 0 {
		return map[string]any{"employee": emp}
	}
	return map[string]any{"employee": map[string]any{}}
}

func looksLikeEmployee(input map[string]any) bool {
	for _, field := range []string{"name", "email", "department", "role"} {
		if _, ok := input[field]; ok {
			return true
		}
	}
	return false
}

// triggerConfigEmployee pulls demo/static employee data off the first
// trigger node that carries any. Last-resort source for manual runs with no
// input at all.
func triggerConfigEmployee(wf *model.Workflow) map[string]any {
	for _, node := range wf.Nodes {
		if node.Kind != model.KIND_TRIGGER {
			continue
		}
		emp := map[string]any{}
		for _, field := range model.EmployeeFields {
			if v := strings.TrimSpace(node.Config.GetString(field)); v != "" {
				emp[field] = v
			}
		}
		if len(emp) > 0 {
			return emp
		}
	}
	return nil
}

// preParseCVs runs text extraction for every url-mode cv_parse node before
// the engine is invoked; the compiled node is only a marker. Source URLs may
// carry {$.path} tokens resolved against the normalized trigger body.
// Failures are logged and audited, never fatal.
func (s *WorkflowExecutionService) preParseCVs(ctx context.Context, wf *model.Workflow, body map[string]any, rec *model.ExecutionRecord) {
	results := map[string]any{}
	for _, node := range wf.Nodes {
		if node.Kind != model.KIND_CV_PARSE {
			continue
		}
		rawUrl := strings.TrimSpace(node.Config.GetString("sourceUrl"))
		if rawUrl == "" {
			continue
		}
		sourceUrl := strings.TrimSpace(util.ResolveString(body, rawUrl))
		if sourceUrl == "" {
			logger.Warn("cv source url resolved empty", zap.Int64("nodeId", node.Id), zap.String("template", rawUrl))
			continue
		}
		parsed, err := s.cvClient.ParseURL(ctx, sourceUrl)
		if err != nil {
			logger.Warn("cv parse failed", zap.Int64("nodeId", node.Id), zap.String("url", sourceUrl), zap.Error(err))
			audit.RecordCvParse(wf.Name, wf.Id, node.Id, sourceUrl, "failed: "+err.Error())
			continue
		}
		results[strconv.FormatInt(node.Id, 10)] = parsed.Data
		audit.RecordCvParse(wf.Name, wf.Id, node.Id, sourceUrl, "parsed")
	}
	if len(results) > 0 {
		rec.RunContext["cvParse"] = results
	}
}
