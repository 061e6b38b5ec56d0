// Package compiler translates a workflow's node/edge graph into the
// document format of the external automation engine. Compilation is pure:
// given the same workflow and webhook path it produces an identical
// document, so repeated runs upsert rather than duplicate.
package compiler

import (
	"fmt"

	"github.com/hrflow/hrflow/allowlist"
	"github.com/hrflow/hrflow/config"
	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/graph"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/model"
	"go.uber.org/zap"
)

const entryNodeName = "Webhook Entry"

type Compiler struct {
	validator *allowlist.Validator
	creds     config.CredentialsConfig
}

func New(validator *allowlist.Validator, creds config.CredentialsConfig) *Compiler {
	return &Compiler{validator: validator, creds: creds}
}

// Compile validates the workflow against the allow-list, then emits the
// full engine document: one injected webhook entry node, one compiled node
// per domain node, and the connection map. A denial aborts the whole
// compile with a PolicyError; nothing partial ever leaves this function.
func (c *Compiler) Compile(wf *model.Workflow) (*engine.Document, error) {
	if denials := c.validator.Validate(wf); len(denials) > 0 {
		return nil, PolicyError{Denials: denials}
	}
	ordered := graph.Order(wf.Nodes, wf.Edges)
	webhookPath := wf.WebhookPath
	if webhookPath == "" {
		webhookPath = fmt.Sprintf("hrflow-%d-preview", wf.Id)
	}
	entry := entryNode(webhookPath)
	nodes := make([]engine.Node, 0, len(ordered)+1)
	nodes = append(nodes, entry)
	for i, node := range ordered {
		compiled, err := c.compileNode(node, nodePosition(i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, compiled)
	}
	doc := &engine.Document{
		Name:        documentName(wf),
		Nodes:       nodes,
		Connections: buildConnections(ordered, wf.Edges, entry.Name),
		Settings:    map[string]any{"executionOrder": "v1"},
	}
	logger.Debug("workflow compiled", zap.Int64("workflowId", wf.Id), zap.Int("nodes", len(doc.Nodes)))
	return doc, nil
}

func entryNode(webhookPath string) engine.Node {
	return engine.Node{
		Parameters: map[string]any{
			"path":       webhookPath,
			"httpMethod": "POST",
			"options":    map[string]any{},
		},
		Name:        entryNodeName,
		Type:        engine.NODE_TYPE_WEBHOOK,
		TypeVersion: 1,
		Position:    [2]float64{240, 300},
		WebhookId:   webhookPath,
	}
}

func nodePosition(index int) [2]float64 {
	return [2]float64{240 + 220*float64(index+1), 300}
}

func documentName(wf *model.Workflow) string {
	if wf.Name == "" {
		return fmt.Sprintf("HRFlow %d", wf.Id)
	}
	return fmt.Sprintf("HRFlow %d: %s", wf.Id, wf.Name)
}
