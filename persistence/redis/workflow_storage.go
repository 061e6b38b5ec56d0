package redis

import (
	"context"
	"errors"
	"strconv"

	rd "github.com/go-redis/redis/v9"
	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/persistence"
	"github.com/hrflow/hrflow/util"
)

const WORKFLOW_KEY string = "WORKFLOW"

const workflowFieldDef = "def"
const workflowFieldNodes = "nodes"
const workflowFieldEdges = "edges"
const workflowFieldEngineRef = "engineRef"
const workflowFieldWebhook = "webhookPath"

var _ persistence.WorkflowStorage = new(redisWorkflowStorage)

// redisWorkflowStorage keeps one hash per workflow: the definition, its
// node list and edge list as JSON fields, and the engine back-references as
// plain string fields so SaveEngineRef is a single HSET.
type redisWorkflowStorage struct {
	*baseDao
	workflowEncDec util.EncoderDecoder[model.Workflow]
	nodesEncDec    util.EncoderDecoder[[]model.WorkflowNode]
	edgesEncDec    util.EncoderDecoder[[]model.WorkflowEdge]
}

func NewRedisWorkflowStorage(conf Config) *redisWorkflowStorage {
	return &redisWorkflowStorage{
		baseDao:        newBaseDao(conf),
		workflowEncDec: util.NewJsonEncoderDecoder[model.Workflow](),
		nodesEncDec:    util.NewJsonEncoderDecoder[[]model.WorkflowNode](),
		edgesEncDec:    util.NewJsonEncoderDecoder[[]model.WorkflowEdge](),
	}
}

func (r *redisWorkflowStorage) workflowKey(workflowId int64) string {
	return r.getNamespaceKey(WORKFLOW_KEY, strconv.FormatInt(workflowId, 10))
}

// SaveWorkflow stores the whole workflow; the graph-editing service owns
// calls to it, the orchestrator only reads.
func (r *redisWorkflowStorage) SaveWorkflow(wf model.Workflow) error {
	ctx := context.Background()
	nodes := wf.Nodes
	edges := wf.Edges
	def := wf
	def.Nodes = nil
	def.Edges = nil

	defData, err := r.workflowEncDec.Encode(def)
	if err != nil {
		return err
	}
	nodeData, err := r.nodesEncDec.Encode(nodes)
	if err != nil {
		return err
	}
	edgeData, err := r.edgesEncDec.Encode(edges)
	if err != nil {
		return err
	}
	fields := []string{
		workflowFieldDef, string(defData),
		workflowFieldNodes, string(nodeData),
		workflowFieldEdges, string(edgeData),
		workflowFieldEngineRef, wf.EngineRef,
		workflowFieldWebhook, wf.WebhookPath,
	}
	if err := r.redisClient.HSet(ctx, r.workflowKey(wf.Id), fields).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisWorkflowStorage) GetWorkflow(workflowId int64) (*model.Workflow, error) {
	ctx := context.Background()
	values, err := r.redisClient.HGetAll(ctx, r.workflowKey(workflowId)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defStr, ok := values[workflowFieldDef]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "workflow", Key: strconv.FormatInt(workflowId, 10)}
	}
	wf, err := r.workflowEncDec.Decode([]byte(defStr))
	if err != nil {
		return nil, err
	}
	if nodeStr, ok := values[workflowFieldNodes]; ok && nodeStr != "" {
		nodes, err := r.nodesEncDec.Decode([]byte(nodeStr))
		if err != nil {
			return nil, err
		}
		wf.Nodes = *nodes
	}
	if edgeStr, ok := values[workflowFieldEdges]; ok && edgeStr != "" {
		edges, err := r.edgesEncDec.Decode([]byte(edgeStr))
		if err != nil {
			return nil, err
		}
		wf.Edges = *edges
	}
	wf.EngineRef = values[workflowFieldEngineRef]
	wf.WebhookPath = values[workflowFieldWebhook]
	return wf, nil
}

func (r *redisWorkflowStorage) GetNodes(workflowId int64) ([]model.WorkflowNode, error) {
	ctx := context.Background()
	nodeStr, err := r.redisClient.HGet(ctx, r.workflowKey(workflowId), workflowFieldNodes).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "workflow", Key: strconv.FormatInt(workflowId, 10)}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	nodes, err := r.nodesEncDec.Decode([]byte(nodeStr))
	if err != nil {
		return nil, err
	}
	return *nodes, nil
}

func (r *redisWorkflowStorage) GetEdges(workflowId int64) ([]model.WorkflowEdge, error) {
	ctx := context.Background()
	edgeStr, err := r.redisClient.HGet(ctx, r.workflowKey(workflowId), workflowFieldEdges).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "workflow", Key: strconv.FormatInt(workflowId, 10)}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	edges, err := r.edgesEncDec.Decode([]byte(edgeStr))
	if err != nil {
		return nil, err
	}
	return *edges, nil
}

func (r *redisWorkflowStorage) SaveEngineRef(workflowId int64, engineRef string, webhookPath string) error {
	ctx := context.Background()
	fields := []string{
		workflowFieldEngineRef, engineRef,
		workflowFieldWebhook, webhookPath,
	}
	if err := r.redisClient.HSet(ctx, r.workflowKey(workflowId), fields).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
