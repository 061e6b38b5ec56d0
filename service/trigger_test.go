package service

import (
	"testing"

	"github.com/hrflow/hrflow/model"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTriggerBody(t *testing.T) {
	wf := &model.Workflow{
		Id: 7,
		Nodes: []model.WorkflowNode{
			{Id: 1, Kind: model.KIND_TRIGGER, Config: model.NodeConfig{
				"name":  "Demo Person",
				"email": "demo@corp.test",
			}},
		},
	}

	t.Run("explicit employee object passes through", func(t *testing.T) {
		body := normalizeTriggerBody(wf, map[string]any{
			"employee": map[string]any{"name": "Ada", "seat": 4},
			"ignored":  true,
		})
		require.Equal(t, map[string]any{"employee": map[string]any{"name": "Ada", "seat": 4}}, body)
	})

	t.Run("flat employee-shaped input is wrapped", func(t *testing.T) {
		body := normalizeTriggerBody(wf, map[string]any{"name": "Ada", "role": "engineer"})
		require.Equal(t, map[string]any{"employee": map[string]any{"name": "Ada", "role": "engineer"}}, body)
	})

	t.Run("empty input falls back to trigger config", func(t *testing.T) {
		body := normalizeTriggerBody(wf, map[string]any{})
		require.Equal(t, map[string]any{"employee": map[string]any{
			"name":  "Demo Person",
			"email": "demo@corp.test",
		}}, body)
	})

	t.Run("no source at all yields an empty employee", func(t *testing.T) {
		bare := &model.Workflow{Id: 8, Nodes: []model.WorkflowNode{{Id: 1, Kind: model.KIND_TRIGGER}}}
		body := normalizeTriggerBody(bare, nil)
		require.Equal(t, map[string]any{"employee": map[string]any{}}, body)
	})
}

func TestTriggerConfigEmployee(t *testing.T) {
	wf := &model.Workflow{
		Nodes: []model.WorkflowNode{
			{Id: 1, Kind: model.KIND_LOGGER, Config: model.NodeConfig{"name": "not a trigger"}},
			{Id: 2, Kind: model.KIND_TRIGGER, Config: model.NodeConfig{"message": "no employee fields"}},
			{Id: 3, Kind: model.KIND_TRIGGER, Config: model.NodeConfig{
				"name":       "  Grace  ",
				"department": "Platform",
				"seats":      3,
			}},
		},
	}

	emp := triggerConfigEmployee(wf)
	require.Equal(t, map[string]any{"name": "Grace", "department": "Platform"}, emp)

	require.Nil(t, triggerConfigEmployee(&model.Workflow{}))
}
