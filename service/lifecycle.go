package service

import (
	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/model"
	"github.com/qmuntal/stateless"
	"go.uber.org/zap"
)

type trigger string

const (
	triggerComplete    trigger = "Complete"
	triggerEngineError trigger = "EngineError"
	triggerFail        trigger = "Fail"
)

// lifecycle guards the execution record's single terminal transition:
// running moves to exactly one of completed, engine_error or failed.
type lifecycle struct {
	fsm *stateless.StateMachine
}

func newLifecycle() *lifecycle {
	fsm := stateless.NewStateMachine(model.EXECUTION_RUNNING)
	fsm.Configure(model.EXECUTION_RUNNING).
		Permit(triggerComplete, model.EXECUTION_COMPLETED).
		Permit(triggerEngineError, model.EXECUTION_ENGINE_ERROR).
		Permit(triggerFail, model.EXECUTION_FAILED)
	return &lifecycle{fsm: fsm}
}

// fire moves the lifecycle to a terminal state and returns it. Firing a
// second terminal trigger is a programming bug: it is logged and the state
// already reached wins.
func (l *lifecycle) fire(t trigger, executionId string) model.ExecutionStatus {
	if err := l.fsm.Fire(t); err != nil {
		logger.Error("invalid execution transition",
			zap.String("executionId", executionId),
			zap.String("trigger", string(t)),
			zap.Error(err))
	}
	return l.fsm.MustState().(model.ExecutionStatus)
}

// classify picks the terminal trigger for an execution failure: engine
// transport problems and non-2xx replies are engine errors, everything else
// is a plain failure.
func classify(err error) trigger {
	if engine.IsRequestError(err) {
		return triggerEngineError
	}
	return triggerFail
}
