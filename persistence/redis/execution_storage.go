package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/persistence"
	"github.com/hrflow/hrflow/util"
)

const EXECUTION_KEY string = "EXECUTION"
const STEPS_KEY string = "STEPS"

var _ persistence.ExecutionStorage = new(redisExecutionStorage)

type redisExecutionStorage struct {
	*baseDao
	executionEncDec util.EncoderDecoder[model.ExecutionRecord]
	stepsEncDec     util.EncoderDecoder[[]model.ExecutionStep]
}

func NewRedisExecutionStorage(conf Config) *redisExecutionStorage {
	return &redisExecutionStorage{
		baseDao:         newBaseDao(conf),
		executionEncDec: util.NewJsonEncoderDecoder[model.ExecutionRecord](),
		stepsEncDec:     util.NewJsonEncoderDecoder[[]model.ExecutionStep](),
	}
}

func (r *redisExecutionStorage) CreateExecution(rec *model.ExecutionRecord) error {
	return r.writeExecution(rec)
}

// FinishExecution rewrites the whole record in one SET; the record is the
// unit of atomicity, there is no partial-field exposure.
func (r *redisExecutionStorage) FinishExecution(rec *model.ExecutionRecord) error {
	return r.writeExecution(rec)
}

func (r *redisExecutionStorage) writeExecution(rec *model.ExecutionRecord) error {
	ctx := context.Background()
	data, err := r.executionEncDec.Encode(*rec)
	if err != nil {
		return err
	}
	key := r.getNamespaceKey(EXECUTION_KEY, rec.Id)
	if err := r.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisExecutionStorage) GetExecution(executionId string) (*model.ExecutionRecord, error) {
	ctx := context.Background()
	key := r.getNamespaceKey(EXECUTION_KEY, executionId)
	val, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "execution", Key: executionId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	rec, err := r.executionEncDec.Decode([]byte(val))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *redisExecutionStorage) SaveSteps(executionId string, steps []model.ExecutionStep) error {
	ctx := context.Background()
	data, err := r.stepsEncDec.Encode(steps)
	if err != nil {
		return err
	}
	key := r.getNamespaceKey(EXECUTION_KEY, executionId, STEPS_KEY)
	if err := r.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisExecutionStorage) GetSteps(executionId string) ([]model.ExecutionStep, error) {
	ctx := context.Background()
	key := r.getNamespaceKey(EXECUTION_KEY, executionId, STEPS_KEY)
	val, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return []model.ExecutionStep{}, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	steps, err := r.stepsEncDec.Decode([]byte(val))
	if err != nil {
		return nil, err
	}
	return *steps, nil
}
