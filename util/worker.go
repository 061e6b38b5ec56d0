package util

import (
	"sync"

	"github.com/hrflow/hrflow/logger"
	"go.uber.org/zap"
)

// Worker drains a buffered channel of items on a single goroutine, handing
// each to the configured handler. Handler errors are logged and dropped;
// the worker never stops on item failure.
type Worker[T any] struct {
	name     string
	stop     chan struct{}
	wg       *sync.WaitGroup
	handler  func(T) error
	itemChan chan T
}

func NewWorker[T any](name string, wg *sync.WaitGroup, handler func(T) error, capacity int) *Worker[T] {
	return &Worker[T]{
		name:     name,
		stop:     make(chan struct{}),
		wg:       wg,
		handler:  handler,
		itemChan: make(chan T, capacity),
	}
}

func (w *Worker[T]) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case item := <-w.itemChan:
				if err := w.handler(item); err != nil {
					logger.Error("worker handler failed", zap.String("worker", w.name), zap.Error(err))
				}
			case <-w.stop:
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

// Sender returns the submit side of the worker's channel. Submissions on a
// full channel block; size the capacity for the expected burst.
func (w *Worker[T]) Sender() chan<- T {
	return w.itemChan
}

func (w *Worker[T]) Stop() {
	w.stop <- struct{}{}
}
