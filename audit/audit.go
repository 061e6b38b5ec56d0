// Package audit records compliance-relevant events: policy denials, execution
// lifecycle transitions and engine sync activity. Recording is fire and
// forget; a failing or saturated collector never blocks workflow execution.
package audit

import (
	"sync"

	"github.com/hrflow/hrflow/util"
)

type TrailCollectorConfig struct {
	FileName      string
	CollectorType TrailCollectorType
}

type TrailCollectorType string

const LOG_FILE_TRAIL_COLLECTOR TrailCollectorType = "LOG_FILE_TRAIL_COLLECTOR"
const NOOP_TRAIL_COLLECTOR TrailCollectorType = "NOOP_TRAIL_COLLECTOR"

type TrailCollector interface {
	RecordPolicyDenial(wfName string, wfId int64, nodeId int64, url string, reason string)
	RecordExecutionStarted(wfName string, wfId int64, executionId string, triggerType string)
	RecordExecutionFinished(wfName string, wfId int64, executionId string, status string, reason string)
	RecordEngineSync(wfName string, wfId int64, engineRef string, operation string)
	RecordCvParse(wfName string, wfId int64, nodeId int64, url string, outcome string)
}

type trailEntry struct {
	record func(TrailCollector)
}

var trailCollector TrailCollector = noopCollector{}
var trailWorker *util.Worker[trailEntry]
var trailWg sync.WaitGroup

func InitTrailCollector(config TrailCollectorConfig) error {
	switch config.CollectorType {
	case LOG_FILE_TRAIL_COLLECTOR:
		c, err := NewLogFileTrailCollector(config.FileName)
		if err != nil {
			return err
		}
		trailCollector = c
	case NOOP_TRAIL_COLLECTOR:
		trailCollector = noopCollector{}
	}
	trailWorker = util.NewWorker[trailEntry]("audit-trail", &trailWg, func(entry trailEntry) error {
		entry.record(trailCollector)
		return nil
	}, 1024)
	trailWorker.Start()
	return nil
}

func StopTrailCollector() {
	if trailWorker != nil {
		trailWorker.Stop()
		trailWg.Wait()
		trailWorker = nil
	}
}

func submit(record func(TrailCollector)) {
	if trailWorker == nil {
		record(trailCollector)
		return
	}
	select {
	case trailWorker.Sender() <- trailEntry{record: record}:
	default:
	}
}

func RecordPolicyDenial(wfName string, wfId int64, nodeId int64, url string, reason string) {
	submit(func(c TrailCollector) { c.RecordPolicyDenial(wfName, wfId, nodeId, url, reason) })
}

func RecordExecutionStarted(wfName string, wfId int64, executionId string, triggerType string) {
	submit(func(c TrailCollector) { c.RecordExecutionStarted(wfName, wfId, executionId, triggerType) })
}

func RecordExecutionFinished(wfName string, wfId int64, executionId string, status string, reason string) {
	submit(func(c TrailCollector) { c.RecordExecutionFinished(wfName, wfId, executionId, status, reason) })
}

func RecordEngineSync(wfName string, wfId int64, engineRef string, operation string) {
	submit(func(c TrailCollector) { c.RecordEngineSync(wfName, wfId, engineRef, operation) })
}

func RecordCvParse(wfName string, wfId int64, nodeId int64, url string, outcome string) {
	submit(func(c TrailCollector) { c.RecordCvParse(wfName, wfId, nodeId, url, outcome) })
}

type noopCollector struct{}

func (noopCollector) RecordPolicyDenial(wfName string, wfId int64, nodeId int64, url string, reason string) {
}
func (noopCollector) RecordExecutionStarted(wfName string, wfId int64, executionId string, triggerType string) {
}
func (noopCollector) RecordExecutionFinished(wfName string, wfId int64, executionId string, status string, reason string) {
}
func (noopCollector) RecordEngineSync(wfName string, wfId int64, engineRef string, operation string) {}
func (noopCollector) RecordCvParse(wfName string, wfId int64, nodeId int64, url string, outcome string) {
}
