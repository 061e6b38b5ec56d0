package audit

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileTrailCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileTrailCollector(fileName string) (*LogFileTrailCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = "" // to hide stacktrace info
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	defaultLogLevel := zapcore.InfoLevel
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, defaultLogLevel))
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &LogFileTrailCollector{
		fileName: fileName,
		logger:   logger,
	}, nil
}

func (lc *LogFileTrailCollector) RecordPolicyDenial(wfName string, wfId int64, nodeId int64, url string, reason string) {
	lc.logger.Info("policy-denial", zap.String("name", wfName), zap.Int64("workflowId", wfId), zap.Int64("nodeId", nodeId), zap.String("url", url), zap.String("reason", reason))
}

func (lc *LogFileTrailCollector) RecordExecutionStarted(wfName string, wfId int64, executionId string, triggerType string) {
	lc.logger.Info("execution-started", zap.String("name", wfName), zap.Int64("workflowId", wfId), zap.String("executionId", executionId), zap.String("trigger", triggerType))
}

func (lc *LogFileTrailCollector) RecordExecutionFinished(wfName string, wfId int64, executionId string, status string, reason string) {
	lc.logger.Info("execution-finished", zap.String("name", wfName), zap.Int64("workflowId", wfId), zap.String("executionId", executionId), zap.String("status", status), zap.String("reason", reason))
}

func (lc *LogFileTrailCollector) RecordEngineSync(wfName string, wfId int64, engineRef string, operation string) {
	lc.logger.Info("engine-sync", zap.String("name", wfName), zap.Int64("workflowId", wfId), zap.String("engineRef", engineRef), zap.String("operation", operation))
}

func (lc *LogFileTrailCollector) RecordCvParse(wfName string, wfId int64, nodeId int64, url string, outcome string) {
	lc.logger.Info("cv-parse", zap.String("name", wfName), zap.Int64("workflowId", wfId), zap.Int64("nodeId", nodeId), zap.String("url", url), zap.String("outcome", outcome))
}
