package handlers

import (
	"fmt"
	"time"

	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/internal/metrics"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ObservabilityModule backs the LOGGING and METRICS interfaces
type ObservabilityModule struct {
	logger   *logger.Logger
	recorder *metrics.Metrics
}

// NewObservabilityModule creates the module over the process logger and
// metrics recorder
func NewObservabilityModule(log *logger.Logger, recorder *metrics.Metrics) *ObservabilityModule {
	return &ObservabilityModule{
		logger:   log,
		recorder: recorder,
	}
}

// HandleLog dispatches one logging operation
func (m *ObservabilityModule) HandleLog(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "write":
		message, err := stringParam(params, "message")
		if err != nil {
			return nil, err
		}

		entry := m.logger
		if fields, ok := params["fields"].(map[string]interface{}); ok {
			entry = entry.WithFields(logrus.Fields(fields))
		}

		level, _ := params["level"].(string)
		switch level {
		case "debug":
			entry.Debug(message)
		case "warn":
			entry.Warn(message)
		case "error":
			entry.Error(message)
		default:
			entry.Info(message)
		}
		return true, nil

	default:
		return nil, fmt.Errorf("logging module has no operation %q", operation)
	}
}

// HandleMetrics dispatches one metrics operation
func (m *ObservabilityModule) HandleMetrics(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "record":
		target, err := stringParam(params, "target")
		if err != nil {
			return nil, err
		}
		durationMs, _ := params["duration_ms"].(float64)
		success, ok := params["success"].(bool)
		if !ok {
			success = true
		}
		m.recorder.RecordCall(target, time.Duration(durationMs*float64(time.Millisecond)), success)
		return true, nil

	case "stats":
		return m.recorder.GetStats(), nil

	case "target_stats":
		target, err := stringParam(params, "target")
		if err != nil {
			return nil, err
		}
		return m.recorder.GetTargetStats(target), nil

	case "reset":
		m.recorder.Reset()
		return true, nil

	default:
		return nil, fmt.Errorf("metrics module has no operation %q", operation)
	}
}
