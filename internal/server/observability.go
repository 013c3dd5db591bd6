package server

import (
	"context"
	"fmt"

	"github.com/remindly/geotrigger/internal/app/observability/metrics"
	"github.com/remindly/geotrigger/internal/app/observability/tracer"
	"go.uber.org/zap"
)

// ObservabilityShutdownFunc flushes the tracer and metric providers.
type ObservabilityShutdownFunc func(context.Context) error

// InitObservability brings up the OTel providers and registers the
// application metric instruments before anything records to them.
func InitObservability(serviceName, metricsEndpoint string, logger *zap.Logger) (ObservabilityShutdownFunc, error) {
	otelShutdown, err := tracer.InitOtelProviders(serviceName, metricsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics.InitAppMetrics()
	logger.Info("observability initialized", zap.String("metrics_endpoint", metricsEndpoint+"/metrics"))

	return otelShutdown, nil
}
