package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/iamwavecut/pasarbot"

var (
	Registry = prometheus.NewRegistry()

	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pasar_ledger_movements_total",
			Help: "Ledger movements by reason",
		},
		[]string{"reason"},
	)

	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pasar_settlements_total",
			Help: "Verification settlements by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	claimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pasar_claims_total",
			Help: "Engagement claims by task type and result",
		},
		[]string{"task", "result"},
	)

	mutesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pasar_mutes_total",
			Help: "Flood mutes applied",
		},
	)

	notificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pasar_notifications_dropped_total",
			Help: "Notifications dropped on a full dispatcher queue",
		},
	)
)

func init() {
	Registry.MustRegister(
		transfersTotal,
		settlementsTotal,
		claimsTotal,
		mutesTotal,
		notificationsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Init installs the tracer provider and builds the audit logger.
// The returned function flushes both.
func Init(ctx context.Context) (*zap.Logger, func(context.Context) error, error) {
	audit, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("build audit logger: %w", err)
	}
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		_ = audit.Sync()
		return tp.Shutdown(ctx)
	}
	return audit, shutdown, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func RecordClaim(task, result string) {
	claimsTotal.WithLabelValues(task, result).Inc()
}

func RecordSettlement(source string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	settlementsTotal.WithLabelValues(source, outcome).Inc()
}

func RecordMute() {
	mutesTotal.Inc()
}

func RecordDroppedNotification() {
	notificationsDropped.Inc()
}
