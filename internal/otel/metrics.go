package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce     sync.Once
	transitionsCounter  metric.Int64Counter
	rejectionsCounter   metric.Int64Counter
	sseConnectionsGauge metric.Int64ObservableGauge
	sseEventsCounter    metric.Int64Counter
	webhookCounter      metric.Int64Counter
	sseConnections      int64
	sseConnectionsMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only runs once.
// Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		transitionsCounter, err = m.Int64Counter("taskzone_transitions_total", metric.WithDescription("Successful workflow operations by department and resulting zone"))
		if err != nil {
			return
		}
		rejectionsCounter, err = m.Int64Counter("taskzone_rejections_total", metric.WithDescription("Workflow operations rejected, by error kind"))
		if err != nil {
			return
		}
		webhookCounter, err = m.Int64Counter("taskzone_webhook_deliveries_total", metric.WithDescription("Webhook deliveries by outcome"))
		if err != nil {
			return
		}
		sseEventsCounter, err = m.Int64Counter("taskzone_sse_events_total", metric.WithDescription("Total SSE events published"))
		if err != nil {
			return
		}
		sseConnectionsGauge, err = m.Int64ObservableGauge("taskzone_sse_connections", metric.WithDescription("Current SSE subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			sseConnectionsMu.Lock()
			n := sseConnections
			sseConnectionsMu.Unlock()
			o.ObserveInt64(sseConnectionsGauge, n)
			return nil
		}, sseConnectionsGauge)
	})
	return err
}

// RecordTransition records a successful engine operation.
func RecordTransition(ctx context.Context, op, department, zone string) {
	if transitionsCounter == nil {
		return
	}
	transitionsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(op),
		AttrDepartment.String(department),
		AttrZone.String(zone),
	))
}

// RecordRejection records an engine operation that returned an error of the given kind.
func RecordRejection(ctx context.Context, op, kind string) {
	if rejectionsCounter == nil {
		return
	}
	rejectionsCounter.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op), AttrKind.String(kind)))
}

// RecordWebhook records one webhook delivery attempt; outcome is "ok", "error" or "open".
func RecordWebhook(ctx context.Context, outcome string) {
	if webhookCounter != nil {
		webhookCounter.Add(ctx, 1, metric.WithAttributes(AttrKind.String(outcome)))
	}
}

// RecordSSEEvent records one SSE event published.
func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

// AddSSEConnection adds 1 to the SSE connection gauge (call on subscribe).
func AddSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections++
	sseConnectionsMu.Unlock()
}

// RemoveSSEConnection subtracts 1 from the SSE connection gauge (call on unsubscribe).
func RemoveSSEConnection() {
	sseConnectionsMu.Lock()
	sseConnections--
	if sseConnections < 0 {
		sseConnections = 0
	}
	sseConnectionsMu.Unlock()
}

// ZoneCountFunc returns the number of placed tasks per zone name.
type ZoneCountFunc func(ctx context.Context) (map[string]int64, error)

// InitMetricsWithZoneCount creates instruments and optionally registers a callback for
// the tasks-per-zone gauge. If zoneCount is nil, the gauge is not reported.
func InitMetricsWithZoneCount(ctx context.Context, zoneCount ZoneCountFunc) error {
	if err := InitMetrics(ctx); err != nil {
		return err
	}
	if zoneCount == nil {
		return nil
	}
	m := Meter()
	tasksGauge, err := m.Int64ObservableGauge("taskzone_tasks", metric.WithDescription("Number of placed tasks by zone"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		counts, err := zoneCount(ctx)
		if err != nil {
			return err
		}
		for zone, n := range counts {
			o.ObserveInt64(tasksGauge, n, metric.WithAttributes(AttrZone.String(zone)))
		}
		return nil
	}, tasksGauge)
	return err
}
