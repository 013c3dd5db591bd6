package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the engine's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal        metric.Int64Counter
	HTTPRequestDuration      metric.Float64Histogram
	RemindersCreatedTotal    metric.Int64Counter
	ReminderTransitionsTotal metric.Int64Counter
	GeofenceEventsTotal      metric.Int64Counter
	DwellChecksTotal         metric.Int64Counter
	BackgroundPollsTotal     metric.Int64Counter
	BackgroundPollSkips      metric.Int64Counter
	ActiveRegionsGauge       metric.Int64Gauge
	DBQueryDurationSeconds   metric.Float64Histogram
	DBQueryErrorsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("geotrigger")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.RemindersCreatedTotal, err = meter.Int64Counter(
			"reminders_created_total",
			metric.WithDescription("Total number of reminders created"),
			metric.WithUnit("{reminder}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create reminders_created_total: %v", err)
		}

		m.ReminderTransitionsTotal, err = meter.Int64Counter(
			"reminder_transitions_total",
			metric.WithDescription("Total number of reminder lifecycle transitions"),
			metric.WithUnit("{transition}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create reminder_transitions_total: %v", err)
		}

		m.GeofenceEventsTotal, err = meter.Int64Counter(
			"geofence_events_total",
			metric.WithDescription("Total number of geofence events emitted"),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geofence_events_total: %v", err)
		}

		m.DwellChecksTotal, err = meter.Int64Counter(
			"dwell_checks_total",
			metric.WithDescription("Total number of dwell tracker scans"),
			metric.WithUnit("{scan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create dwell_checks_total: %v", err)
		}

		m.BackgroundPollsTotal, err = meter.Int64Counter(
			"background_polls_total",
			metric.WithDescription("Total number of background position polls"),
			metric.WithUnit("{poll}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create background_polls_total: %v", err)
		}

		m.BackgroundPollSkips, err = meter.Int64Counter(
			"background_poll_skips_total",
			metric.WithDescription("Background polls skipped on permission or service errors"),
			metric.WithUnit("{poll}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create background_poll_skips_total: %v", err)
		}

		m.ActiveRegionsGauge, err = meter.Int64Gauge(
			"geofence_active_regions",
			metric.WithDescription("Number of currently registered geofence regions"),
			metric.WithUnit("{region}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geofence_active_regions: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, initializing it
// against the current MeterProvider on first use. Before the otel SDK is
// configured that provider is a no-op, which is what tests want.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}
