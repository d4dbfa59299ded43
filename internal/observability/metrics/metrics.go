package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	billUpserts      metric.Int64Counter
	paymentCallbacks metric.Int64Counter
	pdcTransitions   metric.Int64Counter
	renewalDecisions metric.Int64Counter
	notifications    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "upkyp"
	}
	meter := provider.Meter(name)

	billUpserts, err := meter.Int64Counter("upkyp_bill_upserts_total")
	if err != nil {
		return nil, err
	}
	paymentCallbacks, err := meter.Int64Counter("upkyp_payment_callbacks_total")
	if err != nil {
		return nil, err
	}
	pdcTransitions, err := meter.Int64Counter("upkyp_pdc_transitions_total")
	if err != nil {
		return nil, err
	}
	renewalDecisions, err := meter.Int64Counter("upkyp_renewal_decisions_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("upkyp_notifications_enqueued_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billUpserts:      billUpserts,
		paymentCallbacks: paymentCallbacks,
		pdcTransitions:   pdcTransitions,
		renewalDecisions: renewalDecisions,
		notifications:    notifications,
	}, nil
}

// RecordBillUpsert increments bill upsert counts by outcome (created or updated).
func (m *Metrics) RecordBillUpsert(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.billUpserts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentCallback increments payment callback counts by gateway status.
func (m *Metrics) RecordPaymentCallback(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.paymentCallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPDCTransition increments check status transition counts.
func (m *Metrics) RecordPDCTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.pdcTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRenewalDecision increments renewal decision counts by status.
func (m *Metrics) RecordRenewalDecision(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.renewalDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationEnqueued increments enqueued notification counts by topic.
func (m *Metrics) RecordNotificationEnqueued(ctx context.Context, topic string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("topic", strings.TrimSpace(topic)))
	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"status":      {},
	"from":        {},
	"to":          {},
	"topic":       {},
	"route":       {},
	"method":      {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
