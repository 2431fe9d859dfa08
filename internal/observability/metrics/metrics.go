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
	billsCreated     metric.Int64Counter
	pdcPayments      metric.Int64Counter
	lateFeesApplied  metric.Int64Counter
	downgrades       metric.Int64Counter
	leaseTransitions metric.Int64Counter
	pushDispatched   metric.Int64Counter
	pushPruned       metric.Int64Counter
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
		name = "rentflow"
	}
	meter := provider.Meter(name)

	billsCreated, err := meter.Int64Counter("rentflow_bills_created_total")
	if err != nil {
		return nil, err
	}
	pdcPayments, err := meter.Int64Counter("rentflow_pdc_payments_total")
	if err != nil {
		return nil, err
	}
	lateFeesApplied, err := meter.Int64Counter("rentflow_late_fees_applied_total")
	if err != nil {
		return nil, err
	}
	downgrades, err := meter.Int64Counter("rentflow_subscription_downgrades_total")
	if err != nil {
		return nil, err
	}
	leaseTransitions, err := meter.Int64Counter("rentflow_lease_transitions_total")
	if err != nil {
		return nil, err
	}
	pushDispatched, err := meter.Int64Counter("rentflow_push_dispatched_total")
	if err != nil {
		return nil, err
	}
	pushPruned, err := meter.Int64Counter("rentflow_push_pruned_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billsCreated:     billsCreated,
		pdcPayments:      pdcPayments,
		lateFeesApplied:  lateFeesApplied,
		downgrades:       downgrades,
		leaseTransitions: leaseTransitions,
		pushDispatched:   pushDispatched,
		pushPruned:       pushPruned,
	}, nil
}

// RecordBillCreated counts billing rows inserted by the generator.
func (m *Metrics) RecordBillCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.billsCreated.Add(ctx, 1)
}

// RecordPDCPayment counts payments recorded from cleared post-dated checks.
func (m *Metrics) RecordPDCPayment(ctx context.Context) {
	if m == nil {
		return
	}
	m.pdcPayments.Add(ctx, 1)
}

// RecordLateFee counts applied penalties by fee type.
func (m *Metrics) RecordLateFee(ctx context.Context, feeType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("fee_type", strings.TrimSpace(feeType)))
	m.lateFeesApplied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDowngrade counts subscriptions reset to the free plan.
func (m *Metrics) RecordDowngrade(ctx context.Context) {
	if m == nil {
		return
	}
	m.downgrades.Add(ctx, 1)
}

// RecordLeaseTransition counts lease status changes.
func (m *Metrics) RecordLeaseTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.leaseTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPushDispatch counts push deliveries by outcome.
func (m *Metrics) RecordPushDispatch(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.pushDispatched.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPushPruned counts stale push subscriptions removed after 404/410.
func (m *Metrics) RecordPushPruned(ctx context.Context) {
	if m == nil {
		return
	}
	m.pushPruned.Add(ctx, 1)
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
	"fee_type":    {},
	"from":        {},
	"to":          {},
	"outcome":     {},
	"route":       {},
	"method":      {},
	"status_code": {},
	"job":         {},
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
