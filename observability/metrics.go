package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/scttfrdmn/chatmem/usage"
)

// InitMetrics initializes OpenTelemetry metrics with Prometheus export
// into the default registry and installs the provider globally. Serve the
// registry with promhttp (the server package wires a /metrics route).
func InitMetrics(serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	return provider, nil
}

// GetMeter returns a meter from the current global meter provider.
func GetMeter(name string) metric.Meter {
	return otel.Meter(name)
}

// TurnMetrics bundles the instruments the chat orchestrator reports into:
// turn and error counts, token totals, and turn latency.
type TurnMetrics struct {
	turnCounter      metric.Int64Counter
	errorCounter     metric.Int64Counter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	latencyHistogram metric.Float64Histogram
}

// NewTurnMetrics creates the chat turn instrument bundle.
func NewTurnMetrics() (*TurnMetrics, error) {
	meter := GetMeter("chatmem.chat")

	turnCounter, err := meter.Int64Counter(
		"chatmem.turns",
		metric.WithDescription("Total number of chat turns processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create turn counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"chatmem.turn_errors",
		metric.WithDescription("Chat turns that surfaced an LLM failure"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	promptTokens, err := meter.Int64Counter(
		"chatmem.prompt_tokens",
		metric.WithDescription("Prompt tokens consumed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt token counter: %w", err)
	}

	completionTokens, err := meter.Int64Counter(
		"chatmem.completion_tokens",
		metric.WithDescription("Completion tokens consumed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion token counter: %w", err)
	}

	latencyHistogram, err := meter.Float64Histogram(
		"chatmem.turn_latency",
		metric.WithDescription("Chat turn latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	return &TurnMetrics{
		turnCounter:      turnCounter,
		errorCounter:     errorCounter,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		latencyHistogram: latencyHistogram,
	}, nil
}

// RecordTurn reports one completed turn.
func (m *TurnMetrics) RecordTurn(ctx context.Context, kind string, snapshot usage.Snapshot, latencyMS float64, failed bool) {
	attrs := metric.WithAttributes(attribute.String("policy_kind", kind))

	m.turnCounter.Add(ctx, 1, attrs)
	if failed {
		m.errorCounter.Add(ctx, 1, attrs)
	}
	m.promptTokens.Add(ctx, int64(snapshot.PromptTokens), attrs)
	m.completionTokens.Add(ctx, int64(snapshot.CompletionTokens), attrs)
	m.latencyHistogram.Record(ctx, latencyMS, attrs)
}
