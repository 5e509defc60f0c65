package editor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/markerdeck/markerdeck/internal/editor"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	mutations metric.Int64Counter
	refetches metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	mutations, err := m.Int64Counter(
		"editor.mutations",
		metric.WithDescription("Marker mutations sent upstream by kind and outcome"),
	)
	if err != nil {
		return nil, err
	}
	refetches, err := m.Int64Counter(
		"editor.refetches",
		metric.WithDescription("Delayed marker refetches"),
	)
	if err != nil {
		return nil, err
	}
	return &metrics{mutations: mutations, refetches: refetches}, nil
}

func (m *metrics) mutation(ctx context.Context, kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) refetch(ctx context.Context) {
	if m == nil {
		return
	}
	m.refetches.Add(ctx, 1)
}
