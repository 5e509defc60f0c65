package stash

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/markerdeck/markerdeck/internal/stash"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
