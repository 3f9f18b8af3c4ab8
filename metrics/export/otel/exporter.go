package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/pinreset"
	"github.com/MrEthical07/pinreset/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *pinreset.Engine.
type MetricsSource interface {
	MetricsSnapshot() pinreset.MetricsSnapshot
}

// latencyInstruments exposes one engine histogram as a cumulative bucket
// gauge keyed by "le" plus a sample count.
type latencyInstruments struct {
	id      pinreset.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter publishes engine counters as OTel observable instruments.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration
	counters     map[pinreset.MetricID]metric.Int64ObservableCounter
	latencies    []latencyInstruments
	bucketAttrs  [internaldefs.BucketCount]metric.MeasurementOption
}

func NewExporter(meter metric.Meter, engine *pinreset.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers every instrument and one callback that
// reads a snapshot per collection.
func NewExporterFromSource(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[pinreset.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for i, le := range internaldefs.HistogramBucketLabels {
		e.bucketAttrs[i] = metric.WithAttributes(attribute.String("le", le))
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
		}
		e.latencies = append(e.latencies, latencyInstruments{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg

	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}

	for _, l := range e.latencies {
		totals := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[l.id]))
		for i, n := range totals {
			o.ObserveInt64(l.buckets, int64(n), e.bucketAttrs[i])
		}
		o.ObserveInt64(l.count, int64(totals[internaldefs.BucketCount-1]))
	}
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
