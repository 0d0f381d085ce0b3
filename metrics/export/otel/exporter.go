package otel

import (
	"context"
	"errors"
	"fmt"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on each collection. *goToken.Engine
// implements it.
type Source interface {
	MetricsSnapshot() goToken.MetricsSnapshot
	AuditDropped() uint64
}

// Option configures an [Exporter].
type Option func(*options)

type options struct {
	attrs []attribute.KeyValue
}

// WithAttributes adds constant attributes to every observation, for
// example the service instance when several engines share a meter.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// observeFunc records one instrument's value from a snapshot.
type observeFunc func(metric.Observer, goToken.MetricsSnapshot, uint64)

// Exporter bridges engine metrics to an OpenTelemetry meter.
type Exporter struct {
	registration metric.Registration
}

// NewExporter registers observable instruments for every engine metric on
// meter. Values are read from engine at collection time.
func NewExporter(meter metric.Meter, engine *goToken.Engine, opts ...Option) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine, opts...)
}

// NewExporterFromSource is NewExporter over any [Source].
func NewExporterFromSource(meter metric.Meter, source Source, opts ...Option) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	common := metric.WithAttributes(o.attrs...)

	var (
		instruments []metric.Observable
		observers   []observeFunc
	)

	for _, def := range internaldefs.CounterDefs {
		counter, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		id := def.ID
		instruments = append(instruments, counter)
		observers = append(observers, func(obs metric.Observer, snap goToken.MetricsSnapshot, _ uint64) {
			obs.ObserveInt64(counter, int64(snap.Counters[id]), common)
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		observe, created, err := histogramObservers(meter, def, o.attrs)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, created...)
		observers = append(observers, observe)
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	instruments = append(instruments, dropped)
	observers = append(observers, func(obs metric.Observer, _ goToken.MetricsSnapshot, auditDropped uint64) {
		obs.ObserveInt64(dropped, int64(auditDropped), common)
	})

	registration, err := meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		snap := source.MetricsSnapshot()
		auditDropped := source.AuditDropped()
		for _, observe := range observers {
			observe(obs, snap, auditDropped)
		}
		return nil
	}, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &Exporter{registration: registration}, nil
}

// histogramObservers exports def as a cumulative "<name>_bucket" gauge keyed
// by an "le" attribute, plus a "<name>_count" gauge. Observable instruments
// cannot carry native histograms.
func histogramObservers(meter metric.Meter, def internaldefs.HistogramDef, attrs []attribute.KeyValue) (observeFunc, []metric.Observable, error) {
	bucket, err := meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return nil, nil, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Total observations."))
	if err != nil {
		return nil, nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}

	perBucket := make([]metric.ObserveOption, len(internaldefs.HistogramUpperBounds)+1)
	for i := range perBucket {
		withLE := append(append([]attribute.KeyValue(nil), attrs...), attribute.String("le", internaldefs.BucketLabel(i)))
		perBucket[i] = metric.WithAttributes(withLE...)
	}
	common := metric.WithAttributes(attrs...)
	id := def.ID

	observe := func(obs metric.Observer, snap goToken.MetricsSnapshot, _ uint64) {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, v := range cumulative {
			obs.ObserveInt64(bucket, int64(v), perBucket[i])
		}
		obs.ObserveInt64(count, int64(cumulative[len(cumulative)-1]), common)
	}
	return observe, []metric.Observable{bucket, count}, nil
}

// Close unregisters the collection callback. The meter keeps the instruments.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
