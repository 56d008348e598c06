package metrics

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/linchenxuan/eosemu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusReporterConfig is the `plugin.metrics.prometheus` section.
type PrometheusReporterConfig struct {
	Tag       string            `mapstructure:"tag"`
	Namespace string            `mapstructure:"namespace"`
	ExtLabels map[string]string `mapstructure:"extLabels"`
}

type metricType int

const (
	_metricTypeCounter metricType = iota
	_metricTypeGauge
)

// promGauge tracks the running average for stopwatch samples.
type promGauge struct {
	prometheus.Gauge
	value float64
	cnt   int
}

func (p *promGauge) merge(rc *Record) error {
	switch rc.Metrics().Policy() {
	case Policy_Set:
		p.Set(float64(rc.Value()))
	case Policy_Stopwatch:
		v, c := rc.RawData()
		p.value += float64(v)
		p.cnt += c
		if p.cnt <= 0 {
			return fmt.Errorf("metrics(%s) count invalid", rc.Metrics().Name())
		}
		p.Set(p.value / float64(p.cnt))
	default:
		return fmt.Errorf("metrics(%s) policy invalid for gauge", rc.Metrics().Name())
	}
	return nil
}

type metricWrapper struct {
	counter prometheus.Counter
	gauge   *promGauge
	mt      metricType
}

func (m *metricWrapper) merge(rc *Record) error {
	switch m.mt {
	case _metricTypeCounter:
		m.counter.Add(float64(rc.Value()))
		return nil
	default:
		return m.gauge.merge(rc)
	}
}

// PrometheusReporter converts samples into Prometheus collectors held in a
// private registry. Each distinct label set becomes its own collector with
// constant labels.
type PrometheusReporter struct {
	cfg      PrometheusReporterConfig
	registry *prometheus.Registry
	factory  promauto.Factory
	lock     sync.Mutex
	metrics  map[string]*metricWrapper
}

var _ Reporter = (*PrometheusReporter)(nil)

// NewPrometheusReporter creates a reporter. A nil cfg uses the defaults.
func NewPrometheusReporter(cfg *PrometheusReporterConfig) *PrometheusReporter {
	x := &PrometheusReporter{
		registry: prometheus.NewRegistry(),
		metrics:  map[string]*metricWrapper{},
	}
	if cfg != nil {
		x.cfg = *cfg
	}
	x.factory = promauto.With(x.registry)
	return x
}

// FactoryName identifies the reporter as a plugin instance.
func (x *PrometheusReporter) FactoryName() string {
	return "prometheus"
}

// Report merges one sample.
func (x *PrometheusReporter) Report(r Record) {
	x.lock.Lock()
	defer x.lock.Unlock()

	key := metricKey(&r)
	w, ok := x.metrics[key]
	if !ok {
		w = x.newWrapper(&r)
		x.metrics[key] = w
	}
	if err := w.merge(&r); err != nil {
		log.Error().Err(err).Str("metric", r.Metrics().Name()).Msg("prometheus merge")
	}
}

func (x *PrometheusReporter) newWrapper(rc *Record) *metricWrapper {
	labels := make(prometheus.Labels, len(x.cfg.ExtLabels)+len(rc.Dimensions()))
	for k, v := range x.cfg.ExtLabels {
		labels[k] = v
	}
	for k, v := range rc.Dimensions() {
		labels[k] = v
	}
	subsystem := strings.ReplaceAll(rc.Metrics().Group(), ".", "_")
	name := strings.ReplaceAll(rc.Metrics().Name(), ".", "_")

	if rc.Metrics().Policy() == Policy_Sum {
		return &metricWrapper{
			mt: _metricTypeCounter,
			counter: x.factory.NewCounter(prometheus.CounterOpts{
				Namespace:   x.cfg.Namespace,
				Subsystem:   subsystem,
				Name:        name,
				ConstLabels: labels,
			}),
		}
	}
	return &metricWrapper{
		mt: _metricTypeGauge,
		gauge: &promGauge{Gauge: x.factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   x.cfg.Namespace,
			Subsystem:   subsystem,
			Name:        name,
			ConstLabels: labels,
		})},
	}
}

// Gatherer exposes the private registry.
func (x *PrometheusReporter) Gatherer() prometheus.Gatherer {
	return x.registry
}

// Handler serves the registry in the Prometheus text format.
func (x *PrometheusReporter) Handler() http.Handler {
	return promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{})
}

func metricKey(rc *Record) string {
	var sb strings.Builder
	sb.WriteString(rc.Metrics().Group())
	sb.WriteByte('/')
	sb.WriteString(rc.Metrics().Name())

	keys := make([]string, 0, len(rc.Dimensions()))
	for k := range rc.Dimensions() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		sb.WriteByte(',')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(rc.Dimensions()[k])
	}
	return sb.String()
}
