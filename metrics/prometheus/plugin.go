// Package prometheus registers the Prometheus metrics reporter as a plugin.
package prometheus

import (
	"fmt"

	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics"
	"github.com/linchenxuan/eosemu/plugin"
)

// Factory builds *metrics.PrometheusReporter instances and attaches them to
// the metrics fan-out.
type Factory struct{}

var _ plugin.Factory = (*Factory)(nil)

// NewFactory returns the prometheus reporter factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Type returns the plugin type.
func (f *Factory) Type() plugin.Type {
	return plugin.Metrics
}

// Name returns the name of the plugin implementation.
func (f *Factory) Name() string {
	return "prometheus"
}

// ConfigType returns an empty struct that represents the plugin's configuration.
func (f *Factory) ConfigType() any {
	return &metrics.PrometheusReporterConfig{}
}

// Setup creates a reporter and starts feeding it every recorded sample.
func (f *Factory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*metrics.PrometheusReporterConfig)
	if !ok {
		return nil, fmt.Errorf("prometheus: unexpected config type %T", cfgAny)
	}

	p := metrics.NewPrometheusReporter(cfg)
	metrics.AddReporter(p)
	log.Info().Str("namespace", cfg.Namespace).Msg("prometheus reporter attached")
	return p, nil
}

// Destroy detaches the reporter.
func (f *Factory) Destroy(p plugin.Plugin) {
	prom, ok := p.(*metrics.PrometheusReporter)
	if !ok {
		log.Error().Str("plugin", p.FactoryName()).Msg("prometheus destroy: foreign plugin")
		return
	}
	metrics.RemoveReporter(prom)
}
