package fvapprox

import (
	"github.com/hupe1980/fvapprox/cache"
	"github.com/hupe1980/fvapprox/normalize"
	"github.com/hupe1980/fvapprox/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	cache            cache.Cache
	controller       *resource.Controller
	scaler           *normalize.Scaler
}

// Option configures an Evaluator.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCache memoizes aggregated chunks in c instead of the cache described
// by Config.Cache. Caching still requires Config.Dataset to be set.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithController shares a resource controller across evaluators.
// It overrides Config.Workers.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithScaler sets the standardization fit on training videos.
// Required when Config.Standardize is set.
func WithScaler(s *normalize.Scaler) Option {
	return func(o *options) {
		o.scaler = s
	}
}
