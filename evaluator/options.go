package evaluator

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-voc-eval/logger"
	"github.com/nvr-ai/go-voc-eval/profiler"
)

// DefaultVisualLimit is the number of images rendered by a visualizer before
// further Append calls stop rendering.
const DefaultVisualLimit = 2000

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	metric      Metric
	workers     int
	logger      *zap.Logger
	visualizer  Visualizer
	visualLimit int
	profiler    *profiler.Profiler
}

func defaultConfig() config {
	return config{
		metric:      MetricContinuous,
		workers:     runtime.NumCPU(),
		logger:      logger.Log(),
		visualLimit: DefaultVisualLimit,
	}
}

// WithMetric sets the AP integration policy (default: MetricContinuous).
func WithMetric(m Metric) Option {
	return func(c *config) {
		c.metric = m
	}
}

// WithVOC07 selects the 11-point metric when use07 is true.
func WithVOC07(use07 bool) Option {
	return func(c *config) {
		if use07 {
			c.metric = MetricVOC07
		} else {
			c.metric = MetricContinuous
		}
	}
}

// WithWorkers sets how many classes are evaluated concurrently
// (default: runtime.NumCPU()).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger (default: logger.Log()).
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithVisualizer renders ground truth and predictions of the first limit
// appended images. A limit <= 0 keeps DefaultVisualLimit.
func WithVisualizer(v Visualizer, limit int) Option {
	return func(c *config) {
		c.visualizer = v
		if limit > 0 {
			c.visualLimit = limit
		}
	}
}

// WithProfiler records stage timings into p.
func WithProfiler(p *profiler.Profiler) Option {
	return func(c *config) {
		c.profiler = p
	}
}
