// Package config - run configuration for voceval.
package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-voc-eval/dataset/voc"
	"github.com/nvr-ai/go-voc-eval/detector"
	"github.com/nvr-ai/go-voc-eval/evaluator"
)

// Config is the full configuration of one evaluation run.
type Config struct {
	Dataset     DatasetConfig     `json:"dataset" yaml:"dataset"`
	Evaluation  EvaluationConfig  `json:"evaluation" yaml:"evaluation"`
	Detector    detector.Config   `json:"detector" yaml:"detector"`
	Predictions PredictionsConfig `json:"predictions" yaml:"predictions"`
	Visualize   VisualizeConfig   `json:"visualize" yaml:"visualize"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`

	// Output is the path of the JSON report. Empty disables it.
	Output string `json:"output" yaml:"output"`
}

// DatasetConfig locates the evaluated split.
type DatasetConfig struct {
	// Root is a VOC year directory such as VOCdevkit/VOC2007.
	Root string `json:"root" yaml:"root"`
	// Set names the split file under ImageSets/Main.
	Set string `json:"set" yaml:"set"`
	// Annotations indexes every XML file of a directory instead of a split.
	// Predictions must then come from a cache.
	Annotations string `json:"annotations" yaml:"annotations"`
	// Classes overrides the 20 VOC classes.
	Classes []string `json:"classes" yaml:"classes"`
}

// EvaluationConfig selects the AP policy.
type EvaluationConfig struct {
	// Metric is "continuous" or "voc07".
	Metric  string `json:"metric" yaml:"metric"`
	Workers int    `json:"workers" yaml:"workers"`
}

// PredictionsConfig controls the prediction cache.
type PredictionsConfig struct {
	// Load evaluates cached predictions instead of running the detector.
	Load string `json:"load" yaml:"load"`
	// Save writes the accumulated predictions after the detection pass.
	Save string `json:"save" yaml:"save"`
}

// VisualizeConfig controls rendered images.
type VisualizeConfig struct {
	// Dir enables rendering into this directory.
	Dir      string  `json:"dir" yaml:"dir"`
	Limit    int     `json:"limit" yaml:"limit"`
	MaxEdge  uint    `json:"max_edge" yaml:"max_edge"`
	MinScore float32 `json:"min_score" yaml:"min_score"`
}

// LoggingConfig selects the logger.
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// DefaultConfig returns the settings used for fields absent from a file.
func DefaultConfig() Config {
	return Config{
		Dataset: DatasetConfig{
			Set: "test",
		},
		Evaluation: EvaluationConfig{
			Metric: evaluator.MetricContinuous.String(),
		},
		Detector: detector.DefaultConfig(),
		Visualize: VisualizeConfig{
			Limit:    evaluator.DefaultVisualLimit,
			MaxEdge:  1024,
			MinScore: 0.3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over DefaultConfig.
//
// Arguments:
//   - path: Path to the YAML file.
//
// Returns:
//   - Config: The merged configuration. Not validated.
//   - error: If the file cannot be read or decoded.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable evaluation.
func (c Config) Validate() error {
	if c.Dataset.Root == "" && c.Dataset.Annotations == "" {
		return errors.New("config: dataset.root or dataset.annotations is required")
	}
	if c.Dataset.Root == "" && c.Predictions.Load == "" {
		return errors.New("config: predictions.load is required without dataset.root")
	}
	if c.Predictions.Load == "" {
		if err := c.Detector.Validate(); err != nil {
			return errors.Wrap(err, "config")
		}
	}
	if _, err := evaluator.ParseMetric(c.Evaluation.Metric); err != nil {
		return errors.Wrap(err, "config: evaluation.metric")
	}
	if c.Evaluation.Workers < 0 {
		return errors.Errorf("config: evaluation.workers must not be negative, got %d", c.Evaluation.Workers)
	}
	if _, err := c.LabelMap(); err != nil {
		return errors.Wrap(err, "config: dataset.classes")
	}
	if _, err := c.LogLevel(); err != nil {
		return errors.Wrap(err, "config: logging.level")
	}
	return nil
}

// LabelMap returns the configured classes, or the VOC classes by default.
func (c Config) LabelMap() (*voc.LabelMap, error) {
	if len(c.Dataset.Classes) == 0 {
		return voc.DefaultLabelMap(), nil
	}
	return voc.NewLabelMap(c.Dataset.Classes)
}

// Metric returns the parsed AP policy, falling back to continuous.
func (c Config) Metric() evaluator.Metric {
	m, err := evaluator.ParseMetric(c.Evaluation.Metric)
	if err != nil {
		return evaluator.MetricContinuous
	}
	return m
}

// LogLevel parses Logging.Level.
func (c Config) LogLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Logging.Level)
}
