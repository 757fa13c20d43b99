package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-voc-eval/evaluator"
)

const sample = `
dataset:
  root: /data/VOCdevkit/VOC2007
  set: val
evaluation:
  metric: voc07
  workers: 4
detector:
  model_path: models/yolov8n-voc.onnx
  confidence_threshold: 0.005
visualize:
  dir: out/vis
  limit: 50
logging:
  level: debug
output: out/result.json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voceval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/VOCdevkit/VOC2007", cfg.Dataset.Root)
	assert.Equal(t, "val", cfg.Dataset.Set)
	assert.Equal(t, evaluator.MetricVOC07, cfg.Metric())
	assert.Equal(t, 4, cfg.Evaluation.Workers)
	assert.Equal(t, "models/yolov8n-voc.onnx", cfg.Detector.ModelPath)
	assert.Equal(t, float32(0.005), cfg.Detector.ConfidenceThreshold)
	assert.Equal(t, "out/result.json", cfg.Output)
	assert.Equal(t, 50, cfg.Visualize.Limit)

	// Absent fields keep their defaults.
	assert.Equal(t, 640, cfg.Detector.InputSize)
	assert.Equal(t, uint(1024), cfg.Visualize.MaxEdge)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	labels, err := cfg.LabelMap()
	require.NoError(t, err)
	assert.Equal(t, 20, labels.Len())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "dataset: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Dataset.Root = "/voc"
		cfg.Detector.ModelPath = "m.onnx"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no dataset", func(c *Config) { c.Dataset.Root = "" }},
		{"annotations without cache", func(c *Config) { c.Dataset.Root = ""; c.Dataset.Annotations = "/ann" }},
		{"no model", func(c *Config) { c.Detector.ModelPath = "" }},
		{"bad metric", func(c *Config) { c.Evaluation.Metric = "coco" }},
		{"negative workers", func(c *Config) { c.Evaluation.Workers = -1 }},
		{"duplicate class", func(c *Config) { c.Dataset.Classes = []string{"cat", "cat"} }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cached := DefaultConfig()
	cached.Dataset.Annotations = "/ann"
	cached.Predictions.Load = "preds.json"
	assert.NoError(t, cached.Validate(), "a cache replaces the detector")
}

func TestLabelMap_Custom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dataset.Classes = []string{"cat", "dog"}
	labels, err := cfg.LabelMap()
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, labels.Names())
}
