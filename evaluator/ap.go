package evaluator

import (
	"math"

	"github.com/pkg/errors"
)

// Metric selects how a precision/recall curve is integrated.
type Metric int

const (
	// MetricContinuous integrates the area under the monotone precision
	// envelope at every point where recall changes (VOC2010 and later).
	MetricContinuous Metric = iota
	// MetricVOC07 averages the interpolated precision at the 11 recall
	// thresholds 0.0, 0.1, ..., 1.0 (VOC2007 devkit).
	MetricVOC07
)

func (m Metric) String() string {
	switch m {
	case MetricContinuous:
		return "continuous"
	case MetricVOC07:
		return "voc07"
	default:
		return "unknown"
	}
}

// ParseMetric parses the String form of a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "continuous", "":
		return MetricContinuous, nil
	case "voc07", "11point":
		return MetricVOC07, nil
	default:
		return 0, errors.Errorf("unknown metric %q", s)
	}
}

// NoPredictions is the AP reported for a class that received no predictions.
const NoPredictions = -1.0

// AveragePrecision integrates a curve into one AP value in [0, 1]. An empty
// curve scores 0.
func AveragePrecision(c Curve, metric Metric) float64 {
	if c.Len() == 0 {
		return 0
	}
	if metric == MetricVOC07 {
		return elevenPointAP(c)
	}
	return continuousAP(c)
}

// elevenPointAP averages the best precision at recall >= t for t in
// 0, 0.1, ..., 1. Thresholds are exactly step/10; the numpy devkit steps with
// arange and lands slightly above 0.3, 0.6 and 0.7, so a recall of exactly
// 0.3, 0.6 or 0.7 counts here but not there.
func elevenPointAP(c Curve) float64 {
	ap := 0.0
	for step := 0; step <= 10; step++ {
		t := float64(step) / 10
		p := 0.0
		for i, r := range c.Recall {
			if r >= t && c.Precision[i] > p {
				p = c.Precision[i]
			}
		}
		ap += p / 11
	}
	return ap
}

func continuousAP(c Curve) float64 {
	n := c.Len()
	mrec := make([]float64, n+2)
	mpre := make([]float64, n+2)
	copy(mrec[1:], c.Recall)
	copy(mpre[1:], c.Precision)
	mrec[n+1] = 1

	// Precision envelope: non-increasing from left to right.
	for i := len(mpre) - 1; i > 0; i-- {
		mpre[i-1] = math.Max(mpre[i-1], mpre[i])
	}

	ap := 0.0
	for i := 0; i+1 < len(mrec); i++ {
		if mrec[i+1] != mrec[i] {
			ap += (mrec[i+1] - mrec[i]) * mpre[i+1]
		}
	}
	return ap
}
