package evaluator

import "math"

// eps is the float64 machine epsilon, the floor of the precision denominator.
const eps = 2.220446049250313e-16

// Curve is a precision/recall curve ordered by descending prediction score.
type Curve struct {
	Recall    []float64 `json:"recall"`
	Precision []float64 `json:"precision"`
}

// Len returns the number of points on the curve.
func (c Curve) Len() int {
	return len(c.Recall)
}

// BuildCurve turns matched predictions into cumulative recall and precision.
//
//	recall[i]    = cumTP[i] / P
//	precision[i] = cumTP[i] / max(cumTP[i] + cumFP[i], eps)
//
// When the class has no positives (P == 0) recall is 0 at every point instead
// of an epsilon-division artifact. Discarded predictions add a point with
// unchanged cumulative counts.
func BuildCurve(m Matches) Curve {
	n := m.Len()
	c := Curve{
		Recall:    make([]float64, n),
		Precision: make([]float64, n),
	}

	var tp, fp float64
	for i := 0; i < n; i++ {
		if m.TP[i] {
			tp++
		}
		if m.FP[i] {
			fp++
		}
		if m.Positives > 0 {
			c.Recall[i] = tp / float64(m.Positives)
		}
		c.Precision[i] = tp / math.Max(tp+fp, eps)
	}
	return c
}
