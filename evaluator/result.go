package evaluator

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
)

// Status describes how a class AP was obtained.
type Status int

const (
	// StatusEvaluated means the class had predictions and positives.
	StatusEvaluated Status = iota
	// StatusNoPredictions means no prediction was submitted; AP is -1.
	StatusNoPredictions
	// StatusNoPositives means predictions exist but the class has no
	// non-difficult objects; recall is 0 and AP is 0.
	StatusNoPositives
	// StatusFailed means the class pipeline failed; AP is -1 and Err is set.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEvaluated:
		return "evaluated"
	case StatusNoPredictions:
		return "no_predictions"
	case StatusNoPositives:
		return "no_positives"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClassResult is the evaluation outcome of one class.
type ClassResult struct {
	Label          int     `json:"label"`
	Name           string  `json:"name"`
	AP             float64 `json:"ap"`
	Status         Status  `json:"status"`
	Predictions    int     `json:"predictions"`
	Positives      int     `json:"positives"`
	TruePositives  int     `json:"tp"`
	FalsePositives int     `json:"fp"`
	Curve          Curve   `json:"-"`
	Err            error   `json:"-"`
	Error          string  `json:"error,omitempty"`
}

// Result is the outcome of one Evaluate call.
type Result struct {
	Metric Metric `json:"-"`
	// MetricName is the String form of Metric.
	MetricName string `json:"metric"`
	// MAP is the mean over all classes, counting -1 for classes without
	// predictions (and failed ones).
	MAP float64 `json:"map"`
	// MAPWithPredictions is the mean over classes that had predictions and
	// did not fail.
	MAPWithPredictions float64       `json:"map_with_predictions"`
	Classes            []ClassResult `json:"classes"`
	Images             int           `json:"images"`
	Predictions        int           `json:"predictions"`
}

func newResult(classes []ClassResult, metric Metric, images, predictions int) *Result {
	r := &Result{
		Metric:      metric,
		MetricName:  metric.String(),
		Classes:     classes,
		Images:      images,
		Predictions: predictions,
	}

	var sum, sumValid float64
	valid := 0
	for i := range classes {
		if classes[i].Err != nil {
			classes[i].Error = classes[i].Err.Error()
		}
		sum += classes[i].AP
		if classes[i].Status == StatusEvaluated || classes[i].Status == StatusNoPositives {
			sumValid += classes[i].AP
			valid++
		}
	}
	if len(classes) > 0 {
		r.MAP = sum / float64(len(classes))
	}
	if valid > 0 {
		r.MAPWithPredictions = sumValid / float64(valid)
	}
	return r
}

// Values returns [mAP, AP_0, AP_1, ..., AP_{C-1}].
func (r *Result) Values() []float64 {
	out := make([]float64, 0, len(r.Classes)+1)
	out = append(out, r.MAP)
	for _, c := range r.Classes {
		out = append(out, c.AP)
	}
	return out
}

// AP returns the AP of the class with the given name.
func (r *Result) AP(name string) (float64, bool) {
	for _, c := range r.Classes {
		if c.Name == name {
			return c.AP, true
		}
	}
	return 0, false
}

// Table renders the per-class results as a text table.
func (r *Result) Table() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("VOC mAP (%s)", r.MetricName))
	t.AppendHeader(table.Row{"#", "Class", "AP", "Predictions", "Positives", "TP", "FP", "Status"})
	for _, c := range r.Classes {
		t.AppendRow(table.Row{
			c.Label,
			c.Name,
			fmt.Sprintf("%.4f", c.AP),
			c.Predictions,
			c.Positives,
			c.TruePositives,
			c.FalsePositives,
			c.Status.String(),
		})
	}
	t.AppendFooter(table.Row{"", "mAP", fmt.Sprintf("%.4f", r.MAP), "", "", "", "", ""})
	t.AppendFooter(table.Row{"", "mAP (predicted)", fmt.Sprintf("%.4f", r.MAPWithPredictions), "", "", "", "", ""})
	return t.Render()
}

// WriteJSON writes the result as indented JSON.
func (r *Result) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write result %s", path)
	}
	return nil
}
