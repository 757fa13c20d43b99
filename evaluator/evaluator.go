// Package evaluator - Pascal VOC mean Average Precision.
//
// An Evaluator owns a GroundTruthIndex and a PredictionStore. Predictions are
// appended image by image during a detection pass; Evaluate then runs, for
// every class, Match -> BuildCurve -> AveragePrecision and averages the
// per-class AP into mAP.
package evaluator

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-voc-eval/common"
	"github.com/nvr-ai/go-voc-eval/dataset/voc"
)

// Visualizer renders the ground truth and predictions of one image.
type Visualizer interface {
	Render(imagePath string, truth []GroundTruth, preds []Prediction) error
}

// Evaluator accumulates predictions over a dataset and computes mAP.
type Evaluator struct {
	cfg    config
	labels *voc.LabelMap
	gt     *GroundTruthIndex
	preds  *PredictionStore

	mu      sync.Mutex
	images  int
	visuals int
}

// New creates an Evaluator over a built ground-truth index.
//
// Arguments:
//   - labels: The class list; AP slots follow its order.
//   - gt: The ground-truth index of the evaluated split.
//   - opts: Optional settings.
//
// Returns:
//   - *Evaluator: An evaluator with an empty prediction store.
func New(labels *voc.LabelMap, gt *GroundTruthIndex, opts ...Option) *Evaluator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Evaluator{
		cfg:    cfg,
		labels: labels,
		gt:     gt,
		preds:  NewPredictionStore(labels.Len()),
	}
}

// Labels returns the label map of the evaluator.
func (e *Evaluator) Labels() *voc.LabelMap {
	return e.labels
}

// GroundTruth returns the ground-truth index.
func (e *Evaluator) GroundTruth() *GroundTruthIndex {
	return e.gt
}

// Predictions returns the prediction store.
func (e *Evaluator) Predictions() *PredictionStore {
	return e.preds
}

// Append records the detections of one image.
//
// The image id is the image path without directory and extension. A nil boxes
// slice means the detector produced nothing for the image and is a no-op.
//
// Arguments:
//   - imagePath: Path of the evaluated image.
//   - annotationPath: Path of its annotation, used by the visualizer when the
//     image is not in the index. May be empty.
//   - boxes, scores, labels: Parallel slices, one entry per detection.
//
// Returns:
//   - error: If the slices differ in length or a label is out of range. Nothing
//     is recorded in that case.
func (e *Evaluator) Append(imagePath, annotationPath string, boxes []common.BoundingBox, scores []float32, labels []int) error {
	if boxes == nil {
		return nil
	}
	if len(scores) != len(boxes) || len(labels) != len(boxes) {
		return errors.Errorf("%s: got %d boxes, %d scores, %d labels", imagePath, len(boxes), len(scores), len(labels))
	}
	for _, label := range labels {
		if !e.labels.Valid(label) {
			return errors.Errorf("%s: label %d out of range [0, %d)", imagePath, label, e.labels.Len())
		}
	}

	id := voc.ImageID(imagePath)
	preds := make([]Prediction, len(boxes))
	for i := range boxes {
		preds[i] = Prediction{ImageID: id, Label: labels[i], Box: boxes[i], Score: scores[i]}
		if err := e.preds.Add(id, labels[i], boxes[i], scores[i]); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.images++
	render := e.cfg.visualizer != nil && e.visuals < e.cfg.visualLimit
	if render {
		e.visuals++
	}
	e.mu.Unlock()

	if render {
		e.render(imagePath, annotationPath, id, preds)
	}
	return nil
}

func (e *Evaluator) render(imagePath, annotationPath, id string, preds []Prediction) {
	done := e.cfg.profiler.StartOperation("visualize")
	defer done()

	truth := e.gt.Objects(id)
	if !e.gt.Has(id) && annotationPath != "" {
		ann, err := voc.ParseAnnotation(annotationPath, e.labels)
		if err != nil {
			e.cfg.logger.Warn("visualize: annotation unavailable", zap.String("path", annotationPath), zap.Error(err))
		} else {
			for i := range ann.Boxes {
				truth = append(truth, GroundTruth{ImageID: id, Label: ann.Labels[i], Box: ann.Boxes[i], Difficult: ann.Difficult[i]})
			}
		}
	}

	if err := e.cfg.visualizer.Render(imagePath, truth, preds); err != nil {
		e.cfg.logger.Warn("visualize failed", zap.String("image", imagePath), zap.Error(err))
	}
}

// Reset drops accumulated predictions and the visualization counter. The
// ground-truth index is kept.
func (e *Evaluator) Reset() {
	e.preds.Reset()
	e.mu.Lock()
	e.images = 0
	e.visuals = 0
	e.mu.Unlock()
}

// Evaluate computes per-class AP and mAP over everything appended so far.
//
// Classes are independent and run on up to the configured number of workers;
// results are joined in class order. Match state is rebuilt for every call, so
// evaluating twice gives the same result. A failure inside one class is kept
// in that class's ClassResult and returned as part of the error, while every
// other class is still reported.
//
// Returns:
//   - *Result: Per-class AP, mAP, and counts. Never nil.
//   - error: The joined per-class failures, if any.
func (e *Evaluator) Evaluate() (*Result, error) {
	done := e.cfg.profiler.StartOperation("evaluate")
	defer done()

	n := e.labels.Len()
	classes := make([]ClassResult, n)

	workers := min(e.cfg.workers, n)
	jobs := make(chan int, n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for label := range jobs {
				classes[label] = e.evaluateClass(label)
			}
		}()
	}
	for label := 0; label < n; label++ {
		jobs <- label
	}
	close(jobs)
	wg.Wait()

	var err error
	for _, c := range classes {
		if c.Err != nil {
			err = multierr.Append(err, errors.Wrapf(c.Err, "class %s", c.Name))
		}
	}

	e.mu.Lock()
	images := e.images
	e.mu.Unlock()

	res := newResult(classes, e.cfg.metric, images, e.preds.Total())
	e.cfg.logger.Info("evaluation complete",
		zap.Stringer("metric", e.cfg.metric),
		zap.Float64("map", res.MAP),
		zap.Float64("map_with_predictions", res.MAPWithPredictions),
		zap.Int("images", res.Images),
		zap.Int("predictions", res.Predictions),
	)
	return res, err
}

func (e *Evaluator) evaluateClass(label int) (res ClassResult) {
	res = ClassResult{Label: label, Name: e.labels.Name(label)}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.AP = NoPredictions
			res.Err = errors.Errorf("panic: %v", r)
		}
	}()

	done := e.cfg.profiler.StartOperation("class")
	defer done()

	preds := e.preds.ForClass(label)
	res.Predictions = len(preds)
	res.Positives = e.gt.Positives(label)
	if len(preds) == 0 {
		res.Status = StatusNoPredictions
		res.AP = NoPredictions
		return res
	}

	m := Match(preds, e.gt.ClassObjects(label), res.Positives)
	res.TruePositives, res.FalsePositives = m.Count()
	res.Curve = BuildCurve(m)
	res.AP = AveragePrecision(res.Curve, e.cfg.metric)
	res.Status = StatusEvaluated
	if res.Positives == 0 {
		res.Status = StatusNoPositives
	}

	e.cfg.logger.Debug("class evaluated",
		zap.String("class", res.Name),
		zap.Float64("ap", res.AP),
		zap.Int("predictions", res.Predictions),
		zap.Int("positives", res.Positives),
		zap.Int("tp", res.TruePositives),
		zap.Int("fp", res.FalsePositives),
	)
	return res
}

// ClassAP runs the per-class pipeline on explicit inputs. An empty prediction
// list scores 0; the NoPredictions sentinel is only assigned by Evaluate.
func ClassAP(preds []Prediction, gts map[string][]GroundTruth, positives int, metric Metric) float64 {
	return AveragePrecision(BuildCurve(Match(preds, gts, positives)), metric)
}
