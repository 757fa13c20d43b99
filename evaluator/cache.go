package evaluator

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-voc-eval/dataset/voc"
)

// predictionFile is the on-disk form of a PredictionStore.
type predictionFile struct {
	Classes     []string     `json:"classes"`
	Predictions []Prediction `json:"predictions"`
}

// SavePredictions writes every accumulated prediction to path so that a later
// run can evaluate without running the detector again.
func (e *Evaluator) SavePredictions(path string) error {
	data, err := json.Marshal(predictionFile{
		Classes:     e.labels.Names(),
		Predictions: e.preds.All(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal predictions")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write predictions %s", path)
	}
	e.cfg.logger.Info("predictions saved", zap.String("path", path), zap.Int("count", e.preds.Total()))
	return nil
}

// LoadPredictions appends the predictions stored at path. The class list of
// the file must equal the evaluator's and every label must be in range;
// otherwise an error is returned and the store is left unchanged.
func (e *Evaluator) LoadPredictions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read predictions %s", path)
	}

	var file predictionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "decode predictions %s", path)
	}
	if err := sameClasses(file.Classes, e.labels); err != nil {
		return errors.Wrapf(err, "predictions %s", path)
	}

	// Nothing is added unless the whole file is valid.
	for i, p := range file.Predictions {
		if !e.labels.Valid(p.Label) {
			return errors.Errorf("predictions %s: entry %d (image %s): label %d out of range [0, %d)",
				path, i, p.ImageID, p.Label, e.labels.Len())
		}
	}

	images := make(map[string]struct{})
	for _, p := range file.Predictions {
		if err := e.preds.Add(p.ImageID, p.Label, p.Box, p.Score); err != nil {
			return errors.Wrapf(err, "predictions %s", path)
		}
		images[p.ImageID] = struct{}{}
	}

	e.mu.Lock()
	e.images += len(images)
	e.mu.Unlock()

	e.cfg.logger.Info("predictions loaded", zap.String("path", path), zap.Int("count", len(file.Predictions)))
	return nil
}

func sameClasses(names []string, labels *voc.LabelMap) error {
	if len(names) != labels.Len() {
		return errors.Errorf("file has %d classes, evaluator has %d", len(names), labels.Len())
	}
	for i, name := range names {
		if labels.Name(i) != name {
			return errors.Errorf("class %d is %q in file, %q in evaluator", i, name, labels.Name(i))
		}
	}
	return nil
}
