package evaluator

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-voc-eval/common"
)

// Prediction is one detection emitted for one image and one class.
type Prediction struct {
	ImageID string             `json:"image_id"`
	Label   int                `json:"label"`
	Box     common.BoundingBox `json:"bbox"`
	Score   float32            `json:"score"`
}

// PredictionStore accumulates, per class, every prediction of a dataset pass
// in insertion order.
type PredictionStore struct {
	mu         sync.RWMutex
	numClasses int
	byClass    [][]Prediction
}

// NewPredictionStore creates an empty store for numClasses classes.
func NewPredictionStore(numClasses int) *PredictionStore {
	return &PredictionStore{
		numClasses: numClasses,
		byClass:    make([][]Prediction, numClasses),
	}
}

// Add records one prediction.
func (s *PredictionStore) Add(imageID string, label int, box common.BoundingBox, score float32) error {
	if label < 0 || label >= s.numClasses {
		return errors.Errorf("image %s: label %d out of range [0, %d)", imageID, label, s.numClasses)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClass[label] = append(s.byClass[label], Prediction{
		ImageID: imageID,
		Label:   label,
		Box:     box,
		Score:   score,
	})
	return nil
}

// ForClass returns a copy of the predictions of one class in insertion order.
func (s *PredictionStore) ForClass(label int) []Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if label < 0 || label >= s.numClasses {
		return nil
	}
	out := make([]Prediction, len(s.byClass[label]))
	copy(out, s.byClass[label])
	return out
}

// Len returns the number of predictions of one class.
func (s *PredictionStore) Len(label int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if label < 0 || label >= s.numClasses {
		return 0
	}
	return len(s.byClass[label])
}

// Total returns the number of predictions over all classes.
func (s *PredictionStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, preds := range s.byClass {
		n += len(preds)
	}
	return n
}

// NumClasses returns the number of classes of the store.
func (s *PredictionStore) NumClasses() int {
	return s.numClasses
}

// Reset drops every accumulated prediction.
func (s *PredictionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClass = make([][]Prediction, s.numClasses)
}

// All returns every prediction, class by class.
func (s *PredictionStore) All() []Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Prediction
	for _, preds := range s.byClass {
		out = append(out, preds...)
	}
	return out
}
