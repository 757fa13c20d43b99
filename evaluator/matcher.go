package evaluator

import (
	"sort"

	"github.com/chewxy/math32"
)

// IoUThreshold is the minimum overlap, exclusive, for a prediction to claim a
// ground-truth box. It is the fixed VOC value.
const IoUThreshold = 0.5

// Matches holds the per-prediction outcome of matching one class, ordered by
// descending score. A prediction with TP and FP both false was discarded
// because its best match was a difficult object.
type Matches struct {
	TP        []bool
	FP        []bool
	Scores    []float32
	ImageIDs  []string
	Positives int
}

// Len returns the number of predictions matched.
func (m Matches) Len() int {
	return len(m.TP)
}

// Count returns the number of true and false positives.
func (m Matches) Count() (tp, fp int) {
	for i := range m.TP {
		if m.TP[i] {
			tp++
		}
		if m.FP[i] {
			fp++
		}
	}
	return tp, fp
}

// Match greedily assigns the predictions of one class to its ground truth.
//
// Predictions are visited by descending score (stable, so equal scores keep
// insertion order). Each one is compared against every object of its image;
// the best overlap above IoUThreshold decides the outcome:
//
//   - difficult object: discarded, neither TP nor FP
//   - unclaimed object: TP, and the object is claimed
//   - claimed object: FP (duplicate detection)
//
// Anything else, including an image with no objects of the class, is a FP.
//
// Arguments:
//   - preds: The predictions of one class, in insertion order.
//   - gts: The objects of the same class keyed by image id.
//   - positives: The number of non-difficult objects of the class.
//
// Returns:
//   - Matches: TP/FP flags in score order.
func Match(preds []Prediction, gts map[string][]GroundTruth, positives int) Matches {
	order := make([]int, len(preds))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return preds[order[a]].Score > preds[order[b]].Score
	})

	m := Matches{
		TP:        make([]bool, len(preds)),
		FP:        make([]bool, len(preds)),
		Scores:    make([]float32, len(preds)),
		ImageIDs:  make([]string, len(preds)),
		Positives: positives,
	}

	// Claimed flags live only for this pass.
	detected := make(map[string][]bool, len(gts))
	for id, objs := range gts {
		detected[id] = make([]bool, len(objs))
	}

	for rank, idx := range order {
		pred := preds[idx]
		m.Scores[rank] = pred.Score
		m.ImageIDs[rank] = pred.ImageID

		objs := gts[pred.ImageID]
		ovmax := math32.Inf(-1)
		jmax := -1
		for j, gt := range objs {
			if iou := pred.Box.IoU(gt.Box); iou > ovmax {
				ovmax = iou
				jmax = j
			}
		}

		if jmax < 0 || ovmax <= IoUThreshold {
			m.FP[rank] = true
			continue
		}
		if objs[jmax].Difficult {
			continue
		}
		claimed := detected[pred.ImageID]
		if claimed[jmax] {
			m.FP[rank] = true
			continue
		}
		claimed[jmax] = true
		m.TP[rank] = true
	}

	return m
}
