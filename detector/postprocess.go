package detector

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-voc-eval/common"
)

// Detection is one post-processed box in source image pixels.
type Detection struct {
	Box   common.BoundingBox
	Score float32
	Label int
}

// Split returns the parallel slices expected by evaluator.Append. The boxes
// slice is non-nil even when there are no detections.
func Split(dets []Detection) ([]common.BoundingBox, []float32, []int) {
	boxes := make([]common.BoundingBox, len(dets))
	scores := make([]float32, len(dets))
	labels := make([]int, len(dets))
	for i, d := range dets {
		boxes[i], scores[i], labels[i] = d.Box, d.Score, d.Label
	}
	return boxes, scores, labels
}

// transposeOutput turns the channel-major [4+C, N] output into N rows of
// 4+C values. raw is copied; the session reuses its output buffer.
func transposeOutput(raw []float32, numClasses, candidates int) ([]float32, error) {
	attrs := 4 + numClasses
	if len(raw) != attrs*candidates {
		return nil, errors.Errorf("output has %d values, want %d x %d", len(raw), attrs, candidates)
	}

	backing := make([]float32, len(raw))
	copy(backing, raw)
	t := tensor.New(tensor.WithShape(attrs, candidates), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	return t.Data().([]float32), nil
}

// decodeOutput converts raw model output into detections.
//
// Each row holds cx, cy, w, h in model input pixels followed by one score per
// class. The best class is kept when it reaches the confidence threshold; the
// box is mapped back through the letterbox and clamped to the image.
//
// Arguments:
//   - raw: The [1, 4+C, N] output tensor data.
//   - numClasses: C.
//   - candidates: N.
//   - lb: The letterbox used for the input.
//   - width, height: Source image size.
//   - conf: Minimum class score.
//
// Returns:
//   - []Detection: Unsuppressed detections, in candidate order.
//   - error: If raw does not have the expected size.
func decodeOutput(raw []float32, numClasses, candidates int, lb letterbox, width, height int, conf float32) ([]Detection, error) {
	rows, err := transposeOutput(raw, numClasses, candidates)
	if err != nil {
		return nil, err
	}

	attrs := 4 + numClasses
	var dets []Detection
	for i := 0; i < candidates; i++ {
		row := rows[i*attrs : (i+1)*attrs]

		label := -1
		best := float32(-1)
		for c, s := range row[4:] {
			if s > best {
				best, label = s, c
			}
		}
		if best < conf {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		box := lb.restore(common.BoundingBox{
			X1: cx - w/2,
			Y1: cy - h/2,
			X2: cx + w/2,
			Y2: cy + h/2,
		}).Clamp(float32(width), float32(height))
		if box.Area() <= 0 {
			continue
		}

		dets = append(dets, Detection{Box: box, Score: best, Label: label})
	}
	return dets, nil
}

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap above which a box is suppressed.
	ClassAware   bool    // If true, suppress only within the same class.
}

// ApplyNMS performs greedy Non-Maximum Suppression.
//
// Detections are ordered by descending score (stable); a detection survives
// unless a kept, higher-scored detection overlaps it by more than the
// threshold.
//
// Arguments:
//   - dets: Detections in any order. Not modified.
//   - cfg: NMS configuration.
//
// Returns:
//   - Kept detections, highest score first. Nil if dets is empty.
func ApplyNMS(dets []Detection, cfg NMSConfig) []Detection {
	n := len(dets)
	if n == 0 {
		return nil
	}

	sorted := make([]Detection, n)
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Detection, 0, n)
	used := make([]bool, n)
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		anchor := sorted[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if cfg.ClassAware && sorted[j].Label != anchor.Label {
				continue
			}
			if anchor.Box.IoU(sorted[j].Box) > cfg.IoUThreshold {
				used[j] = true
			}
		}
	}
	return kept
}
