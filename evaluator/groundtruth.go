package evaluator

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-voc-eval/common"
	"github.com/nvr-ai/go-voc-eval/dataset/voc"
	"github.com/nvr-ai/go-voc-eval/logger"
	"github.com/nvr-ai/go-voc-eval/util"
)

// GroundTruth is one annotated object of one image.
type GroundTruth struct {
	ImageID   string             `json:"image_id"`
	Label     int                `json:"label"`
	Box       common.BoundingBox `json:"bbox"`
	Difficult bool               `json:"difficult"`
}

// GroundTruthIndex stores, per image id, the annotated objects of a dataset.
// It is immutable once built; match state is never stored here.
type GroundTruthIndex struct {
	numClasses int
	images     map[string][]GroundTruth
	order      []string
	skipped    []error
}

// NewGroundTruthIndex creates an empty index for numClasses classes.
func NewGroundTruthIndex(numClasses int) *GroundTruthIndex {
	return &GroundTruthIndex{
		numClasses: numClasses,
		images:     make(map[string][]GroundTruth),
	}
}

// Add registers objects. An image id is registered even when gts is empty for
// it, so images without objects still count as known.
func (g *GroundTruthIndex) Add(imageID string, gts ...GroundTruth) error {
	for _, gt := range gts {
		if gt.Label < 0 || gt.Label >= g.numClasses {
			return errors.Errorf("image %s: label %d out of range [0, %d)", imageID, gt.Label, g.numClasses)
		}
	}

	if _, ok := g.images[imageID]; !ok {
		g.order = append(g.order, imageID)
		g.images[imageID] = nil
	}
	for _, gt := range gts {
		gt.ImageID = imageID
		g.images[imageID] = append(g.images[imageID], gt)
	}
	return nil
}

// AddAnnotation registers the objects of a parsed annotation.
func (g *GroundTruthIndex) AddAnnotation(ann *voc.Annotation) error {
	if len(ann.Labels) != len(ann.Boxes) || len(ann.Difficult) != len(ann.Boxes) {
		return errors.Errorf("image %s: annotation slices differ in length", ann.ImageID)
	}

	gts := make([]GroundTruth, len(ann.Boxes))
	for i := range ann.Boxes {
		gts[i] = GroundTruth{
			Label:     ann.Labels[i],
			Box:       ann.Boxes[i],
			Difficult: ann.Difficult[i],
		}
	}
	return g.Add(ann.ImageID, gts...)
}

// NumClasses returns the number of classes the index was built for.
func (g *GroundTruthIndex) NumClasses() int {
	return g.numClasses
}

// Len returns the number of indexed images.
func (g *GroundTruthIndex) Len() int {
	return len(g.order)
}

// Images returns the indexed image ids in insertion order.
func (g *GroundTruthIndex) Images() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Has reports whether imageID is indexed.
func (g *GroundTruthIndex) Has(imageID string) bool {
	_, ok := g.images[imageID]
	return ok
}

// Objects returns every object of one image.
func (g *GroundTruthIndex) Objects(imageID string) []GroundTruth {
	return g.images[imageID]
}

// ClassObjects returns, per image id, the objects of one class. Images
// without objects of that class are omitted.
func (g *GroundTruthIndex) ClassObjects(label int) map[string][]GroundTruth {
	out := make(map[string][]GroundTruth)
	for id, gts := range g.images {
		for _, gt := range gts {
			if gt.Label == label {
				out[id] = append(out[id], gt)
			}
		}
	}
	return out
}

// Positives returns the number of non-difficult objects of a class across
// the whole dataset.
func (g *GroundTruthIndex) Positives(label int) int {
	n := 0
	for _, gts := range g.images {
		for _, gt := range gts {
			if gt.Label == label && !gt.Difficult {
				n++
			}
		}
	}
	return n
}

// Skipped returns the errors of annotation files left out during the build.
func (g *GroundTruthIndex) Skipped() []error {
	return g.skipped
}

// IndexOption configures a ground-truth build.
type IndexOption func(*indexConfig)

type indexConfig struct {
	logger *zap.Logger
}

// WithIndexLogger sets the logger used to report skipped files.
func WithIndexLogger(l *zap.Logger) IndexOption {
	return func(c *indexConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newIndexConfig(opts []IndexOption) indexConfig {
	cfg := indexConfig{logger: logger.Log()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// BuildGroundTruth indexes every *.xml annotation in dir.
//
// A malformed or unreadable annotation is logged, recorded in Skipped and left
// out; one corrupt file does not abort the evaluation of a whole dataset.
//
// Arguments:
//   - dir: Directory holding VOC annotation files.
//   - labels: Label map translating class names.
//
// Returns:
//   - *GroundTruthIndex: The index.
//   - error: Only if dir itself cannot be listed.
func BuildGroundTruth(dir string, labels *voc.LabelMap, opts ...IndexOption) (*GroundTruthIndex, error) {
	cfg := newIndexConfig(opts)

	files, err := util.ListFiles(dir, ".xml")
	if err != nil {
		return nil, errors.Wrapf(err, "list annotations in %s", dir)
	}

	index := NewGroundTruthIndex(labels.Len())
	for _, file := range files {
		index.addFile(file, labels, cfg.logger)
	}

	cfg.logger.Info("ground truth indexed",
		zap.String("dir", dir),
		zap.Int("images", index.Len()),
		zap.Int("skipped", len(index.skipped)),
	)
	return index, nil
}

// BuildGroundTruthFromSet indexes the annotations of the images listed in
// <root>/ImageSets/Main/<set>.txt. Skipping follows BuildGroundTruth.
func BuildGroundTruthFromSet(root, set string, labels *voc.LabelMap, opts ...IndexOption) (*GroundTruthIndex, error) {
	cfg := newIndexConfig(opts)

	ids, err := voc.ReadImageSet(root, set)
	if err != nil {
		return nil, err
	}

	index := NewGroundTruthIndex(labels.Len())
	for _, id := range ids {
		index.addFile(voc.AnnotationPath(root, id), labels, cfg.logger)
	}

	cfg.logger.Info("ground truth indexed",
		zap.String("root", root),
		zap.String("set", set),
		zap.Int("images", index.Len()),
		zap.Int("skipped", len(index.skipped)),
	)
	return index, nil
}

func (g *GroundTruthIndex) addFile(path string, labels *voc.LabelMap, log *zap.Logger) {
	ann, err := voc.ParseAnnotation(path, labels)
	if err == nil {
		err = g.AddAnnotation(ann)
	}
	if err != nil {
		log.Warn("skipping annotation", zap.String("path", path), zap.Error(err))
		g.skipped = append(g.skipped, err)
		return
	}
	if ann.Inverted > 0 {
		log.Warn("dropped objects with inverted boxes",
			zap.String("image", ann.ImageID),
			zap.Int("count", ann.Inverted),
		)
	}
	if ann.Unknown > 0 {
		log.Debug("dropped objects with unknown classes",
			zap.String("image", ann.ImageID),
			zap.Int("count", ann.Unknown),
		)
	}
}
