// Package visualize - draws ground truth and predictions for inspection.
package visualize

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-voc-eval/dataset/voc"
	"github.com/nvr-ai/go-voc-eval/evaluator"
)

var (
	truthColor     = color.RGBA{G: 255, A: 255}
	difficultColor = color.RGBA{R: 255, G: 200, A: 255}
	predColor      = color.RGBA{R: 255, A: 255}
)

// Renderer writes one annotated JPEG per image into a directory. It
// implements evaluator.Visualizer.
type Renderer struct {
	dir     string
	labels  *voc.LabelMap
	maxEdge uint
	quality int
	// minScore hides predictions below it; the low-score tail clutters the
	// picture without changing what it shows.
	minScore float32
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithMaxEdge bounds the longest side of the written image (default 1024).
func WithMaxEdge(px uint) RendererOption {
	return func(r *Renderer) {
		if px > 0 {
			r.maxEdge = px
		}
	}
}

// WithQuality sets the JPEG quality (default 90).
func WithQuality(q int) RendererOption {
	return func(r *Renderer) {
		if q > 0 && q <= 100 {
			r.quality = q
		}
	}
}

// WithMinScore hides predictions scored below s (default 0.3).
func WithMinScore(s float32) RendererOption {
	return func(r *Renderer) {
		r.minScore = s
	}
}

// NewRenderer creates dir if needed and returns a Renderer writing into it.
func NewRenderer(dir string, labels *voc.LabelMap, opts ...RendererOption) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create visualization dir %s", dir)
	}
	r := &Renderer{
		dir:      dir,
		labels:   labels,
		maxEdge:  1024,
		quality:  90,
		minScore: 0.3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OutputPath returns where the rendering of imagePath is written.
func (r *Renderer) OutputPath(imagePath string) string {
	return filepath.Join(r.dir, voc.ImageID(imagePath)+".jpg")
}

// Render draws truth in green (difficult objects in amber) and predictions
// in red with class and score, then writes a downsized JPEG.
func (r *Renderer) Render(imagePath string, truth []evaluator.GroundTruth, preds []evaluator.Prediction) error {
	mat := gocv.IMRead(imagePath, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return errors.Errorf("read image %s", imagePath)
	}

	for _, gt := range truth {
		c := truthColor
		if gt.Difficult {
			c = difficultColor
		}
		rect := gt.Box.ToRect()
		gocv.Rectangle(&mat, rect, c, 2)
		gocv.PutText(&mat, r.labels.Name(gt.Label), labelOrigin(rect), gocv.FontHersheySimplex, 0.5, c, 1)
	}
	for _, p := range preds {
		if p.Score < r.minScore {
			continue
		}
		rect := p.Box.ToRect()
		gocv.Rectangle(&mat, rect, predColor, 1)
		gocv.PutText(&mat, r.caption(p), image.Pt(rect.Min.X+2, rect.Max.Y-4), gocv.FontHersheySimplex, 0.45, predColor, 1)
	}

	img, err := mat.ToImage()
	if err != nil {
		return errors.Wrapf(err, "convert %s", imagePath)
	}
	return r.write(r.OutputPath(imagePath), resize.Thumbnail(r.maxEdge, r.maxEdge, img, resize.Bilinear))
}

func (r *Renderer) caption(p evaluator.Prediction) string {
	return fmt.Sprintf("%s %.2f", r.labels.Name(p.Label), p.Score)
}

func (r *Renderer) write(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: r.quality}); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// labelOrigin places text just above a box, or inside it at the top edge.
func labelOrigin(rect image.Rectangle) image.Point {
	y := rect.Min.Y - 4
	if y < 12 {
		y = rect.Min.Y + 14
	}
	return image.Pt(rect.Min.X, y)
}
