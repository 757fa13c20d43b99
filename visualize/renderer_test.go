package visualize

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-voc-eval/common"
	"github.com/nvr-ai/go-voc-eval/dataset/voc"
	"github.com/nvr-ai/go-voc-eval/evaluator"
)

func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()
	require.True(t, gocv.IMWrite(path, mat))
}

func TestRenderer_Render(t *testing.T) {
	src := filepath.Join(t.TempDir(), "000042.jpg")
	writeTestImage(t, src, 400, 200)

	out := filepath.Join(t.TempDir(), "vis")
	r, err := NewRenderer(out, voc.DefaultLabelMap(), WithMaxEdge(100), WithQuality(80))
	require.NoError(t, err)

	truth := []evaluator.GroundTruth{
		{ImageID: "000042", Label: 14, Box: common.NewBoundingBox(10, 10, 100, 150)},
		{ImageID: "000042", Label: 11, Box: common.NewBoundingBox(200, 20, 300, 120), Difficult: true},
	}
	preds := []evaluator.Prediction{
		{ImageID: "000042", Label: 14, Box: common.NewBoundingBox(12, 8, 98, 148), Score: 0.91},
		{ImageID: "000042", Label: 11, Box: common.NewBoundingBox(0, 0, 5, 5), Score: 0.01},
	}
	require.NoError(t, r.Render(src, truth, preds))

	path := r.OutputPath(src)
	assert.Equal(t, filepath.Join(out, "000042.jpg"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestRenderer_MissingImage(t *testing.T) {
	r, err := NewRenderer(t.TempDir(), voc.DefaultLabelMap())
	require.NoError(t, err)
	assert.Error(t, r.Render(filepath.Join(t.TempDir(), "nope.jpg"), nil, nil))
}

func TestRenderer_Caption(t *testing.T) {
	r, err := NewRenderer(t.TempDir(), voc.DefaultLabelMap())
	require.NoError(t, err)
	assert.Equal(t, "person 0.91", r.caption(evaluator.Prediction{Label: 14, Score: 0.912}))
}

func TestLabelOrigin(t *testing.T) {
	assert.Equal(t, image.Pt(5, 36), labelOrigin(image.Rect(5, 40, 50, 90)))
	assert.Equal(t, image.Pt(5, 16), labelOrigin(image.Rect(5, 2, 50, 90)))
}
