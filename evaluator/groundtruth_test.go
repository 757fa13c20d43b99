package evaluator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-voc-eval/dataset/voc"
)

func writeAnnotation(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

const twoObjects = `<annotation>
	<filename>a.jpg</filename>
	<object><name>person</name><difficult>0</difficult>
		<bndbox><xmin>1</xmin><ymin>1</ymin><xmax>20</xmax><ymax>40</ymax></bndbox></object>
	<object><name>dog</name><difficult>1</difficult>
		<bndbox><xmin>5</xmin><ymin>5</ymin><xmax>25</xmax><ymax>25</ymax></bndbox></object>
	<object><name>unicorn</name>
		<bndbox><xmin>5</xmin><ymin>5</ymin><xmax>25</xmax><ymax>25</ymax></bndbox></object>
</annotation>`

const oneDog = `<annotation>
	<object><name>dog</name>
		<bndbox><xmin>0</xmin><ymin>0</ymin><xmax>9</xmax><ymax>9</ymax></bndbox></object>
</annotation>`

func TestGroundTruthIndex_Add(t *testing.T) {
	index := NewGroundTruthIndex(2)

	require.NoError(t, index.Add("a", GroundTruth{Label: 0, Box: box(0, 0, 1, 1)}))
	require.NoError(t, index.Add("empty"))
	require.NoError(t, index.Add("a", GroundTruth{Label: 1, Box: box(0, 0, 2, 2), Difficult: true}))
	assert.Error(t, index.Add("b", GroundTruth{Label: 2}))
	assert.Error(t, index.Add("b", GroundTruth{Label: -1}))

	assert.Equal(t, []string{"a", "empty"}, index.Images())
	assert.True(t, index.Has("empty"))
	assert.False(t, index.Has("b"))
	assert.Empty(t, index.Objects("empty"))

	objs := index.Objects("a")
	require.Len(t, objs, 2)
	assert.Equal(t, "a", objs[0].ImageID)

	assert.Equal(t, 1, index.Positives(0))
	assert.Equal(t, 0, index.Positives(1))
	assert.Len(t, index.ClassObjects(1)["a"], 1)
	assert.NotContains(t, index.ClassObjects(0), "empty")
}

func TestBuildGroundTruth(t *testing.T) {
	dir := t.TempDir()
	writeAnnotation(t, dir, "000001.xml", twoObjects)
	writeAnnotation(t, dir, "000002.xml", oneDog)
	writeAnnotation(t, dir, "broken.xml", "<annotation><object>")
	writeAnnotation(t, dir, "notes.txt", "ignored")

	index, err := BuildGroundTruth(dir, voc.DefaultLabelMap(), WithIndexLogger(zap.NewNop()))
	require.NoError(t, err)

	person, _ := voc.DefaultLabelMap().Index("person")
	dog, _ := voc.DefaultLabelMap().Index("dog")

	assert.Equal(t, 20, index.NumClasses())
	assert.Equal(t, []string{"000001", "000002"}, index.Images())
	assert.Len(t, index.Skipped(), 1)
	assert.Equal(t, 1, index.Positives(person))
	// The difficult dog is indexed but not counted.
	assert.Equal(t, 1, index.Positives(dog))
	assert.Len(t, index.ClassObjects(dog), 2)

	_, err = BuildGroundTruth(filepath.Join(dir, "missing"), voc.DefaultLabelMap(), WithIndexLogger(zap.NewNop()))
	assert.Error(t, err)
}

func TestBuildGroundTruthFromSet(t *testing.T) {
	root := t.TempDir()
	annotations := filepath.Join(root, "Annotations")
	writeAnnotation(t, annotations, "000001.xml", twoObjects)
	writeAnnotation(t, annotations, "000002.xml", oneDog)
	writeAnnotation(t, annotations, "000003.xml", oneDog)
	writeAnnotation(t, filepath.Join(root, "ImageSets", "Main"), "val.txt", "000002\n000001\n000404\n")

	index, err := BuildGroundTruthFromSet(root, "val", voc.DefaultLabelMap(), WithIndexLogger(zap.NewNop()))
	require.NoError(t, err)

	// Set order is kept, 000003 is outside the split, 000404 has no file.
	assert.Equal(t, []string{"000002", "000001"}, index.Images())
	require.Len(t, index.Skipped(), 1)

	var perr *voc.ParseError
	assert.ErrorAs(t, index.Skipped()[0], &perr)

	_, err = BuildGroundTruthFromSet(root, "test", voc.DefaultLabelMap(), WithIndexLogger(zap.NewNop()))
	assert.Error(t, err)
}
