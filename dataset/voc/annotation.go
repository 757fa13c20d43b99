package voc

import (
	"encoding/xml"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-voc-eval/common"
)

// ParseError reports an annotation file that could not be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "parse annotation " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Cause returns the underlying error for github.com/pkg/errors.Cause.
func (e *ParseError) Cause() error { return e.Err }

// Annotation holds the objects of one image, as parallel slices.
type Annotation struct {
	// ImageID is the annotation filename without directory and extension.
	ImageID string
	// Filename is the image filename recorded in the XML, if any.
	Filename string
	// Width and Height of the image as recorded in the XML (0 if absent).
	Width, Height int
	Boxes         []common.BoundingBox
	Labels        []int
	Difficult     []bool
	// Unknown counts objects whose class is not in the label map.
	Unknown int
	// Inverted counts objects dropped because xmax < xmin or ymax < ymin.
	Inverted int
}

// Len returns the number of objects kept.
func (a *Annotation) Len() int {
	return len(a.Boxes)
}

type xmlAnnotation struct {
	XMLName  xml.Name `xml:"annotation"`
	Filename string   `xml:"filename"`
	Size     struct {
		Width  int `xml:"width"`
		Height int `xml:"height"`
	} `xml:"size"`
	Objects []struct {
		Name      string `xml:"name"`
		Difficult *int   `xml:"difficult"`
		BndBox    *struct {
			XMin float32 `xml:"xmin"`
			YMin float32 `xml:"ymin"`
			XMax float32 `xml:"xmax"`
			YMax float32 `xml:"ymax"`
		} `xml:"bndbox"`
	} `xml:"object"`
}

// ParseAnnotation loads the objects present in a VOC annotation file.
//
// Arguments:
//   - path: Path to <root>/Annotations/<image>.xml.
//   - labels: Label map used to translate class names to indices.
//
// Returns:
//   - *Annotation: The parsed objects. Objects with unknown class names or
//     inverted boxes are dropped and counted.
//   - error: A *ParseError if the file is missing or malformed.
func ParseAnnotation(path string, labels *LabelMap) (*Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	return DecodeAnnotation(f, path, labels)
}

// DecodeAnnotation parses VOC XML from r. The name is used to derive the
// image id and to label errors.
func DecodeAnnotation(r io.Reader, name string, labels *LabelMap) (*Annotation, error) {
	var data xmlAnnotation
	if err := xml.NewDecoder(r).Decode(&data); err != nil {
		return nil, &ParseError{Path: name, Err: errors.Wrap(err, "decode xml")}
	}

	ann := &Annotation{
		ImageID:   ImageID(name),
		Filename:  data.Filename,
		Width:     data.Size.Width,
		Height:    data.Size.Height,
		Boxes:     make([]common.BoundingBox, 0, len(data.Objects)),
		Labels:    make([]int, 0, len(data.Objects)),
		Difficult: make([]bool, 0, len(data.Objects)),
	}

	for i, obj := range data.Objects {
		if obj.BndBox == nil {
			return nil, &ParseError{Path: name, Err: errors.Errorf("object %d (%s) has no bndbox", i, obj.Name)}
		}
		box := common.NewBoundingBox(obj.BndBox.XMin, obj.BndBox.YMin, obj.BndBox.XMax, obj.BndBox.YMax)
		if box.X2 < box.X1 || box.Y2 < box.Y1 {
			ann.Inverted++
			continue
		}

		label, ok := labels.Index(obj.Name)
		if !ok {
			ann.Unknown++
			continue
		}

		ann.Boxes = append(ann.Boxes, box)
		ann.Labels = append(ann.Labels, label)
		ann.Difficult = append(ann.Difficult, obj.Difficult != nil && *obj.Difficult != 0)
	}
	return ann, nil
}
