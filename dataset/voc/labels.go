// Package voc - Pascal VOC dataset layout, label map and annotation parsing.
package voc

import (
	"github.com/pkg/errors"
)

// Labels lists the 20 Pascal VOC object classes in their canonical order.
var Labels = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person", "pottedplant", "sheep", "sofa", "train", "tvmonitor",
}

// LabelMap is a stable, bidirectional mapping between class names and
// integer class indices. It is built once and shared by the parser, the
// evaluator and the report.
type LabelMap struct {
	names   []string
	indices map[string]int
}

// NewLabelMap builds a LabelMap from an ordered list of class names.
//
// Arguments:
//   - names: Class names; the position of each name is its index.
//
// Returns:
//   - *LabelMap: The mapping.
//   - error: If the list is empty or contains an empty or duplicate name.
func NewLabelMap(names []string) (*LabelMap, error) {
	if len(names) == 0 {
		return nil, errors.New("label map needs at least one class")
	}

	m := &LabelMap{
		names:   make([]string, len(names)),
		indices: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, errors.Errorf("empty class name at index %d", i)
		}
		if _, ok := m.indices[name]; ok {
			return nil, errors.Errorf("duplicate class name %q", name)
		}
		m.names[i] = name
		m.indices[name] = i
	}
	return m, nil
}

// DefaultLabelMap returns the label map of the 20 VOC classes.
func DefaultLabelMap() *LabelMap {
	m, err := NewLabelMap(Labels)
	if err != nil {
		panic(err)
	}
	return m
}

// Index returns the class index for name and whether it is known.
func (m *LabelMap) Index(name string) (int, bool) {
	i, ok := m.indices[name]
	return i, ok
}

// Name returns the class name at index i, or "" when i is out of range.
func (m *LabelMap) Name(i int) string {
	if i < 0 || i >= len(m.names) {
		return ""
	}
	return m.names[i]
}

// Len returns the number of classes.
func (m *LabelMap) Len() int {
	return len(m.names)
}

// Names returns a copy of the class names in index order.
func (m *LabelMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Valid reports whether i is a valid class index.
func (m *LabelMap) Valid(i int) bool {
	return i >= 0 && i < len(m.names)
}
