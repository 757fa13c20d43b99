package voc

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ImageID derives the image identifier from an image or annotation path by
// stripping the directory and the extension.
//
// @example
// ImageID("/data/VOC2007/JPEGImages/000001.jpg") // "000001"
func ImageID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AnnotationPath returns <root>/Annotations/<id>.xml.
func AnnotationPath(root, id string) string {
	return filepath.Join(root, "Annotations", id+".xml")
}

// ImagePath returns <root>/JPEGImages/<id>.jpg.
func ImagePath(root, id string) string {
	return filepath.Join(root, "JPEGImages", id+".jpg")
}

// ImageSetPath returns <root>/ImageSets/Main/<set>.txt.
func ImageSetPath(root, set string) string {
	return filepath.Join(root, "ImageSets", "Main", set+".txt")
}

// ReadImageSet loads the image ids of a split such as "test" or "trainval".
//
// Each non-empty line contributes its first field, so per-class lists like
// "000005 -1" are accepted too.
func ReadImageSet(root, set string) ([]string, error) {
	path := ImageSetPath(root, set)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image set %s", set)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		ids = append(ids, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read image set %s", path)
	}
	return ids, nil
}
