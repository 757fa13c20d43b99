// Package detector - ONNX Runtime YOLO driver producing VOC predictions.
package detector

import (
	"runtime"

	"github.com/pkg/errors"
)

// Config holds the settings of a YOLO session.
type Config struct {
	// ModelPath is the ONNX export with input "images" and output "output0".
	ModelPath string `json:"model_path" yaml:"model_path"`

	// SharedLibPath points at the onnxruntime shared library. Empty selects
	// the platform default.
	SharedLibPath string `json:"shared_lib_path" yaml:"shared_lib_path"`

	// InputSize is the square model input edge in pixels.
	InputSize int `json:"input_size" yaml:"input_size"`

	// Candidates is the number of anchor rows in output0 ([1, 4+C, N]).
	Candidates int `json:"candidates" yaml:"candidates"`

	// ConfidenceThreshold drops candidates whose best class score is lower.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// NMSThreshold is the IoU above which a lower-scored box of the same
	// class is suppressed.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`

	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// DefaultConfig returns the settings of a 640x640 YOLOv8-style export.
//
// A low confidence threshold keeps the low-score tail that mAP integrates
// over.
func DefaultConfig() Config {
	return Config{
		InputSize:           640,
		Candidates:          8400,
		ConfidenceThreshold: 0.001,
		NMSThreshold:        0.65,
		IntraOpThreads:      4,
		InterOpThreads:      2,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.ModelPath == "":
		return errors.New("detector: model_path is required")
	case c.InputSize <= 0:
		return errors.Errorf("detector: input_size must be positive, got %d", c.InputSize)
	case c.Candidates <= 0:
		return errors.Errorf("detector: candidates must be positive, got %d", c.Candidates)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return errors.Errorf("detector: confidence_threshold %v outside [0, 1]", c.ConfidenceThreshold)
	case c.NMSThreshold <= 0 || c.NMSThreshold > 1:
		return errors.Errorf("detector: nms_threshold %v outside (0, 1]", c.NMSThreshold)
	}
	return nil
}

// sharedLibPath returns the configured library or the platform default.
func (c Config) sharedLibPath() string {
	if c.SharedLibPath != "" {
		return c.SharedLibPath
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
