package detector

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-voc-eval/logger"
	"github.com/nvr-ai/go-voc-eval/profiler"
)

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment loads the onnxruntime library once per process.
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if _, err := os.Stat(libPath); err != nil {
			envErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "initialize onnxruntime environment")
		}
	})
	return envErr
}

// Option configures a YOLO detector.
type Option func(*YOLO)

// WithLogger sets the logger (default: logger.Log()).
func WithLogger(l *zap.Logger) Option {
	return func(y *YOLO) {
		if l != nil {
			y.log = l
		}
	}
}

// WithProfiler records preprocess, inference and postprocess timings.
func WithProfiler(p *profiler.Profiler) Option {
	return func(y *YOLO) {
		y.prof = p
	}
}

// YOLO runs a single-output YOLO export through ONNX Runtime. Detect calls
// are serialized; the input and output tensors are reused between calls.
type YOLO struct {
	cfg        Config
	numClasses int
	log        *zap.Logger
	prof       *profiler.Profiler

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// New creates a detector session.
//
// Arguments:
//   - cfg: Session settings; ModelPath is required.
//   - numClasses: Number of class scores per candidate in the model output.
//   - opts: Optional settings.
//
// Returns:
//   - *YOLO: A ready detector. Call Close when done.
//   - error: If the configuration is invalid or the session cannot be built.
func New(cfg Config, numClasses int, opts ...Option) (*YOLO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if numClasses <= 0 {
		return nil, errors.Errorf("detector: numClasses must be positive, got %d", numClasses)
	}
	if err := initEnvironment(cfg.sharedLibPath()); err != nil {
		return nil, err
	}

	y := &YOLO{cfg: cfg, numClasses: numClasses, log: logger.Log()}
	for _, opt := range opts {
		opt(y)
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+numClasses), int64(cfg.Candidates)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		_ = options.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	if cfg.InterOpThreads > 0 {
		_ = options.SetInterOpNumThreads(cfg.InterOpThreads)
	}
	_ = options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", cfg.ModelPath)
	}

	y.session, y.input, y.output = session, input, output
	y.log.Info("detector ready",
		zap.String("model", cfg.ModelPath),
		zap.Int("input_size", cfg.InputSize),
		zap.Int("classes", numClasses),
		zap.Int("candidates", cfg.Candidates),
	)
	return y, nil
}

// Detect runs the model on img and returns NMS-filtered detections in source
// image pixels, highest score first.
func (y *YOLO) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	y.mu.Lock()
	defer y.mu.Unlock()
	if y.session == nil {
		return nil, errors.New("detector closed")
	}

	done := y.prof.StartOperation("preprocess")
	lb, err := fillInput(img, y.cfg.InputSize, y.input.GetData())
	done()
	if err != nil {
		return nil, errors.Wrap(err, "prepare input")
	}

	done = y.prof.StartOperation("inference")
	err = y.session.Run()
	done()
	if err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	done = y.prof.StartOperation("postprocess")
	defer done()
	bounds := img.Bounds()
	dets, err := decodeOutput(y.output.GetData(), y.numClasses, y.cfg.Candidates, lb,
		bounds.Dx(), bounds.Dy(), y.cfg.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}
	return ApplyNMS(dets, NMSConfig{IoUThreshold: y.cfg.NMSThreshold, ClassAware: true}), nil
}

// DetectFile decodes the image at path and runs Detect on it.
func (y *YOLO) DetectFile(ctx context.Context, path string) ([]Detection, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.Errorf("read image %s", path)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrapf(err, "convert image %s", path)
	}
	dets, err := y.Detect(ctx, img)
	if err != nil {
		return nil, errors.Wrapf(err, "detect %s", path)
	}
	return dets, nil
}

// Close releases the session and its tensors.
func (y *YOLO) Close() {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.input != nil {
		y.input.Destroy()
		y.input = nil
	}
	if y.output != nil {
		y.output.Destroy()
		y.output = nil
	}
	if y.session != nil {
		y.session.Destroy()
		y.session = nil
	}
}
