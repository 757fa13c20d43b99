// Command voceval computes Pascal VOC mAP for a YOLO ONNX model, or for a
// cached prediction file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-voc-eval/config"
	"github.com/nvr-ai/go-voc-eval/dataset/voc"
	"github.com/nvr-ai/go-voc-eval/detector"
	"github.com/nvr-ai/go-voc-eval/evaluator"
	"github.com/nvr-ai/go-voc-eval/logger"
	"github.com/nvr-ai/go-voc-eval/profiler"
	"github.com/nvr-ai/go-voc-eval/visualize"
)

func main() {
	var (
		configFile      = flag.String("config", "", "Path to YAML configuration file")
		root            = flag.String("root", "", "VOC year directory, e.g. VOCdevkit/VOC2007")
		set             = flag.String("set", "", "Image set under ImageSets/Main (default test)")
		annotations     = flag.String("annotations", "", "Annotation directory to index instead of an image set")
		modelPath       = flag.String("model", "", "Path to ONNX model file")
		predictions     = flag.String("predictions", "", "Evaluate cached predictions instead of running the model")
		savePredictions = flag.String("save-predictions", "", "Write predictions of the detection pass to this file")
		use07           = flag.Bool("use07", false, "Use the VOC2007 11-point metric")
		workers         = flag.Int("workers", 0, "Classes evaluated concurrently (0 = all CPUs)")
		visualizeDir    = flag.String("visualize", "", "Render ground truth and predictions into this directory")
		output          = flag.String("output", "", "Write the JSON report to this file")
		dev             = flag.Bool("dev", false, "Human-readable debug logging")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Dataset.Root = *root
		case "set":
			cfg.Dataset.Set = *set
		case "annotations":
			cfg.Dataset.Annotations = *annotations
		case "model":
			cfg.Detector.ModelPath = *modelPath
		case "predictions":
			cfg.Predictions.Load = *predictions
		case "save-predictions":
			cfg.Predictions.Save = *savePredictions
		case "use07":
			if *use07 {
				cfg.Evaluation.Metric = evaluator.MetricVOC07.String()
			} else {
				cfg.Evaluation.Metric = evaluator.MetricContinuous.String()
			}
		case "workers":
			cfg.Evaluation.Workers = *workers
		case "visualize":
			cfg.Visualize.Dir = *visualizeDir
		case "output":
			cfg.Output = *output
		case "dev":
			cfg.Logging.Development = *dev
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := initLogger(cfg.Logging); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg)
	if res != nil {
		fmt.Println(res.Table())
	}
	if err != nil {
		logger.Log().Error("evaluation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func initLogger(cfg config.LoggingConfig) error {
	if cfg.Development {
		return logger.InitDevelopment()
	}
	level, err := (config.Config{Logging: cfg}).LogLevel()
	if err != nil {
		return err
	}
	return logger.InitProduction(level)
}

// run executes one evaluation. A non-nil Result may come with an error when
// only some classes failed.
func run(ctx context.Context, cfg config.Config) (*evaluator.Result, error) {
	log := logger.Log()
	prof := profiler.New()
	defer prof.Report(log)

	labels, err := cfg.LabelMap()
	if err != nil {
		return nil, err
	}

	done := prof.StartOperation("ground_truth")
	gt, err := buildGroundTruth(cfg, labels, log)
	done()
	if err != nil {
		return nil, err
	}

	opts := []evaluator.Option{
		evaluator.WithMetric(cfg.Metric()),
		evaluator.WithWorkers(cfg.Evaluation.Workers),
		evaluator.WithLogger(log),
		evaluator.WithProfiler(prof),
	}
	if cfg.Visualize.Dir != "" {
		renderer, err := visualize.NewRenderer(cfg.Visualize.Dir, labels,
			visualize.WithMaxEdge(cfg.Visualize.MaxEdge),
			visualize.WithMinScore(cfg.Visualize.MinScore),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, evaluator.WithVisualizer(renderer, cfg.Visualize.Limit))
	}
	eval := evaluator.New(labels, gt, opts...)

	if cfg.Predictions.Load != "" {
		if err := eval.LoadPredictions(cfg.Predictions.Load); err != nil {
			return nil, err
		}
	} else {
		if err := detect(ctx, cfg, eval, prof, log); err != nil {
			return nil, err
		}
		if cfg.Predictions.Save != "" {
			if err := eval.SavePredictions(cfg.Predictions.Save); err != nil {
				return nil, err
			}
		}
	}

	res, evalErr := eval.Evaluate()
	if cfg.Output != "" {
		if err := res.WriteJSON(cfg.Output); err != nil {
			return res, err
		}
		log.Info("report written", zap.String("path", cfg.Output))
	}
	return res, evalErr
}

func buildGroundTruth(cfg config.Config, labels *voc.LabelMap, log *zap.Logger) (*evaluator.GroundTruthIndex, error) {
	if cfg.Dataset.Annotations != "" {
		return evaluator.BuildGroundTruth(cfg.Dataset.Annotations, labels, evaluator.WithIndexLogger(log))
	}
	return evaluator.BuildGroundTruthFromSet(cfg.Dataset.Root, cfg.Dataset.Set, labels, evaluator.WithIndexLogger(log))
}

// detect runs the model over every indexed image in split order.
func detect(ctx context.Context, cfg config.Config, eval *evaluator.Evaluator, prof *profiler.Profiler, log *zap.Logger) error {
	if cfg.Dataset.Root == "" {
		return errors.New("detection pass needs dataset.root")
	}

	yolo, err := detector.New(cfg.Detector, eval.Labels().Len(),
		detector.WithLogger(log),
		detector.WithProfiler(prof),
	)
	if err != nil {
		return err
	}
	defer yolo.Close()

	ids := eval.GroundTruth().Images()
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "detection pass interrupted")
		}

		imagePath := voc.ImagePath(cfg.Dataset.Root, id)
		dets, err := yolo.DetectFile(ctx, imagePath)
		if err != nil {
			log.Warn("skipping image", zap.String("image", imagePath), zap.Error(err))
			continue
		}

		boxes, scores, classes := detector.Split(dets)
		if err := eval.Append(imagePath, voc.AnnotationPath(cfg.Dataset.Root, id), boxes, scores, classes); err != nil {
			return err
		}
		if (i+1)%500 == 0 {
			log.Info("detection progress", zap.Int("done", i+1), zap.Int("total", len(ids)))
		}
	}
	return nil
}
