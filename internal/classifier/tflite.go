package classifier

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"

	"github.com/aquapredict/aquapredict-go/internal/cpuspec"
	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// BackendTFLite names the TensorFlow Lite backend
const BackendTFLite = "tflite"

// TFLite runs a TensorFlow Lite model with a 5-float input and one output
// score per class. The interpreter is not reentrant, so calls are serialized.
type TFLite struct {
	classes     []string
	mu          sync.Mutex
	interpreter *tflite.Interpreter
}

// LoadTFLite loads a .tflite model. threads 0 picks a count from the CPU.
func LoadTFLite(path string, classes []string, threads int) (*TFLite, error) {
	start := time.Now()
	if path == "" {
		return nil, unavailable(BackendTFLite, path, fmt.Errorf("model path is required"))
	}

	data, err := os.ReadFile(path) //nolint:gosec // path from config
	if err != nil {
		return nil, unavailable(BackendTFLite, path, err)
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, unavailable(BackendTFLite, path, errors.Newf("cannot load TensorFlow Lite model").
			Category(errors.CategoryModelInit).
			Context("model_size_kb", len(data)/1024).
			Timing("model-init", time.Since(start)).
			Build())
	}

	threads = cpuspec.ThreadCount(threads)
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, unavailable(BackendTFLite, path, fmt.Errorf("cannot create interpreter"))
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		return nil, unavailable(BackendTFLite, path, fmt.Errorf("tensor allocation failed"))
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || len(input.Float32s()) != NumFeatures {
		interpreter.Delete()
		return nil, unavailable(BackendTFLite, path, fmt.Errorf("model input must hold %d float32 values", NumFeatures))
	}
	output := interpreter.GetOutputTensor(0)
	if output == nil {
		interpreter.Delete()
		return nil, unavailable(BackendTFLite, path, fmt.Errorf("model has no output tensor"))
	}
	if n := output.Dim(output.NumDims() - 1); n != len(classes) {
		interpreter.Delete()
		return nil, unavailable(BackendTFLite, path,
			fmt.Errorf("model outputs %d classes but the species codec has %d", n, len(classes)))
	}

	// The interpreter keeps its own copy of the model
	runtime.GC()

	GetLogger().Info("TFLite model loaded",
		logger.String("model", path),
		logger.Int("threads", threads),
		logger.Int("classes", len(classes)),
		logger.Duration("load_time", time.Since(start)))

	return &TFLite{classes: slices.Clone(classes), interpreter: interpreter}, nil
}

// Backend implements Classifier
func (t *TFLite) Backend() string { return BackendTFLite }

// Classes implements Classifier
func (t *TFLite) Classes() []string { return slices.Clone(t.classes) }

// PredictProba invokes the interpreter and renormalizes its output
func (t *TFLite) PredictProba(ctx context.Context, fv FeatureVector) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interpreter == nil {
		return nil, fmt.Errorf("interpreter is closed")
	}

	copy(t.interpreter.GetInputTensor(0).Float32s(), fv.Float32s())
	if status := t.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tensor invoke failed").
			Category(errors.CategoryInference).
			Context("backend", BackendTFLite).
			Build()
	}

	output := t.interpreter.GetOutputTensor(0)
	scores := float32Scores(output.Float32s()[:len(t.classes)])
	return newDistribution(t.classes, scores)
}

// Predict returns the most probable species
func (t *TFLite) Predict(ctx context.Context, fv FeatureVector) (string, error) {
	return predictTop(ctx, t, fv)
}

// Close releases the interpreter
func (t *TFLite) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.interpreter != nil {
		t.interpreter.Delete()
		t.interpreter = nil
	}
	return nil
}
