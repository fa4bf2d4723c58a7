package classifier

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// BackendONNX names the ONNX Runtime backend
const BackendONNX = "onnx"

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNXRuntime initializes the process-wide runtime environment once
func initONNXRuntime(library string) error {
	ortInitOnce.Do(func() {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXConfig names the model file and tensors
type ONNXConfig struct {
	Path       string
	Library    string // onnxruntime shared library, empty for the platform default
	InputName  string
	OutputName string
}

// ONNX runs an exported classifier (e.g. skl2onnx with zipmap disabled)
// through onnxruntime. Runs are serialized on the session.
type ONNX struct {
	classes []string
	cfg     ONNXConfig
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// LoadONNX opens an ONNX session
func LoadONNX(cfg ONNXConfig, classes []string) (*ONNX, error) {
	start := time.Now()
	if cfg.Path == "" {
		return nil, unavailable(BackendONNX, cfg.Path, fmt.Errorf("model path is required"))
	}
	if cfg.InputName == "" {
		cfg.InputName = "float_input"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "probabilities"
	}

	if err := initONNXRuntime(cfg.Library); err != nil {
		return nil, unavailable(BackendONNX, cfg.Path, fmt.Errorf("initialize onnxruntime: %w", err))
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, unavailable(BackendONNX, cfg.Path, fmt.Errorf("create session options: %w", err))
	}
	defer func() { _ = options.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(cfg.Path,
		[]string{cfg.InputName}, []string{cfg.OutputName}, options)
	if err != nil {
		return nil, unavailable(BackendONNX, cfg.Path, err)
	}

	GetLogger().Info("ONNX model loaded",
		logger.String("model", cfg.Path),
		logger.String("input", cfg.InputName),
		logger.String("output", cfg.OutputName),
		logger.Duration("load_time", time.Since(start)))

	return &ONNX{classes: slices.Clone(classes), cfg: cfg, session: session}, nil
}

// Backend implements Classifier
func (o *ONNX) Backend() string { return BackendONNX }

// Classes implements Classifier
func (o *ONNX) Classes() []string { return slices.Clone(o.classes) }

// PredictProba runs the session on a [1,5] input
func (o *ONNX) PredictProba(ctx context.Context, fv FeatureVector) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ort.NewTensor(ort.NewShape(1, NumFeatures), fv.Float32s())
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(o.classes))))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer func() { _ = output.Destroy() }()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil, fmt.Errorf("session is closed")
	}
	if err := o.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryInference).
			Context("backend", BackendONNX).
			Build()
	}

	return newDistribution(o.classes, float32Scores(output.GetData()))
}

// Predict returns the most probable species
func (o *ONNX) Predict(ctx context.Context, fv FeatureVector) (string, error) {
	return predictTop(ctx, o, fv)
}

// Close destroys the session. The runtime environment stays initialized
// for the life of the process.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}
