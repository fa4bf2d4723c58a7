package classifier

import (
	"context"
	"time"
)

// Recorder receives one observation per prediction
type Recorder interface {
	RecordPrediction(backend string, duration time.Duration, err error)
}

// instrumented reports latency and errors of every call to a Recorder
type instrumented struct {
	Classifier
	recorder Recorder
}

// WithRecorder wraps c so each prediction is reported to r
func WithRecorder(c Classifier, r Recorder) Classifier {
	if r == nil {
		return c
	}
	return &instrumented{Classifier: c, recorder: r}
}

func (i *instrumented) PredictProba(ctx context.Context, fv FeatureVector) (Distribution, error) {
	start := time.Now()
	d, err := i.Classifier.PredictProba(ctx, fv)
	i.recorder.RecordPrediction(i.Backend(), time.Since(start), err)
	return d, err
}

func (i *instrumented) Predict(ctx context.Context, fv FeatureVector) (string, error) {
	return predictTop(ctx, i, fv)
}
