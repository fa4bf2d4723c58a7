package classifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/aquapredict/aquapredict-go/internal/errors"
	"github.com/aquapredict/aquapredict-go/internal/httpclient"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// BackendRemote names the HTTP model server backend
const BackendRemote = "remote"

const (
	remoteFailureThreshold = 5
	remoteOpenTimeout      = 30 * time.Second
)

// remoteRequest is the body of POST {url}/predict_proba
type remoteRequest struct {
	Features []float64 `json:"features"`
}

// remoteResponse carries probabilities in class order. Classes is optional
// and checked against the codec when present.
type remoteResponse struct {
	Classes       []string  `json:"classes,omitempty"`
	Probabilities []float64 `json:"probabilities"`
}

// Remote delegates inference to a model server over HTTP behind a circuit
// breaker.
type Remote struct {
	classes  []string
	endpoint string
	timeout  time.Duration
	client   *httpclient.Client
	breaker  *gobreaker.CircuitBreaker[Distribution]
}

// NewRemote validates baseURL and prepares the client. client may be nil.
func NewRemote(baseURL string, classes []string, timeout time.Duration, client *httpclient.Client) (*Remote, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, unavailable(BackendRemote, baseURL, fmt.Errorf("remote URL must be an absolute http(s) URL"))
	}
	if client == nil {
		client = httpclient.New(&httpclient.Config{DefaultTimeout: timeout})
	}

	r := &Remote{
		classes:  slices.Clone(classes),
		endpoint: strings.TrimRight(baseURL, "/") + "/predict_proba",
		timeout:  timeout,
		client:   client,
	}

	r.breaker = gobreaker.NewCircuitBreaker[Distribution](gobreaker.Settings{
		Name:        "remote-classifier",
		MaxRequests: 1,
		Timeout:     remoteOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= remoteFailureThreshold
		},
		// A rejected request says nothing about server health
		IsSuccessful: func(err error) bool {
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			GetLogger().Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})

	GetLogger().Info("remote model configured", logger.String("endpoint", r.endpoint))
	return r, nil
}

// Backend implements Classifier
func (r *Remote) Backend() string { return BackendRemote }

// Classes implements Classifier
func (r *Remote) Classes() []string { return slices.Clone(r.classes) }

// PredictProba posts the features to the model server
func (r *Remote) PredictProba(ctx context.Context, fv FeatureVector) (Distribution, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	d, err := r.breaker.Execute(func() (Distribution, error) {
		var resp remoteResponse
		if err := r.client.PostJSON(ctx, r.endpoint, remoteRequest{Features: fv.Float64s()}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Classes) > 0 && !slices.Equal(resp.Classes, r.classes) {
			return nil, fmt.Errorf("model server classes %v do not match species codec", resp.Classes)
		}
		return newDistribution(r.classes, resp.Probabilities)
	})
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("backend", BackendRemote).
			Context("breaker_state", r.breaker.State().String()).
			Build()
	}
	return d, nil
}

// Predict returns the most probable species
func (r *Remote) Predict(ctx context.Context, fv FeatureVector) (string, error) {
	return predictTop(ctx, r, fv)
}

// Close releases pooled connections
func (r *Remote) Close() error {
	r.client.Close()
	return nil
}
