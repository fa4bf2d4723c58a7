package classifier

import (
	"fmt"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/httpclient"
)

// Load builds the classifier selected by settings. classes are the species
// labels of the codec in class order. Any failure is a ModelUnavailableError.
func Load(settings *conf.ModelSettings, classes []string, client *httpclient.Client) (Classifier, error) {
	if len(classes) == 0 {
		return nil, unavailable(settings.Backend, settings.Path, fmt.Errorf("species codec is empty"))
	}

	switch settings.Backend {
	case "", conf.BackendForest:
		return LoadForest(settings.Path, classes)
	case conf.BackendTFLite:
		return LoadTFLite(settings.Path, classes, settings.Threads)
	case conf.BackendONNX:
		return LoadONNX(ONNXConfig{
			Path:       settings.Path,
			Library:    settings.ONNXLibrary,
			InputName:  settings.InputName,
			OutputName: settings.OutputName,
		}, classes)
	case conf.BackendRemote:
		return NewRemote(settings.RemoteURL, classes, settings.Timeout, client)
	default:
		return nil, unavailable(settings.Backend, settings.Path, fmt.Errorf("unknown backend %q", settings.Backend))
	}
}
