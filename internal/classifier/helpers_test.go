package classifier

import (
	"net/http"

	"github.com/goccy/go-json"
)

func jsonDecode(req *http.Request, v any) error {
	defer func() { _ = req.Body.Close() }()
	return json.NewDecoder(req.Body).Decode(v)
}
