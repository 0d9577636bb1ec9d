package httptransport

import (
	"encoding/json"
	"net/http"

	"intake/pkg/funnelerrors"
)

// writeError translates a domain error into the JSON error envelope.
// Non-domain errors surface as a generic internal error; details stay in
// the log.
func writeError(w http.ResponseWriter, err error) {
	code := funnelerrors.CodeOf(err)
	writeJSON(w, funnelerrors.ToHTTPStatus(code), map[string]string{
		"error": string(code),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
