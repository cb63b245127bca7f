package proxy

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON error envelope returned to clients.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// writeError writes a JSON error response. Encoding errors are ignored:
// there is nothing left to tell the client at that point.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{Message: message, Status: status},
	})
}
