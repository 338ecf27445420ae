package response

import (
	"encoding/json"
	"net/http"
)

// V1Response is the envelope of every API response
type V1Response struct {
	Result   interface{} `json:"result"`
	Messages []string    `json:"messages"`
}

// WriteResponse writes the result wrapped in the v1 envelope
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(V1Response{
		Result:   result,
		Messages: []string{},
	})
}

// WriteError writes the error with its status code in the v1 envelope
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(V1Response{
		Result:   e.Result,
		Messages: append([]string{e.Message}, e.Messages...),
	})
}
