package render

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// JSON writes v as the response body. A nil document renders as null.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type message struct {
	Message string `json:"message"`
}

func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, message{Message: msg})
}

func Forbidden(w http.ResponseWriter) {
	Message(w, http.StatusForbidden, "forbidden access")
}

func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
