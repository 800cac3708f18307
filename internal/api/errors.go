package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// httpError writes the standard error envelope. Each response carries an
// opaque diagnostic id that is also logged, so a client can report a failure
// without the payload leaking internals.
func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	id := uuid.New().String()
	slog.Debug("request rejected", "type", errType, "diagnostic_id", id, "detail", msg)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message":       msg,
			"type":          errType,
			"diagnostic_id": id,
		},
	})
}
