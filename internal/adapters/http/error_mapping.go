package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/governed-rag/internal/core/domain"
)

var errQueryRequired = errors.New("query is required")

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrRetrievalUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError hides internal detail on 5xx responses; 4xx keep the
// validation message so clients can fix the request.
func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= 500 {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
