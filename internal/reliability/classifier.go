// Package reliability maps failures to wire codes and HTTP statuses. Every
// failure is surfaced synchronously to the user who triggered it; the service
// itself never retries, so Retryable only means "the user may resubmit".
package reliability

import (
	"errors"
	"net/http"

	"github.com/careergurulabs/careerguru/internal/auth"
	"github.com/careergurulabs/careerguru/internal/extract"
	"github.com/careergurulabs/careerguru/internal/llm"
	"github.com/careergurulabs/careerguru/internal/prompt"
	"github.com/careergurulabs/careerguru/internal/session"
)

// Classification describes one failed user action.
type Classification struct {
	Code       string
	HTTPStatus int
	Retryable  bool
}

// Classify buckets err into the service's error taxonomy. Unknown errors are
// treated as completion failures since the completion call is the only
// external hop on the request path.
func Classify(err error) Classification {
	var missing *prompt.MissingFieldError
	switch {
	case errors.As(err, &missing):
		return Classification{Code: "missing_field", HTTPStatus: http.StatusBadRequest, Retryable: true}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return Classification{Code: "auth_failed", HTTPStatus: http.StatusUnauthorized, Retryable: true}
	case errors.Is(err, auth.ErrEmailTaken):
		return Classification{Code: "email_taken", HTTPStatus: http.StatusConflict, Retryable: false}
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return Classification{Code: "invalid_registration", HTTPStatus: http.StatusBadRequest, Retryable: true}
	case errors.Is(err, session.ErrNotFound):
		return Classification{Code: "session_not_found", HTTPStatus: http.StatusNotFound, Retryable: false}
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return Classification{Code: "unsupported_file", HTTPStatus: http.StatusUnsupportedMediaType, Retryable: true}
	case errors.Is(err, extract.ErrNoText):
		return Classification{Code: "extraction_failed", HTTPStatus: http.StatusUnprocessableEntity, Retryable: true}
	case errors.Is(err, llm.ErrEmptyCompletion):
		return Classification{Code: "completion_failed", HTTPStatus: http.StatusBadGateway, Retryable: true}
	default:
		return Classification{Code: "completion_failed", HTTPStatus: http.StatusBadGateway, Retryable: true}
	}
}
