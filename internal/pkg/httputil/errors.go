package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/notification-manager/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
	// Details attaches per-field validator failures found in the error chain.
	Details bool
}

// commonMappings apply after the caller's mappings.
var commonMappings = []ErrorMapping{
	{Error: ErrEmptyBody, Status: http.StatusBadRequest, Message: "empty body"},
}

// HandleError maps a domain error to an HTTP response using provided mappings.
// If no mapping matches, logs the error and returns 500 Internal Server Error.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, set := range [][]ErrorMapping{mappings, commonMappings} {
		for _, m := range set {
			if !errors.Is(err, m.Error) {
				continue
			}
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}
			if m.Details {
				writeError(w, m.Status, msg, err)
			} else {
				Error(w, m.Status, msg)
			}
			return
		}
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
