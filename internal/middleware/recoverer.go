package middleware

import (
	"fmt"
	"net/http"

	"github.com/relaydesk/relaydesk/pkg/logging"
	"github.com/relaydesk/relaydesk/pkg/utils"
)

// Recoverer catches panics at the handler boundary and reports them as a
// generic 500 carrying the error's message text. The process never crashes on
// a handler fault.
func Recoverer(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("handler panic", "method", r.Method, "path", r.URL.Path, "error", rec)
					utils.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("%v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
