package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"dustledger/pkg/requestcontext"
)

// CallerVerifier validates a bearer token and returns the internal caller
// name it identifies.
type CallerVerifier interface {
	VerifyCallerToken(raw string) (string, error)
}

// RequireCaller rejects requests without a valid caller token and threads
// the caller name through the request context.
func RequireCaller(verifier CallerVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				logger.WarnContext(ctx, "missing caller token",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "missing or malformed Authorization header")
				return
			}

			caller, err := verifier.VerifyCallerToken(raw)
			if err != nil {
				logger.WarnContext(ctx, "invalid caller token",
					"path", r.URL.Path,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "invalid or expired caller token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
