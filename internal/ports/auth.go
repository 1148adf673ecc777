package ports

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smoother-operators/memolith/internal/config"
	"github.com/smoother-operators/memolith/internal/logging"
)

type authErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	Timestamp string `json:"timestamp"`
}

func writeAuthError(w http.ResponseWriter, errorLabel, message string, nowFunc func() time.Time) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="memolith"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	response, err := json.Marshal(authErrorResponse{
		Error:     errorLabel,
		Message:   message,
		Code:      http.StatusUnauthorized,
		Timestamp: nowFunc().UTC().Format(time.RFC3339),
	})
	if err != nil {
		w.Write([]byte(`{"error":"Unauthorized"}`))
		return
	}
	w.Write(response)
}

// NewBearerAuthMiddleware only lets requests through that carry one of the
// given tokens in an Authorization: Bearer header.
func NewBearerAuthMiddleware(tokens []string, nowFunc func() time.Time) func(http.HandlerFunc) http.HandlerFunc {
	validTokens := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		validTokens[token] = struct{}{}
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authorization := r.Header.Get("Authorization")
			if authorization == "" {
				writeAuthError(w, "Missing Authorization", "Authorization header is required", nowFunc)
				return
			}

			token, found := strings.CutPrefix(authorization, "Bearer ")
			if !found {
				writeAuthError(w, "Invalid Authorization Format", "Authorization header must use the Bearer scheme", nowFunc)
				return
			}

			if token == "" {
				writeAuthError(w, "Empty Token", "Bearer token must not be empty", nowFunc)
				return
			}

			if _, ok := validTokens[token]; !ok {
				logging.FromContext(r.Context()).Warn("Rejected request with invalid bearer token")
				writeAuthError(w, "Invalid Token", "The provided token is not valid", nowFunc)
				return
			}

			next(w, r)
		}
	}
}

func NewBearerAuthMiddlewareOrMock(conf config.Config, nowFunc func() time.Time) (func(http.HandlerFunc) http.HandlerFunc, error) {
	tokens := conf.APITokens()
	if len(tokens) > 0 {
		return NewBearerAuthMiddleware(tokens, nowFunc), nil
	}

	if conf.IsDevelopment() {
		// Unauthenticated access for local development
		return func(next http.HandlerFunc) http.HandlerFunc {
			return next
		}, nil
	}

	return nil, fmt.Errorf("Missing API tokens in non-development environment")
}
