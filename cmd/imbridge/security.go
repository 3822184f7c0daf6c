package main

import (
	"crypto/hmac"
	"net/http"
	"strings"

	"imbridge/internal/httputil"

	"github.com/sirupsen/logrus"
)

// AuthTokenHeader is an alternative to the Authorization bearer header
const AuthTokenHeader = "X-Auth-Token"

// presentedToken returns the token supplied by the host runtime, if any
func presentedToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(AuthTokenHeader))
}

// verifyToken compares the presented token with the configured one
func verifyToken(r *http.Request, expected string) bool {
	if expected == "" {
		return true
	}
	token := presentedToken(r)
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(expected))
}

// requireAuth rejects plugin requests that do not carry the configured
// token. An empty token disables the check.
func requireAuth(expected string, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifyToken(r, expected) {
				logger.WithFields(logrus.Fields{
					"remote_ip": httputil.GetClientIP(r),
					"path":      r.URL.Path,
				}).Warn("Rejected unauthenticated plugin request")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
