package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"imbridge/internal/privacy"
	"imbridge/internal/service"
	"imbridge/internal/tracing"

	"github.com/sirupsen/logrus"
)

// DebugLoggingConfig controls the request detail logged at debug level
type DebugLoggingConfig struct {
	Verbose          bool
	LogRequestBody   bool
	MaxBodySize      int64
	SensitiveHeaders []string
	SkipPaths        []string
}

// DefaultDebugLoggingConfig returns the configuration used by the server
func DefaultDebugLoggingConfig(verbose bool) DebugLoggingConfig {
	return DebugLoggingConfig{
		Verbose:        verbose,
		LogRequestBody: true,
		MaxBodySize:    4096,
		SensitiveHeaders: []string{
			"authorization", "cookie", "x-api-key", "x-auth-token",
		},
		SkipPaths: []string{"/metrics", "/metrics/prometheus", "/live", "/ready"},
	}
}

// DebugLogging marks the request context with the verbose flag and, at debug
// level, logs request headers and the plugin parameters with identifiers and
// content masked
func DebugLogging(logger *logrus.Logger, cfg DebugLoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(service.WithVerbose(r.Context(), cfg.Verbose))

			if !logger.IsLevelEnabled(logrus.DebugLevel) || skipPath(r.URL.Path, cfg.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			fields := logrus.Fields{
				service.LogFieldRequestID:  tracing.GetRequestID(r.Context()),
				service.LogFieldHTTPMethod: r.Method,
				service.LogFieldURL:        r.URL.Path,
				"protocol":                 r.Proto,
				"request_headers":          maskHeaders(r.Header, cfg.SensitiveHeaders),
			}

			if cfg.LogRequestBody && r.Body != nil && r.ContentLength > 0 && r.ContentLength <= cfg.MaxBodySize &&
				strings.Contains(r.Header.Get("Content-Type"), "json") {
				body, err := io.ReadAll(r.Body)
				if err == nil {
					r.Body = io.NopCloser(bytes.NewReader(body))
					fields["request_params"] = maskBody(body, cfg.Verbose)
				}
			}

			logger.WithFields(fields).Debug("Plugin request details")
			next.ServeHTTP(w, r)
		})
	}
}

func maskBody(body []byte, verbose bool) interface{} {
	var params map[string]interface{}
	if err := json.Unmarshal(body, &params); err != nil {
		return "[unparseable]"
	}
	return map[string]interface{}(service.SafeFields(verbose, params))
}

func maskHeaders(h http.Header, sensitive []string) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name, sensitive) {
			out[name] = privacy.MaskToken(strings.Join(values, ", "))
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isSensitiveHeader(name string, sensitive []string) bool {
	for _, s := range sensitive {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func skipPath(path string, skip []string) bool {
	for _, s := range skip {
		if path == s {
			return true
		}
	}
	return false
}
