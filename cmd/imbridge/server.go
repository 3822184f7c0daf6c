package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"imbridge/internal/errors"
	"imbridge/internal/metrics"
	"imbridge/internal/middleware"
	"imbridge/internal/models"
	"imbridge/internal/service"
	"imbridge/internal/validation"
	"imbridge/pkg/imsdk"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	readinessTimeout   = 5 * time.Second
	socketWriteTimeout = 10 * time.Second
	metricsNamespace   = "imbridge"
)

// Pinger is implemented by the invocation journal
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the plugin bridge to the host runtime
type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	cfg     *models.Config
	bridge  *service.Bridge
	sdk     imsdk.Client
	journal Pinger
	metrics *metrics.Registry
	prom    *prometheus.Registry
	health  healthcheck.Handler
	verbose bool
	server  *http.Server
}

// socketRequest is one plugin call sent over the websocket
type socketRequest struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params service.Params `json:"params"`
}

// socketResponse carries the result of the call with the same id
type socketResponse struct {
	ID     string         `json:"id"`
	Result service.Result `json:"result"`
}

// NewServer wires the routes. journal may be nil when the journal is disabled.
func NewServer(cfg *models.Config, bridge *service.Bridge, sdk imsdk.Client, journal Pinger, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		cfg:     cfg,
		bridge:  bridge,
		sdk:     sdk,
		journal: journal,
		metrics: metrics.GetRegistry(),
		prom:    prometheus.NewRegistry(),
		verbose: verbose,
	}
	s.prom.MustRegister(metrics.NewCollector(s.metrics, metricsNamespace))
	s.health = healthcheck.NewMetricsHandler(s.prom, metricsNamespace)

	s.setupHealthChecks()
	s.setupRoutes()
	return s
}

func (s *Server) setupHealthChecks() {
	maxGoroutines := s.cfg.Bridge.PoolSize*4 + 1000
	s.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))

	s.health.AddReadinessCheck("sdk", healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		_, err := s.sdk.GetLoginStatus(ctx)
		return err
	}, readinessTimeout))

	if s.journal != nil {
		s.health.AddReadinessCheck("journal", healthcheck.Timeout(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer cancel()
			return s.journal.Ping(ctx)
		}, readinessTimeout))
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger, s.metrics))
	s.router.Use(middleware.DebugLogging(s.logger, middleware.DefaultDebugLoggingConfig(s.verbose)))

	s.router.Handle("/live", s.health).Methods(http.MethodGet)
	s.router.Handle("/ready", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.Handle("/metrics/prometheus", promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	plugin := s.router.PathPrefix("/v1/plugin").Subrouter()
	plugin.Use(requireAuth(s.cfg.Server.AuthToken, s.logger))
	plugin.HandleFunc("/methods", s.handleMethods()).Methods(http.MethodGet)
	plugin.HandleFunc("/ws", s.handlePluginSocket()).Methods(http.MethodGet)
	plugin.HandleFunc("/{method}", s.handlePluginCall()).Methods(http.MethodPost)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.WithField("port", s.cfg.Server.Port).Info("Starting plugin server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handlePluginCall answers one plugin call with its Result. Malformed bodies
// are answered with a validation failure rather than an HTTP error.
func (s *Server) handlePluginCall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := mux.Vars(r)["method"]

		params, err := s.decodeParams(w, r)
		if err != nil {
			s.writeJSON(w, service.Failure(err))
			return
		}

		select {
		case res := <-s.bridge.Call(r.Context(), method, params):
			s.writeJSON(w, res)
		case <-r.Context().Done():
			s.logger.WithFields(logrus.Fields{
				service.LogFieldMethod:    method,
				service.LogFieldRequestID: w.Header().Get(middleware.RequestIDHeader),
			}).Debug("Host disconnected before the plugin call completed")
		}
	}
}

func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request) (service.Params, error) {
	limit := s.cfg.Server.MaxRequestBodyBytes
	if err := validation.ValidateHTTPRequestSize(r, limit); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, errors.NewValidationError("body", fmt.Sprintf("failed to read request body: %v", err))
	}
	return parseParams(body)
}

// parseParams decodes a JSON object. An empty body means no parameters.
func parseParams(body []byte) (service.Params, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var params service.Params
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, errors.NewValidationError("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	if dec.More() {
		return nil, errors.NewValidationError("body", "unexpected data after JSON object")
	}
	return params, nil
}

func (s *Server) handleMethods() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, map[string][]string{"methods": s.bridge.Methods()})
	}
}

// handlePluginSocket serves plugin calls over a websocket. Calls on one
// connection run concurrently and results are written as they complete.
func (s *Server) handlePluginSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to accept plugin websocket")
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(s.cfg.Server.MaxRequestBodyBytes)

		logger := s.logger.WithField(service.LogFieldRequestID, w.Header().Get(middleware.RequestIDHeader))
		logger.Info("Plugin websocket connected")
		ctx := r.Context()

		// ids of calls whose result has not been written yet
		inflight := cmap.New[time.Time]()
		defer func() {
			if n := inflight.Count(); n > 0 {
				logger.WithField(service.LogFieldCount, n).Warn("Plugin websocket closed with calls in flight")
			}
		}()

		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
					logger.Info("Plugin websocket closed")
				} else {
					logger.WithError(err).Warn("Plugin websocket read failed")
				}
				return
			}

			if typ != websocket.MessageText {
				s.writeFrame(conn, logger, socketResponse{
					Result: service.Failure(errors.NewValidationError("frame", "must be a text message")),
				})
				continue
			}

			var req socketRequest
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			if err := dec.Decode(&req); err != nil {
				s.writeFrame(conn, logger, socketResponse{
					Result: service.Failure(errors.NewValidationError("frame", fmt.Sprintf("malformed JSON: %v", err))),
				})
				continue
			}
			if req.ID == "" {
				s.writeFrame(conn, logger, socketResponse{
					Result: service.Failure(errors.NewValidationError("id", "is required")),
				})
				continue
			}
			if !inflight.SetIfAbsent(req.ID, time.Now()) {
				s.writeFrame(conn, logger, socketResponse{
					ID:     req.ID,
					Result: service.Failure(errors.NewValidationError("id", "is already in flight")),
				})
				continue
			}

			s.metrics.IncrementCounter(metrics.WSFramesTotal, map[string]string{"method": s.bridge.MethodLabel(req.Method)}, "Plugin calls received over the websocket")
			logger.WithFields(logrus.Fields{
				"frame_id":             req.ID,
				service.LogFieldMethod: req.Method,
			}).Debug("Plugin websocket frame received")

			id := req.ID
			s.bridge.Invoke(ctx, req.Method, req.Params, func(res service.Result) {
				inflight.Remove(id)
				s.writeFrame(conn, logger, socketResponse{ID: id, Result: res})
			})
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, logger *logrus.Entry, frame socketResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), socketWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		logger.WithError(err).WithField("frame_id", frame.ID).Debug("Dropped plugin websocket frame")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
