// Package chi exposes the knowledge service over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	"github.com/prolix-oc/Enspira-sub000/internal/logger"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
	gatewayuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/gateway"
	healthuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/health"
	ingestuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/ingest"
	retrievaluc "github.com/prolix-oc/Enspira-sub000/internal/usecase/retrieval"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg, stage string) bool

// Server is the HTTP API server.
type Server struct {
	retrieval     *retrievaluc.Service
	ingest        *ingestuc.Service
	gateway       *gatewayuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	ingest *ingestuc.Service,
	gateway *gatewayuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		ingest:    ingest,
		gateway:   gateway,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeDimMismatch),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, codeConfiguration),
		sentinelHandler(domain.ErrProvisioning, http.StatusServiceUnavailable, codeProvisioning),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, codeUpstreamTimeout),
		sentinelHandler(domain.ErrUpstreamMalformed, http.StatusBadGateway, codeInternalError),
	}
	return s
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chirouter.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chirouter.Router) {
		r.Post("/retrieve", s.Retrieve)
		r.Route("/tenants/{tenant}/kinds/{kind}", func(r chirouter.Router) {
			r.Post("/records", s.IngestRecords)
			r.Delete("/", s.ResetCollection)
		})
	})

	return r
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := domain.ValidateTenantID(req.TenantID); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	kind := domain.Kind(req.Kind)
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown kind "+req.Kind)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "message is required")
		return
	}

	allowAugmentation := true
	if req.AllowAugmentation != nil {
		allowAugmentation = *req.AllowAugmentation
	}

	rc, err := s.retrieval.RetrieveContext(r.Context(), req.TenantID, kind, req.Message, allowAugmentation)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contextToResponse(rc))
}

// IngestRecords handles POST /v1/tenants/{tenant}/kinds/{kind}/records.
func (s *Server) IngestRecords(w http.ResponseWriter, r *http.Request) {
	tenant := chirouter.URLParam(r, "tenant")
	kind := domain.Kind(chirouter.URLParam(r, "kind"))

	if err := domain.ValidateTenantID(tenant); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown kind "+string(kind))
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "records must not be empty")
		return
	}

	records := make([]domain.KnowledgeRecord, 0, len(req.Records))
	for _, in := range req.Records {
		rec, err := recordFromInput(in, tenant, kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				"record "+in.Key+": "+err.Error())
			return
		}
		records = append(records, rec)
	}

	inserted, err := s.ingest.Ingest(r.Context(), tenant, kind, records)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Received: len(records),
		Inserted: inserted,
		Skipped:  len(records) - inserted,
	})
}

// ResetCollection handles DELETE /v1/tenants/{tenant}/kinds/{kind}.
func (s *Server) ResetCollection(w http.ResponseWriter, r *http.Request) {
	tenant := chirouter.URLParam(r, "tenant")
	kind := domain.Kind(chirouter.URLParam(r, "kind"))

	if err := domain.ValidateTenantID(tenant); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	if !kind.IsValid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown kind "+string(kind))
		return
	}

	if err := s.gateway.Reset(r.Context(), tenant, kind); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// requestLogger stores a request-scoped logger in the context, tagged with
// the chi request id.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				l = base.With(zap.String("request_id", reqID))
			}
			next.ServeHTTP(w, r.WithContext(logger.ContextWithLogger(r.Context(), l)))
		})
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg, stage string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, ErrorResponse{Code: code, Message: msg, Stage: stage})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	stage := string(domain.StageOf(err))
	for _, h := range s.errorHandlers {
		if h(w, err, msg, stage) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
