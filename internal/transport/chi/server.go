package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourassist/internal/domain"
	"github.com/kailas-cloud/tourassist/internal/domain/conversation"
	"github.com/kailas-cloud/tourassist/internal/logger"
	"github.com/kailas-cloud/tourassist/internal/usecase/assistant"
	"github.com/kailas-cloud/tourassist/internal/usecase/dialogue"
	healthuc "github.com/kailas-cloud/tourassist/internal/usecase/health"
)

// maxBodyBytes bounds the answer request body (question plus history).
const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeInternalError    = "internal_error"
)

// Assistant answers one storefront question.
type Assistant interface {
	Answer(ctx context.Context, req assistant.Request) (assistant.Reply, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the assistant HTTP API.
type Server struct {
	assistant     Assistant
	health        HealthChecker
	fallback      string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. fallback is returned with 200 for any non-validation failure.
func NewServer(a Assistant, health HealthChecker, fallback string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		assistant: a,
		health:    health,
		fallback:  fallback,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		s.fallbackHandler,
	}
	return s
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TurnDTO is one history turn on the wire.
type TurnDTO struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// AnswerRequest is the POST /v1/assistant/answer body.
type AnswerRequest struct {
	Question       string    `json:"question"`
	History        []TurnDTO `json:"history"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// AnswerResponse is the POST /v1/assistant/answer reply.
type AnswerResponse struct {
	Answer         string   `json:"answer"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Intent         string   `json:"intent,omitempty"`
	Branch         string   `json:"branch,omitempty"`
	State          string   `json:"state,omitempty"`
	Sources        []string `json:"sources,omitempty"`
}

// HealthResponse is the GET /health reply.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Answer handles POST /v1/assistant/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	history := make(conversation.History, len(req.History))
	for i, t := range req.History {
		history[i] = conversation.Turn{Sender: conversation.Sender(t.Sender), Text: t.Text}
	}

	reply, err := s.assistant.Answer(r.Context(), assistant.Request{
		Question:       req.Question,
		History:        history,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := AnswerResponse{
		Answer:         reply.Text,
		ConversationID: reply.ConversationID,
		Intent:         reply.Intent.String(),
		Branch:         string(reply.Branch),
		Sources:        reply.Sources,
	}
	if reply.Branch == assistant.BranchDialogue || reply.State == dialogue.Interrupted {
		resp.State = reply.State.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
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

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation reasons are caller-facing and returned in full.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// fallbackHandler answers any other failure with the fixed fallback text; the storefront
// widget always gets something to show.
func (s *Server) fallbackHandler(w http.ResponseWriter, _ error, _ string) bool {
	writeJSON(w, http.StatusOK, AnswerResponse{Answer: s.fallback})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	if errors.Is(err, domain.ErrValidation) {
		log.Info("request rejected", zap.Error(err))
	} else {
		s.logger.Error("answer failed", zap.Error(err))
	}
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
