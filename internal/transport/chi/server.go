package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/answer"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	dombatch "github.com/sou1nonly/relocation-chatbot/internal/domain/batch"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
	logpkg "github.com/sou1nonly/relocation-chatbot/internal/logger"
	healthuc "github.com/sou1nonly/relocation-chatbot/internal/usecase/health"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
)

const maxBodyBytes = 1 << 20

// Services are the collaborators behind the API. Answerer and Memory may be nil.
// Options seeds assembly options a request leaves unset.
type Services struct {
	Options    assembled.Options
	Classifier pipeline.Classifier
	Rewriter   pipeline.Rewriter
	Scorer     pipeline.Scorer
	Cache      SearchCache
	Fallback   pipeline.FallbackAnalyzer
	Assembler  pipeline.Assembler
	Pipeline   PipelineRunner
	Batch      BatchRunner
	Health     HealthChecker
	Memory     MemoryStore
	Answerer   Answerer
}

// Server serves the retrieval API over chi.
type Server struct {
	svc           Services
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if svc.Options.MaxTokens <= 0 {
		svc.Options = assembled.DefaultOptions()
	}
	return &Server{svc: svc, logger: logger, errorHandlers: defaultErrorHandlers()}
}

// Mount registers all routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/intent", s.ClassifyIntent)
		r.Post("/rewrite", s.RewriteQuery)
		r.Post("/results/filter", s.FilterResults)
		r.Post("/cache/lookup", s.FindSimilarSearch)
		r.Post("/cache", s.StoreSearchResults)
		r.Delete("/cache", s.ClearCache)
		r.Get("/cache/stats", s.CacheStats)
		r.Post("/fallback", s.AnalyzeFallback)
		r.Post("/context", s.AssembleContext)
		r.Post("/search", s.Search)
		r.Post("/search/batch", s.SearchBatch)
		r.Post("/answer", s.Answer)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/preferences", s.GetPreferences)
			r.Put("/preferences", s.PutPreferences)
			r.Get("/summary", s.GetSummary)
			r.Put("/summary", s.PutSummary)
		})
	})
}

// Handler returns a router with every route mounted and no middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

type intentRequest struct {
	Query       string                 `json:"query"`
	Intent      *domintent.QueryIntent `json:"intent,omitempty"`
	UserContext *usercontext.Context   `json:"user_context,omitempty"`
}

type filterRequest struct {
	intentRequest
	Results        []result.WebSearchResult `json:"results"`
	RewrittenQuery *query.RewrittenQuery    `json:"rewritten_query,omitempty"`
	Threshold      *float64                 `json:"threshold,omitempty"`
}

type storeRequest struct {
	intentRequest
	RewrittenQuery *query.RewrittenQuery   `json:"rewritten_query,omitempty"`
	Results        *result.FilteredResults `json:"results"`
}

type storeResponse struct {
	ID string `json:"id"`
}

type fallbackRequest struct {
	intentRequest
	Results result.FilteredResults `json:"results"`
}

type contextRequest struct {
	intentRequest
	Memory     *usercontext.Memory     `json:"memory,omitempty"`
	WebResults *result.FilteredResults `json:"web_results,omitempty"`
	Options    assembled.Options       `json:"options"`
}

type batchRequest struct {
	Requests []json.RawMessage `json:"requests"`
}

type batchItem struct {
	ID       string              `json:"id"`
	Status   dombatch.ItemStatus `json:"status"`
	Error    *ErrorResponse      `json:"error,omitempty"`
	Response *pipeline.Response  `json:"response,omitempty"`
}

type batchResponse struct {
	Results []batchItem `json:"results"`
}

type answerResponse struct {
	Answer answer.Answer     `json:"answer"`
	Search pipeline.Response `json:"search"`
}

// ClassifyIntent handles POST /v1/intent.
func (s *Server) ClassifyIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Classifier.Classify(req.Query, req.UserContext))
}

// RewriteQuery handles POST /v1/rewrite. The intent is classified when omitted.
func (s *Server) RewriteQuery(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	in := s.resolveIntent(req)
	writeJSON(w, http.StatusOK, s.svc.Rewriter.Rewrite(req.Query, in, req.UserContext))
}

// FilterResults handles POST /v1/results/filter.
func (s *Server) FilterResults(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	in := s.resolveIntent(req.intentRequest)
	rw := s.resolveRewrite(req.intentRequest, in, req.RewrittenQuery)
	threshold := -1.0
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	writeJSON(w, http.StatusOK, s.svc.Scorer.FilterAndRank(req.Results, in, rw, threshold))
}

// FindSimilarSearch handles POST /v1/cache/lookup. A miss is a 404.
func (s *Server) FindSimilarSearch(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.handleDomainError(w, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest))
		return
	}
	match, ok := s.svc.Cache.FindSimilar(req.Query, s.resolveIntent(req))
	if !ok {
		s.handleDomainError(w, fmt.Errorf("%w: no similar search", domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// StoreSearchResults handles POST /v1/cache.
func (s *Server) StoreSearchResults(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.handleDomainError(w, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest))
		return
	}
	in := s.resolveIntent(req.intentRequest)
	rw := s.resolveRewrite(req.intentRequest, in, req.RewrittenQuery)
	id, err := s.svc.Cache.Store(req.Query, in, rw, req.Results)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, storeResponse{ID: id})
}

// ClearCache handles DELETE /v1/cache.
func (s *Server) ClearCache(w http.ResponseWriter, _ *http.Request) {
	removed := s.svc.Cache.Len()
	s.svc.Cache.Clear()
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// CacheStats handles GET /v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Cache.Stats())
}

// AnalyzeFallback handles POST /v1/fallback.
func (s *Server) AnalyzeFallback(w http.ResponseWriter, r *http.Request) {
	var req fallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	in := s.resolveIntent(req.intentRequest)
	writeJSON(w, http.StatusOK, s.svc.Fallback.Analyze(req.Results, in, req.Query))
}

// AssembleContext handles POST /v1/context. Stored memory is loaded for the
// user when the request carries none.
func (s *Server) AssembleContext(w http.ResponseWriter, r *http.Request) {
	req := contextRequest{Options: s.svc.Options}
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	in := s.resolveIntent(req.intentRequest)

	mem := req.Memory
	if mem == nil && s.svc.Memory != nil && req.UserContext != nil && req.UserContext.UserID != "" {
		loaded, err := s.svc.Memory.Memory(r.Context(), req.UserContext.UserID)
		if err != nil {
			logpkg.FromContextOr(r.Context(), s.logger).Warn("memory load failed", zap.Error(err))
		} else {
			mem = &loaded
		}
	}

	writeJSON(w, http.StatusOK, s.svc.Assembler.Assemble(req.Query, in, req.UserContext, mem, req.WebResults, req.Options))
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req := s.newPipelineRequest()
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	resp, err := s.svc.Pipeline.Run(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SearchBatch handles POST /v1/search/batch.
func (s *Server) SearchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if len(req.Requests) == 0 {
		s.handleDomainError(w, fmt.Errorf("%w: requests must not be empty", domain.ErrInvalidRequest))
		return
	}
	if len(req.Requests) > s.svc.Batch.MaxBatchSize() {
		s.handleDomainError(w, fmt.Errorf("%w: %d requests, maximum %d",
			domain.ErrBatchTooLarge, len(req.Requests), s.svc.Batch.MaxBatchSize()))
		return
	}

	reqs := make([]pipeline.Request, len(req.Requests))
	for i, raw := range req.Requests {
		reqs[i] = s.newPipelineRequest()
		if err := json.Unmarshal(raw, &reqs[i]); err != nil {
			s.handleDomainError(w, fmt.Errorf("%w: requests[%d]: invalid body", domain.ErrInvalidRequest, i))
			return
		}
	}

	items := s.svc.Batch.Run(r.Context(), reqs)
	out := batchResponse{Results: make([]batchItem, len(items))}
	for i, it := range items {
		out.Results[i] = batchItem{ID: it.ID(), Status: it.Status(), Response: it.Response}
		if it.Err() != nil {
			out.Results[i].Error = &ErrorResponse{Code: batchErrorCode(it.Err()), Message: safeDomainMessage(it.Err())}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Answer handles POST /v1/answer: a full pipeline run followed by a model answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	if s.svc.Answerer == nil {
		s.handleDomainError(w, fmt.Errorf("%w: no language model configured", domain.ErrNotImplemented))
		return
	}
	req := s.newPipelineRequest()
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.handleDomainError(w, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest))
		return
	}
	resp, err := s.svc.Pipeline.Run(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	ans, err := s.svc.Answerer.Answer(r.Context(), req.Query, resp.Context)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: ans, Search: resp})
}

// GetPreferences handles GET /v1/users/{id}/preferences.
func (s *Server) GetPreferences(w http.ResponseWriter, r *http.Request) {
	if !s.requireMemory(w) {
		return
	}
	p, err := s.svc.Memory.GetPreferences(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if p == nil {
		s.handleDomainError(w, fmt.Errorf("%w: preferences", domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPreferences handles PUT /v1/users/{id}/preferences.
func (s *Server) PutPreferences(w http.ResponseWriter, r *http.Request) {
	if !s.requireMemory(w) {
		return
	}
	var p usercontext.Preferences
	if err := decodeJSON(w, r, &p); err != nil {
		s.handleDomainError(w, err)
		return
	}
	userID := chi.URLParam(r, "id")
	if err := s.svc.Memory.SavePreferences(r.Context(), userID, p); err != nil {
		s.handleDomainError(w, err)
		return
	}
	saved, err := s.svc.Memory.GetPreferences(r.Context(), userID)
	if err != nil || saved == nil {
		writeJSON(w, http.StatusOK, p)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// GetSummary handles GET /v1/users/{id}/summary.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireMemory(w) {
		return
	}
	sum, err := s.svc.Memory.GetConversationSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if sum == nil {
		s.handleDomainError(w, fmt.Errorf("%w: summary", domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// PutSummary handles PUT /v1/users/{id}/summary.
func (s *Server) PutSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireMemory(w) {
		return
	}
	var sum usercontext.ConversationSummary
	if err := decodeJSON(w, r, &sum); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.svc.Memory.SaveConversationSummary(r.Context(), chi.URLParam(r, "id"), sum); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HealthCheck handles GET /health. Only a failing memory store is reported as 503;
// a missing search key degrades the service without taking it down.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())
	status := http.StatusOK
	if report.Checks[healthuc.ComponentMemoryStore] == healthuc.CheckError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) requireMemory(w http.ResponseWriter) bool {
	if s.svc.Memory == nil {
		s.handleDomainError(w, fmt.Errorf("%w: no memory store configured", domain.ErrNotImplemented))
		return false
	}
	return true
}

func (s *Server) resolveIntent(req intentRequest) domintent.QueryIntent {
	if req.Intent != nil {
		return *req.Intent
	}
	return s.svc.Classifier.Classify(req.Query, req.UserContext)
}

func (s *Server) resolveRewrite(
	req intentRequest, in domintent.QueryIntent, rw *query.RewrittenQuery,
) query.RewrittenQuery {
	if rw != nil {
		return *rw
	}
	return s.svc.Rewriter.Rewrite(req.Query, in, req.UserContext)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	if errors.Is(err, domain.ErrInvalidRequest) {
		// Validation messages are ours; pass them through.
		msg = err.Error()
	}
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func (s *Server) newPipelineRequest() pipeline.Request {
	return pipeline.Request{Options: s.svc.Options, Threshold: -1}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
