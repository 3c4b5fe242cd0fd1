package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/core/ports"
	"github.com/kirillkom/governed-rag/internal/observability/metrics"
)

const serviceName = "api"

// ReadinessChecker reports whether the sparse index has been hydrated.
// The API still serves while degraded; healthz surfaces the state.
type ReadinessChecker interface {
	Ready() bool
}

type Router struct {
	ingestUC ports.DocumentIngestor
	answerUC ports.AnswerService
	searchUC ports.SearchService
	repo     ports.DocumentReader
	sparse   ReadinessChecker
	metrics  *metrics.HTTPServerMetrics

	rateLimitRPS   int
	rateLimitBurst int
	maxInFlight    int
	defaultTopK    int
}

type RouterOptions struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int

	// DefaultTopK applies when a request omits k/limit. Zero defers to the
	// use-case default.
	DefaultTopK int
}

func NewRouter(
	ingestUC ports.DocumentIngestor,
	answerUC ports.AnswerService,
	searchUC ports.SearchService,
	repo ports.DocumentReader,
	sparse ReadinessChecker,
	srvMetrics *metrics.HTTPServerMetrics,
	options RouterOptions,
) *Router {
	return &Router{
		ingestUC:       ingestUC,
		answerUC:       answerUC,
		searchUC:       searchUC,
		repo:           repo,
		sparse:         sparse,
		metrics:        srvMetrics,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
		defaultTopK:    options.DefaultTopK,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/answer", rt.answer)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	if rt.sparse != nil && !rt.sparse.Ready() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded", "sparse_index": "hydrating"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type searchRequest struct {
	Query       string `json:"query"`
	AccessLevel string `json:"access_level"`
	Limit       int    `json:"limit"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	query, err := rt.buildQueryContext(r, req.Query, req.AccessLevel, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.searchUC.Search(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(serviceName, len(result.Results), result.LatencyMS)
	}
	writeJSON(w, http.StatusOK, result)
}

type answerRequest struct {
	Query       string `json:"query"`
	AccessLevel string `json:"access_level"`
	K           int    `json:"k"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	query, err := rt.buildQueryContext(r, req.Query, req.AccessLevel, req.K)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.answerUC.Answer(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		degraded := strings.HasPrefix(result.Answer, "ERROR: Generation failed")
		rt.metrics.RecordAnswer(
			serviceName,
			result.Metrics.ModelName,
			result.Metrics.ChunksUsed,
			len(result.Citations),
			result.Metrics.RetrievalLatencyMS,
			result.Metrics.GenerationLatencyMS,
			degraded,
		)
	}
	writeJSON(w, http.StatusOK, result)
}

// buildQueryContext validates the raw request fields into a QueryContext.
// Size bounds on k/limit are enforced downstream by the use cases.
func (rt *Router) buildQueryContext(r *http.Request, rawQuery, rawAccessLevel string, k int) (domain.QueryContext, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return domain.QueryContext{}, domain.WrapError(domain.ErrInvalidInput, "parse request", errQueryRequired)
	}
	level := domain.AccessPublic
	if strings.TrimSpace(rawAccessLevel) != "" {
		parsed, err := domain.ParseAccessLevel(rawAccessLevel)
		if err != nil {
			return domain.QueryContext{}, domain.WrapError(domain.ErrInvalidInput, "parse request", err)
		}
		level = parsed
	}
	if k <= 0 {
		k = rt.defaultTopK
	}
	return domain.QueryContext{
		Text:        rawQuery,
		AccessLevel: level,
		K:           k,
		RequestID:   requestIDFromContext(r.Context()),
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
