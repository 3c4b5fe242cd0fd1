package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/governed-rag/internal/core/domain"
	"github.com/kirillkom/governed-rag/internal/observability/metrics"
)

type ingestorFake struct {
	doc *domain.Document
	err error
}

func (f *ingestorFake) Upload(_ context.Context, filename, _ string, _ io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return &domain.Document{ID: "doc-1", Filename: filename, Status: domain.StatusUploaded}, nil
}

type answerFake struct {
	result *domain.AnswerResult
	err    error
	got    domain.QueryContext
}

func (f *answerFake) Answer(_ context.Context, query domain.QueryContext) (*domain.AnswerResult, error) {
	f.got = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type searchFake struct {
	result *domain.SearchResult
	err    error
	got    domain.QueryContext
}

func (f *searchFake) Search(_ context.Context, query domain.QueryContext) (*domain.SearchResult, error) {
	f.got = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type readerFake struct {
	doc *domain.Document
	err error
}

func (f *readerFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type readyFake struct{ ready bool }

func (f *readyFake) Ready() bool { return f.ready }

type handlerDeps struct {
	ingest  *ingestorFake
	answer  *answerFake
	search  *searchFake
	reader  *readerFake
	ready   *readyFake
	options RouterOptions
}

func newTestHandler(deps handlerDeps) http.Handler {
	if deps.ingest == nil {
		deps.ingest = &ingestorFake{}
	}
	if deps.answer == nil {
		deps.answer = &answerFake{result: &domain.AnswerResult{Answer: "ok", Citations: []domain.Citation{}}}
	}
	if deps.search == nil {
		deps.search = &searchFake{result: &domain.SearchResult{Results: []domain.ScoredChunk{}}}
	}
	if deps.reader == nil {
		deps.reader = &readerFake{doc: &domain.Document{ID: "doc-1"}}
	}
	if deps.ready == nil {
		deps.ready = &readyFake{ready: true}
	}
	router := NewRouter(
		deps.ingest,
		deps.answer,
		deps.search,
		deps.reader,
		deps.ready,
		metrics.NewHTTPServerMetrics(serviceName),
		deps.options,
	)
	return router.Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthzReportsDegradedBeforeHydration(t *testing.T) {
	handler := newTestHandler(handlerDeps{ready: &readyFake{ready: false}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded status, got %q", body["status"])
	}
}

func TestAnswerPassesQueryContext(t *testing.T) {
	answer := &answerFake{result: &domain.AnswerResult{
		RequestID: "r",
		Answer:    "the answer [C1]",
		Citations: []domain.Citation{{ChunkID: "c1", Source: "policy.pdf"}},
	}}
	handler := newTestHandler(handlerDeps{answer: answer})

	res := postJSON(t, handler, "/v1/answer", map[string]any{
		"query":        "what is the retention policy?",
		"access_level": "restricted",
		"k":            3,
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if answer.got.AccessLevel != domain.AccessRestricted {
		t.Fatalf("expected restricted access level, got %q", answer.got.AccessLevel)
	}
	if answer.got.K != 3 {
		t.Fatalf("expected k=3, got %d", answer.got.K)
	}
	if answer.got.RequestID == "" {
		t.Fatalf("expected request id from middleware")
	}

	var body domain.AnswerResult
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Answer != "the answer [C1]" || len(body.Citations) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAnswerDefaultsToPublicAccess(t *testing.T) {
	answer := &answerFake{result: &domain.AnswerResult{Answer: "ok", Citations: []domain.Citation{}}}
	handler := newTestHandler(handlerDeps{answer: answer})

	res := postJSON(t, handler, "/v1/answer", map[string]any{"query": "anything here"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if answer.got.AccessLevel != domain.AccessPublic {
		t.Fatalf("expected public default, got %q", answer.got.AccessLevel)
	}
}

func TestAnswerAppliesConfiguredDefaultK(t *testing.T) {
	answer := &answerFake{result: &domain.AnswerResult{Answer: "ok", Citations: []domain.Citation{}}}
	handler := newTestHandler(handlerDeps{answer: answer, options: RouterOptions{DefaultTopK: 7}})

	res := postJSON(t, handler, "/v1/answer", map[string]any{"query": "anything here"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if answer.got.K != 7 {
		t.Fatalf("expected configured default k=7, got %d", answer.got.K)
	}
}

func TestAnswerRejectsBadRequests(t *testing.T) {
	handler := newTestHandler(handlerDeps{})

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing query", map[string]any{"access_level": "public"}},
		{"unknown access level", map[string]any{"query": "valid question", "access_level": "internal"}},
	}
	for _, tc := range cases {
		res := postJSON(t, handler, "/v1/answer", tc.payload)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader("{not json"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", res.Code)
	}
}

func TestAnswerMapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "validate query", errQueryRequired), http.StatusBadRequest},
		{"retrieval unavailable", domain.WrapError(domain.ErrRetrievalUnavailable, "dense search", io.ErrUnexpectedEOF), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		handler := newTestHandler(handlerDeps{answer: &answerFake{err: tc.err}})
		res := postJSON(t, handler, "/v1/answer", map[string]any{"query": "valid question"})
		if res.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, res.Code)
		}
	}
}

func TestAnswerHidesInternalErrorDetail(t *testing.T) {
	handler := newTestHandler(handlerDeps{answer: &answerFake{err: io.ErrUnexpectedEOF}})
	res := postJSON(t, handler, "/v1/answer", map[string]any{"query": "valid question"})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "unexpected EOF") {
		t.Fatalf("internal detail leaked: %s", res.Body.String())
	}
}

func TestSearchReturnsScoredChunks(t *testing.T) {
	search := &searchFake{result: &domain.SearchResult{
		RequestID: "r",
		Results: []domain.ScoredChunk{
			{ChunkRecord: domain.ChunkRecord{ChunkID: "c1", AccessLevel: domain.AccessPublic, Text: "alpha"}, Score: 0.03},
		},
		LatencyMS: 12,
	}}
	handler := newTestHandler(handlerDeps{search: search})

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "alpha policy", "limit": 5})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if search.got.K != 5 {
		t.Fatalf("expected limit 5, got %d", search.got.K)
	}
	var body domain.SearchResult
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].ChunkID != "c1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestUploadDocumentAccepted(t *testing.T) {
	handler := newTestHandler(handlerDeps{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "security_policy.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("pdf bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var doc domain.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if doc.Filename != "security_policy.pdf" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	notFound := domain.WrapError(domain.ErrDocumentNotFound, "get document", io.ErrUnexpectedEOF)
	handler := newTestHandler(handlerDeps{reader: &readerFake{err: notFound}})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(handlerDeps{})

	req := httptest.NewRequest(http.MethodGet, "/v1/answer", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
