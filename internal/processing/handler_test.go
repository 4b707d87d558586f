package processing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/processing"
	"github.com/JaimeStill/tally/internal/queue"
	"github.com/JaimeStill/tally/internal/workflow"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/routes"
)

type store struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*documents.Document
}

func newStore(docs ...*documents.Document) *store {
	s := &store{docs: make(map[uuid.UUID]*documents.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *store) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *store) Create(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &documents.Document{
		ID:          uuid.New(),
		TenantID:    cmd.TenantID,
		RequesterID: cmd.RequesterID,
		Filename:    cmd.Filename,
		Status:      documents.StatusQueued,
	}
	s.docs[d.ID] = d
	cp := *d
	return &cp, nil
}

func (s *store) Update(_ context.Context, id uuid.UUID, patch documents.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	patch.Apply(d)
	return nil
}

func (s *store) only() *documents.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		return d
	}
	return nil
}

// enqueuer accepts failAfter requests, then returns err. A zero failAfter
// with err set rejects every request.
type enqueuer struct {
	err       error
	failAfter int
	requests  []workflow.Request
}

func (e *enqueuer) Enqueue(req workflow.Request) error {
	if e.err != nil && len(e.requests) >= e.failAfter {
		return e.err
	}
	e.requests = append(e.requests, req)
	return nil
}

func acceptAll([]byte) error { return nil }

func newServer(s *store, q *enqueuer, inspect processing.Inspector, maxUpload int64) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := processing.NewHandler(s, q, inspect, logger, maxUpload, "default")

	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return middleware.HeaderIdentity()(mux)
}

type part struct {
	field    string
	filename string
	content  []byte
}

func pdf(field, filename string) part {
	return part{field, filename, []byte("%PDF-1.7 " + filename)}
}

func uploadRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(p.content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/processing/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.HeaderRequesterID, "user-1")
	req.Header.Set(middleware.HeaderTenantID, "acme")
	return req
}

func decodeBatch(t *testing.T, rec *httptest.ResponseRecorder) processing.Batch {
	t.Helper()
	var batch processing.Batch
	if err := json.NewDecoder(rec.Body).Decode(&batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return batch
}

func TestUpload(t *testing.T) {
	s := newStore()
	q := &enqueuer{}
	srv := newServer(s, q, acceptAll, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, part{"file", "balance.pdf", []byte("%PDF-1.7 content")}))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	batch := decodeBatch(t, rec)
	if len(batch.Documents) != 1 {
		t.Fatalf("documents: got %d, want 1", len(batch.Documents))
	}
	body := batch.Documents[0]
	if body.Status != documents.StatusQueued || body.Operation != workflow.FullProcess || body.Error != "" {
		t.Errorf("body: %+v", body)
	}

	if len(q.requests) != 1 {
		t.Fatalf("enqueued: got %d, want 1", len(q.requests))
	}
	req := q.requests[0]
	if req.DocumentID != body.ID || req.Filename != "balance.pdf" {
		t.Errorf("request: %+v", req)
	}
	if req.Requester.ID != "user-1" || req.Requester.TenantID != "acme" {
		t.Errorf("requester: %+v", req.Requester)
	}
	if string(req.Content) != "%PDF-1.7 content" {
		t.Errorf("content: got %q", req.Content)
	}

	doc := s.only()
	if doc.TenantID != "acme" || doc.RequesterID != "user-1" {
		t.Errorf("document ownership: %+v", doc)
	}
}

func TestUploadBatch(t *testing.T) {
	s := newStore()
	q := &enqueuer{}
	srv := newServer(s, q, acceptAll, 1<<20)

	names := []string{"a.pdf", "b.pdf", "c.pdf"}
	parts := make([]part, len(names))
	for i, n := range names {
		parts[i] = pdf("files", n)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, parts...))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	batch := decodeBatch(t, rec)
	if len(batch.Documents) != len(names) || len(q.requests) != len(names) {
		t.Fatalf("documents %d, enqueued %d, want %d", len(batch.Documents), len(q.requests), len(names))
	}

	seen := make(map[uuid.UUID]bool)
	for i, d := range batch.Documents {
		if d.Filename != names[i] || d.Status != documents.StatusQueued {
			t.Errorf("document %d: %+v", i, d)
		}
		if q.requests[i].DocumentID != d.ID || string(q.requests[i].Content) != "%PDF-1.7 "+names[i] {
			t.Errorf("request %d: %+v", i, q.requests[i])
		}
		if _, err := s.Find(context.Background(), d.ID); err != nil {
			t.Errorf("document %d not recorded: %v", i, err)
		}
		seen[d.ID] = true
	}
	if len(seen) != len(names) {
		t.Errorf("distinct ids: got %d, want %d", len(seen), len(names))
	}
}

func TestUploadRejected(t *testing.T) {
	six := make([]part, processing.MaxBatchFiles+1)
	for i := range six {
		six[i] = pdf("files", fmt.Sprintf("%d.pdf", i))
	}

	tests := []struct {
		name    string
		parts   []part
		inspect processing.Inspector
		limit   int64
		status  int
	}{
		{"missing file field", []part{pdf("upload", "a.pdf")}, acceptAll, 1 << 20, http.StatusBadRequest},
		{"not a pdf", []part{{"file", "a.pdf", []byte("hello")}}, func([]byte) error { return errors.New("missing pdf header") }, 1 << 20, http.StatusBadRequest},
		{"request too large", []part{{"file", "a.pdf", bytes.Repeat([]byte("x"), 4096)}}, acceptAll, 512, http.StatusRequestEntityTooLarge},
		{"file too large", []part{{"files", "a.pdf", bytes.Repeat([]byte("x"), 1024)}}, acceptAll, 512, http.StatusRequestEntityTooLarge},
		{"too many files", six, acceptAll, 1 << 20, http.StatusBadRequest},
		{"one bad file in batch", []part{pdf("files", "a.pdf"), {"files", "b.pdf", []byte("hello")}}, func(data []byte) error {
			if !bytes.HasPrefix(data, []byte("%PDF")) {
				return errors.New("missing pdf header")
			}
			return nil
		}, 1 << 20, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			q := &enqueuer{}
			srv := newServer(s, q, tt.inspect, tt.limit)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, uploadRequest(t, tt.parts...))

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if len(q.requests) != 0 || s.only() != nil {
				t.Error("rejected upload should not create or enqueue")
			}
		})
	}
}

func TestUploadQueueFull(t *testing.T) {
	s := newStore()
	q := &enqueuer{err: queue.ErrQueueFull}
	srv := newServer(s, q, acceptAll, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, pdf("file", "a.pdf")))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d", rec.Code)
	}

	doc := s.only()
	if doc.Status != documents.StatusError {
		t.Errorf("document status: got %s", doc.Status)
	}
	if !strings.Contains(doc.ErrorMessage, "queue is full") {
		t.Errorf("error message: got %q", doc.ErrorMessage)
	}
}

func TestUploadBatchPartialEnqueue(t *testing.T) {
	s := newStore()
	q := &enqueuer{failAfter: 1, err: queue.ErrQueueFull}
	srv := newServer(s, q, acceptAll, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, pdf("files", "a.pdf"), pdf("files", "b.pdf")))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}

	batch := decodeBatch(t, rec)
	if len(batch.Documents) != 2 {
		t.Fatalf("documents: got %d, want 2", len(batch.Documents))
	}

	queued, rejected := batch.Documents[0], batch.Documents[1]
	if queued.Status != documents.StatusQueued || queued.Error != "" {
		t.Errorf("first document: %+v", queued)
	}
	if rejected.Status != documents.StatusError || !strings.Contains(rejected.Error, "queue is full") {
		t.Errorf("second document: %+v", rejected)
	}

	doc, err := s.Find(context.Background(), rejected.ID)
	if err != nil {
		t.Fatalf("find rejected: %v", err)
	}
	if doc.Status != documents.StatusError {
		t.Errorf("rejected document status: got %s", doc.Status)
	}
}

func TestRerun(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		path   string
		tenant string
		qerr   error
		status int
		op     workflow.Operation
		after  documents.Status
	}{
		{"classify extract", "/classify-extract", "acme", nil, http.StatusAccepted, workflow.ClassifyAndExtract, documents.StatusQueued},
		{"extract", "/extract", "acme", nil, http.StatusAccepted, workflow.Extract, documents.StatusQueued},
		{"validate", "/validate", "acme", nil, http.StatusAccepted, workflow.Validate, documents.StatusQueued},
		{"other tenant", "/extract", "globex", nil, http.StatusNotFound, "", documents.StatusAnalyzed},
		{"queue full", "/validate", "acme", queue.ErrQueueFull, http.StatusServiceUnavailable, "", documents.StatusAnalyzed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(&documents.Document{ID: id, TenantID: "acme", Status: documents.StatusAnalyzed})
			q := &enqueuer{err: tt.qerr}
			srv := newServer(s, q, acceptAll, 1<<20)

			req := httptest.NewRequest(http.MethodPost, "/processing/documents/"+id.String()+tt.path, nil)
			req.Header.Set(middleware.HeaderTenantID, tt.tenant)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.op != "" && (len(q.requests) != 1 || q.requests[0].Operation != tt.op) {
				t.Errorf("enqueued: %+v", q.requests)
			}
			if got := s.only().Status; got != tt.after {
				t.Errorf("document status: got %s, want %s", got, tt.after)
			}
		})
	}
}

func TestRerunUnknownDocument(t *testing.T) {
	srv := newServer(newStore(), &enqueuer{}, acceptAll, 1<<20)

	tests := []struct {
		path   string
		status int
	}{
		{"/processing/documents/" + uuid.NewString() + "/extract", http.StatusNotFound},
		{"/processing/documents/not-a-uuid/extract", http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("%s: got %d, want %d", tt.path, rec.Code, tt.status)
		}
	}
}
