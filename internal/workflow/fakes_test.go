package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/llm"
	"github.com/JaimeStill/tally/internal/notify"
	"github.com/JaimeStill/tally/internal/tenants"
	"github.com/JaimeStill/tally/internal/workflow"
	"github.com/JaimeStill/tally/pkg/storage"
)

type docStore struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]*documents.Document
	statuses []documents.Status
}

func newDocStore(docs ...*documents.Document) *docStore {
	s := &docStore{docs: make(map[uuid.UUID]*documents.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *docStore) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *docStore) Create(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &documents.Document{
		ID:          cmd.ID,
		TenantID:    cmd.TenantID,
		RequesterID: cmd.RequesterID,
		Filename:    cmd.Filename,
		Status:      documents.StatusQueued,
	}
	s.docs[d.ID] = d
	cp := *d
	return &cp, nil
}

func (s *docStore) Update(_ context.Context, id uuid.UUID, patch documents.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	patch.Apply(d)
	if patch.Status != nil {
		s.statuses = append(s.statuses, *patch.Status)
	}
	return nil
}

func (s *docStore) UpdateStatus(ctx context.Context, id uuid.UUID, status documents.Status) error {
	return s.Update(ctx, id, documents.Patch{Status: &status})
}

func (s *docStore) get(id uuid.UUID) *documents.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectStore() *objectStore {
	return &objectStore{objects: make(map[string][]byte)}
}

func (s *objectStore) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *objectStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *objectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *objectStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.objects))
}

func (s *objectStore) get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

type schemaSource struct {
	schema *tenants.Schema
}

func (s schemaSource) Schema(context.Context, string) (*tenants.Schema, error) {
	return s.schema, nil
}

func testSchema() *tenants.Schema {
	return &tenants.Schema{
		TenantID: "default",
		BalanceFields: []tenants.Field{
			{Code: "activo_total", Label: "Total del activo"},
			{Code: "pasivo_total", Label: "Total del pasivo"},
			{Code: "patrimonio_neto", Label: "Patrimonio neto"},
		},
		IncomeFields: []tenants.Field{
			{Code: "resultados_del_ejercicio", Label: "Resultado del ejercicio"},
		},
		BalancePrompt: "balance prompt",
		IncomePrompt:  "income prompt",
	}
}

// rasterizer renders one fake image per configured page. With err set it
// fails once failAfter pages have been emitted.
type rasterizer struct {
	pages     [][]byte
	err       error
	failAfter int
}

func pageImages(n int) [][]byte {
	pages := make([][]byte, n)
	for i := range pages {
		pages[i] = fmt.Appendf(nil, "page-%d", i+1)
	}
	return pages
}

func (r rasterizer) Rasterize(_ context.Context, _ []byte, _ int, fn workflow.PageFunc) (int, error) {
	for i, p := range r.pages {
		if r.err != nil && i == r.failAfter {
			return 0, r.err
		}
		if err := fn(i+1, len(r.pages), p); err != nil {
			return 0, err
		}
	}
	if r.err != nil {
		return 0, r.err
	}
	return len(r.pages), nil
}

// model answers classification from a per-image table and extraction from
// canned JSON chosen by prompt.
type model struct {
	recognize func(image []byte) (documents.Recognition, error)
	delay     time.Duration

	balance string
	income  string
	company string
	failOn  map[string]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	classified  atomic.Int32

	mu       sync.Mutex
	requests []llm.Request
	calls    []time.Time
}

func (m *model) Classify(ctx context.Context, image []byte) (documents.Recognition, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	m.classified.Add(1)

	m.mu.Lock()
	m.calls = append(m.calls, time.Now())
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.recognize == nil {
		return documents.Recognition{}, nil
	}
	return m.recognize(image)
}

func (m *model) ExtractStructured(ctx context.Context, req llm.Request, _ *genai.Schema, out any) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	kind := "company"
	switch {
	case strings.HasPrefix(req.Prompt, "balance"):
		kind = "balance"
	case strings.HasPrefix(req.Prompt, "income"):
		kind = "income"
	}

	if err := m.failOn[kind]; err != nil {
		return err
	}

	body := map[string]string{"balance": m.balance, "income": m.income, "company": m.company}[kind]
	if body == "" {
		return errors.New("no canned response")
	}
	return json.Unmarshal([]byte(body), out)
}

// lastClassify returns the time of the latest classification call.
func (m *model) lastClassify() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.MaxFunc(m.calls, time.Time.Compare)
}

func (m *model) extractCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) terminal() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []notify.Event
	for _, e := range r.events {
		if e.Terminal {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	docs    *docStore
	objects *objectStore
	model   *model
	events  *recorder
	engine  *workflow.Engine
}

func newHarness(docs *docStore, m *model, r rasterizer, pipeline config.PipelineConfig) *harness {
	h := &harness{
		docs:    docs,
		objects: newObjectStore(),
		model:   m,
		events:  &recorder{},
	}

	if pipeline.ClassifyConcurrency == 0 {
		pipeline.ClassifyConcurrency = 4
	}
	if pipeline.ClassifyRate == 0 {
		pipeline.ClassifyRate = 1e6
	}
	if pipeline.RenderBatch == 0 {
		pipeline.RenderBatch = 2
	}
	pipeline.DefaultTenant = "default"
	pipeline.Environment = "test"

	h.engine = workflow.NewEngine(&workflow.Runtime{
		Documents:  docs,
		Storage:    h.objects,
		Tenants:    schemaSource{schema: testSchema()},
		Model:      m,
		Rasterizer: r,
		Notifier:   h.events,
		Pipeline:   pipeline,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

const (
	balanceJSON = `{
		"general": {"company": "Acme SA", "current_period": "2024-12-31", "prior_period": "2023-12-31"},
		"items": [
			{"concept_code": "pasivo_total", "current_amount": 600, "prior_amount": 0},
			{"concept_code": "activo_total", "current_amount": 1000, "prior_amount": 0},
			{"concept_code": "otro_concepto", "current_amount": 5, "prior_amount": 0},
			{"concept_code": "patrimonio_neto", "current_amount": 400, "prior_amount": 0},
			{"concept_code": "activo_total", "current_amount": 1, "prior_amount": 0}
		]
	}`
	unbalancedJSON = `{
		"general": {"company": "Acme SA", "current_period": "2024-12-31"},
		"items": [
			{"concept_code": "activo_total", "current_amount": 1000, "prior_amount": 0},
			{"concept_code": "pasivo_total", "current_amount": 600, "prior_amount": 0},
			{"concept_code": "patrimonio_neto", "current_amount": 300, "prior_amount": 0}
		]
	}`
	incomeJSON = `{
		"general": {"company": "Acme SA"},
		"items": [{"concept_code": "resultados_del_ejercicio", "current_amount": 120, "prior_amount": 90}]
	}`
	companyJSON = `{"tax_id": "30-71234567-9", "name": "Acme SA", "address": "Av. Siempreviva 742", "activity": null}`
)

// byPage classifies fake page images by their page number.
func byPage(table map[int]documents.Recognition) func([]byte) (documents.Recognition, error) {
	return func(image []byte) (documents.Recognition, error) {
		var n int
		if _, err := fmt.Sscanf(string(image), "page-%d", &n); err != nil {
			return documents.Recognition{}, err
		}
		return table[n], nil
	}
}
