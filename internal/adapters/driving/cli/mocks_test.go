package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

type mockCorpus struct {
	parties   []domain.Party
	documents []domain.Document
	report    *domain.DiscoveryReport
	ensureErr map[int64]error
	ensured   []int64
	forced    bool
}

func (m *mockCorpus) Discover(_ context.Context, _ string) (*domain.DiscoveryReport, error) {
	if m.report == nil {
		return &domain.DiscoveryReport{}, nil
	}
	return m.report, nil
}

func (m *mockCorpus) ListParties(_ context.Context) ([]domain.Party, error) {
	return m.parties, nil
}

func (m *mockCorpus) GetParty(_ context.Context, abbr string) (*domain.Party, error) {
	for _, p := range m.parties {
		if p.Abbreviation == abbr {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCorpus) ListDocuments(_ context.Context, abbr string) ([]domain.Document, error) {
	if abbr == "" {
		return m.documents, nil
	}
	p, err := m.GetParty(context.Background(), abbr)
	if err != nil {
		return nil, err
	}
	var out []domain.Document
	for _, d := range m.documents {
		if d.PartyID == p.ID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockCorpus) EnsureText(_ context.Context, id int64, force bool) ([]domain.PageText, bool, error) {
	m.ensured = append(m.ensured, id)
	m.forced = m.forced || force
	if err := m.ensureErr[id]; err != nil {
		return nil, false, err
	}
	return []domain.PageText{
		{DocumentID: id, PageNumber: 1, Text: "texto", Method: domain.ExtractionNative},
		{DocumentID: id, PageNumber: 2, Text: "escaneado", Method: domain.ExtractionOCR},
	}, force, nil
}

type mockCategories struct {
	categories []domain.Category
	loaded     []domain.Category
	toggled    map[string]bool
}

func (m *mockCategories) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range m.categories {
		if !activeOnly || c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategories) Seed(_ context.Context) (int, error) {
	return len(m.categories), nil
}

func (m *mockCategories) Load(_ context.Context, cats []domain.Category) (int, error) {
	m.loaded = cats
	return len(cats), nil
}

func (m *mockCategories) SetActive(_ context.Context, key string, active bool) error {
	for _, c := range m.categories {
		if c.Key == key {
			if m.toggled == nil {
				m.toggled = map[string]bool{}
			}
			m.toggled[key] = active
			return nil
		}
	}
	return domain.ErrNotFound
}

type mockReports struct {
	positions []domain.PositionView
	history   []domain.PositionView
	status    *domain.StatusReport
	logs      []domain.ProcessingLogEntry
	logLimit  int
}

func (m *mockReports) Positions(_ context.Context, abbr, key string) ([]domain.PositionView, error) {
	var out []domain.PositionView
	for _, v := range m.positions {
		if v.Party.Abbreviation == abbr && (key == "" || v.Category.Key == key) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockReports) History(_ context.Context, _, _ string) ([]domain.PositionView, error) {
	return m.history, nil
}

func (m *mockReports) Status(_ context.Context) (*domain.StatusReport, error) {
	if m.status == nil {
		return &domain.StatusReport{}, nil
	}
	return m.status, nil
}

func (m *mockReports) RecentLogs(_ context.Context, limit int) ([]domain.ProcessingLogEntry, error) {
	m.logLimit = limit
	return m.logs, nil
}

type mockPipeline struct {
	processed []int64
	opts      domain.ProcessOptions
	resetIDs  []int64
	calls     []string
	failDocs  bool
	backfill  domain.BackfillReport
}

func (m *mockPipeline) ProcessDocument(ctx context.Context, id int64, opts domain.ProcessOptions) domain.DocumentSummary {
	return m.ProcessMultipleDocuments(ctx, []int64{id}, opts).Documents[0]
}

func (m *mockPipeline) ProcessMultipleDocuments(_ context.Context, ids []int64, opts domain.ProcessOptions) domain.BatchReport {
	m.calls = append(m.calls, "process")
	m.processed = append(m.processed, ids...)
	m.opts = opts
	report := domain.BatchReport{RunID: "run-1"}
	for _, id := range ids {
		s := domain.DocumentSummary{
			Document: domain.Document{ID: id, Title: "Plan"},
			Party:    domain.Party{Abbreviation: "PLN"},
			Results: []domain.CategoryResult{
				{Category: domain.Category{Key: "educacion"}, Outcome: domain.OutcomeProcessed, CostUSD: 0.01},
				{Category: domain.Category{Key: "salud"}, Outcome: domain.OutcomeAlreadyCompleted},
			},
			Duration: time.Second,
		}
		if m.failDocs {
			s.Err = domain.ErrNotFound
		}
		report.Documents = append(report.Documents, s)
	}
	return report
}

func (m *mockPipeline) BackfillCategory(_ context.Context, key string, _ domain.ProcessOptions) (domain.BackfillReport, error) {
	if key != "salud" {
		return domain.BackfillReport{}, domain.ErrNotFound
	}
	return m.backfill, nil
}

func (m *mockPipeline) Plan(_ context.Context, ids []int64, _ domain.ProcessOptions) (domain.ProcessPlan, error) {
	m.calls = append(m.calls, "plan")
	plan := domain.ProcessPlan{Documents: len(ids), AlreadyCompleted: 1, EstimatedTokens: 4200, EstimatedCostUSD: 0.0123}
	for _, id := range ids {
		plan.Pairs = append(plan.Pairs, domain.PlannedPair{
			DocumentID: id, PartyAbbr: "PLN", CategoryKey: "educacion", State: domain.StatePending,
		})
	}
	return plan, nil
}

func (m *mockPipeline) Reset(_ context.Context, ids []int64, _ domain.ProcessOptions) (int, error) {
	m.calls = append(m.calls, "reset")
	m.resetIDs = ids
	return len(ids) * 2, nil
}

type mockIndex struct {
	indexed []int64
	cleared []int64
	calls   []string
}

func (m *mockIndex) IndexDocument(_ context.Context, id int64) (domain.IndexReport, error) {
	m.indexed = append(m.indexed, id)
	m.calls = append(m.calls, "index")
	return domain.IndexReport{PagesIndexed: 2, ChunksEmbedded: 5, Tokens: 100}, nil
}

func (m *mockIndex) ClearDocument(_ context.Context, id int64) (int64, error) {
	m.cleared = append(m.cleared, id)
	m.calls = append(m.calls, "clear")
	return 5, nil
}

type mockRetrieval struct {
	query  string
	scope  domain.SearchScope
	k      int
	chunks []domain.RetrievedChunk
}

func (m *mockRetrieval) Retrieve(_ context.Context, query string, scope domain.SearchScope, k int) ([]domain.RetrievedChunk, error) {
	m.query, m.scope, m.k = query, scope, k
	return m.chunks, nil
}

type mockSettings struct {
	settings domain.AppSettings
	set      map[string]string
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) Set(key, value string) error {
	if key == "bogus" {
		return domain.ErrInvalidInput
	}
	if m.set == nil {
		m.set = map[string]string{}
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"embedding.model", "llm.api_key"}
}

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettings) ValidateEmbeddingConfig() error { return nil }
func (m *mockSettings) ValidateLLMConfig() error       { return nil }

type testServices struct {
	corpus     *mockCorpus
	categories *mockCategories
	reports    *mockReports
	pipeline   *mockPipeline
	index      *mockIndex
	retrieval  *mockRetrieval
	settings   *mockSettings
}

func confidence(v float64) *float64 { return &v }

// setupTestServices installs fresh mocks and resets command flags.
func setupTestServices() (*testServices, func()) {
	pln := domain.Party{ID: 1, Name: "Liberación Nacional", Abbreviation: "PLN"}
	fa := domain.Party{ID: 2, Name: "Frente Amplio", Abbreviation: "FA"}
	edu := domain.Category{ID: 1, Key: "educacion", Name: "Educación", Active: true}
	salud := domain.Category{ID: 2, Key: "salud", Name: "Salud", Active: false}

	ts := &testServices{
		corpus: &mockCorpus{
			parties: []domain.Party{pln, fa},
			documents: []domain.Document{
				{ID: 10, PartyID: 1, Title: "Plan PLN", PageCount: 40},
				{ID: 20, PartyID: 2, Title: "Plan FA", PageCount: 60},
			},
		},
		categories: &mockCategories{categories: []domain.Category{edu, salud}},
		reports: &mockReports{
			positions: []domain.PositionView{{
				Party:    pln,
				Category: edu,
				Position: domain.PartyPosition{
					Summary:         "Propone aumentar la inversión en educación [p. 12].",
					KeyProposals:    []string{"Becas universales", "Más escuelas"},
					ConfidenceScore: confidence(0.8),
					ChunksUsed:      15,
					InputTokens:     1000,
					OutputTokens:    200,
					CostUSD:         0.0042,
					Model:           "gpt-4o-mini",
				},
			}},
		},
		pipeline:  &mockPipeline{},
		index:     &mockIndex{},
		retrieval: &mockRetrieval{},
		settings:  &mockSettings{settings: domain.DefaultAppSettings()},
	}

	SetServices(&Services{
		Corpus:     ts.corpus,
		Categories: ts.categories,
		Reports:    ts.reports,
		Pipeline:   ts.pipeline,
		Index:      ts.index,
		Retrieval:  ts.retrieval,
		Settings:   ts.settings,
	})
	resetFlags()

	return ts, func() {
		SetServices(nil)
		resetFlags()
	}
}

func resetFlags() {
	searchParty, searchDocument, searchK, searchJSON = "", 0, domain.DefaultTopK, false
	processParty, processCategories, processWorkers = "", nil, 0
	processDryRun, processRegenerate, processForceExtract = false, false, false
	backfillWorkers = 0
	statusLog = 0
	showCategory, showJSON, showHistory = "", false, false
	extractForce, extractParty = false, ""
	indexParty, indexClear = "", false
	watchProcess = false
	categoriesActiveOnly = false
	mcpHTTPAddr = ""
}
