package sessions_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/detection"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/documents"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/extraction"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/ledger"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/sessions"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/workflow"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/lifecycle"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/pagination"
)

type stubDocuments struct {
	doc     *documents.Document
	data    []byte
	findErr error
	gate    chan struct{}

	mu       sync.Mutex
	statuses []string
}

func (s *stubDocuments) Handler(int64) *documents.Handler { return nil }

func (s *stubDocuments) List(context.Context, pagination.PageRequest, documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return nil, nil
}

func (s *stubDocuments) Find(context.Context, uuid.UUID) (*documents.Document, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.doc, nil
}

func (s *stubDocuments) Create(context.Context, documents.CreateCommand) (*documents.Document, error) {
	return nil, nil
}

func (s *stubDocuments) Delete(context.Context, uuid.UUID) error { return nil }

func (s *stubDocuments) Download(ctx context.Context, _ uuid.UUID) ([]byte, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.data, nil
}

func (s *stubDocuments) SetStatus(_ context.Context, _ uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubDocuments) hasStatus(status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.statuses {
		if got == status {
			return true
		}
	}
	return false
}

type stubClassifier struct {
	result *providers.ClassificationResult

	mu         sync.Mutex
	lastPrefer providers.Name
}

func (s *stubClassifier) Classify(_ context.Context, req providers.ClassificationRequest, rec providers.UsageRecorder) *providers.ClassificationResult {
	s.mu.Lock()
	s.lastPrefer = req.Provider
	s.mu.Unlock()
	rec.RecordCall(providers.NameAnthropic, "claude-sonnet-4-5-20250929",
		providers.TokenUsage{Prompt: 1000, Completion: 200}, true)
	out := *s.result
	return &out
}

func (s *stubClassifier) prefer() providers.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrefer
}

type stubExtractor struct {
	result *extraction.Result
}

func (s *stubExtractor) Extract(context.Context, io.ReadSeeker) (*extraction.Result, error) {
	return s.result, nil
}

type stubCategorizer struct {
	hint providers.ContextHint
}

func (s *stubCategorizer) Categorize(_ context.Context, texts []string, hint providers.ContextHint, rec providers.UsageRecorder) []providers.LabelSet {
	s.hint = hint
	rec.RecordCall(providers.NameAnthropic, "claude-sonnet-4-5-20250929",
		providers.TokenUsage{Prompt: 500, Completion: 100}, true)
	labels := make([]providers.LabelSet, len(texts))
	for i := range labels {
		labels[i] = providers.LabelSet{Category: "monsters", Confidence: 0.9}
	}
	return labels
}

type stubRecords struct {
	committed *records.Record
	commitErr error
	state     records.CommitState
}

func (s *stubRecords) Handler() *records.Handler { return nil }

func (s *stubRecords) Commit(_ context.Context, rec *records.Record, _ []records.Section) (*records.CommitResult, error) {
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	s.committed = rec
	state := s.state
	if state == "" {
		state = records.CommitCommitted
	}
	return &records.CommitResult{Record: rec, State: state}, nil
}

func (s *stubRecords) Repair(context.Context) (*records.RepairReport, error) { return nil, nil }

func (s *stubRecords) List(context.Context, pagination.PageRequest, records.Filters) (*pagination.PageResult[records.Record], error) {
	return nil, nil
}

func (s *stubRecords) Find(context.Context, uuid.UUID) (*records.Detail, error) { return nil, nil }

func (s *stubRecords) Search(context.Context, records.SearchQuery) ([]records.Hit, error) {
	return nil, nil
}

type stubAuditor struct {
	mu       sync.Mutex
	sessions []uuid.UUID
	calls    [][]ledger.CallRecord
}

func (s *stubAuditor) InsertProviderCalls(_ context.Context, id uuid.UUID, calls []ledger.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, id)
	s.calls = append(s.calls, calls)
	return nil
}

func (s *stubAuditor) inserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type fixture struct {
	sys        sessions.System
	docs       *stubDocuments
	classifier *stubClassifier
	cat        *stubCategorizer
	recs       *stubRecords
	auditor    *stubAuditor
	lc         *lifecycle.Coordinator
	documentID uuid.UUID
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, cfg sessions.Config) *fixture {
	t.Helper()

	documentID := uuid.New()
	isbn := "0-935696-00-8"
	docs := &stubDocuments{
		doc: &documents.Document{
			ID:           documentID,
			Filename:     "monster-manual.pdf",
			ContentType:  "application/pdf",
			SourceISBN:   &isbn,
			SourceAuthor: "Gary Gygax",
			Status:       documents.StatusUploaded,
		},
		data: []byte("pdf bytes"),
	}

	ext := &stubExtractor{result: &extraction.Result{
		PageCount: 3,
		Title:     "Monster Manual",
		Pages: []extraction.Page{
			{Number: 1, Text: "Monster Manual\nAn alphabetical compendium of monsters"},
			{Number: 2, Text: "Goblin\nSmall humanoid, chaotic and cowardly"},
			{Number: 3, Text: "HD | AC | Damage\n1 | 6 | 1d6", IsTable: true},
		},
	}}

	classifier := &stubClassifier{result: &providers.ClassificationResult{
		GameType:   "D&D",
		Edition:    "1st Edition",
		BookType:   "Monster Manual",
		Confidence: 0.82,
		Provider:   providers.NameAnthropic,
		Model:      "claude-sonnet-4-5-20250929",
	}}

	detectorCfg := detection.Config{}
	if err := detectorCfg.Finalize(nil); err != nil {
		t.Fatalf("finalize detection config: %v", err)
	}
	vocab, err := providers.LoadVocabulary()
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	detector := detection.New(classifier, vocab, &detectorCfg, testLogger())

	cat := &stubCategorizer{}
	recs := &stubRecords{}

	rt := &workflow.Runtime{
		Documents:   docs,
		Extractor:   ext,
		Detector:    detector,
		Categorizer: cat,
		Records:     recs,
		Logger:      testLogger(),
	}

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize sessions config: %v", err)
	}

	auditor := &stubAuditor{}
	lc := lifecycle.New()
	t.Cleanup(func() {
		if err := lc.Shutdown(2 * time.Second); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	sys := sessions.New(rt, detector, auditor, ledger.DefaultPricing(), lc, cfg, testLogger())

	return &fixture{
		sys:        sys,
		docs:       docs,
		classifier: classifier,
		cat:        cat,
		recs:       recs,
		auditor:    auditor,
		lc:         lc,
		documentID: documentID,
	}
}

func waitFor(t *testing.T, describe string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", describe)
}

func waitStatus(t *testing.T, sys sessions.System, id uuid.UUID, want sessions.Status) *sessions.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view, err := sys.Find(id)
		if err != nil {
			t.Fatalf("find session: %v", err)
		}
		if view.Status == want {
			return view
		}
		if view.Status.Terminal() {
			t.Fatalf("session reached %s (error %q), want %s", view.Status, view.Error, want)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session never reached %s", want)
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	fx := newFixture(t, sessions.Config{})

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}
	if started.Status != sessions.StatusClassifying {
		t.Errorf("initial status = %s, want classifying", started.Status)
	}
	if started.DocumentID != fx.documentID {
		t.Errorf("document id = %v, want %v", started.DocumentID, fx.documentID)
	}

	classified := waitStatus(t, fx.sys, started.ID, sessions.StatusClassified)
	if classified.Classification == nil || classified.Classification.GameType != "D&D" {
		t.Fatalf("classification = %+v, want D&D", classified.Classification)
	}
	if classified.Filename != "monster-manual.pdf" {
		t.Errorf("filename = %q", classified.Filename)
	}
	if classified.PageCount != 3 {
		t.Errorf("page count = %d, want 3", classified.PageCount)
	}
	wantPath := "source_material.dnd.1st_edition.monster_manual.monster_manual"
	if classified.Collection != wantPath {
		t.Errorf("collection = %q, want %q", classified.Collection, wantPath)
	}

	result, err := fx.sys.StartExtraction(started.ID, workflow.Overrides{})
	if err != nil {
		t.Fatalf("StartExtraction: %v", err)
	}
	if result.State != records.CommitCommitted {
		t.Errorf("commit state = %s, want committed", result.State)
	}
	if result.Record.SessionID == nil || *result.Record.SessionID != started.ID {
		t.Errorf("record session id = %v, want %v", result.Record.SessionID, started.ID)
	}
	if fx.cat.hint.GameType != "D&D" {
		t.Errorf("categorize hint game type = %q, want D&D", fx.cat.hint.GameType)
	}

	final, err := fx.sys.Find(started.ID)
	if err != nil {
		t.Fatalf("find after commit: %v", err)
	}
	if final.Status != sessions.StatusCommitted {
		t.Errorf("final status = %s, want committed", final.Status)
	}
	if final.Result == nil || final.Result.State != records.CommitCommitted {
		t.Errorf("final result = %+v", final.Result)
	}

	usage, err := fx.sys.Usage(started.ID)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.Summary.Analysis.Calls != 1 {
		t.Errorf("analysis calls = %d, want 1", usage.Summary.Analysis.Calls)
	}
	if usage.Summary.Extraction.Calls != 1 {
		t.Errorf("extraction calls = %d, want 1", usage.Summary.Extraction.Calls)
	}
	if usage.Summary.Combined.TotalTokens != 1800 {
		t.Errorf("combined tokens = %d, want 1800", usage.Summary.Combined.TotalTokens)
	}

	if fx.auditor.inserts() != 1 {
		t.Errorf("audit inserts = %d, want 1", fx.auditor.inserts())
	}
	if got := fx.auditor.sessions[0]; got != started.ID {
		t.Errorf("audited session = %v, want %v", got, started.ID)
	}
	if got := len(fx.auditor.calls[0]); got != 2 {
		t.Errorf("audited calls = %d, want 2", got)
	}

	waitFor(t, "document status transitions", func() bool {
		return fx.docs.hasStatus(documents.StatusClassified) && fx.docs.hasStatus(documents.StatusExtracted)
	})
}

func TestStartClassificationRequiresDocumentID(t *testing.T) {
	fx := newFixture(t, sessions.Config{})

	_, err := fx.sys.StartClassification(sessions.StartCommand{})
	if !errors.Is(err, sessions.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestClassificationFailureMarksSession(t *testing.T) {
	fx := newFixture(t, sessions.Config{})
	fx.docs.findErr = documents.ErrNotFound

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}

	waitFor(t, "failed status", func() bool {
		view, err := fx.sys.Find(started.ID)
		return err == nil && view.Status == sessions.StatusFailed
	})

	view, err := fx.sys.Find(started.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if view.Error == "" {
		t.Error("failed session should surface its error")
	}

	// Nothing was classified, so there is nothing to audit.
	if fx.auditor.inserts() != 0 {
		t.Errorf("audit inserts = %d, want 0", fx.auditor.inserts())
	}

	waitFor(t, "failed document status", func() bool {
		return fx.docs.hasStatus(documents.StatusFailed)
	})
}

func TestStartExtractionRequiresParkedClassification(t *testing.T) {
	fx := newFixture(t, sessions.Config{})
	fx.docs.gate = make(chan struct{})
	defer close(fx.docs.gate)

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}

	if _, err := fx.sys.StartExtraction(started.ID, workflow.Overrides{}); !errors.Is(err, sessions.ErrNotClassified) {
		t.Errorf("error = %v, want ErrNotClassified", err)
	}

	if _, err := fx.sys.StartExtraction(uuid.New(), workflow.Overrides{}); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("unknown session error = %v, want ErrNotFound", err)
	}
}

func TestMaxActiveSessions(t *testing.T) {
	fx := newFixture(t, sessions.Config{MaxActive: 1})
	fx.docs.gate = make(chan struct{})

	first, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("first StartClassification: %v", err)
	}

	if _, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	}); !errors.Is(err, sessions.ErrBusy) {
		t.Fatalf("second start error = %v, want ErrBusy", err)
	}

	close(fx.docs.gate)
	waitStatus(t, fx.sys, first.ID, sessions.StatusClassified)

	// A parked session still holds its slot until extracted or cancelled.
	if _, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	}); !errors.Is(err, sessions.ErrBusy) {
		t.Fatalf("parked start error = %v, want ErrBusy", err)
	}

	if err := fx.sys.Cancel(first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	}); err != nil {
		t.Fatalf("start after cancel: %v", err)
	}
}

func TestCancelRunningSession(t *testing.T) {
	fx := newFixture(t, sessions.Config{})
	fx.docs.gate = make(chan struct{})
	defer close(fx.docs.gate)

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}

	if err := fx.sys.Cancel(started.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := fx.sys.Find(started.ID); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("find after cancel = %v, want ErrNotFound", err)
	}

	if err := fx.sys.Cancel(started.ID); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("second cancel = %v, want ErrNotFound", err)
	}

	// Wait for the aborted phase to unwind, then confirm cancellation
	// never marked the document failed.
	if err := fx.lc.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if fx.docs.hasStatus(documents.StatusFailed) {
		t.Error("cancelled session marked its document failed")
	}
}

func TestCancelParkedSessionAudits(t *testing.T) {
	fx := newFixture(t, sessions.Config{})

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}
	waitStatus(t, fx.sys, started.ID, sessions.StatusClassified)

	if err := fx.sys.Cancel(started.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if fx.auditor.inserts() != 1 {
		t.Errorf("audit inserts = %d, want 1", fx.auditor.inserts())
	}

	if err := fx.lc.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if fx.docs.hasStatus(documents.StatusFailed) {
		t.Error("cancelled session marked its document failed")
	}
}

func TestProviderPreferenceReachesClassifier(t *testing.T) {
	fx := newFixture(t, sessions.Config{})

	preferred, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
		Provider:    providers.NameOpenRouter,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}
	waitStatus(t, fx.sys, preferred.ID, sessions.StatusClassified)

	if got := fx.classifier.prefer(); got != providers.NameOpenRouter {
		t.Errorf("preference = %q, want openrouter", got)
	}

	plain, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("second StartClassification: %v", err)
	}
	waitStatus(t, fx.sys, plain.ID, sessions.StatusClassified)

	if got := fx.classifier.prefer(); got != "" {
		t.Errorf("preference leaked across sessions: %q", got)
	}
}

func TestExtractionFailureMarksSession(t *testing.T) {
	fx := newFixture(t, sessions.Config{})
	fx.recs.commitErr = records.ErrDocumentStore

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}
	waitStatus(t, fx.sys, started.ID, sessions.StatusClassified)

	if _, err := fx.sys.StartExtraction(started.ID, workflow.Overrides{}); !errors.Is(err, records.ErrDocumentStore) {
		t.Fatalf("extraction error = %v, want ErrDocumentStore", err)
	}

	view, err := fx.sys.Find(started.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if view.Status != sessions.StatusFailed {
		t.Errorf("status = %s, want failed", view.Status)
	}

	if fx.auditor.inserts() != 1 {
		t.Errorf("audit inserts = %d, want 1", fx.auditor.inserts())
	}
	waitFor(t, "failed document status", func() bool {
		return fx.docs.hasStatus(documents.StatusFailed)
	})
}

func TestExtractionPartialCommit(t *testing.T) {
	fx := newFixture(t, sessions.Config{})
	fx.recs.state = records.CommitPartial

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}
	waitStatus(t, fx.sys, started.ID, sessions.StatusClassified)

	result, err := fx.sys.StartExtraction(started.ID, workflow.Overrides{})
	if err != nil {
		t.Fatalf("StartExtraction: %v", err)
	}
	if result.State != records.CommitPartial {
		t.Errorf("commit state = %s, want partial", result.State)
	}

	view, err := fx.sys.Find(started.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if view.Status != sessions.StatusPartiallyCommitted {
		t.Errorf("status = %s, want partially_committed", view.Status)
	}

	// A partial commit is still an extracted document; repair owns the rest.
	waitFor(t, "extracted document status", func() bool {
		return fx.docs.hasStatus(documents.StatusExtracted)
	})
}

func TestProgressSnapshots(t *testing.T) {
	fx := newFixture(t, sessions.Config{})

	started, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("StartClassification: %v", err)
	}
	waitStatus(t, fx.sys, started.ID, sessions.StatusClassified)

	waitFor(t, "detect progress snapshot", func() bool {
		view, err := fx.sys.Find(started.ID)
		return err == nil && view.Progress != nil && view.Progress.Stage == workflow.StageDetect
	})

	if _, err := fx.sys.StartExtraction(started.ID, workflow.Overrides{}); err != nil {
		t.Fatalf("StartExtraction: %v", err)
	}

	waitFor(t, "persist progress snapshot", func() bool {
		view, err := fx.sys.Find(started.ID)
		return err == nil && view.Progress != nil &&
			view.Progress.Stage == workflow.StagePersist && view.Progress.Done == 1
	})
}

func TestListNewestFirst(t *testing.T) {
	fx := newFixture(t, sessions.Config{})

	first, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentSourceMaterial,
	})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := fx.sys.StartClassification(sessions.StartCommand{
		DocumentID:  fx.documentID,
		ContentType: providers.ContentAdventure,
	})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}

	list := fx.sys.List()
	if len(list) != 2 {
		t.Fatalf("list length = %d, want 2", len(list))
	}
	if list[0].StartedAt.Before(list[1].StartedAt) {
		t.Error("list should be newest first")
	}
	seen := map[uuid.UUID]bool{list[0].ID: true, list[1].ID: true}
	if !seen[first.ID] || !seen[second.ID] {
		t.Errorf("list ids = %v and %v, want both sessions", list[0].ID, list[1].ID)
	}
}
