package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/detection"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/documents"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/ledger"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/workflow"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/lifecycle"
)

// System is the session management contract consumed by HTTP handlers.
// Sessions are in-memory, so lookups take no context; the pipeline runs
// under the lifecycle context and is cancelled by Cancel or shutdown.
type System interface {
	Handler() *Handler

	// StartClassification spawns the classify phase on a tracked
	// goroutine and returns the session for polling.
	StartClassification(cmd StartCommand) (*Session, error)

	Find(id uuid.UUID) (*Session, error)
	List() []Session

	// StartExtraction runs the extract phase to completion for a
	// classified session and returns the commit outcome. Progress stays
	// pollable through Find while it runs.
	StartExtraction(id uuid.UUID, overrides workflow.Overrides) (*records.CommitResult, error)

	Usage(id uuid.UUID) (*Usage, error)

	// Cancel aborts a running phase, audits the ledger, and removes the
	// session. Cancelling a finished session just removes it.
	Cancel(id uuid.UUID) error
}

// StartCommand carries the parameters for a new classification session.
type StartCommand struct {
	DocumentID  uuid.UUID
	ContentType providers.ContentType
	Provider    providers.Name
}

// Auditor persists a session's provider call records once the session
// reaches a terminal state. *records.DocumentStore satisfies it.
type Auditor interface {
	InsertProviderCalls(ctx context.Context, sessionID uuid.UUID, calls []ledger.CallRecord) error
}

// Writes that outlive the session context get their own deadline.
const finishTimeout = 5 * time.Second

// Manager owns the session table and drives the pipeline phases.
type Manager struct {
	base      *workflow.Runtime
	detector  *detection.Detector
	auditor   Auditor
	pricing   ledger.Pricing
	lifecycle *lifecycle.Coordinator
	config    Config
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// New creates a session manager implementing the System interface. The
// concrete detector is taken alongside the runtime so per-session
// provider preferences can rebind it without touching the shared bundle.
func New(
	rt *workflow.Runtime,
	detector *detection.Detector,
	auditor Auditor,
	pricing ledger.Pricing,
	lc *lifecycle.Coordinator,
	config Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		base:      rt,
		detector:  detector,
		auditor:   auditor,
		pricing:   pricing,
		lifecycle: lc,
		config:    config,
		logger:    logger.With("system", "sessions"),
		sessions:  make(map[uuid.UUID]*session),
	}
}

func (m *Manager) Handler() *Handler {
	return NewHandler(m, m.logger)
}

func (m *Manager) StartClassification(cmd StartCommand) (*Session, error) {
	if cmd.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidRequest)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeLocked() >= m.config.MaxActive {
		return nil, fmt.Errorf("%w: %d active", ErrBusy, m.config.MaxActive)
	}

	ctx, cancel := context.WithCancel(m.lifecycle.Context())
	now := time.Now().UTC()
	s := &session{
		id:          uuid.New(),
		documentID:  cmd.DocumentID,
		contentType: cmd.ContentType,
		prefer:      cmd.Provider,
		ctx:         ctx,
		cancel:      cancel,
		ledger:      ledger.New(m.pricing),
		progressCh:  make(chan workflow.Progress, m.config.ProgressBuffer),
		status:      StatusClassifying,
		startedAt:   now,
		updatedAt:   now,
	}
	m.sessions[s.id] = s

	m.lifecycle.Go(func() { m.drainProgress(s) })
	m.lifecycle.Go(func() { m.runClassify(s) })

	m.logger.Info("session started",
		"session_id", s.id,
		"document_id", s.documentID,
		"content_type", s.contentType,
		"provider", s.prefer,
	)

	return s.view(), nil
}

func (m *Manager) Find(id uuid.UUID) (*Session, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	return s.view(), nil
}

func (m *Manager) List() []Session {
	m.mu.Lock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	views := make([]Session, len(all))
	for i, s := range all {
		views[i] = *s.view()
	}
	slices.SortFunc(views, func(a, b Session) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return views
}

func (m *Manager) StartExtraction(id uuid.UUID, overrides workflow.Overrides) (*records.CommitResult, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.status != StatusClassified {
		status := s.status
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", ErrNotClassified, status)
	}
	s.status = StatusExtracting
	s.updatedAt = time.Now().UTC()
	analysis := s.analysis
	s.mu.Unlock()

	// The extract phase runs under the session context, not the request
	// context: a dropped connection must not abort a commit in flight.
	// Cancel is the explicit abort path.
	result, err := workflow.Extract(s.ctx, m.base, analysis, s.id, overrides,
		s.ledger.Recorder(ledger.ScopeExtraction), s.progressCh)
	if err != nil {
		m.finish(s, StatusFailed, err)
		return nil, err
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	status := StatusCommitted
	if result.State == records.CommitPartial {
		status = StatusPartiallyCommitted
	}
	m.finish(s, status, nil)

	return result, nil
}

func (m *Manager) Usage(id uuid.UUID) (*Usage, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	return &Usage{
		SessionID: s.id,
		Status:    status,
		Summary:   s.ledger.Summary(),
	}, nil
}

func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.cancel()

	// A parked session has no running phase to observe the cancellation,
	// so it is finished here. Running phases finish themselves when the
	// context error surfaces.
	s.mu.Lock()
	parked := s.status == StatusClassified
	s.mu.Unlock()
	if parked {
		m.finish(s, StatusFailed, context.Canceled)
	}

	m.logger.Info("session cancelled", "session_id", id)
	return nil
}

func (m *Manager) session(id uuid.UUID) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) activeLocked() int {
	active := 0
	for _, s := range m.sessions {
		s.mu.Lock()
		if !s.status.Terminal() {
			active++
		}
		s.mu.Unlock()
	}
	return active
}

// runClassify drives the classify phase. The session keeps its parked
// analysis on success so extraction never re-fetches or re-parses the
// document.
func (m *Manager) runClassify(s *session) {
	rt := *m.base
	rt.Detector = m.detector.Prefer(s.prefer)

	analysis, err := workflow.Classify(s.ctx, &rt, s.documentID, s.contentType,
		s.ledger.Recorder(ledger.ScopeAnalysis), s.progressCh)
	if err != nil {
		m.finish(s, StatusFailed, err)
		return
	}

	s.mu.Lock()
	s.analysis = analysis
	s.status = StatusClassified
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	m.setDocumentStatus(s, documents.StatusClassified)
}

// drainProgress retains the latest pipeline snapshot for pollers. It
// exits when the session finishes and its channel closes, or on
// cancellation so a parked session cannot hold up shutdown.
func (m *Manager) drainProgress(s *session) {
	for {
		select {
		case p, ok := <-s.progressCh:
			if !ok {
				return
			}
			s.mu.Lock()
			s.progress = &p
			s.updatedAt = time.Now().UTC()
			s.mu.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

// finish moves the session to a terminal state exactly once: it closes
// the progress channel, releases the parked page text, writes the audit
// rows, and advances the document status. Only the goroutine that ran
// the phase (or Cancel, for parked sessions) may call it, since closing
// the channel while a phase is emitting would panic.
func (m *Manager) finish(s *session, status Status, cause error) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.err = cause
	s.updatedAt = time.Now().UTC()
	if s.analysis != nil {
		s.analysis.Pages = nil
	}
	close(s.progressCh)
	s.mu.Unlock()

	m.audit(s)

	switch {
	case errors.Is(cause, context.Canceled):
		// Cancellation is not a document failure; leave its status alone.
	case status == StatusFailed:
		m.setDocumentStatus(s, documents.StatusFailed)
	default:
		m.setDocumentStatus(s, documents.StatusExtracted)
	}

	if cause != nil {
		m.logger.Warn("session finished",
			"session_id", s.id, "document_id", s.documentID, "status", status, "error", cause)
		return
	}
	m.logger.Info("session finished",
		"session_id", s.id, "document_id", s.documentID, "status", status)
}

// audit writes the session's call records to the provider call table.
// Best effort: a failed audit is logged, never surfaced.
func (m *Manager) audit(s *session) {
	calls := s.ledger.Records()
	if len(calls) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()

	if err := m.auditor.InsertProviderCalls(ctx, s.id, calls); err != nil {
		m.logger.Warn("provider call audit failed", "session_id", s.id, "error", err)
	}
}

func (m *Manager) setDocumentStatus(s *session, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()

	if err := m.base.Documents.SetStatus(ctx, s.documentID, status); err != nil {
		m.logger.Warn("document status update failed",
			"document_id", s.documentID, "status", status, "error", err)
	}
}
