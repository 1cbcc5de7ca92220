// Package sessions tracks in-flight processing runs. A session is
// created when classification starts, parks the analysis between the
// classify and extract phases, and retains the usage ledger for polling.
// Sessions live in memory only; the durable outcome of a run is the
// extraction record, the document status, and the provider call audit.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/ledger"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/workflow"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusClassifying means the classify phase is running.
	StatusClassifying Status = "classifying"
	// StatusClassified means the analysis is parked and extraction may start.
	StatusClassified Status = "classified"
	// StatusExtracting means the extract phase is running.
	StatusExtracting Status = "extracting"
	// StatusCommitted means both stores accepted the record.
	StatusCommitted Status = "committed"
	// StatusPartiallyCommitted means the document store accepted the
	// record but the semantic mirror is pending repair.
	StatusPartiallyCommitted Status = "partially_committed"
	// StatusFailed means a phase errored or the session was cancelled.
	StatusFailed Status = "failed"
)

// Terminal reports whether the session has finished.
func (s Status) Terminal() bool {
	switch s {
	case StatusCommitted, StatusPartiallyCommitted, StatusFailed:
		return true
	}
	return false
}

// Session is a point-in-time snapshot served to pollers.
type Session struct {
	ID             uuid.UUID                       `json:"id"`
	DocumentID     uuid.UUID                       `json:"document_id"`
	ContentType    providers.ContentType           `json:"content_type"`
	Provider       providers.Name                  `json:"provider,omitempty"`
	Status         Status                          `json:"status"`
	Progress       *workflow.Progress              `json:"progress,omitempty"`
	Filename       string                          `json:"filename,omitempty"`
	PageCount      int                             `json:"page_count,omitempty"`
	Classification *providers.ClassificationResult `json:"classification,omitempty"`
	Collection     string                          `json:"collection,omitempty"`
	Result         *records.CommitResult           `json:"result,omitempty"`
	Error          string                          `json:"error,omitempty"`
	StartedAt      time.Time                       `json:"started_at"`
	UpdatedAt      time.Time                       `json:"updated_at"`
}

// Usage is the token and cost report for one session.
type Usage struct {
	SessionID uuid.UUID      `json:"session_id"`
	Status    Status         `json:"status"`
	Summary   ledger.Summary `json:"summary"`
}

// session is the mutable state behind the snapshots. The manager's map
// lock and the session's own lock never nest the other way around.
type session struct {
	id          uuid.UUID
	documentID  uuid.UUID
	contentType providers.ContentType
	prefer      providers.Name
	ctx         context.Context
	cancel      context.CancelFunc
	ledger      *ledger.Ledger
	progressCh  chan workflow.Progress

	mu        sync.Mutex
	status    Status
	progress  *workflow.Progress
	analysis  *workflow.Analysis
	result    *records.CommitResult
	err       error
	startedAt time.Time
	updatedAt time.Time
}

func (s *session) view() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := &Session{
		ID:          s.id,
		DocumentID:  s.documentID,
		ContentType: s.contentType,
		Provider:    s.prefer,
		Status:      s.status,
		StartedAt:   s.startedAt,
		UpdatedAt:   s.updatedAt,
	}
	if s.progress != nil {
		p := *s.progress
		v.Progress = &p
	}
	if s.analysis != nil {
		v.Filename = s.analysis.Filename
		v.PageCount = s.analysis.PageCount
		v.Classification = s.analysis.Classification
		v.Collection = s.analysis.Collection.Path()
	}
	v.Result = s.result
	if s.err != nil {
		v.Error = s.err.Error()
	}
	return v
}
