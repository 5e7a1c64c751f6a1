// Package session owns the per-batch processing state: the session
// aggregate and its state machine, the process-wide store, and the
// background runner that drives classification.
package session

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Session is the aggregate root for one uploaded batch: the complaint
// list, the risk table it is classified against, accumulated results,
// and the processing state machine. The complaint list and risk table
// are immutable after construction; everything else is guarded by mu and
// mutated only by the session's own run or by store-mediated handlers.
type Session struct {
	ID        string
	CreatedAt time.Time

	complaints []string
	riskTable  []domain.RiskTableEntry

	mu        sync.Mutex
	state     domain.SessionState
	results   []domain.ResultRow
	processed int
	start     time.Time
	end       time.Time
	errMsg    string
	iteration int

	// Append-only audit trail across iterations.
	feedbackLog []domain.FeedbackEntry
	history     [][]domain.ResultRow
}

// New creates a pending session holding the uploaded batch.
func New(complaints []string, riskTable []domain.RiskTableEntry) *Session {
	return &Session{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		complaints: complaints,
		riskTable:  riskTable,
		state:      domain.StatePending,
	}
}

// Complaints returns the immutable ordered complaint sequence.
func (s *Session) Complaints() []string {
	return s.complaints
}

// RiskTable returns the immutable risk table.
func (s *Session) RiskTable() []domain.RiskTableEntry {
	return s.riskTable
}

// ComplaintCount returns the batch size.
func (s *Session) ComplaintCount() int {
	return len(s.complaints)
}

// RiskTableLoaded reports whether a non-empty risk table is attached.
func (s *Session) RiskTableLoaded() bool {
	return len(s.riskTable) > 0
}

// State returns the current processing state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Iteration returns the number of runs triggered so far.
func (s *Session) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// HasResults reports whether any run has produced result rows.
func (s *Session) HasResults() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results) > 0
}

// FeedbackLog returns a copy of the append-only feedback history.
func (s *Session) FeedbackLog() []domain.FeedbackEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := make([]domain.FeedbackEntry, len(s.feedbackLog))
	copy(log, s.feedbackLog)
	return log
}

// History returns copies of the completed result sets of past
// iterations, oldest first.
func (s *Session) History() [][]domain.ResultRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([][]domain.ResultRow, len(s.history))
	for i, rows := range s.history {
		snapshot := make([]domain.ResultRow, len(rows))
		copy(snapshot, rows)
		history[i] = snapshot
	}
	return history
}

// Progress returns the pollable view of the current run. Elapsed time
// runs against now() while processing and freezes at the end timestamp
// once the run is terminal.
func (s *Session) Progress() domain.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	var elapsed float64
	if !s.start.IsZero() {
		end := s.end
		if end.IsZero() {
			end = time.Now()
		}
		elapsed = math.Round(end.Sub(s.start).Seconds()*10) / 10
	}

	return domain.Progress{
		State:          s.state,
		TotalRows:      len(s.complaints),
		ProcessedRows:  s.processed,
		ElapsedSeconds: elapsed,
		ErrorMessage:   s.errMsg,
	}
}

// Results returns the full ordered result sequence and the run's total
// processing time. Only valid once the run has completed.
func (s *Session) Results() ([]domain.ResultRow, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateCompleted {
		return nil, 0, fmt.Errorf("processing not complete, current status %s: %w", s.state, domain.ErrInvalidState)
	}

	rows := make([]domain.ResultRow, len(s.results))
	copy(rows, s.results)
	elapsed := math.Round(s.end.Sub(s.start).Seconds()*10) / 10
	return rows, elapsed, nil
}

// begin transitions the session into processing for a new run. This is
// the single admission-control point: exactly one run may be in flight.
func (s *Session) begin(feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateProcessing {
		return fmt.Errorf("processing already in progress: %w", domain.ErrInvalidState)
	}

	s.state = domain.StateProcessing
	s.start = time.Now()
	s.end = time.Time{}
	s.errMsg = ""
	s.results = nil
	s.processed = 0
	s.iteration++

	if feedback != "" {
		s.feedbackLog = append(s.feedbackLog, domain.FeedbackEntry{
			Iteration:   s.iteration,
			Text:        feedback,
			SubmittedAt: time.Now().UTC(),
		})
	}

	return nil
}

// appendRow records one finished result row. Rows already appended are
// never rolled back, so pollers see partial progress even after a
// failure.
func (s *Session) appendRow(row domain.ResultRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, row)
	s.processed = len(s.results)
}

// complete marks the run successful and snapshots the result set into
// the immutable history.
func (s *Session) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.StateCompleted
	s.end = time.Now()

	snapshot := make([]domain.ResultRow, len(s.results))
	copy(snapshot, s.results)
	s.history = append(s.history, snapshot)
}

// fail marks the run failed, keeping whatever rows were produced.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.StateError
	s.errMsg = err.Error()
	s.end = time.Now()
}
