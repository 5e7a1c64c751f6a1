package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/classifier"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// Runner drives a session's background processing: one sequential pass
// over the complaints, cache-first classification, priority scoring, and
// lifecycle events on the bus. Start and StartWithFeedback return
// immediately; the run executes on its own goroutine and is observed
// through Session.Progress.
type Runner struct {
	classifier *classifier.Classifier
	cache      domain.ClassificationCache
	bus        domain.EventBus
	throttle   time.Duration
}

// NewRunner creates a runner over the shared cache and classifier.
// throttle is the fixed delay between per-complaint calls; it protects
// the external service's rate limit and must not be removed by
// parallelizing the loop without re-checking that limit.
func NewRunner(c *classifier.Classifier, cch domain.ClassificationCache, bus domain.EventBus, throttle time.Duration) *Runner {
	return &Runner{
		classifier: c,
		cache:      cch,
		bus:        bus,
		throttle:   throttle,
	}
}

// Start triggers a processing run for the session. It rejects sessions
// with nothing to process, and sessions already mid-run.
func (r *Runner) Start(s *Session) error {
	if s.ComplaintCount() == 0 {
		return domain.ErrNoComplaints
	}
	if !s.RiskTableLoaded() {
		return domain.ErrNoRiskTable
	}
	if err := s.begin(""); err != nil {
		return err
	}

	go r.run(context.Background(), s, "")
	return nil
}

// StartWithFeedback triggers a feedback-driven reprocessing run. It
// requires a prior result set: feedback without results has nothing to
// correct.
func (r *Runner) StartWithFeedback(s *Session, feedback string) error {
	if !s.HasResults() {
		return fmt.Errorf("no results to regenerate: %w", domain.ErrInvalidState)
	}
	if err := s.begin(feedback); err != nil {
		return err
	}

	go r.run(context.Background(), s, feedback)
	return nil
}

// run executes one full pass over the session's complaints, in upload
// order. Per-complaint parse failures were already absorbed by the
// classifier; only an unreachable upstream fails the run, and rows
// produced before the failure are retained.
func (r *Runner) run(ctx context.Context, s *Session, feedback string) {
	start := time.Now()
	iteration := s.Iteration()

	slog.Info("processing started",
		"session_id", s.ID,
		"iteration", iteration,
		"total_rows", s.ComplaintCount(),
		"feedback", feedback != "",
	)
	r.publish(ctx, s, domain.TopicRunStarted, runEvent{
		SessionID: s.ID,
		Iteration: iteration,
		TotalRows: s.ComplaintCount(),
	})

	for i, complaint := range s.Complaints() {
		fingerprint := cache.Fingerprint(complaint, s.RiskTable())

		// Feedback must reach the model: drop the stale entry so the
		// lookup below misses and forces a live call.
		if feedback != "" {
			if err := r.cache.Invalidate(ctx, fingerprint); err != nil {
				slog.Warn("cache invalidate failed",
					"session_id", s.ID,
					"row", i,
					"error", err,
				)
			}
		}

		result, err := r.cache.Get(ctx, fingerprint)
		if err != nil {
			// A broken cache degrades to a live call, it does not fail
			// the run.
			slog.Warn("cache lookup failed",
				"session_id", s.ID,
				"row", i,
				"error", err,
			)
			result = nil
		}

		if result == nil {
			classified, err := r.classifier.Classify(ctx, complaint, s.RiskTable(), feedback)
			if err != nil {
				s.fail(err)
				slog.Error("processing failed",
					"session_id", s.ID,
					"iteration", iteration,
					"row", i,
					"error", err,
				)
				r.publish(ctx, s, domain.TopicRunFailed, runEvent{
					SessionID:     s.ID,
					Iteration:     iteration,
					TotalRows:     s.ComplaintCount(),
					ProcessedRows: i,
					Error:         err.Error(),
				})
				return
			}
			result = &classified

			if err := r.cache.Put(ctx, fingerprint, result); err != nil {
				slog.Warn("cache store failed",
					"session_id", s.ID,
					"row", i,
					"error", err,
				)
			}
		}

		score, level := scoring.Priority(result.Impact, result.Urgency, result.Frequency, result.Controllability)
		s.appendRow(domain.ResultRow{
			Complaint:            complaint,
			ClassificationResult: *result,
			PriorityScore:        score,
			PriorityLevel:        string(level),
		})

		if r.throttle > 0 {
			time.Sleep(r.throttle)
		}
	}

	s.complete()
	slog.Info("processing completed",
		"session_id", s.ID,
		"iteration", iteration,
		"total_rows", s.ComplaintCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	r.publish(ctx, s, domain.TopicRunCompleted, runEvent{
		SessionID:     s.ID,
		Iteration:     iteration,
		TotalRows:     s.ComplaintCount(),
		ProcessedRows: s.ComplaintCount(),
	})
}

// runEvent is the payload for run lifecycle topics.
type runEvent struct {
	SessionID     string `json:"sessionId"`
	Iteration     int    `json:"iteration"`
	TotalRows     int    `json:"totalRows"`
	ProcessedRows int    `json:"processedRows,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (r *Runner) publish(ctx context.Context, s *Session, topic string, event runEvent) {
	if r.bus == nil {
		return
	}
	payload, _ := json.Marshal(event)
	if err := r.bus.Publish(ctx, s.ID, topic, payload); err != nil {
		slog.Warn("event publish failed",
			"session_id", s.ID,
			"topic", topic,
			"error", err,
		)
	}
}
