// Package domain holds the shared types and interfaces for Kestrel.
package domain

import (
	"time"
)

// RiskTableEntry is one row of the caller-supplied risk taxonomy.
// The table is attached to a session at upload time and never mutated;
// it is used only as classification context for the LLM.
type RiskTableEntry struct {
	Code        string `json:"risk_code"`
	ImpactHint  int    `json:"impact_score"`
	Description string `json:"description"`
}

// ClassificationResult is the normalized outcome of classifying a single
// complaint. All four scores are integers in [1,5]; the classifier
// adapter's clamp is the single source of truth for that range.
type ClassificationResult struct {
	RiskCode        string `json:"risk_code"`
	RiskDescription string `json:"risk_description"`
	Impact          int    `json:"impact_score"`
	Urgency         int    `json:"urgency_score"`
	Frequency       int    `json:"frequency_score"`
	Controllability int    `json:"controllability_score"`
}

// Fallback classification constants. Classification failures never abort
// a batch; they degrade to this neutral placeholder instead.
const (
	FallbackRiskCode        = "ER-03"
	FallbackRiskDescription = "Unable to classify"
	FallbackScore           = 3
)

// FallbackResult returns the fixed unable-to-classify result used when
// the upstream response cannot be parsed.
func FallbackResult() ClassificationResult {
	return ClassificationResult{
		RiskCode:        FallbackRiskCode,
		RiskDescription: FallbackRiskDescription,
		Impact:          FallbackScore,
		Urgency:         FallbackScore,
		Frequency:       FallbackScore,
		Controllability: FallbackScore,
	}
}

// ClampScore forces a score into the valid [1,5] range.
func ClampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// ResultRow joins a complaint with its classification and the derived
// priority. Rows are append-only within a run; a reprocessing run
// replaces the whole sequence.
type ResultRow struct {
	Complaint string `json:"complaint"`
	ClassificationResult
	PriorityScore float64 `json:"priority_score"`
	PriorityLevel string  `json:"priority_level"`
}

// SessionState is the processing state of a session.
type SessionState string

const (
	StatePending    SessionState = "pending"
	StateProcessing SessionState = "processing"
	StateCompleted  SessionState = "completed"
	StateError      SessionState = "error"
)

// Progress is the pollable view of a session's current run.
// ElapsedSeconds is measured against now() while processing and frozen at
// the recorded end timestamp once the run is terminal.
type Progress struct {
	State          SessionState `json:"status"`
	TotalRows      int          `json:"total_rows"`
	ProcessedRows  int          `json:"processed_rows"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	ErrorMessage   string       `json:"error_message,omitempty"`
}

// FeedbackEntry is one record of the session's append-only feedback log.
type FeedbackEntry struct {
	Iteration   int       `json:"iteration"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
}
