package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// fakeCompleter records prompts and replays canned responses.
type fakeCompleter struct {
	response string
	err      error
	calls    int
	lastUser string
	lastSys  string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSys = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var testTable = []domain.RiskTableEntry{
	{Code: "ER-01", ImpactHint: 4, Description: "Market Competition"},
	{Code: "PR-02", ImpactHint: 3, Description: "Defective Product"},
}

func testScales() domain.Scales {
	return domain.Scales{
		Impact:          []domain.ScaleEntry{{Score: 1, Label: "Minimal"}, {Score: 5, Label: "Severe"}},
		Urgency:         []domain.ScaleEntry{{Score: 1, Label: "Routine"}, {Score: 5, Label: "Immediate"}},
		Frequency:       []domain.ScaleEntry{{Score: 1, Label: "Rare"}, {Score: 5, Label: "Constant"}},
		Controllability: []domain.ScaleEntry{{Score: 1, Label: "None"}, {Score: 5, Label: "Full"}},
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("CleanJSON", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"risk_code":"PR-02","risk_description":"Defective Product","impact_score":4,"urgency_score":5,"frequency_score":2,"controllability_score":3}`}
		c := New(llm, testScales())

		result, err := c.Classify(ctx, "My order arrived broken", testTable, "")
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if result.RiskCode != "PR-02" {
			t.Errorf("expected PR-02, got %s", result.RiskCode)
		}
		if result.Impact != 4 || result.Urgency != 5 || result.Frequency != 2 || result.Controllability != 3 {
			t.Errorf("unexpected scores: %+v", result)
		}
	})

	t.Run("FencedJSON", func(t *testing.T) {
		llm := &fakeCompleter{response: "```json\n{\"risk_code\":\"ER-01\",\"risk_description\":\"Market Competition\",\"impact_score\":3,\"urgency_score\":3,\"frequency_score\":3,\"controllability_score\":3}\n```"}
		c := New(llm, testScales())

		result, err := c.Classify(ctx, "complaint", testTable, "")
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if result.RiskCode != "ER-01" {
			t.Errorf("expected fences stripped and ER-01, got %s", result.RiskCode)
		}
	})

	t.Run("BareFence", func(t *testing.T) {
		llm := &fakeCompleter{response: "```\n{\"risk_code\":\"ER-01\",\"impact_score\":2,\"urgency_score\":2,\"frequency_score\":2,\"controllability_score\":2}\n```"}
		c := New(llm, testScales())

		result, _ := c.Classify(ctx, "complaint", testTable, "")
		if result.RiskCode != "ER-01" {
			t.Errorf("expected ER-01, got %s", result.RiskCode)
		}
	})

	t.Run("OutOfRangeScoresClamped", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"risk_code":"ER-01","impact_score":9,"urgency_score":-1,"frequency_score":3,"controllability_score":3}`}
		c := New(llm, testScales())

		result, err := c.Classify(ctx, "complaint", testTable, "")
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if result.Impact != 5 {
			t.Errorf("expected impact clamped to 5, got %d", result.Impact)
		}
		if result.Urgency != 1 {
			t.Errorf("expected urgency clamped to 1, got %d", result.Urgency)
		}
		if result.Frequency != 3 || result.Controllability != 3 {
			t.Errorf("in-range scores should pass through: %+v", result)
		}
	})

	t.Run("MissingScoresDefaultNeutral", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"risk_code":"ER-01","risk_description":"Market Competition"}`}
		c := New(llm, testScales())

		result, _ := c.Classify(ctx, "complaint", testTable, "")
		if result.Impact != 3 || result.Urgency != 3 || result.Frequency != 3 || result.Controllability != 3 {
			t.Errorf("expected neutral 3s for missing scores, got %+v", result)
		}
		if result.RiskCode != "ER-01" {
			t.Errorf("expected ER-01 preserved, got %s", result.RiskCode)
		}
	})

	t.Run("MalformedJSONFallsBack", func(t *testing.T) {
		llm := &fakeCompleter{response: "I could not classify this complaint, sorry."}
		c := New(llm, testScales())

		result, err := c.Classify(ctx, "complaint", testTable, "")
		if err != nil {
			t.Fatalf("parse failure must not surface as error: %v", err)
		}
		if result != domain.FallbackResult() {
			t.Errorf("expected fallback result, got %+v", result)
		}
		if result.RiskCode != "ER-03" || result.Impact != 3 {
			t.Errorf("fallback shape wrong: %+v", result)
		}
	})

	t.Run("MissingRiskCodeFallsBack", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"impact_score":4,"urgency_score":4,"frequency_score":4,"controllability_score":4}`}
		c := New(llm, testScales())

		result, _ := c.Classify(ctx, "complaint", testTable, "")
		if result != domain.FallbackResult() {
			t.Errorf("expected fallback for missing risk_code, got %+v", result)
		}
	})

	t.Run("FractionalScoresTruncate", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"risk_code":"ER-01","impact_score":4.7,"urgency_score":2.2,"frequency_score":3,"controllability_score":1.9}`}
		c := New(llm, testScales())

		result, _ := c.Classify(ctx, "complaint", testTable, "")
		if result.Impact != 4 || result.Urgency != 2 || result.Controllability != 1 {
			t.Errorf("expected truncation toward zero, got %+v", result)
		}
	})

	t.Run("UpstreamErrorPropagates", func(t *testing.T) {
		upstreamErr := errors.New("connection refused")
		llm := &fakeCompleter{err: upstreamErr}
		c := New(llm, testScales())

		_, err := c.Classify(ctx, "complaint", testTable, "")
		if !errors.Is(err, upstreamErr) {
			t.Errorf("expected upstream error to propagate, got %v", err)
		}
	})

	t.Run("PromptContainsComplaintAndTable", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"risk_code":"ER-01"}`}
		c := New(llm, testScales())

		_, _ = c.Classify(ctx, "The delivery was two weeks late", testTable, "")
		if !strings.Contains(llm.lastUser, "The delivery was two weeks late") {
			t.Error("prompt missing complaint text")
		}
		if !strings.Contains(llm.lastUser, "Market Competition") {
			t.Error("prompt missing risk table content")
		}
		if !strings.Contains(llm.lastUser, "Urgency Scale") {
			t.Error("prompt missing scoring scales")
		}
		if llm.lastSys == "" {
			t.Error("system prompt not sent")
		}
	})

	t.Run("FeedbackAppendedVerbatim", func(t *testing.T) {
		llm := &fakeCompleter{response: `{"risk_code":"ER-01"}`}
		c := New(llm, testScales())

		_, _ = c.Classify(ctx, "complaint", testTable, "Weight delivery issues much higher")
		if !strings.Contains(llm.lastUser, "User Feedback: Weight delivery issues much higher") {
			t.Error("feedback not appended to prompt")
		}

		_, _ = c.Classify(ctx, "complaint", testTable, "")
		if strings.Contains(llm.lastUser, "User Feedback") {
			t.Error("feedback section present without feedback")
		}
	})
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"  \n```json\n{\"a\":1}\n```\n ": `{"a":1}`,
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
