package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Classifier turns free-text complaints into normalized classification
// results. Parse failures are absorbed into the fixed fallback result so
// one bad model response cannot abort a multi-hundred-row run; only
// transport failures surface as errors.
type Classifier struct {
	llm    Completer
	scales domain.Scales
}

// New creates a classifier over the given completion capability and the
// startup-loaded scoring scales.
func New(llm Completer, scales domain.Scales) *Classifier {
	return &Classifier{llm: llm, scales: scales}
}

// Classify classifies one complaint against the session's risk table.
// extraInstructions, when non-empty, is feedback text appended verbatim
// to the prompt; the caller is responsible for invalidating the cache
// entry first so the feedback actually reaches the model.
func (c *Classifier) Classify(ctx context.Context, complaint string, riskTable []domain.RiskTableEntry, extraInstructions string) (domain.ClassificationResult, error) {
	prompt := classificationPrompt(complaint, riskTable, c.scales, extraInstructions)

	text, err := c.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	return parseResponse(text), nil
}

// rawResponse is the expected upstream schema. Score fields are seeded
// with the neutral value so missing keys degrade instead of zeroing.
type rawResponse struct {
	RiskCode             string  `json:"risk_code"`
	RiskDescription      string  `json:"risk_description"`
	ImpactScore          float64 `json:"impact_score"`
	UrgencyScore         float64 `json:"urgency_score"`
	FrequencyScore       float64 `json:"frequency_score"`
	ControllabilityScore float64 `json:"controllability_score"`
}

// parseResponse decodes the model output into a clamped result, falling
// back to the fixed unable-to-classify placeholder on any decode error.
func parseResponse(text string) domain.ClassificationResult {
	cleaned := stripFences(text)

	raw := rawResponse{
		ImpactScore:          domain.FallbackScore,
		UrgencyScore:         domain.FallbackScore,
		FrequencyScore:       domain.FallbackScore,
		ControllabilityScore: domain.FallbackScore,
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return domain.FallbackResult()
	}
	if raw.RiskCode == "" {
		return domain.FallbackResult()
	}

	return domain.ClassificationResult{
		RiskCode:        raw.RiskCode,
		RiskDescription: raw.RiskDescription,
		Impact:          domain.ClampScore(int(raw.ImpactScore)),
		Urgency:         domain.ClampScore(int(raw.UrgencyScore)),
		Frequency:       domain.ClampScore(int(raw.FrequencyScore)),
		Controllability: domain.ClampScore(int(raw.ControllabilityScore)),
	}
}

// stripFences removes markdown code fence markers some models wrap JSON
// responses in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
