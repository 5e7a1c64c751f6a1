package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// systemPrompt frames every classification call.
const systemPrompt = `You are a complaint classification AI. You analyze customer complaints and classify them according to risk categories and priority scoring dimensions. Always respond with valid JSON only.`

const promptTemplate = `You are a complaint priority classification system. Analyze the following complaint and classify it according to the reference tables provided.

## Complaint to Analyze:
%q

## Risk Classification Table (from business context):
%s

## Scoring Scales:

### Impact Scale:
%s

### Urgency Scale:
%s

### Frequency Scale:
%s

### Controllability Scale:
%s

## Task:
1. Identify which risk code from the Risk Classification Table best matches this complaint
2. Assign scores (1-5) for each dimension based on the complaint content:
   - Impact: How severely does this affect the business/customer?
   - Urgency: How quickly does this need to be addressed?
   - Frequency: How often might this type of complaint occur?
   - Controllability: How much control does the organization have to resolve this?

## Response Format:
Respond with ONLY a JSON object in this exact format (no markdown, no explanation):
{
    "risk_code": "XX-00",
    "risk_description": "Brief description from the risk table",
    "impact_score": 0,
    "urgency_score": 0,
    "frequency_score": 0,
    "controllability_score": 0
}

Important:
- All scores must be integers from 1 to 5
- risk_code must match one from the Risk Classification Table
- risk_description should be the Description from the matching risk code row
`

// feedbackTemplate is appended verbatim to the prompt during feedback
// reprocessing. It never participates in cache lookups.
const feedbackTemplate = `
User Feedback: %s
Please use this feedback to adjust your scoring and classifications when re-analyzing the complaints.`

// classificationPrompt builds the per-complaint prompt from the risk
// table and the four fixed scoring scales.
func classificationPrompt(complaint string, riskTable []domain.RiskTableEntry, scales domain.Scales, extraInstructions string) string {
	prompt := fmt.Sprintf(promptTemplate,
		complaint,
		indentJSON(riskTable),
		indentJSON(scales.Impact),
		indentJSON(scales.Urgency),
		indentJSON(scales.Frequency),
		indentJSON(scales.Controllability),
	)

	if extraInstructions != "" {
		prompt += fmt.Sprintf(feedbackTemplate, extraInstructions)
	}

	return prompt
}

func indentJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
