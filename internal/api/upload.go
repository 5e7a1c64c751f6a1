package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// headerKeywords are column names commonly seen in the first row of a
// complaints CSV. A first row matching one of these is a header, not a
// complaint.
var headerKeywords = []string{
	"complaint", "text", "message", "review", "comment", "feedback",
	"description", "content", "negative", "issue", "problem", "concern",
	"note", "remark", "observation",
}

// parseComplaints reads a single-column complaints CSV. The file may or
// may not carry a header row; looksLikeHeader decides. Empty rows are
// skipped, complaint text is taken from the first column.
func parseComplaints(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}

	var complaints []string
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		text := strings.TrimSpace(record[0])
		if text == "" {
			continue
		}
		if i == 0 && looksLikeHeader(text) {
			continue
		}
		complaints = append(complaints, text)
	}

	return complaints, nil
}

// looksLikeHeader reports whether a first-row cell is a column label
// rather than complaint text. Labels match a known keyword, or are
// short and digit-free.
func looksLikeHeader(cell string) bool {
	lowered := strings.ToLower(cell)
	for _, kw := range headerKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	if len(cell) < 30 && !strings.ContainsFunc(cell, unicode.IsDigit) {
		return true
	}
	return false
}

// parseRiskTable reads the caller's risk table CSV. The header row is
// required; columns are located by name so column order does not
// matter.
func parseRiskTable(r io.Reader) ([]domain.RiskTableEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("risk table needs a header row and at least one entry")
	}

	codeCol, impactCol, descCol := -1, -1, -1
	for i, name := range records[0] {
		switch normalizeColumn(name) {
		case "risk_code", "riskcode", "code":
			codeCol = i
		case "impact_score", "impactscore", "impact":
			impactCol = i
		case "description", "risk_description", "riskdescription":
			descCol = i
		}
	}
	if codeCol < 0 || impactCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("risk table header must include risk_code, impact_score and description columns")
	}

	var entries []domain.RiskTableEntry
	for i, record := range records[1:] {
		maxCol := codeCol
		if impactCol > maxCol {
			maxCol = impactCol
		}
		if descCol > maxCol {
			maxCol = descCol
		}
		if len(record) <= maxCol {
			return nil, fmt.Errorf("risk table row %d has %d columns, expected at least %d", i+2, len(record), maxCol+1)
		}

		code := strings.TrimSpace(record[codeCol])
		if code == "" {
			continue
		}

		impact, err := strconv.Atoi(strings.TrimSpace(record[impactCol]))
		if err != nil {
			return nil, fmt.Errorf("risk table row %d: impact score %q is not an integer", i+2, record[impactCol])
		}

		entries = append(entries, domain.RiskTableEntry{
			Code:        code,
			ImpactHint:  impact,
			Description: strings.TrimSpace(record[descCol]),
		})
	}

	return entries, nil
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, " ", "_")))
}
