// Package reference loads the static taxonomy tables Kestrel treats as
// read-only configuration: the risk category/subcategory reference
// taxonomy and the four 1-5 scoring scales embedded in every
// classification prompt.
package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// File names under the data directory.
const (
	categoriesFile      = "risk_categories.csv"
	subcategoriesFile   = "risk_subcategories.csv"
	impactFile          = "impact_scale.csv"
	urgencyFile         = "urgency_scale.csv"
	frequencyFile       = "frequency_scale.csv"
	controllabilityFile = "controllability_scale.csv"
)

// Load reads all reference tables from dir. Called once at startup;
// a missing or malformed file is a startup failure, not something to
// limp past.
func Load(dir string) (*domain.ReferenceTables, error) {
	categories, err := loadCategories(filepath.Join(dir, categoriesFile))
	if err != nil {
		return nil, err
	}

	subcategories, err := loadSubcategories(filepath.Join(dir, subcategoriesFile))
	if err != nil {
		return nil, err
	}

	scales := domain.Scales{}
	for _, s := range []struct {
		file string
		dst  *[]domain.ScaleEntry
	}{
		{impactFile, &scales.Impact},
		{urgencyFile, &scales.Urgency},
		{frequencyFile, &scales.Frequency},
		{controllabilityFile, &scales.Controllability},
	} {
		entries, err := loadScale(filepath.Join(dir, s.file))
		if err != nil {
			return nil, err
		}
		*s.dst = entries
	}

	return &domain.ReferenceTables{
		Categories:    categories,
		Subcategories: subcategories,
		Scales:        scales,
	}, nil
}

func loadScale(path string) ([]domain.ScaleEntry, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ScaleEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("%s: row %d has %d columns, want 3", path, i+2, len(row))
		}
		score, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: invalid score %q", path, i+2, row[0])
		}
		entries = append(entries, domain.ScaleEntry{
			Score:       score,
			Label:       row[1],
			Description: row[2],
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: no scale entries", path)
	}
	return entries, nil
}

func loadCategories(path string) ([]domain.RiskCategory, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	categories := make([]domain.RiskCategory, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("%s: row %d has %d columns, want 3", path, i+2, len(row))
		}
		categories = append(categories, domain.RiskCategory{
			Code:        row[0],
			Name:        row[1],
			Description: row[2],
		})
	}
	return categories, nil
}

func loadSubcategories(path string) ([]domain.RiskSubcategory, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	subcategories := make([]domain.RiskSubcategory, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("%s: row %d has %d columns, want 3", path, i+2, len(row))
		}
		subcategories = append(subcategories, domain.RiskSubcategory{
			Code:     row[0],
			Name:     row[1],
			Patterns: row[2],
		})
	}
	return subcategories, nil
}

// readCSV reads a CSV file and returns its data rows, skipping the
// header row.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
