package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// exportColumns is the fixed export column order.
var exportColumns = []string{
	"Complaint",
	"Risk Code",
	"Risk Description",
	"Impact Score",
	"Urgency Score",
	"Frequency Score",
	"Controllability Score",
	"Priority Score",
	"Priority Level",
}

// WriteCSV serializes the current result sequence as CSV, one row per
// complaint in original upload order. Only valid once the run has
// completed; an incomplete session is an error, never a partial export.
func (s *Session) WriteCSV(w io.Writer) error {
	rows, _, err := s.Results()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Complaint,
			row.RiskCode,
			row.RiskDescription,
			strconv.Itoa(row.Impact),
			strconv.Itoa(row.Urgency),
			strconv.Itoa(row.Frequency),
			strconv.Itoa(row.Controllability),
			strconv.FormatFloat(row.PriorityScore, 'f', 2, 64),
			row.PriorityLevel,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFilename returns a timestamped download filename.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("priority_classification_%s.csv", now.Format("20060102_150405"))
}
