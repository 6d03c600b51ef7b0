// Package analytics summarizes the audit trail.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"symptom-checker/internal/storage"
)

// DailyStats covers one calendar day of turns.
type DailyStats struct {
	Date             string                  `json:"date"`
	TotalTurns       int                     `json:"total_turns"`
	UniquePatients   int                     `json:"unique_patients"`
	Diagnoses        int                     `json:"diagnoses"`
	Disagreements    int                     `json:"disagreements"`
	ConditionsByName map[string]int          `json:"conditions_by_name"`
	DiagnosesByBand  map[string]int          `json:"diagnoses_by_band"`
	PatientStats     map[string]PatientStats `json:"patient_stats"`
}

type PatientStats struct {
	Patient   string `json:"patient"`
	Turns     int    `json:"turns"`
	Diagnoses int    `json:"diagnoses"`
}

// AnalyzeDailyTurns counts the records that fall on targetDate's day in
// targetDate's location.
func AnalyzeDailyTurns(records []storage.TurnRecord, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:             startOfDay.Format("2006-01-02"),
		ConditionsByName: make(map[string]int),
		DiagnosesByBand:  make(map[string]int),
		PatientStats:     make(map[string]PatientStats),
	}

	for _, rec := range records {
		if rec.Timestamp.Before(startOfDay) || !rec.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalTurns++
		ps, ok := stats.PatientStats[rec.Patient]
		if !ok {
			ps = PatientStats{Patient: rec.Patient}
		}
		ps.Turns++

		if rec.Concluded {
			stats.Diagnoses++
			ps.Diagnoses++
			if len(rec.Conditions) > 1 {
				stats.Disagreements++
			}
			for _, c := range rec.Conditions {
				stats.ConditionsByName[c]++
			}
			if rec.Severity != "" {
				stats.DiagnosesByBand[rec.Severity]++
			}
		}
		stats.PatientStats[rec.Patient] = ps
	}
	stats.UniquePatients = len(stats.PatientStats)
	return stats
}

// GenerateReportSummary renders the stats as plain text, most frequent
// conditions first.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symptom checker activity for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "- Turns: %d\n", ds.TotalTurns)
	fmt.Fprintf(&b, "- Unique patients: %d\n", ds.UniquePatients)
	fmt.Fprintf(&b, "- Diagnoses: %d (classifier disagreements: %d)\n", ds.Diagnoses, ds.Disagreements)

	if len(ds.ConditionsByName) > 0 {
		b.WriteString("\nPredicted conditions:\n")
		for _, kv := range sortedCounts(ds.ConditionsByName) {
			fmt.Fprintf(&b, "- %s: %d\n", kv.key, kv.count)
		}
	}
	if len(ds.DiagnosesByBand) > 0 {
		b.WriteString("\nSeverity bands:\n")
		for _, kv := range sortedCounts(ds.DiagnosesByBand) {
			fmt.Fprintf(&b, "- %s: %d\n", kv.key, kv.count)
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
