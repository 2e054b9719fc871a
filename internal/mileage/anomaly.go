package mileage

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type AnomalyReport struct {
	RecordID string    `json:"record_id"`
	Date     time.Time `json:"date"`
	Types    []Flag    `json:"types"`
	Severity Severity  `json:"severity"`
}

// DetectAnomalies scans stored records and classifies each flagged one.
// A record can carry several anomaly types and its severity is the highest
// among them. Reversal ranks high, an excessive day medium, the rest low.
func DetectAnomalies(records []Record, th Thresholds) []AnomalyReport {
	var reports []AnomalyReport
	for _, rec := range records {
		if !rec.HasAnomalies(th.MaxDailyDistanceKm) && !rec.HasMeterReversal() {
			continue
		}

		report := AnomalyReport{RecordID: rec.ID, Date: rec.Date, Severity: SeverityLow}
		d := rec.CalculatedDistance()

		if rec.HasMeterReversal() {
			report.Types = append(report.Types, FlagMeterReversal)
			report.Severity = SeverityHigh
		} else if d < 0 {
			// Negative distance without an end reading: a bad GPS total.
			report.Types = append(report.Types, FlagNegativeDistance)
		}
		if d > th.MaxDailyDistanceKm {
			report.Types = append(report.Types, FlagExcessiveDistance)
			if report.Severity != SeverityHigh {
				report.Severity = SeverityMedium
			}
		}

		reports = append(reports, report)
	}
	return reports
}
