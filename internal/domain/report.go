package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report represents a citizen-submitted incident report
type Report struct {
	ID                uuid.UUID  `json:"id"`
	ReporterUserID    string     `json:"reporter_user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Type              ReportType `json:"type"`
	Severity          Severity   `json:"severity"`
	Upvotes           int        `json:"upvotes"`
	Downvotes         int        `json:"downvotes"`
	VerificationCount int        `json:"verification_count"`
	AIValidationScore *int       `json:"ai_validation_score,omitempty"`
	ConfirmedBy       *string    `json:"confirmed_by,omitempty"`
	FlagType          *FlagType  `json:"flag_type,omitempty"`
	ConsensusScore    int        `json:"consensus_score"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ReportType classifies the kind of incident being reported
type ReportType string

const (
	ReportFire               ReportType = "fire"
	ReportFlood              ReportType = "flood"
	ReportEarthquake         ReportType = "earthquake"
	ReportStorm              ReportType = "storm"
	ReportRoadAccident       ReportType = "road_accident"
	ReportEpidemic           ReportType = "epidemic"
	ReportLandslide          ReportType = "landslide"
	ReportGasLeak            ReportType = "gas_leak"
	ReportBuildingCollapse   ReportType = "building_collapse"
	ReportChemicalSpill      ReportType = "chemical_spill"
	ReportPowerOutage        ReportType = "power_outage"
	ReportWaterContamination ReportType = "water_contamination"
	ReportOther              ReportType = "other"
)

// ValidReportTypes lists every accepted incident type
var ValidReportTypes = []ReportType{
	ReportFire,
	ReportFlood,
	ReportEarthquake,
	ReportStorm,
	ReportRoadAccident,
	ReportEpidemic,
	ReportLandslide,
	ReportGasLeak,
	ReportBuildingCollapse,
	ReportChemicalSpill,
	ReportPowerOutage,
	ReportWaterContamination,
	ReportOther,
}

// IsValidReportType checks if the incident type is valid
func IsValidReportType(t ReportType) bool {
	for _, v := range ValidReportTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Severity indicates how serious the reported incident is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverities lists accepted severity levels
var ValidSeverities = []Severity{
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// IsValidSeverity checks if the severity level is valid
func IsValidSeverity(s Severity) bool {
	for _, v := range ValidSeverities {
		if v == s {
			return true
		}
	}
	return false
}

// FlagType marks a report as problematic. A flagged report is excluded from
// prioritized listings.
type FlagType string

const (
	FlagFalseReport FlagType = "false_report"
	FlagDuplicate   FlagType = "duplicate"
	FlagSpam        FlagType = "spam"
)

// ValidFlagTypes lists accepted flag values
var ValidFlagTypes = []FlagType{
	FlagFalseReport,
	FlagDuplicate,
	FlagSpam,
}

// IsValidFlagType checks if the flag value is valid
func IsValidFlagType(f FlagType) bool {
	for _, v := range ValidFlagTypes {
		if v == f {
			return true
		}
	}
	return false
}

// IsConfirmed reports whether an official responder has confirmed the report
func (r *Report) IsConfirmed() bool {
	return r.ConfirmedBy != nil
}

// IsFlagged reports whether the report has been flagged
func (r *Report) IsFlagged() bool {
	return r.FlagType != nil
}

// NewReport creates a new Report with default values
func NewReport(reporterUserID, title, description string, reportType ReportType, severity Severity) *Report {
	now := time.Now()
	return &Report{
		ID:             uuid.New(),
		ReporterUserID: reporterUserID,
		Title:          title,
		Description:    description,
		Type:           reportType,
		Severity:       severity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
