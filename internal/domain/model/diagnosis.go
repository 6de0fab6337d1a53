package model

import "strings"

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

const (
	maxTopPredictions  = 3
	defaultDurationDay = 1
)

// ParseSeverity maps free text onto a known severity, defaulting to moderate.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityMild:
		return SeverityMild
	case SeveritySevere:
		return SeveritySevere
	default:
		return SeverityModerate
	}
}

// Level is the integer scale the symptom record collaborator stores.
func (s Severity) Level() int {
	switch s {
	case SeverityMild:
		return 1
	case SeveritySevere:
		return 3
	default:
		return 2
	}
}

type DiseaseConfidence struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// Diagnosis is the normalized result of symptom extraction plus disease prediction.
type Diagnosis struct {
	HasSymptoms       bool                `json:"has_symptoms"`
	ExtractedSymptoms []string            `json:"extracted_symptoms"`
	PredictedDisease  string              `json:"predicted_disease"`
	ConfidenceScore   float64             `json:"confidence_score"`
	TopPredictions    []DiseaseConfidence `json:"top_predictions"`
	Description       string              `json:"description"`
	Precautions       []string            `json:"precautions"`
	Severity          Severity            `json:"severity"`
	DurationDays      int                 `json:"duration_days"`
	IsCommunicable    bool                `json:"is_communicable"`
	IsAcute           bool                `json:"is_acute"`
	ICD10Code         string              `json:"icd10_code"`
}

// NoSymptoms is the default shape returned for messages without health content.
func NoSymptoms() Diagnosis {
	return Diagnosis{
		ExtractedSymptoms: []string{},
		TopPredictions:    []DiseaseConfidence{},
		Precautions:       []string{},
		Severity:          SeverityModerate,
		DurationDays:      defaultDurationDay,
	}
}

// Normalize enforces field invariants: canonical symptoms, clamped
// confidences, known severity, positive duration and at most three
// top predictions. A diagnosis without symptoms collapses to NoSymptoms.
func (d Diagnosis) Normalize() Diagnosis {
	if !d.HasSymptoms {
		return NoSymptoms()
	}
	d.ExtractedSymptoms = CanonicalSymptoms(d.ExtractedSymptoms)
	d.PredictedDisease = strings.TrimSpace(d.PredictedDisease)
	d.ConfidenceScore = Clamp(d.ConfidenceScore, 0, 1)
	d.Severity = ParseSeverity(string(d.Severity))
	if d.DurationDays < 1 {
		d.DurationDays = defaultDurationDay
	}

	top := make([]DiseaseConfidence, 0, maxTopPredictions)
	for _, p := range d.TopPredictions {
		name := strings.TrimSpace(p.Disease)
		if name == "" {
			continue
		}
		top = append(top, DiseaseConfidence{Disease: name, Confidence: Clamp(p.Confidence, 0, 1)})
		if len(top) == maxTopPredictions {
			break
		}
	}
	d.TopPredictions = top

	precautions := make([]string, 0, len(d.Precautions))
	for _, p := range d.Precautions {
		if p = strings.TrimSpace(p); p != "" {
			precautions = append(precautions, p)
		}
	}
	d.Precautions = precautions
	d.Description = strings.TrimSpace(d.Description)
	d.ICD10Code = strings.ToUpper(strings.TrimSpace(d.ICD10Code))
	return d
}

// HasPrediction reports whether the diagnosis names a disease worth recording.
func (d Diagnosis) HasPrediction() bool {
	return d.HasSymptoms && d.PredictedDisease != ""
}

// NeedsStaffAttention is true for severe or communicable diagnoses.
func (d Diagnosis) NeedsStaffAttention() bool {
	return d.HasPrediction() && (d.Severity == SeveritySevere || d.IsCommunicable)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
