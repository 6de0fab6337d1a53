package model

import "strings"

const MaxConfidenceBoost = 0.15

// ValidationVerdict is the outcome of cross-checking an ML prediction.
type ValidationVerdict struct {
	AgreesWithML         bool    `json:"agrees_with_ml"`
	ConfidenceBoost      float64 `json:"confidence_boost"`
	Reasoning            string  `json:"reasoning"`
	AlternativeDiagnosis *string `json:"alternative_diagnosis"`
}

// NewValidationVerdict builds a verdict with the boost clamped to
// [-MaxConfidenceBoost, MaxConfidenceBoost] and a blank alternative dropped.
func NewValidationVerdict(agrees bool, boost float64, reasoning, alternative string) ValidationVerdict {
	v := ValidationVerdict{
		AgreesWithML:    agrees,
		ConfidenceBoost: Clamp(boost, -MaxConfidenceBoost, MaxConfidenceBoost),
		Reasoning:       strings.TrimSpace(reasoning),
	}
	if alt := strings.TrimSpace(alternative); alt != "" && !strings.EqualFold(alt, "none") && !strings.EqualFold(alt, "null") {
		v.AlternativeDiagnosis = &alt
	}
	return v
}

// AdjustedConfidence applies the boost to an ML confidence, bounded to [0, 1].
func (v ValidationVerdict) AdjustedConfidence(mlConfidence float64) float64 {
	return Clamp(mlConfidence+v.ConfidenceBoost, 0, 1)
}
