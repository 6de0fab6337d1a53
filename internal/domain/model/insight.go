package model

const MaxInsights = 3

const (
	InsightPrevention    = "Prevention"
	InsightMonitoring    = "Monitoring"
	InsightMedicalAdvice = "Medical Advice"
)

type Insight struct {
	Category         string  `json:"category"`
	Text             string  `json:"text"`
	ReliabilityScore float64 `json:"reliability_score"`
}

// Prediction is the ML predictor output the insight generator consumes.
type Prediction struct {
	PredictedDisease string  `json:"predicted_disease"`
	ConfidenceScore  float64 `json:"confidence_score"`
}

// Reliability returns the fixed score for a category. Medical advice inherits
// the prediction confidence, or 0.75 when none is known.
func Reliability(category string, confidence float64) float64 {
	switch category {
	case InsightPrevention:
		return 0.85
	case InsightMonitoring:
		return 0.90
	case InsightMedicalAdvice:
		if confidence > 0 {
			return confidence
		}
		return 0.75
	default:
		return 0.80
	}
}
