package model

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// ---- Symptom tests ----

func TestCanonicalSymptom(t *testing.T) {
	cases := map[string]string{
		"Fever":           "fever",
		"  mild   fever ": "mild_fever",
		"Sore-Throat":     "sore_throat",
		"runny_nose":      "runny_nose",
		"":                "",
	}
	for in, want := range cases {
		if got := CanonicalSymptom(in); got != want {
			t.Errorf("CanonicalSymptom(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalSymptoms_DedupesPreservingOrder(t *testing.T) {
	got := CanonicalSymptoms([]string{"Fever", "cough", "fever", " FEVER ", "Mild Fever", "mild_fever", ""})
	want := []string{"fever", "cough", "mild_fever"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMergeSymptoms_KeepsFirstSetFirst(t *testing.T) {
	got := MergeSymptoms([]string{"cough", "fever"}, []string{"Fever", "headache"})
	want := []string{"cough", "fever", "headache"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHumanSymptoms(t *testing.T) {
	if got := HumanSymptoms([]string{"mild_fever", "cough"}); got != "mild fever, cough" {
		t.Errorf("got %q", got)
	}
}

// ---- Diagnosis tests ----

func TestNoSymptoms_Defaults(t *testing.T) {
	d := NoSymptoms()
	if d.HasSymptoms {
		t.Error("expected HasSymptoms false")
	}
	if len(d.ExtractedSymptoms) != 0 || d.ExtractedSymptoms == nil {
		t.Errorf("expected empty non-nil symptoms, got %v", d.ExtractedSymptoms)
	}
	if d.Severity != SeverityModerate {
		t.Errorf("expected moderate, got %s", d.Severity)
	}
	if d.DurationDays != 1 {
		t.Errorf("expected duration 1, got %d", d.DurationDays)
	}
	if d.PredictedDisease != "" || d.ConfidenceScore != 0 || d.ICD10Code != "" {
		t.Errorf("expected zero prediction fields, got %+v", d)
	}
}

func TestDiagnosis_Normalize_NoSymptomsCollapses(t *testing.T) {
	d := Diagnosis{
		HasSymptoms:      false,
		PredictedDisease: "Flu",
		ConfidenceScore:  0.9,
		Severity:         SeveritySevere,
		IsCommunicable:   true,
	}.Normalize()

	if !reflect.DeepEqual(d, NoSymptoms()) {
		t.Errorf("expected NoSymptoms shape, got %+v", d)
	}
}

func TestDiagnosis_Normalize_Coercions(t *testing.T) {
	d := Diagnosis{
		HasSymptoms:       true,
		ExtractedSymptoms: []string{"Cough", "cough", "Mild Fever"},
		PredictedDisease:  "  Common Cold ",
		ConfidenceScore:   1.7,
		TopPredictions: []DiseaseConfidence{
			{Disease: "Common Cold", Confidence: 0.8},
			{Disease: "", Confidence: 0.5},
			{Disease: "Flu", Confidence: -1},
			{Disease: "COVID-19", Confidence: 0.1},
			{Disease: "Allergy", Confidence: 0.05},
		},
		Precautions:  []string{" rest ", "", "hydrate"},
		Severity:     "EXTREME",
		DurationDays: 0,
		ICD10Code:    " j00 ",
	}.Normalize()

	if !reflect.DeepEqual(d.ExtractedSymptoms, []string{"cough", "mild_fever"}) {
		t.Errorf("symptoms: %v", d.ExtractedSymptoms)
	}
	if d.PredictedDisease != "Common Cold" {
		t.Errorf("disease: %q", d.PredictedDisease)
	}
	if d.ConfidenceScore != 1 {
		t.Errorf("confidence not clamped: %v", d.ConfidenceScore)
	}
	if len(d.TopPredictions) != 3 {
		t.Fatalf("expected 3 top predictions, got %d", len(d.TopPredictions))
	}
	if d.TopPredictions[1].Disease != "Flu" || d.TopPredictions[1].Confidence != 0 {
		t.Errorf("second prediction: %+v", d.TopPredictions[1])
	}
	if !reflect.DeepEqual(d.Precautions, []string{"rest", "hydrate"}) {
		t.Errorf("precautions: %v", d.Precautions)
	}
	if d.Severity != SeverityModerate {
		t.Errorf("severity: %s", d.Severity)
	}
	if d.DurationDays != 1 {
		t.Errorf("duration: %d", d.DurationDays)
	}
	if d.ICD10Code != "J00" {
		t.Errorf("icd10: %q", d.ICD10Code)
	}
}

func TestSeverityLevel(t *testing.T) {
	cases := map[Severity]int{SeverityMild: 1, SeverityModerate: 2, SeveritySevere: 3, "": 2}
	for s, want := range cases {
		if got := s.Level(); got != want {
			t.Errorf("%q.Level() = %d, want %d", s, got, want)
		}
	}
}

func TestDiagnosis_NeedsStaffAttention(t *testing.T) {
	base := Diagnosis{HasSymptoms: true, PredictedDisease: "Dengue", Severity: SeverityModerate}
	if base.NeedsStaffAttention() {
		t.Error("moderate non-communicable should not need attention")
	}
	severe := base
	severe.Severity = SeveritySevere
	if !severe.NeedsStaffAttention() {
		t.Error("severe should need attention")
	}
	communicable := base
	communicable.IsCommunicable = true
	if !communicable.NeedsStaffAttention() {
		t.Error("communicable should need attention")
	}
	if NoSymptoms().NeedsStaffAttention() {
		t.Error("no-symptom diagnosis should not need attention")
	}
}

// ---- Validation tests ----

func TestNewValidationVerdict_ClampsBoost(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{-0.9, -0.15},
		{0, 0},
		{0.5, 0.15},
		{0.05, 0.05},
	}
	for _, tc := range cases {
		v := NewValidationVerdict(true, tc.raw, "ok", "")
		if v.ConfidenceBoost != tc.want {
			t.Errorf("boost %v: got %v, want %v", tc.raw, v.ConfidenceBoost, tc.want)
		}
	}
}

func TestNewValidationVerdict_Alternative(t *testing.T) {
	if v := NewValidationVerdict(false, 0, "r", "null"); v.AlternativeDiagnosis != nil {
		t.Errorf("expected nil alternative, got %q", *v.AlternativeDiagnosis)
	}
	v := NewValidationVerdict(false, 0, "r", " Influenza ")
	if v.AlternativeDiagnosis == nil || *v.AlternativeDiagnosis != "Influenza" {
		t.Errorf("unexpected alternative: %v", v.AlternativeDiagnosis)
	}
}

func TestValidationVerdict_AdjustedConfidence(t *testing.T) {
	v := NewValidationVerdict(true, 0.15, "", "")
	if got := v.AdjustedConfidence(0.95); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
}

// ---- Insight tests ----

func TestReliability(t *testing.T) {
	if Reliability(InsightPrevention, 0.4) != 0.85 {
		t.Error("prevention")
	}
	if Reliability(InsightMonitoring, 0.4) != 0.90 {
		t.Error("monitoring")
	}
	if Reliability(InsightMedicalAdvice, 0.4) != 0.4 {
		t.Error("medical advice should inherit confidence")
	}
	if Reliability(InsightMedicalAdvice, 0) != 0.75 {
		t.Error("medical advice default")
	}
	if Reliability("Lifestyle", 0.4) != 0.80 {
		t.Error("other")
	}
}

// ---- Conversation tests ----

func TestConversationTurnState_EnrichedMessage(t *testing.T) {
	s := NewConversationTurnState("sess-1", "I have a cough", []string{"Cough", "Mild Fever"})
	got := s.EnrichedMessage("since Monday")
	want := "Original complaint: I have a cough. Symptoms identified: cough, mild fever. Student's follow-up answer: since Monday"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	if s.AskedAt.IsZero() {
		t.Error("expected AskedAt set")
	}
}

func TestChatSession_End(t *testing.T) {
	s := NewChatSession("2021-0001", "")
	if s.Language != "english" {
		t.Errorf("default language: %q", s.Language)
	}
	if !ValidID(s.ID) {
		t.Errorf("expected uuid id, got %q", s.ID)
	}
	ended := s.End(s.StartedAt.Add(90 * time.Second))
	if s.Ended() {
		t.Error("original must not be mutated")
	}
	if !ended.Ended() || ended.DurationSeconds != 90 {
		t.Errorf("unexpected end state: %+v", ended)
	}
}

// ---- Record tests ----

func TestNewSymptomRecord(t *testing.T) {
	d := Diagnosis{
		HasSymptoms:       true,
		ExtractedSymptoms: []string{"cough"},
		PredictedDisease:  "Common Cold",
		Severity:          SeveritySevere,
		DurationDays:      2,
	}
	r := NewSymptomRecord("student-1", "sess-1", d)
	if r.Severity != 3 {
		t.Errorf("severity level: %d", r.Severity)
	}
	if got := r.FollowUpDue.Sub(r.CreatedAt); got != FollowUpDelay {
		t.Errorf("follow-up delay: %v", got)
	}
	if r.ID == "" || r.PredictedDisease != "Common Cold" {
		t.Errorf("unexpected record: %+v", r)
	}
}

// ---- Provider tests ----

func TestProviderID_Known(t *testing.T) {
	for _, p := range AllProviders {
		if !p.Known() {
			t.Errorf("%s should be known", p)
		}
	}
	if ProviderID("openai").Known() {
		t.Error("openai is not a configured provider")
	}
}

func TestProviderEvent(t *testing.T) {
	e := NewProviderEvent(OperationChat, string(ProviderGroq), OutcomeFailure).
		WithReason("rate_limited").
		WithLatency(1500 * time.Millisecond)
	if e.LatencyMs != 1500 || e.Reason != "rate_limited" || !strings.EqualFold(e.Provider, "groq") {
		t.Errorf("unexpected event: %+v", e)
	}
}
