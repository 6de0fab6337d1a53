package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// maxValidateSymptoms caps how many symptoms go into a validation prompt.
const maxValidateSymptoms = 10

// Builder renders the per-operation prompts from embedded templates.
type Builder struct {
	templates *template.Template
}

// NewBuilder parses all embedded templates and returns a Builder.
func NewBuilder() (*Builder, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"join":    strings.Join,
		"human":   model.HumanSymptoms,
		"percent": percent,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Builder{templates: tmpl}, nil
}

// Prompt is a rendered system/user pair. System may be empty.
type Prompt struct {
	System string
	User   string
}

// ChatInput holds data for the free-form health chat prompt.
type ChatInput struct {
	Message  string
	Language string
	Summary  string
}

// ValidateInput holds the ML prediction to be second-guessed.
type ValidateInput struct {
	Symptoms   []string
	Disease    string
	Confidence float64
}

// InsightsInput holds data for the insight generation prompt.
type InsightsInput struct {
	Symptoms   []string
	Disease    string
	Confidence float64
	Summary    string
}

// DiagnosisReplyInput holds the student's message and the structured diagnosis.
type DiagnosisReplyInput struct {
	Message   string
	Language  string
	Diagnosis model.Diagnosis
}

// FollowUpInput holds the first-turn complaint and its extracted symptoms.
type FollowUpInput struct {
	Symptoms []string
	Message  string
}

// BuildChat renders the chat prompt. The system part carries the assistant persona.
func (b *Builder) BuildChat(input ChatInput) (Prompt, error) {
	system, err := b.render("system.tmpl", input)
	if err != nil {
		return Prompt{}, err
	}
	user, err := b.render("chat.tmpl", input)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: system, User: user}, nil
}

// BuildValidate renders the ML validation prompt.
func (b *Builder) BuildValidate(input ValidateInput) (Prompt, error) {
	if len(input.Symptoms) > maxValidateSymptoms {
		input.Symptoms = input.Symptoms[:maxValidateSymptoms]
	}
	user, err := b.render("validate.tmpl", input)
	return Prompt{User: user}, err
}

// BuildInsights renders the insight generation prompt.
func (b *Builder) BuildInsights(input InsightsInput) (Prompt, error) {
	user, err := b.render("insights.tmpl", input)
	return Prompt{User: user}, err
}

// BuildExtract renders the combined symptom extraction and prediction prompt.
func (b *Builder) BuildExtract(message string) (Prompt, error) {
	user, err := b.render("extract.tmpl", struct{ Message string }{message})
	return Prompt{User: user}, err
}

// BuildDiagnosisReply renders the prompt that turns a diagnosis into a reply.
func (b *Builder) BuildDiagnosisReply(input DiagnosisReplyInput) (Prompt, error) {
	system, err := b.render("system.tmpl", input)
	if err != nil {
		return Prompt{}, err
	}
	user, err := b.render("diagnosis_reply.tmpl", input)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: system, User: user}, nil
}

// BuildFollowUp renders the clarifying-questions prompt.
func (b *Builder) BuildFollowUp(input FollowUpInput) (Prompt, error) {
	user, err := b.render("follow_up.tmpl", input)
	return Prompt{User: user}, err
}

func (b *Builder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
