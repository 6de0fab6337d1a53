package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// RecordRepo implements outbound.SymptomRecordRepository using SQLite.
type RecordRepo struct {
	db *sql.DB
}

var _ outbound.SymptomRecordRepository = (*RecordRepo)(nil)

func NewRecordRepo(store *Store) *RecordRepo {
	return &RecordRepo{db: store.DB}
}

const recordColumns = `id, student_id, session_id, symptoms, duration_days, severity,
	predicted_disease, confidence_score, top_predictions, is_communicable, is_acute,
	icd10_code, follow_up_due, created_at`

// Create inserts a new symptom record row.
func (r *RecordRepo) Create(ctx context.Context, rec model.SymptomRecord) (model.SymptomRecord, error) {
	symptoms, err := marshalList(rec.Symptoms)
	if err != nil {
		return model.SymptomRecord{}, fmt.Errorf("marshaling symptoms: %w", err)
	}
	top, err := marshalList(rec.TopPredictions)
	if err != nil {
		return model.SymptomRecord{}, fmt.Errorf("marshaling top predictions: %w", err)
	}

	q := `INSERT INTO symptom_records (` + recordColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.StudentID, rec.SessionID, symptoms, rec.DurationDays, rec.Severity,
		rec.PredictedDisease, rec.ConfidenceScore, top, rec.IsCommunicable, rec.IsAcute,
		rec.ICD10Code, rec.FollowUpDue.UTC(), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return model.SymptomRecord{}, fmt.Errorf("inserting symptom record: %w", err)
	}
	return rec, nil
}

func (r *RecordRepo) GetByID(ctx context.Context, id string) (model.SymptomRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM symptom_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SymptomRecord{}, fmt.Errorf("symptom record %s: %w", id, outbound.ErrNotFound)
	}
	if err != nil {
		return model.SymptomRecord{}, fmt.Errorf("fetching symptom record: %w", err)
	}
	return rec, nil
}

// ListByStudent returns a student's records, newest first.
func (r *RecordRepo) ListByStudent(ctx context.Context, studentID string) ([]model.SymptomRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM symptom_records WHERE student_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, fmt.Errorf("listing symptom records: %w", err)
	}
	defer rows.Close()

	var records []model.SymptomRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning symptom record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating symptom records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (model.SymptomRecord, error) {
	var (
		rec           model.SymptomRecord
		symptoms, top string
	)
	err := s.Scan(
		&rec.ID, &rec.StudentID, &rec.SessionID, &symptoms, &rec.DurationDays, &rec.Severity,
		&rec.PredictedDisease, &rec.ConfidenceScore, &top, &rec.IsCommunicable, &rec.IsAcute,
		&rec.ICD10Code, &rec.FollowUpDue, &rec.CreatedAt,
	)
	if err != nil {
		return model.SymptomRecord{}, err
	}
	if err := json.Unmarshal([]byte(symptoms), &rec.Symptoms); err != nil {
		rec.Symptoms = nil
	}
	if err := json.Unmarshal([]byte(top), &rec.TopPredictions); err != nil {
		rec.TopPredictions = nil
	}
	rec.FollowUpDue = rec.FollowUpDue.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
