package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/betelcare/internal/domain"
)

// DiagnosisStore journals successful predictions.
type DiagnosisStore struct {
	db *sql.DB
}

func NewDiagnosisStore(db *sql.DB) *DiagnosisStore {
	return &DiagnosisStore{db: db}
}

// Create records the primary prediction of result for sessionID.
func (s *DiagnosisStore) Create(ctx context.Context, sessionID string, result *domain.DiagnosisResult) (*domain.Diagnosis, error) {
	primary := result.Primary()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnoses (session_id, label, confidence, severity, advice) VALUES (?, ?, ?, ?, ?)
	`, sessionID, primary.Label, primary.Confidence, result.Severity, result.Advice)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnosis: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *DiagnosisStore) GetByID(ctx context.Context, id int64) (*domain.Diagnosis, error) {
	d := &domain.Diagnosis{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, label, confidence, severity, advice, created_at FROM diagnoses WHERE id = ?
	`, id).Scan(&d.ID, &d.SessionID, &d.Label, &d.Confidence, &d.Severity, &d.Advice, &d.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}

	return d, nil
}

// ListBySession returns the newest diagnoses of one session first.
func (s *DiagnosisStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*domain.Diagnosis, error) {
	return s.list(ctx, `
		SELECT id, session_id, label, confidence, severity, advice, created_at FROM diagnoses
		WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, sessionID, limit)
}

// ListRecent returns the newest diagnoses across all sessions first.
func (s *DiagnosisStore) ListRecent(ctx context.Context, limit int) ([]*domain.Diagnosis, error) {
	return s.list(ctx, `
		SELECT id, session_id, label, confidence, severity, advice, created_at FROM diagnoses
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
}

func (s *DiagnosisStore) list(ctx context.Context, query string, args ...any) ([]*domain.Diagnosis, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Diagnosis
	for rows.Next() {
		d := &domain.Diagnosis{}
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Label, &d.Confidence, &d.Severity, &d.Advice, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diagnosis: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnoses: %w", err)
	}

	return out, nil
}
