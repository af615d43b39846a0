package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
)

type sessionRow struct {
	ID              string              `db:"id"`
	UserID          uuid.UUID           `db:"user_id"`
	Channel         string              `db:"channel"`
	Status          model.SessionStatus `db:"status"`
	SymptomData     []byte              `db:"symptom_data"`
	PendingQuestion string              `db:"pending_question"`
	History         []byte              `db:"history"`
	LastInputAt     time.Time           `db:"last_input_at"`
	Version         int                 `db:"version"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	symptoms, history, err := marshalSession(s)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sessions (
			id, user_id, channel, status, symptom_data, pending_question,
			history, last_input_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.Channel, s.Status, symptoms, s.PendingQuestion,
		history, s.LastInputAt, s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	query := `
		SELECT id, user_id, channel, status, symptom_data, pending_question,
			   history, last_input_at, version, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return rowToSession(&row)
}

func (r *sessionRepository) Update(ctx context.Context, s *model.Session) error {
	symptoms, history, err := marshalSession(s)
	if err != nil {
		return err
	}
	query := `
		UPDATE sessions
		SET status = $1, symptom_data = $2, pending_question = $3, history = $4,
			last_input_at = $5, version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		s.Status, symptoms, s.PendingQuestion, history,
		s.LastInputAt, s.UpdatedAt, s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, s.ID); err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}
	s.Version++
	return nil
}

func (r *sessionRepository) ListExpired(ctx context.Context, now time.Time, timeout time.Duration) ([]*model.Session, error) {
	query := `
		SELECT id, user_id, channel, status, symptom_data, pending_question,
			   history, last_input_at, version, created_at, updated_at
		FROM sessions
		WHERE status = $1 AND last_input_at < $2
		ORDER BY last_input_at ASC
	`
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, model.SessionStatusActive, now.Add(-timeout)); err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	out := make([]*model.Session, 0, len(rows))
	for i := range rows {
		s, err := rowToSession(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func marshalSession(s *model.Session) ([]byte, []byte, error) {
	symptoms, err := json.Marshal(s.SymptomData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal symptom data: %w", err)
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return symptoms, history, nil
}

func rowToSession(row *sessionRow) (*model.Session, error) {
	s := &model.Session{
		ID:              row.ID,
		UserID:          row.UserID,
		Channel:         row.Channel,
		Status:          row.Status,
		PendingQuestion: row.PendingQuestion,
		LastInputAt:     row.LastInputAt,
		Version:         row.Version,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if err := json.Unmarshal(row.SymptomData, &s.SymptomData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal symptom data: %w", err)
	}
	if err := json.Unmarshal(row.History, &s.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return s, nil
}
