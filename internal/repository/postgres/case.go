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

// caseRow maps the cases table. Symptom data and assessment are stored as
// JSONB snapshots; risk_rank is denormalized for the priority index
// (risk_rank, created_at DESC).
type caseRow struct {
	ID             uuid.UUID        `db:"id"`
	UserID         uuid.UUID        `db:"user_id"`
	SessionID      string           `db:"session_id"`
	Channel        string           `db:"channel"`
	SymptomData    []byte           `db:"symptom_data"`
	Assessment     []byte           `db:"assessment"`
	RiskLevel      model.RiskLevel  `db:"risk_level"`
	RiskRank       int              `db:"risk_rank"`
	Status         model.CaseStatus `db:"status"`
	AssignedAshaID *uuid.UUID       `db:"assigned_asha_id"`
	ManualReview   bool             `db:"manual_review"`
	Version        int              `db:"version"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) error {
	symptoms, err := json.Marshal(c.SymptomData)
	if err != nil {
		return fmt.Errorf("failed to marshal symptom data: %w", err)
	}
	assessment, err := json.Marshal(c.Assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	query := `
		INSERT INTO cases (
			id, user_id, session_id, channel, symptom_data, assessment,
			risk_level, risk_rank, status, assigned_asha_id, manual_review,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.UserID,
		c.SessionID,
		c.Channel,
		symptoms,
		assessment,
		c.RiskLevel,
		c.RiskLevel.Rank(),
		c.Status,
		c.AssignedAshaID,
		c.ManualReview,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

func (r *caseRepository) Get(ctx context.Context, id uuid.UUID) (*model.Case, error) {
	query := `
		SELECT id, user_id, session_id, channel, symptom_data, assessment,
			   risk_level, risk_rank, status, assigned_asha_id, manual_review,
			   version, created_at, updated_at
		FROM cases
		WHERE id = $1
	`
	var row caseRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	c, err := rowToCase(&row)
	if err != nil {
		return nil, err
	}

	followUps, err := r.listFollowUps(ctx, id)
	if err != nil {
		return nil, err
	}
	c.FollowUps = followUps
	return c, nil
}

func (r *caseRepository) Update(ctx context.Context, c *model.Case) error {
	assessment, err := json.Marshal(c.Assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	query := `
		UPDATE cases
		SET assessment = $1, risk_level = $2, risk_rank = $3, status = $4,
			assigned_asha_id = $5, manual_review = $6, version = version + 1,
			updated_at = $7
		WHERE id = $8 AND version = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		assessment,
		c.RiskLevel,
		c.RiskLevel.Rank(),
		c.Status,
		c.AssignedAshaID,
		c.ManualReview,
		c.UpdatedAt,
		c.ID,
		c.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.versionOrMissing(ctx, c.ID)
	}
	c.Version++
	return nil
}

func (r *caseRepository) AppendFollowUp(ctx context.Context, c *model.Case, fu *model.FollowUp) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE cases
		SET status = $1, assigned_asha_id = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	result, err := tx.ExecContext(ctx, query, c.Status, c.AssignedAshaID, c.UpdatedAt, c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.versionOrMissing(ctx, c.ID)
	}

	insert := `
		INSERT INTO follow_ups (id, case_id, asha_id, action, notes, created_at, reminder_time, notified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, insert,
		fu.ID, fu.CaseID, fu.AshaID, fu.Action, fu.Notes, fu.Timestamp, fu.ReminderTime, fu.NotifiedAt,
	); err != nil {
		return fmt.Errorf("failed to append follow-up: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit follow-up: %w", err)
	}
	c.Version++
	c.FollowUps = append(c.FollowUps, *fu)
	return nil
}

func (r *caseRepository) List(ctx context.Context, filters model.CaseFilters) ([]*model.Case, error) {
	query := `
		SELECT id, user_id, session_id, channel, symptom_data, assessment,
			   risk_level, risk_rank, status, assigned_asha_id, manual_review,
			   version, created_at, updated_at
		FROM cases
		WHERE 1=1
	`
	args := []interface{}{}
	idx := 1

	if filters.RiskLevel != "" {
		query += fmt.Sprintf(" AND risk_level = $%d", idx)
		args = append(args, filters.RiskLevel)
		idx++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}
	if filters.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, filters.UserID)
		idx++
	}
	if filters.AssignedTo != uuid.Nil {
		query += fmt.Sprintf(" AND assigned_asha_id = $%d", idx)
		args = append(args, filters.AssignedTo)
		idx++
	}
	if filters.ManualReview != nil {
		query += fmt.Sprintf(" AND manual_review = $%d", idx)
		args = append(args, *filters.ManualReview)
		idx++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, filters.StartDate)
		idx++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, filters.EndDate)
		idx++
	}

	// canonical priority order: tier rank, recency, case id tiebreak
	query += " ORDER BY risk_rank ASC, created_at DESC, id ASC"

	var rows []caseRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return rowsToCases(rows)
}

func (r *caseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Case, error) {
	query := `
		SELECT id, user_id, session_id, channel, symptom_data, assessment,
			   risk_level, risk_rank, status, assigned_asha_id, manual_review,
			   version, created_at, updated_at
		FROM cases
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
	`
	var rows []caseRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list cases by user: %w", err)
	}
	return rowsToCases(rows)
}

func (r *caseRepository) DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	query := `
		SELECT case_id, id AS follow_up_id, asha_id, reminder_time
		FROM follow_ups
		WHERE reminder_time IS NOT NULL
		  AND reminder_time <= $1
		  AND notified_at IS NULL
		ORDER BY reminder_time ASC
	`
	type reminderRow struct {
		CaseID       uuid.UUID `db:"case_id"`
		FollowUpID   uuid.UUID `db:"follow_up_id"`
		AshaID       uuid.UUID `db:"asha_id"`
		ReminderTime time.Time `db:"reminder_time"`
	}
	var rows []reminderRow
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	out := make([]model.Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Reminder{
			CaseID:       row.CaseID,
			FollowUpID:   row.FollowUpID,
			AshaID:       row.AshaID,
			ReminderTime: row.ReminderTime,
		})
	}
	return out, nil
}

func (r *caseRepository) MarkReminderNotified(ctx context.Context, followUpID uuid.UUID, at time.Time) error {
	// notified_at IS NULL guard makes the marking exactly-once
	query := `
		UPDATE follow_ups
		SET notified_at = $1
		WHERE id = $2 AND notified_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, at, followUpID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder notified: %w", err)
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

func (r *caseRepository) Purge(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM follow_ups WHERE case_id = $1`, id); err != nil {
		return fmt.Errorf("failed to purge follow-ups: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge case: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

func (r *caseRepository) listFollowUps(ctx context.Context, caseID uuid.UUID) ([]model.FollowUp, error) {
	query := `
		SELECT id, case_id, asha_id, action, notes, created_at, reminder_time, notified_at
		FROM follow_ups
		WHERE case_id = $1
		ORDER BY created_at ASC, id ASC
	`
	var followUps []model.FollowUp
	if err := r.db.SelectContext(ctx, &followUps, query, caseID); err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	return followUps, nil
}

func (r *caseRepository) versionOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check case existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

func rowToCase(row *caseRow) (*model.Case, error) {
	c := &model.Case{
		ID:             row.ID,
		UserID:         row.UserID,
		SessionID:      row.SessionID,
		Channel:        row.Channel,
		RiskLevel:      row.RiskLevel,
		Status:         row.Status,
		AssignedAshaID: row.AssignedAshaID,
		ManualReview:   row.ManualReview,
		Version:        row.Version,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if err := json.Unmarshal(row.SymptomData, &c.SymptomData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal symptom data: %w", err)
	}
	if err := json.Unmarshal(row.Assessment, &c.Assessment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
	}
	return c, nil
}

func rowsToCases(rows []caseRow) ([]*model.Case, error) {
	out := make([]*model.Case, 0, len(rows))
	for i := range rows {
		c, err := rowToCase(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
