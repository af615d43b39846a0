package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/repository"
)

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, session_id, case_id, channel, recipient, payload,
			status, retries, last_error, sent_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.SessionID, n.CaseID, n.Channel, n.Recipient, n.Payload,
		n.Status, n.Retries, n.LastError, n.SentAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) error {
	query := `
		UPDATE notifications
		SET status = $1, retries = $2, last_error = $3, sent_at = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		n.Status, n.Retries, n.LastError, n.SentAt, n.UpdatedAt, n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
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

func (r *notificationRepository) ListUndelivered(ctx context.Context, maxRetries, limit int) ([]*model.Notification, error) {
	query := `
		SELECT id, session_id, case_id, channel, recipient, payload,
			   status, retries, last_error, sent_at, created_at, updated_at
		FROM notifications
		WHERE status != $1 AND retries < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	var out []*model.Notification
	if err := r.db.SelectContext(ctx, &out, query, model.NotificationStatusSent, maxRetries, limit); err != nil {
		return nil, fmt.Errorf("failed to list undelivered notifications: %w", err)
	}
	return out, nil
}
