package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_store.go -package=mocks studybuddy/internal/storage ChatStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChatStore defines the interface for chat history operations.
type ChatStore interface {
	// Append records one question/answer turn for a project.
	Append(ctx context.Context, projectID, message, response string) error
	// ListByProject returns a project's most recent turns, oldest first,
	// capped at limit.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*ChatRecord, error)
	// DeleteByProject removes a project's chat history.
	DeleteByProject(ctx context.Context, projectID string) error
}

// ChatRepo provides methods for chat history operations.
// It implements the ChatStore interface.
type ChatRepo struct {
	db *sql.DB
}

// NewChatRepo creates a new ChatRepo.
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Append records one question/answer turn for a project.
func (r *ChatRepo) Append(ctx context.Context, projectID, message, response string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_history (project_id, message, response) VALUES (?, ?, ?)",
		projectID, message, response,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat turn: %w", err)
	}
	return nil
}

// ListByProject returns a project's most recent turns, oldest first,
// capped at limit.
func (r *ChatRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]*ChatRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	// Newest-first window, then reversed so callers see chronological
	// order.
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, message, response, created_at FROM chat_history
		 WHERE project_id = ? ORDER BY id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*ChatRecord
	for rows.Next() {
		var record ChatRecord
		var createdAtStr string
		if err := rows.Scan(&record.ID, &record.ProjectID, &record.Message, &record.Response, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		if record.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// DeleteByProject removes a project's chat history.
func (r *ChatRepo) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM chat_history WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("failed to delete chat history: %w", err)
	}
	return nil
}
