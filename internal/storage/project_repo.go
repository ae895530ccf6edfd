package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_project_store.go -package=mocks studybuddy/internal/storage ProjectStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ProjectStore defines the interface for project storage operations.
type ProjectStore interface {
	// Create inserts a new project, generating its UUID.
	Create(ctx context.Context, name, description string) (*ProjectRecord, error)
	// GetByID gets a project by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ProjectRecord, error)
	// List returns all projects ordered by creation time, newest first.
	List(ctx context.Context) ([]*ProjectRecord, error)
	// Update changes a project's name and description.
	// Returns ErrNotFound if the project does not exist.
	Update(ctx context.Context, id, name, description string) (*ProjectRecord, error)
	// Delete removes a project. SQLite cascades to documents, chunk
	// records and chat history. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id string) error
	// Stats returns per-project activity counters.
	Stats(ctx context.Context, id string) (*ProjectStats, error)
}

// ProjectRepo provides methods for project operations.
// It implements the ProjectStore interface.
type ProjectRepo struct {
	db *sql.DB
}

// NewProjectRepo creates a new ProjectRepo.
func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create inserts a new project, generating its UUID.
func (r *ProjectRepo) Create(ctx context.Context, name, description string) (*ProjectRecord, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, description) VALUES (?, ?, ?)",
		id, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID gets a project by ID. Returns ErrNotFound if not found.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*ProjectRecord, error) {
	var project ProjectRecord
	var createdAtStr, updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM projects WHERE id = ?",
		id,
	).Scan(&project.ID, &project.Name, &project.Description, &createdAtStr, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	if project.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
		return nil, err
	}
	if project.UpdatedAt, err = parseTimestamp(updatedAtStr); err != nil {
		return nil, err
	}

	return &project, nil
}

// List returns all projects ordered by creation time, newest first.
func (r *ProjectRepo) List(ctx context.Context) ([]*ProjectRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM projects ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var projects []*ProjectRecord
	for rows.Next() {
		var project ProjectRecord
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if project.CreatedAt, err = parseTimestamp(createdAtStr); err != nil {
			return nil, err
		}
		if project.UpdatedAt, err = parseTimestamp(updatedAtStr); err != nil {
			return nil, err
		}
		projects = append(projects, &project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return projects, nil
}

// Update changes a project's name and description.
// Returns ErrNotFound if the project does not exist.
func (r *ProjectRepo) Update(ctx context.Context, id, name, description string) (*ProjectRecord, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, description, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a project. SQLite cascades to documents, chunk records
// and chat history. Returns ErrNotFound if not found.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns per-project activity counters.
func (r *ProjectRepo) Stats(ctx context.Context, id string) (*ProjectStats, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	var stats ProjectStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM documents WHERE project_id = ?`,
		id,
	).Scan(&stats.DocumentCount, &stats.TotalBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to query document stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_chunks
		 WHERE document_id IN (SELECT id FROM documents WHERE project_id = ?)`,
		id,
	).Scan(&stats.ChunkCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_history WHERE project_id = ?",
		id,
	).Scan(&stats.ChatCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat stats: %w", err)
	}

	return &stats, nil
}

// parseTimestamp parses a SQLite DATETIME string.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	// SQLite might use a different format depending on how the value was
	// written.
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return t, nil
}
