package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks studybuddy/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Create inserts a document record. The document.ID must be set
	// (UUID) before calling this method.
	Create(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// ListByProject returns a project's documents ordered by upload time,
	// newest first.
	ListByProject(ctx context.Context, projectID string) ([]*DocumentRecord, error)
	// CountByProject returns the number of documents in a project.
	CountByProject(ctx context.Context, projectID string) (int, error)
	// Delete removes a document record. SQLite cascades to its chunk
	// records. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a document record. The document.ID must be set (UUID)
// before calling this method.
func (r *DocumentRepo) Create(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id, project_id, filename, file_type, file_size) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.ProjectID, doc.Filename, doc.FileType, doc.FileSize,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var uploadDateStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, project_id, filename, file_type, file_size, upload_date FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &doc.FileType, &doc.FileSize, &uploadDateStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	if doc.UploadDate, err = parseTimestamp(uploadDateStr); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ListByProject returns a project's documents ordered by upload time,
// newest first.
func (r *DocumentRepo) ListByProject(ctx context.Context, projectID string) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, project_id, filename, file_type, file_size, upload_date FROM documents WHERE project_id = ? ORDER BY upload_date DESC, id",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		var uploadDateStr string
		if err := rows.Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &doc.FileType, &doc.FileSize, &uploadDateStr); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.UploadDate, err = parseTimestamp(uploadDateStr); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// CountByProject returns the number of documents in a project.
func (r *DocumentRepo) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE project_id = ?",
		projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Delete removes a document record. SQLite cascades to its chunk
// records. Returns ErrNotFound if not found.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
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
