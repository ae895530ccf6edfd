package storage

import "time"

// ProjectRecord represents a study project in the database.
type ProjectRecord struct {
	ID          string // UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentRecord represents an uploaded document in the database.
type DocumentRecord struct {
	ID         string // UUID
	ProjectID  string // Foreign key to projects.id
	Filename   string
	FileType   string // Lowercase extension including the dot, e.g. ".pdf"
	FileSize   int64  // Bytes
	UploadDate time.Time
}

// ChunkRecord maps a vector index point back to its document. The chunk
// ID doubles as the index point ID, so a document's vectors can be
// deleted precisely without a full namespace scan.
type ChunkRecord struct {
	ChunkID    string // UUID (same as the vector store point ID)
	DocumentID string // Foreign key to documents.id
	Ordinal    int    // Position within the document (starts at 0)
}

// ChatRecord represents one question/answer turn in a project's chat
// history.
type ChatRecord struct {
	ID        int64
	ProjectID string
	Message   string
	Response  string
	CreatedAt time.Time
}

// ProjectStats aggregates per-project activity counters.
type ProjectStats struct {
	DocumentCount int
	ChunkCount    int
	ChatCount     int
	TotalBytes    int64
}
