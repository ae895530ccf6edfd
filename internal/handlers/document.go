package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studybuddy/internal/contextutil"
	"studybuddy/internal/ingest"
	"studybuddy/internal/service"
	"studybuddy/internal/storage"
)

// DocumentHandler handles HTTP requests for document upload and
// management.
type DocumentHandler struct {
	projects    storage.ProjectStore
	documents   storage.DocumentStore
	pipeline    *ingest.Pipeline
	maxFileSize int64
	maxFiles    int
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(
	projects storage.ProjectStore,
	documents storage.DocumentStore,
	pipeline *ingest.Pipeline,
	maxFileSize int64,
	maxFiles int,
) *DocumentHandler {
	return &DocumentHandler{
		projects:    projects,
		documents:   documents,
		pipeline:    pipeline,
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
	}
}

// DocumentResponse represents a document in API responses.
type DocumentResponse struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	FileSize   int64  `json:"file_size"`
	UploadDate string `json:"upload_date"`
}

// UploadResult reports the outcome for one uploaded file. Files in a
// bulk upload succeed or fail independently.
type UploadResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

func toDocumentResponse(doc *storage.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		ProjectID:  doc.ProjectID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		FileSize:   doc.FileSize,
		UploadDate: doc.UploadDate.UTC().Format(time.RFC3339),
	}
}

// Upload handles POST /api/projects/{projectID}/documents/upload.
// Accepts one or more files in the multipart "files" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		writeDomainError(w, r, err, "Failed to upload documents")
		return
	}

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}

	count, err := h.documents.CountByProject(ctx, projectID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to upload documents")
		return
	}

	results := make([]UploadResult, 0, len(files))
	for _, header := range files {
		result := UploadResult{Filename: header.Filename, Status: "processed"}

		if count >= h.maxFiles {
			result.Status = "failed"
			result.Error = fmt.Sprintf("%v: project already has %d documents", service.ErrLimitExceeded, count)
			results = append(results, result)
			continue
		}

		documentID, chunkCount, err := h.processUpload(r, projectID, header)
		if err != nil {
			logger.WarnContext(ctx, "upload rejected", "filename", header.Filename, "error", err)
			result.Status = "failed"
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		count++
		result.DocumentID = documentID
		result.ChunkCount = chunkCount
		results = append(results, result)
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"results": results})
}

// processUpload validates and ingests one file. The document record is
// rolled back if processing fails, so failed uploads leave no trace.
func (h *DocumentHandler) processUpload(r *http.Request, projectID string, header *multipart.FileHeader) (string, int, error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	filename := header.Filename

	if err := ingest.ValidateUpload(filename, header.Size, h.maxFileSize); err != nil {
		return "", 0, err
	}

	file, err := header.Open()
	if err != nil {
		return "", 0, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read upload: %w", err)
	}

	doc := &storage.DocumentRecord{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Filename:  filename,
		FileType:  strings.ToLower(filepath.Ext(filename)),
		FileSize:  header.Size,
	}
	if err := h.documents.Create(ctx, doc); err != nil {
		return "", 0, fmt.Errorf("failed to record document: %w", err)
	}

	chunkCount, err := h.pipeline.ProcessDocument(ctx, projectID, doc.ID, filename, content)
	if err != nil {
		if deleteErr := h.documents.Delete(ctx, doc.ID); deleteErr != nil {
			logger.ErrorContext(ctx, "failed to roll back document record",
				"document_id", doc.ID, "error", deleteErr)
		}
		return "", 0, err
	}

	return doc.ID, chunkCount, nil
}

// List handles GET /api/projects/{projectID}/documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		writeDomainError(w, r, err, "Failed to list documents")
		return
	}

	docs, err := h.documents.ListByProject(ctx, projectID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toDocumentResponse(doc))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/projects/{projectID}/documents/{documentID}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.GetByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeDomainError(w, r, err, "Failed to get document")
		return
	}
	if doc.ProjectID != chi.URLParam(r, "projectID") {
		writeDomainError(w, r, storage.ErrNotFound, "Failed to get document")
		return
	}
	writeJSON(w, r, http.StatusOK, toDocumentResponse(doc))
}

// Delete handles DELETE /api/projects/{projectID}/documents/{documentID}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	projectID := chi.URLParam(r, "projectID")
	documentID := chi.URLParam(r, "documentID")

	doc, err := h.documents.GetByID(ctx, documentID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to delete document")
		return
	}
	if doc.ProjectID != projectID {
		writeDomainError(w, r, storage.ErrNotFound, "Failed to delete document")
		return
	}

	if err := h.pipeline.DeleteDocument(ctx, projectID, documentID); err != nil {
		logger.WarnContext(ctx, "failed to delete document vectors",
			"document_id", documentID, "error", err)
	}

	if err := h.documents.Delete(ctx, documentID); err != nil {
		writeDomainError(w, r, err, "Failed to delete document")
		return
	}

	logger.InfoContext(ctx, "deleted document", "document_id", documentID)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Document deleted"})
}
