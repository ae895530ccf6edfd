package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studybuddy/internal/contextutil"
	"studybuddy/internal/ingest"
	"studybuddy/internal/storage"
)

// ProjectHandler handles HTTP requests for project management.
type ProjectHandler struct {
	projects storage.ProjectStore
	pipeline *ingest.Pipeline
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects storage.ProjectStore, pipeline *ingest.Pipeline) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		pipeline: pipeline,
	}
}

// ProjectRequest represents the payload for creating or updating a
// project.
type ProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// StatsResponse represents per-project activity counters.
type StatsResponse struct {
	DocumentCount int   `json:"document_count"`
	ChunkCount    int   `json:"chunk_count"`
	ChatCount     int   `json:"chat_count"`
	TotalBytes    int64 `json:"total_bytes"`
}

func toProjectResponse(project *storage.ProjectRecord) ProjectResponse {
	return ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   project.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Project name is required")
		return
	}

	project, err := h.projects.Create(ctx, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		writeDomainError(w, r, err, "Failed to create project")
		return
	}

	logger.InfoContext(ctx, "created project", "project_id", project.ID, "name", project.Name)
	writeJSON(w, r, http.StatusCreated, toProjectResponse(project))
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "Failed to list projects")
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		resp = append(resp, toProjectResponse(project))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/projects/{projectID}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.GetByID(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeDomainError(w, r, err, "Failed to get project")
		return
	}
	writeJSON(w, r, http.StatusOK, toProjectResponse(project))
}

// Update handles PUT /api/projects/{projectID}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Project name is required")
		return
	}

	project, err := h.projects.Update(ctx, chi.URLParam(r, "projectID"), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		writeDomainError(w, r, err, "Failed to update project")
		return
	}
	writeJSON(w, r, http.StatusOK, toProjectResponse(project))
}

// Delete handles DELETE /api/projects/{projectID}. Vectors go first;
// the SQLite delete then cascades documents, chunk records and chat
// history.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		writeDomainError(w, r, err, "Failed to delete project")
		return
	}

	if err := h.pipeline.DeleteProject(ctx, projectID); err != nil {
		// Metadata still goes away; orphaned vectors are preferable to a
		// project that cannot be deleted.
		logger.WarnContext(ctx, "failed to delete project vectors", "project_id", projectID, "error", err)
	}

	if err := h.projects.Delete(ctx, projectID); err != nil {
		writeDomainError(w, r, err, "Failed to delete project")
		return
	}

	logger.InfoContext(ctx, "deleted project", "project_id", projectID)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "Project deleted"})
}

// Stats handles GET /api/projects/{projectID}/stats.
func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projects.Stats(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeDomainError(w, r, err, "Failed to get project stats")
		return
	}
	writeJSON(w, r, http.StatusOK, StatsResponse{
		DocumentCount: stats.DocumentCount,
		ChunkCount:    stats.ChunkCount,
		ChatCount:     stats.ChatCount,
		TotalBytes:    stats.TotalBytes,
	})
}
