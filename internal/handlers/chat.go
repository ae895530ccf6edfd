package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"studybuddy/internal/contextutil"
	"studybuddy/internal/rag"
	"studybuddy/internal/storage"
)

// defaultHistoryLimit caps chat history responses when no limit is
// given.
const defaultHistoryLimit = 50

// ChatHandler handles HTTP requests for chat and retrieval search.
type ChatHandler struct {
	engine    *rag.Engine
	projects  storage.ProjectStore
	documents storage.DocumentStore
	chats     storage.ChatStore
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine *rag.Engine, projects storage.ProjectStore, documents storage.DocumentStore, chats storage.ChatStore) *ChatHandler {
	return &ChatHandler{
		engine:    engine,
		projects:  projects,
		documents: documents,
		chats:     chats,
	}
}

// ChatRequest represents the payload for a chat turn.
type ChatRequest struct {
	Message string `json:"message"`
	K       int    `json:"k,omitempty"`
}

// ChatResponse represents a chat answer with its sources.
type ChatResponse struct {
	Response string           `json:"response"`
	Sources  []SourceResponse `json:"sources"`
}

// SourceResponse represents one retrieved chunk in API responses.
type SourceResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Ordinal    int     `json:"ordinal"`
	Score      float32 `json:"score"`
	Preview    string  `json:"preview"`
}

// HistoryEntry represents one persisted chat turn.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	CreatedAt string `json:"created_at"`
}

// SearchRequest represents the payload for a retrieval-only search.
// ProjectID is only honored on the global search route; the
// project-scoped route takes it from the URL.
type SearchRequest struct {
	Query     string `json:"query"`
	K         int    `json:"k,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

// SearchResponse represents retrieval results.
type SearchResponse struct {
	Query   string           `json:"query"`
	Results []SourceResponse `json:"results"`
}

func toSourceResponses(chunks []rag.RetrievedChunk) []SourceResponse {
	sources := make([]SourceResponse, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, SourceResponse{
			ChunkID:    chunk.ChunkID,
			DocumentID: chunk.DocumentID,
			Filename:   chunk.Filename,
			Ordinal:    chunk.Ordinal,
			Score:      chunk.Score,
			Preview:    chunk.Preview,
		})
	}
	return sources
}

// Chat handles POST /api/projects/{projectID}/chat. The turn is
// persisted to history even when generation degrades to an error
// message.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		writeDomainError(w, r, err, "Failed to process chat")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.engine.Ask(ctx, req.Message, projectID, req.K)
	if err != nil {
		writeDomainError(w, r, err, "Failed to process chat")
		return
	}

	if err := h.chats.Append(ctx, projectID, req.Message, answer.Answer); err != nil {
		logger.ErrorContext(ctx, "failed to record chat turn", "project_id", projectID, "error", err)
	}

	writeJSON(w, r, http.StatusOK, ChatResponse{
		Response: answer.Answer,
		Sources:  toSourceResponses(answer.Sources),
	})
}

// History handles GET /api/projects/{projectID}/chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		writeDomainError(w, r, err, "Failed to get chat history")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.chats.ListByProject(ctx, projectID, limit)
	if err != nil {
		writeDomainError(w, r, err, "Failed to get chat history")
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{
			ID:        record.ID,
			Message:   record.Message,
			Response:  record.Response,
			CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// SummaryResponse represents a generated project summary.
type SummaryResponse struct {
	ProjectName   string            `json:"project_name"`
	DocumentCount int               `json:"document_count"`
	Summary       string            `json:"summary"`
	Documents     []SummaryDocument `json:"documents"`
}

// SummaryDocument lists one document included in a summary.
type SummaryDocument struct {
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date"`
}

// Summarize handles POST /api/projects/{projectID}/chat/summarize. The
// summary is generated from the project's metadata and document names.
func (h *ChatHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to generate project summary")
		return
	}

	docs, err := h.documents.ListByProject(ctx, projectID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to generate project summary")
		return
	}
	if len(docs) == 0 {
		writeError(w, http.StatusNotFound, "No documents found in project")
		return
	}

	filenames := make([]string, 0, len(docs))
	summaryDocs := make([]SummaryDocument, 0, len(docs))
	for _, doc := range docs {
		filenames = append(filenames, doc.Filename)
		summaryDocs = append(summaryDocs, SummaryDocument{
			Filename:   doc.Filename,
			UploadDate: doc.UploadDate.UTC().Format(time.RFC3339),
		})
	}

	summary := h.engine.Summarize(ctx, project.Name, project.Description, filenames)

	writeJSON(w, r, http.StatusOK, SummaryResponse{
		ProjectName:   project.Name,
		DocumentCount: len(docs),
		Summary:       summary,
		Documents:     summaryDocs,
	})
}

// Search handles POST /api/projects/{projectID}/chat/search,
// retrieval without generation.
func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := h.projects.GetByID(r.Context(), projectID); err != nil {
		writeDomainError(w, r, err, "Failed to search")
		return
	}
	h.search(w, r, projectID)
}

// SearchAll handles POST /api/search. With a project_id in the body the
// search is scoped; without one it spans every project.
func (h *ChatHandler) SearchAll(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "")
}

func (h *ChatHandler) search(w http.ResponseWriter, r *http.Request, projectID string) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if projectID == "" && req.ProjectID != "" {
		if _, err := h.projects.GetByID(ctx, req.ProjectID); err != nil {
			writeDomainError(w, r, err, "Failed to search")
			return
		}
		projectID = req.ProjectID
	}

	result, err := h.engine.Retrieve(ctx, req.Query, projectID, req.K)
	if err != nil {
		writeDomainError(w, r, err, "Failed to search")
		return
	}

	writeJSON(w, r, http.StatusOK, SearchResponse{
		Query:   result.Query,
		Results: toSourceResponses(result.Chunks),
	})
}
