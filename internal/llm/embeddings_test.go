package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func embeddingsServer(t *testing.T, dimension int, captured *EmbeddingsRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if captured != nil {
			*captured = req
		}

		resp := EmbeddingsResponse{Data: make([]EmbeddingData, len(req.Input))}
		for i := range req.Input {
			resp.Data[i].Embedding = make([]float64, dimension)
			resp.Data[i].Embedding[0] = 1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedDocuments(t *testing.T) {
	var captured EmbeddingsRequest
	server := embeddingsServer(t, 4, &captured)
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "key", "text-embedding-004", 4, 5*time.Second)
	vectors, err := client.EmbedDocuments(context.Background(), []string{"first chunk", "second chunk"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 4 {
		t.Fatalf("unexpected vectors shape: %d x %d", len(vectors), len(vectors[0]))
	}
	if captured.TaskType != TaskDocument {
		t.Errorf("task_type = %q, want %q", captured.TaskType, TaskDocument)
	}
	if captured.Model != "text-embedding-004" {
		t.Errorf("model = %q", captured.Model)
	}
}

func TestEmbedQueryTaskType(t *testing.T) {
	var captured EmbeddingsRequest
	server := embeddingsServer(t, 4, &captured)
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "key", "text-embedding-004", 4, 5*time.Second)
	vector, err := client.EmbedQuery(context.Background(), "what is osmosis?")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 4 {
		t.Errorf("unexpected vector length %d", len(vector))
	}
	if captured.TaskType != TaskQuery {
		t.Errorf("task_type = %q, want %q", captured.TaskType, TaskQuery)
	}
	if len(captured.Input) != 1 || captured.Input[0] != "what is osmosis?" {
		t.Errorf("unexpected input %v", captured.Input)
	}
}

func TestEmbedBlankInput(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:0", "key", "m", 4, time.Second)

	if _, err := client.EmbedDocuments(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty slice, got %v", err)
	}
	if _, err := client.EmbedDocuments(context.Background(), []string{"ok", "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank text, got %v", err)
	}
	if _, err := client.EmbedQuery(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank query, got %v", err)
	}
}

func TestEmbedProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "key", "m", 4, time.Second)
	if _, err := client.EmbedDocuments(context.Background(), []string{"text"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestEmbedTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Closed server forces a connection error.

	client := NewEmbeddingsClient(server.URL, "key", "m", 4, time.Second)
	if _, err := client.EmbedQuery(context.Background(), "text"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestEmbedDimensionValidation(t *testing.T) {
	server := embeddingsServer(t, 3, nil)
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "key", "m", 4, time.Second)
	if _, err := client.EmbedDocuments(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected error for wrong embedding dimension")
	}
}

func TestEmbedCountValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(EmbeddingsResponse{
			Data: []EmbeddingData{{Embedding: make([]float64, 4)}},
		})
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "key", "m", 4, time.Second)
	if _, err := client.EmbedDocuments(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}
