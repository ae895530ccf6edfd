package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"studybuddy/internal/contextutil"
)

// defaultRequestTimeout bounds a Qdrant round trip when no timeout is
// configured.
const defaultRequestTimeout = 30 * time.Second

// QdrantStore implements VectorStore using Qdrant. Each namespace maps to
// its own Qdrant collection, so project isolation is enforced by the
// server rather than by metadata filters.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
	timeout   time.Duration
}

// NewQdrantStore creates a new Qdrant vector store client. Every request
// it issues carries a deadline of the given timeout.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) is derived from the HTTP port.
func NewQdrantStore(urlStr string, dimension int, timeout time.Duration) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &QdrantStore{
		client:    client,
		dimension: dimension,
		timeout:   timeout,
	}, nil
}

// withDeadline bounds one Qdrant round trip so a stalled server cannot
// hold a request open indefinitely.
func (s *QdrantStore) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureNamespace creates the namespace's collection if it does not exist,
// configured for cosine distance at the index dimension.
func (s *QdrantStore) EnsureNamespace(ctx context.Context, namespace string) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: namespace,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", namespace, err)
	}
	return nil
}

// Upsert inserts or overwrites entries by chunk ID within a namespace.
func (s *QdrantStore) Upsert(ctx context.Context, namespace string, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		if len(entry.Vector) != s.dimension {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(entry.Vector), s.dimension)
		}
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, entry := range entries {
		point := &qdrant.PointStruct{
			Id:      qdrant.NewID(entry.ChunkID),
			Vectors: qdrant.NewVectors(entry.Vector...),
		}
		if len(entry.Meta) > 0 {
			point.Payload = qdrant.NewValueMap(entry.Meta)
		}
		points = append(points, point)
	}

	upsertCtx, cancel := s.withDeadline(ctx)
	defer cancel()
	_, err := s.client.Upsert(upsertCtx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "namespace", namespace, "count", len(entries), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "namespace", namespace, "count", len(entries))
	return nil
}

// Query performs a similarity search scoped to one namespace.
func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be a positive integer, got %d", ErrInvalidArgument, k)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	limit := uint64(k)
	queryCtx, cancel := s.withDeadline(ctx)
	defer cancel()
	scoredPoints, err := s.client.Query(queryCtx, &qdrant.QueryPoints{
		CollectionName: namespace,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to query points", "namespace", namespace, "k", k, "error", err)
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	matches := make([]Match, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		chunkID := ""
		if point.Id != nil {
			chunkID = point.Id.GetUuid()
		}
		meta := make(map[string]any)
		if point.Payload != nil {
			meta = convertPayloadToMap(point.Payload)
		}
		// Qdrant reports raw cosine similarity in [-1,1].
		matches = append(matches, newMatch(chunkID, NormalizeScore(point.Score), meta))
	}

	SortMatches(matches)
	logger.DebugContext(ctx, "query completed", "namespace", namespace, "k", k, "results", len(matches))
	return matches, nil
}

// QueryAll performs a federated search across every project namespace.
//
// This fans out one query per namespace and merges the results, an
// O(namespaces x per-namespace query) operation. A production deployment
// at scale would keep a single collection with per-entry namespace tags to
// avoid N round trips; the per-collection layout is kept here because
// hard namespace isolation is a correctness requirement.
func (s *QdrantStore) QueryAll(ctx context.Context, vector []float32, k int) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be a positive integer, got %d", ErrInvalidArgument, k)
	}

	listCtx, cancel := s.withDeadline(ctx)
	defer cancel()
	collections, err := s.client.ListCollections(listCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var (
		mu  sync.Mutex
		all []Match
		wg  sync.WaitGroup
	)
	for _, namespace := range collections {
		if !IsProjectNamespace(namespace) {
			continue
		}
		wg.Add(1)
		go func(namespace string) {
			defer wg.Done()
			matches, err := s.Query(ctx, namespace, vector, k)
			if err != nil {
				// A failed namespace contributes no matches; the rest of
				// the federated result still stands.
				logger.WarnContext(ctx, "federated query skipped namespace", "namespace", namespace, "error", err)
				return
			}
			mu.Lock()
			all = append(all, matches...)
			mu.Unlock()
		}(namespace)
	}
	wg.Wait()

	SortMatches(all)
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// DeleteDocument removes the given chunk IDs from a namespace.
func (s *QdrantStore) DeleteDocument(ctx context.Context, namespace string, chunkIDs []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunkIDs) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		ids = append(ids, qdrant.NewID(id))
	}

	deleteCtx, cancel := s.withDeadline(ctx)
	defer cancel()
	_, err := s.client.Delete(deleteCtx, &qdrant.DeletePoints{
		CollectionName: namespace,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "namespace", namespace, "count", len(chunkIDs), "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}

	logger.InfoContext(ctx, "deleted points", "namespace", namespace, "count", len(chunkIDs))
	return nil
}

// DeleteNamespace drops the namespace's collection entirely.
func (s *QdrantStore) DeleteNamespace(ctx context.Context, namespace string) error {
	logger := contextutil.LoggerFromContext(ctx)

	dropCtx, cancel := s.withDeadline(ctx)
	defer cancel()
	if err := s.client.DeleteCollection(dropCtx, namespace); err != nil {
		logger.ErrorContext(ctx, "failed to delete collection", "namespace", namespace, "error", err)
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	logger.InfoContext(ctx, "deleted namespace", "namespace", namespace)
	return nil
}

// Ping checks that the Qdrant server is reachable.
func (s *QdrantStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// convertPayloadToMap converts a Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
