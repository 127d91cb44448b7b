package vectorstore

import "context"

// Vector is one embedded chunk to index. Metadata travels with the vector
// and comes back on matches, so callers can rebuild chunks from a query
// without a secondary lookup.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

type VectorMatch struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Store is the vector index used for upload search. Namespaces isolate
// tenants; implementations qualify them with a deployment prefix.
type Store interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
}
