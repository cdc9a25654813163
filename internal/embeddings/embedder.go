// Package embeddings provides text embedding backends and a query cache.
package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates one embedding per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder %s returned %d vectors for 1 text", e.Name(), len(vecs))
	}
	return vecs[0], nil
}

// checkDimensions verifies every vector has the advertised length.
func checkDimensions(name string, want int, vecs [][]float32) error {
	for i, v := range vecs {
		if len(v) != want {
			return fmt.Errorf("%s: embedding %d has %d dimensions, expected %d", name, i, len(v), want)
		}
	}
	return nil
}
