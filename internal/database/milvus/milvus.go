package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"planform/internal/config"
)

// Client wraps a Milvus connection together with the embedding dimension all
// collections are created with.
type Client struct {
	Client client.Client
	Dim    int
}

// NewClient connects to Milvus using the configured address.
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	return &Client{Client: c, Dim: cfg.Dim}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c != nil && c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck lists collections to verify the connection.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("milvus client not initialized")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection creates the named collection with the standard synopsis
// schema if it does not exist, builds its index and loads it into memory.
// Fields: id (VarChar primary key), synopsis (VarChar) and embedding
// (FloatVector of the configured dimension).
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	exists, err := c.Client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", name, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(name).
			WithDescription("synopsis embeddings keyed by content id").
			WithField(entity.NewField().
				WithName("id").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(64).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName("synopsis").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(65535)).
			WithField(entity.NewField().
				WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(c.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", name, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.L2, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, name, "embedding", idx, false); err != nil {
			return fmt.Errorf("failed to create index on collection %q: %w", name, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", name, err)
	}
	return nil
}
