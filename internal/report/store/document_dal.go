package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// DocumentDAL provides data access for report documents used in similarity
// search, and for the expert catalogue.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// SaveDocuments inserts generated subsections with their embeddings.
func (dal *DocumentDAL) SaveDocuments(ctx context.Context, docs []ReportDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return dal.db.WithContext(ctx).Create(&docs).Error
}

// ListDocuments returns all stored report documents. Similarity ranking runs
// in process over the decoded embeddings.
func (dal *DocumentDAL) ListDocuments(ctx context.Context) ([]*ReportDocument, error) {
	var docs []*ReportDocument
	if err := dal.db.WithContext(ctx).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// CreateExpert inserts a new expert.
func (dal *DocumentDAL) CreateExpert(ctx context.Context, expert *Expert) error {
	return dal.db.WithContext(ctx).Create(expert).Error
}

// ListExperts returns the full expert catalogue.
func (dal *DocumentDAL) ListExperts(ctx context.Context) ([]*Expert, error) {
	var experts []*Expert
	if err := dal.db.WithContext(ctx).Find(&experts).Error; err != nil {
		return nil, err
	}
	return experts, nil
}

// DecodeEmbedding converts a stored JSON embedding back to a vector.
func DecodeEmbedding(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, nil
}

// EncodeEmbedding converts a vector to its stored JSON form.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	return json.Marshal(vec)
}
