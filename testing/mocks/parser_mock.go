package mocks

import (
	"context"
	"encoding/json"

	"reddit-harvest/internal/models"
)

// MockParser implements parser.ParserInterface with pluggable function
// fields.
type MockParser struct {
	ParseSearchFunc     func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error)
	ParseThreadFunc     func(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error)
	FlattenCommentsFunc func(children []models.RawChild) ([]models.Comment, error)
}

func (m *MockParser) ParseSearch(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
	return m.ParseSearchFunc(ctx, data)
}

func (m *MockParser) ParseThread(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error) {
	return m.ParseThreadFunc(ctx, postData, commentData)
}

func (m *MockParser) FlattenComments(children []models.RawChild) ([]models.Comment, error) {
	if m.FlattenCommentsFunc != nil {
		return m.FlattenCommentsFunc(children)
	}
	return nil, nil
}
