// internal/parser/interface.go
package parser

import (
	"context"
	"encoding/json"

	"reddit-harvest/internal/models"
)

type ParserInterface interface {
	ParseSearch(ctx context.Context, data json.RawMessage) ([]models.Post, string, error)
	ParseThread(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error)
	FlattenComments(children []models.RawChild) ([]models.Comment, error)
}
