// internal/parser/parser.go
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reddit-harvest/internal/models"
	"reddit-harvest/pkg/utils"
)

const createdDateLayout = "2006-01-02 15:04:05"

// RedditParser projects raw listing payloads into domain records and
// flattens comment trees. Authors in the exclusion set are never
// materialized; their subtrees are dropped with them.
type RedditParser struct {
	excluded map[string]bool
	maxDepth int
	postURL  func(permalink string) string
}

// NewRedditParser builds a parser with the given excluded-author set
// (exact string match) and recursion depth guard. postURL turns a listing
// permalink into a full post URL; pass the client's builder so emitted URLs
// follow the configured base host. nil falls back to old.reddit.com.
func NewRedditParser(excludedAuthors []string, maxDepth int, postURL func(permalink string) string) *RedditParser {
	excluded := make(map[string]bool, len(excludedAuthors))
	for _, a := range excludedAuthors {
		excluded[a] = true
	}
	if maxDepth <= 0 {
		maxDepth = 200
	}
	if postURL == nil {
		postURL = func(permalink string) string {
			return "https://old.reddit.com" + permalink
		}
	}
	return &RedditParser{excluded: excluded, maxDepth: maxDepth, postURL: postURL}
}

func decodeErr(err error) error {
	return &utils.FetchError{Kind: utils.FailureDecode, Err: err}
}

// ParseSearch extracts the posts and the continuation cursor from one page
// of a search listing. An empty cursor means the listing is exhausted.
func (p *RedditParser) ParseSearch(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
	var listing struct {
		Data struct {
			Children []models.RawChild `json:"children"`
			After    string            `json:"after"`
		} `json:"data"`
	}

	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, "", decodeErr(fmt.Errorf("parse search JSON: %w", err))
	}

	var posts []models.Post
	for _, child := range listing.Data.Children {
		if ctx.Err() != nil {
			return posts, "", ctx.Err()
		}
		if child.Kind != "t3" {
			continue
		}
		posts = append(posts, p.projectPost(child))
	}

	return posts, listing.Data.After, nil
}

func (p *RedditParser) projectPost(child models.RawChild) models.Post {
	createdUTC := int64(child.Data.CreatedUTC)

	return models.Post{
		ID:            child.Data.ID,
		Title:         child.Data.Title,
		Author:        child.Data.Author,
		Score:         child.Data.Score,
		NumComments:   child.Data.NumComments,
		CreatedUTC:    createdUTC,
		CreatedDate:   time.Unix(createdUTC, 0).Format(createdDateLayout),
		Selftext:      child.Data.Selftext,
		URL:           p.postURL(child.Data.Permalink),
		LinkFlairText: child.Data.LinkFlairText,
	}
}

// ParseThread builds a ThreadArchive from the two listing blocks of a
// thread payload: block 0 describes the post, block 1 the comment tree.
func (p *RedditParser) ParseThread(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error) {
	var postBlock struct {
		Data struct {
			Children []models.RawChild `json:"children"`
		} `json:"data"`
	}

	if err := json.Unmarshal(postData, &postBlock); err != nil {
		return models.ThreadArchive{}, decodeErr(fmt.Errorf("parse post JSON: %w", err))
	}

	if len(postBlock.Data.Children) == 0 {
		return models.ThreadArchive{}, decodeErr(fmt.Errorf("post block has no children"))
	}

	pd := postBlock.Data.Children[0].Data
	archive := models.ThreadArchive{
		PostID: pd.ID,
		PostInfo: models.PostInfo{
			Title:       pd.Title,
			Selftext:    pd.Selftext,
			Score:       pd.Score,
			NumComments: pd.NumComments,
		},
	}

	if len(commentData) == 0 {
		return archive, nil
	}

	var commentsBlock struct {
		Data struct {
			Children []models.RawChild `json:"children"`
		} `json:"data"`
	}

	if err := json.Unmarshal(commentData, &commentsBlock); err != nil {
		return archive, decodeErr(fmt.Errorf("parse comments JSON: %w", err))
	}

	comments, err := p.FlattenComments(commentsBlock.Data.Children)
	if err != nil {
		return archive, fmt.Errorf("flatten comments: %w", err)
	}
	if ctx.Err() != nil {
		return archive, ctx.Err()
	}

	archive.Comments = comments
	return archive, nil
}
