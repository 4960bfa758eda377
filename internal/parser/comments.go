// internal/parser/comments.go
package parser

import (
	"encoding/json"
	"fmt"

	"reddit-harvest/internal/models"
)

// FlattenComments walks a comment forest depth-first and returns a flat
// pre-order sequence: each comment is immediately followed by its own
// subtree, then by its next sibling. Depth 0 is a root reply; every child
// sits at its parent's depth + 1. "more" stubs are silently dropped, and an
// excluded author takes its whole subtree with it.
func (p *RedditParser) FlattenComments(children []models.RawChild) ([]models.Comment, error) {
	return p.flattenRecursive(children, 0)
}

func (p *RedditParser) flattenRecursive(children []models.RawChild, depth int) ([]models.Comment, error) {
	if depth > p.maxDepth {
		// Pathological nesting; cut the walk off rather than risk the stack.
		return nil, nil
	}

	var comments []models.Comment
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		if p.excluded[child.Data.Author] {
			continue
		}

		comments = append(comments, commentAt(child, depth))

		replies, err := decodeReplies(child.Data.Replies)
		if err != nil {
			return comments, err
		}
		if len(replies) == 0 {
			continue
		}

		sub, err := p.flattenRecursive(replies, depth+1)
		if err != nil {
			return append(comments, sub...), err
		}
		comments = append(comments, sub...)
	}

	return comments, nil
}

// FlattenCommentsIterative is the explicit-stack equivalent of
// FlattenComments. Siblings are pushed in reverse so pop order matches
// forward iteration, keeping the emission pre-order.
func (p *RedditParser) FlattenCommentsIterative(children []models.RawChild) ([]models.Comment, error) {
	type frame struct {
		child models.RawChild
		depth int
	}

	stack := make([]frame, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, frame{child: children[i], depth: 0})
	}

	var comments []models.Comment
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.child.Kind != "t1" {
			continue
		}
		if p.excluded[top.child.Data.Author] {
			continue
		}

		comments = append(comments, commentAt(top.child, top.depth))

		if top.depth >= p.maxDepth {
			continue
		}

		replies, err := decodeReplies(top.child.Data.Replies)
		if err != nil {
			return comments, err
		}
		for i := len(replies) - 1; i >= 0; i-- {
			stack = append(stack, frame{child: replies[i], depth: top.depth + 1})
		}
	}

	return comments, nil
}

func commentAt(child models.RawChild, depth int) models.Comment {
	return models.Comment{
		Author:      child.Data.Author,
		Body:        child.Data.Body,
		Score:       child.Data.Score,
		CreatedUTC:  int64(child.Data.CreatedUTC),
		Depth:       depth,
		IsSubmitter: child.Data.IsSubmitter,
	}
}

// decodeReplies unwraps the replies field. Leaves arrive as absent, the
// literal false, or an empty string; anything else must be a nested listing
// object or the payload shape is broken.
func decodeReplies(raw json.RawMessage) ([]models.RawChild, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch string(raw) {
	case "false", `""`, "null":
		return nil, nil
	}

	var replies struct {
		Data struct {
			Children []models.RawChild `json:"children"`
		} `json:"data"`
	}

	if err := json.Unmarshal(raw, &replies); err != nil {
		return nil, decodeErr(fmt.Errorf("parse replies JSON: %w", err))
	}

	return replies.Data.Children, nil
}
