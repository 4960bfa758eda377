package models

import "encoding/json"

// Post is one search hit, projected from the Reddit listing payload.
// Immutable once built; identity is ID.
type Post struct {
	// Reddit post ID (base36, without the t3_ prefix)
	ID string `json:"id"`
	// Post title
	Title string `json:"title"`
	// Author's username
	Author string `json:"author"`
	// Post score (upvotes minus downvotes, may be negative)
	Score int `json:"score"`
	// Number of comments reported by the listing
	NumComments int `json:"num_comments"`
	// Creation time as a unix timestamp
	CreatedUTC int64 `json:"created_utc"`
	// Creation time formatted for humans ("2006-01-02 15:04:05")
	CreatedDate string `json:"created_date"`
	// Self-post body, empty for link posts
	Selftext string `json:"selftext"`
	// Full URL to the post
	URL string `json:"url"`
	// Post flair text
	LinkFlairText string `json:"link_flair_text"`
}

// Comment is a single comment record. In a flattened sequence Depth carries
// the nesting level (root replies are depth 0) and Replies is nil; in a
// nested archive Replies holds the subtree in source order.
type Comment struct {
	Author      string    `json:"author"`
	Body        string    `json:"body"`
	Score       int       `json:"score"`
	CreatedUTC  int64     `json:"created_utc"`
	Depth       int       `json:"depth"`
	IsSubmitter bool      `json:"is_submitter"`
	Replies     []Comment `json:"replies,omitempty"`
}

// PostInfo is the summary block stored next to a thread's comments.
type PostInfo struct {
	Title       string `json:"title"`
	Selftext    string `json:"selftext"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
}

// ThreadArchive is one post plus its flattened comment sequence.
type ThreadArchive struct {
	PostID   string    `json:"post_id"`
	PostInfo PostInfo  `json:"post_info"`
	Comments []Comment `json:"comments"`
}

// StopReason records why a paginated search stopped. Exhausted and limit
// stops are clean finishes; a fetch stop means partial results.
type StopReason string

const (
	// StopReasonExhausted - the listing ran out of pages or records.
	StopReasonExhausted StopReason = "exhausted"
	// StopReasonLimit - the caller-supplied limit was reached.
	StopReasonLimit StopReason = "limit"
	// StopReasonFetch - a page fetch failed after retries.
	StopReasonFetch StopReason = "fetch_error"
	// StopReasonCanceled - the context was canceled mid-search.
	StopReasonCanceled StopReason = "canceled"
	// StopReasonMaxPages - the pagination safety cap tripped before the
	// listing was exhausted.
	StopReasonMaxPages StopReason = "max_pages"
)

// SearchResult holds the posts accumulated by one search invocation
// together with the reason pagination stopped.
type SearchResult struct {
	Subreddit  string     `json:"subreddit"`
	Query      string     `json:"query"`
	Posts      []Post     `json:"posts"`
	StopReason StopReason `json:"stop_reason"`
}

// Complete reports whether the search finished without an error stop.
func (r SearchResult) Complete() bool {
	return r.StopReason != StopReasonFetch && r.StopReason != StopReasonCanceled
}

// TermCount is the per-query tally inside a harvest report.
type TermCount struct {
	Query      string     `json:"query"`
	Found      int        `json:"found"`
	New        int        `json:"new"`
	StopReason StopReason `json:"stop_reason"`
}

// HarvestReport summarizes one harvester run across all search terms.
type HarvestReport struct {
	RunID       string      `json:"run_id"`
	Subreddit   string      `json:"subreddit"`
	Terms       []TermCount `json:"terms"`
	UniquePosts int         `json:"unique_posts"`
	Complete    bool        `json:"complete"`
}

// RawChild is the raw {kind, data} wrapper used while parsing listings and
// comment trees. Replies stays raw because Reddit sends either a nested
// listing object or the literal false / "" for leaves.
type RawChild struct {
	Kind string `json:"kind"`
	Data struct {
		ID            string          `json:"id"`
		Title         string          `json:"title"`
		Author        string          `json:"author"`
		Body          string          `json:"body"`
		Selftext      string          `json:"selftext"`
		Score         int             `json:"score"`
		NumComments   int             `json:"num_comments"`
		CreatedUTC    float64         `json:"created_utc"`
		LinkFlairText string          `json:"link_flair_text"`
		Permalink     string          `json:"permalink"`
		IsSubmitter   bool            `json:"is_submitter"`
		Replies       json.RawMessage `json:"replies"`
	} `json:"data"`
}
