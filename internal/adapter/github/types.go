// Package github is the hosting-platform adapter: a REST/GraphQL client
// for the pull-request endpoints the pipeline needs, plus the mapping
// between API payloads and domain types.
package github

// API payload types for the GitHub pull-request endpoints.
// See: https://docs.github.com/en/rest/pulls

// PullRequestInfo is the subset of GET /pulls/{number} the pipeline reads.
type PullRequestInfo struct {
	Number int `json:"number"`
	Head   struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

// FileEntry is one entry of GET /pulls/{number}/files.
type FileEntry struct {
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previous_filename,omitempty"`
	Status           string `json:"status"`
	Patch            string `json:"patch,omitempty"`
}

// ReviewCommentEntry is one inline review comment from
// GET /pulls/{number}/comments.
type ReviewCommentEntry struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	Line         int    `json:"line"`
	OriginalLine int    `json:"original_line"`
	Side         string `json:"side"`
	Body         string `json:"body"`
	User         User   `json:"user"`
}

// IssueCommentEntry is one PR-level comment from
// GET /issues/{number}/comments.
type IssueCommentEntry struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
	User User   `json:"user"`
}

// User represents a GitHub user in API responses.
type User struct {
	Login string `json:"login"`
	Type  string `json:"type"` // "User" or "Bot"
}

// CommentPayload is the request body for
// POST /pulls/{number}/comments (single-comment API). StartLine and
// StartSide are present only for multi-line comments.
type CommentPayload struct {
	Body      string `json:"body"`
	CommitID  string `json:"commit_id"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Side      string `json:"side"`
	StartLine int    `json:"start_line,omitempty"`
	StartSide string `json:"start_side,omitempty"`
}

// ReviewThread is one resolved-aware review thread from the GraphQL
// reviewThreads connection. The REST API does not expose thread
// resolution, so prior-finding reconstruction goes through GraphQL.
type ReviewThread struct {
	IsResolved bool
	Path       string
	Line       int
	Side       string
	// FirstBody is the thread's root comment body, which carries the
	// finding marker when the thread was created by this tool.
	FirstBody   string
	FirstAuthor string
}

// errorResponse represents an error response from the GitHub API.
type errorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
