package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/reviewloop/autorev/internal/adapter/httpx"
)

const (
	defaultBaseURL        = "https://api.github.com"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	serviceName           = "github"

	// maxPaginationPages bounds list traversal on PRs with thousands of
	// comments.
	maxPaginationPages = 10

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024 // 10 MB
)

// pathSegmentRegex validates that owner/repo names only contain safe
// characters.
var pathSegmentRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Client is an HTTP client for the GitHub pull-request APIs.
type Client struct {
	token      string
	baseURL    string
	graphqlURL string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
	logger     httpx.Logger
}

// NewClient creates a GitHub API client. The token should be a personal
// access token or GITHUB_TOKEN from Actions.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		graphqlURL: defaultBaseURL + "/graphql",
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			// Disable redirects so a pagination URL cannot bounce the
			// client to an internal endpoint.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		retryConf: httpx.RetryConfig{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetBaseURL sets a custom base URL (for testing or GitHub Enterprise).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
	c.graphqlURL = c.baseURL + "/graphql"
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetMaxRetries sets the maximum number of retry attempts.
func (c *Client) SetMaxRetries(maxRetries int) {
	c.retryConf.MaxRetries = maxRetries
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (c *Client) SetInitialBackoff(backoff time.Duration) {
	c.retryConf.InitialBackoff = backoff
}

// SetRetryConfig replaces the full retry configuration.
func (c *Client) SetRetryConfig(conf httpx.RetryConfig) {
	c.retryConf = conf
}

// SetLogger wires structured request/response logging.
func (c *Client) SetLogger(logger httpx.Logger) {
	c.logger = logger
}

// GetPullRequest fetches PR metadata including the head SHA.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (PullRequestInfo, error) {
	var pr PullRequestInfo
	if err := validateSegments(owner, repo); err != nil {
		return pr, err
	}
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	err := c.getJSON(ctx, "get_pull_request", u, &pr)
	return pr, err
}

// ListFiles returns the PR's changed files with their unified-diff
// patches, following pagination.
func (c *Client) ListFiles(ctx context.Context, owner, repo string, number int) ([]FileEntry, error) {
	if err := validateSegments(owner, repo); err != nil {
		return nil, err
	}
	first := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=100", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	var all []FileEntry
	err := c.paginate(ctx, "list_files", first, func(body []byte) error {
		var page []FileEntry
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		all = append(all, page...)
		return nil
	})
	return all, err
}

// ListReviewComments returns all inline review comments on the PR.
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]ReviewCommentEntry, error) {
	if err := validateSegments(owner, repo); err != nil {
		return nil, err
	}
	first := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments?per_page=100", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	var all []ReviewCommentEntry
	err := c.paginate(ctx, "list_review_comments", first, func(body []byte) error {
		var page []ReviewCommentEntry
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		all = append(all, page...)
		return nil
	})
	return all, err
}

// ListIssueComments returns PR-level (issue) comments.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]IssueCommentEntry, error) {
	if err := validateSegments(owner, repo); err != nil {
		return nil, err
	}
	first := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments?per_page=100", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	var all []IssueCommentEntry
	err := c.paginate(ctx, "list_issue_comments", first, func(body []byte) error {
		var page []IssueCommentEntry
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		all = append(all, page...)
		return nil
	})
	return all, err
}

// CreateReviewComment posts one inline comment via the single-comment API.
func (c *Client) CreateReviewComment(ctx context.Context, owner, repo string, number int, payload CommentPayload) error {
	if err := validateSegments(owner, repo); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	return c.send(ctx, "create_review_comment", http.MethodPost, u, payload, nil)
}

// CreateIssueComment posts a PR-level comment (used for the run summary).
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	if err := validateSegments(owner, repo); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number)
	return c.send(ctx, "create_issue_comment", http.MethodPost, u, map[string]string{"body": body}, nil)
}

// DeleteIssueComment removes a PR-level comment by id.
func (c *Client) DeleteIssueComment(ctx context.Context, owner, repo string, commentID int64) error {
	if err := validateSegments(owner, repo); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/repos/%s/%s/issues/comments/%d", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), commentID)
	return c.send(ctx, "delete_issue_comment", http.MethodDelete, u, nil, nil)
}

// reviewThreadsQuery fetches resolved-aware review threads. Thread
// resolution is only exposed by the GraphQL API.
const reviewThreadsQuery = `query($owner: String!, $repo: String!, $number: Int!, $cursor: String) {
  repository(owner: $owner, name: $repo) {
    pullRequest(number: $number) {
      reviewThreads(first: 100, after: $cursor) {
        pageInfo { hasNextPage endCursor }
        nodes {
          isResolved
          path
          line
          diffSide
          comments(first: 1) {
            nodes { body author { login } }
          }
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type reviewThreadsResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						IsResolved bool   `json:"isResolved"`
						Path       string `json:"path"`
						Line       int    `json:"line"`
						DiffSide   string `json:"diffSide"`
						Comments   struct {
							Nodes []struct {
								Body   string `json:"body"`
								Author struct {
									Login string `json:"login"`
								} `json:"author"`
							} `json:"nodes"`
						} `json:"comments"`
					} `json:"nodes"`
				} `json:"reviewThreads"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ListReviewThreads returns all review threads with resolution state.
func (c *Client) ListReviewThreads(ctx context.Context, owner, repo string, number int) ([]ReviewThread, error) {
	if err := validateSegments(owner, repo); err != nil {
		return nil, err
	}

	var threads []ReviewThread
	cursor := ""
	for page := 0; page < maxPaginationPages; page++ {
		vars := map[string]interface{}{
			"owner":  owner,
			"repo":   repo,
			"number": number,
		}
		if cursor != "" {
			vars["cursor"] = cursor
		}

		var resp reviewThreadsResponse
		err := c.send(ctx, "list_review_threads", http.MethodPost, c.graphqlURL, graphqlRequest{
			Query:     reviewThreadsQuery,
			Variables: vars,
		}, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.Errors) > 0 {
			return nil, &httpx.Error{
				Type:    httpx.ErrTypeInvalidRequest,
				Message: resp.Errors[0].Message,
				Service: serviceName,
			}
		}

		conn := resp.Data.Repository.PullRequest.ReviewThreads
		for _, node := range conn.Nodes {
			t := ReviewThread{
				IsResolved: node.IsResolved,
				Path:       node.Path,
				Line:       node.Line,
				Side:       node.DiffSide,
			}
			if len(node.Comments.Nodes) > 0 {
				t.FirstBody = node.Comments.Nodes[0].Body
				t.FirstAuthor = node.Comments.Nodes[0].Author.Login
			}
			threads = append(threads, t)
		}
		if !conn.PageInfo.HasNextPage {
			return threads, nil
		}
		cursor = conn.PageInfo.EndCursor
	}
	return nil, fmt.Errorf("pagination limit exceeded (%d pages)", maxPaginationPages)
}

// getJSON executes a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, operation, rawURL string, out interface{}) error {
	return c.send(ctx, operation, http.MethodGet, rawURL, nil, out)
}

// send executes one request with retry, decoding the response into out
// when non-nil.
func (c *Client) send(ctx context.Context, operation, method, rawURL string, payload, out interface{}) error {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	return httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		respBody, _, err := c.doOnce(ctx, operation, method, rawURL, bodyBytes)
		if err != nil {
			return err
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}, c.retryConf)
}

// paginate walks a REST list endpoint via Link headers with loop and page
// protections, handing each page body to collect.
func (c *Client) paginate(ctx context.Context, operation, first string, collect func(body []byte) error) error {
	visited := make(map[string]bool)
	next := first
	for page := 0; next != ""; page++ {
		if page >= maxPaginationPages {
			return fmt.Errorf("pagination limit exceeded (%d pages)", maxPaginationPages)
		}
		if visited[next] {
			return fmt.Errorf("pagination loop detected: URL already visited")
		}
		visited[next] = true

		var pageBody []byte
		var link string
		err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
			body, headers, err := c.doOnce(ctx, operation, http.MethodGet, next, nil)
			if err != nil {
				return err
			}
			pageBody = body
			link = headers.Get("Link")
			return nil
		}, c.retryConf)
		if err != nil {
			return err
		}
		if err := collect(pageBody); err != nil {
			return fmt.Errorf("decode page: %w", err)
		}

		next = parseNextLink(link)
		if next != "" {
			resolved, err := c.validatePaginationURL(next)
			if err != nil {
				return fmt.Errorf("unsafe pagination URL in Link header: %w", err)
			}
			next = resolved
		}
	}
	return nil
}

// doOnce executes a single HTTP round trip and maps failures to typed
// errors.
func (c *Client) doOnce(ctx context.Context, operation, method, rawURL string, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, nil, &httpx.Error{Type: httpx.ErrTypeUnknown, Message: err.Error(), Service: serviceName}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	if c.logger != nil {
		c.logger.LogRequest(ctx, httpx.RequestLog{
			Service:     serviceName,
			Operation:   operation,
			Timestamp:   start,
			PayloadSize: len(body),
			Credential:  c.token,
		})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		httpErr := &httpx.Error{Type: httpx.ErrTypeTimeout, Message: err.Error(), Retryable: true, Service: serviceName}
		c.logError(ctx, operation, start, httpErr)
		return nil, nil, httpErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		httpErr := &httpx.Error{Type: httpx.ErrTypeUnknown, Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode, Service: serviceName}
		c.logError(ctx, operation, start, httpErr)
		return nil, nil, httpErr
	}

	if resp.StatusCode >= 400 {
		message := resp.Status
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		httpErr := httpx.MapStatus(serviceName, resp.StatusCode, message)
		c.logError(ctx, operation, start, httpErr)
		return nil, nil, httpErr
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, httpx.ResponseLog{
			Service:    serviceName,
			Operation:  operation,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			StatusCode: resp.StatusCode,
		})
	}
	return respBody, resp.Header, nil
}

func (c *Client) logError(ctx context.Context, operation string, start time.Time, err *httpx.Error) {
	if c.logger == nil {
		return
	}
	c.logger.LogError(ctx, httpx.ErrorLog{
		Service:    serviceName,
		Operation:  operation,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
		Error:      err,
		ErrorType:  err.Type,
		StatusCode: err.StatusCode,
		Retryable:  err.Retryable,
	})
}

// validatePaginationURL ensures a Link-header URL stays on the configured
// API host.
func (c *Client) validatePaginationURL(raw string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Host != base.Host {
		return "", fmt.Errorf("host %q does not match API host %q", parsed.Host, base.Host)
	}
	if parsed.Scheme != base.Scheme {
		return "", fmt.Errorf("scheme %q does not match API scheme %q", parsed.Scheme, base.Scheme)
	}
	return parsed.String(), nil
}

// parseNextLink extracts the rel="next" URL from a Link header.
func parseNextLink(link string) string {
	for _, part := range strings.Split(link, ",") {
		section := strings.Split(strings.TrimSpace(part), ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		u := strings.TrimSpace(section[0])
		u = strings.TrimPrefix(u, "<")
		return strings.TrimSuffix(u, ">")
	}
	return ""
}

func validateSegments(owner, repo string) error {
	for name, value := range map[string]string{"owner": owner, "repo": repo} {
		if !pathSegmentRegex.MatchString(value) || strings.Contains(value, "..") {
			return fmt.Errorf("invalid %s: %q", name, value)
		}
	}
	return nil
}
