// Package enricher implements the stage collaborators that talk to GitHub:
// the profile stage fetches the REST profile and top repositories, the
// social stage extracts and verifies social links.
package enricher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/levicap/github-scrapper/internal/core"
)

const (
	defaultBaseURL = "https://api.github.com"
	userAgent      = "github-scrapper"

	// topReposPerUser caps how many repositories are stored per profile.
	topReposPerUser = 5
)

var errRateLimited = errors.New("github rate limit exceeded")

// rateLimitError carries the server's Retry-After hint when one was sent.
type rateLimitError struct {
	retryAfter time.Duration
}

func (e *rateLimitError) Error() string { return errRateLimited.Error() }

func (e *rateLimitError) Is(target error) bool { return target == errRateLimited }

// TokenSource rotates through a set of GitHub API tokens. Rotation happens
// when a token hits its rate limit, spreading load across the set.
type TokenSource struct {
	mu     sync.Mutex
	tokens []string
	index  int
}

// NewTokenSource creates a TokenSource. An empty set is valid and yields
// unauthenticated requests.
func NewTokenSource(tokens []string) *TokenSource {
	return &TokenSource{tokens: tokens}
}

// Current returns the active token, or "" when the set is empty.
func (t *TokenSource) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tokens) == 0 {
		return ""
	}
	return t.tokens[t.index]
}

// Rotate advances to the next token and returns it.
func (t *TokenSource) Rotate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.tokens) == 0 {
		return ""
	}
	t.index = (t.index + 1) % len(t.tokens)
	slog.Info("rotated github token", "token_index", t.index+1, "token_count", len(t.tokens))
	return t.tokens[t.index]
}

// Len returns the number of tokens in the set.
func (t *TokenSource) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tokens)
}

// Client is a minimal GitHub REST v3 client with token rotation on rate
// limit responses.
type Client struct {
	httpClient *http.Client
	tokens     *TokenSource
	baseURL    string

	// rotationWait is the pause after rotating tokens on a rate limit.
	rotationWait time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root. Used by tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithRotationWait overrides the pause after a token rotation.
func WithRotationWait(d time.Duration) ClientOption {
	return func(c *Client) { c.rotationWait = d }
}

// NewClient creates a GitHub client over the token set.
func NewClient(tokens *TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokens:       tokens,
		baseURL:      defaultBaseURL,
		rotationWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type githubUser struct {
	Login           string     `json:"login"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Bio             string     `json:"bio"`
	Location        string     `json:"location"`
	Company         string     `json:"company"`
	Blog            string     `json:"blog"`
	TwitterUsername string     `json:"twitter_username"`
	Hireable        *bool      `json:"hireable"`
	Followers       int        `json:"followers"`
	Following       int        `json:"following"`
	PublicRepos     int        `json:"public_repos"`
	PublicGists     int        `json:"public_gists"`
	HTMLURL         string     `json:"html_url"`
	AvatarURL       string     `json:"avatar_url"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

type githubRepo struct {
	Name            string `json:"name"`
	StargazersCount int    `json:"stargazers_count"`
	Language        string `json:"language"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
}

// FetchProfile fetches a user's profile and most recently updated
// repositories.
func (c *Client) FetchProfile(ctx context.Context, username string) (*core.Profile, []core.Repository, error) {
	var user githubUser
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%s", username), &user); err != nil {
		return nil, nil, err
	}

	var rawRepos []githubRepo
	reposPath := fmt.Sprintf("/users/%s/repos?sort=updated&direction=desc&per_page=%d", username, topReposPerUser)
	if err := c.getJSON(ctx, reposPath, &rawRepos); err != nil {
		// Profile data alone is still a usable outcome.
		slog.Warn("failed to fetch repositories", "username", username, "error", err)
		rawRepos = nil
	}

	profile := &core.Profile{
		Name:            user.Name,
		Email:           user.Email,
		Bio:             user.Bio,
		Location:        user.Location,
		Company:         user.Company,
		Blog:            user.Blog,
		TwitterUsername: user.TwitterUsername,
		Hireable:        user.Hireable,
		Followers:       user.Followers,
		Following:       user.Following,
		PublicRepos:     user.PublicRepos,
		PublicGists:     user.PublicGists,
		ProfileURL:      user.HTMLURL,
		AvatarURL:       user.AvatarURL,
		GitHubCreatedAt: user.CreatedAt,
		GitHubUpdatedAt: user.UpdatedAt,
	}

	repos := make([]core.Repository, 0, len(rawRepos))
	for _, r := range rawRepos {
		repos = append(repos, core.Repository{
			Name:        r.Name,
			Stars:       r.StargazersCount,
			Language:    r.Language,
			URL:         r.HTMLURL,
			Description: r.Description,
		})
	}
	return profile, repos, nil
}

// getJSON performs a GET and decodes the response, rotating tokens and
// retrying once per token when rate limited.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	attempts := c.tokens.Len()
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		lastErr = c.doGet(ctx, path, out)
		if !errors.Is(lastErr, errRateLimited) {
			return lastErr
		}

		c.tokens.Rotate()
		wait := c.rotationWait
		var rle *rateLimitError
		if errors.As(lastErr, &rle) && rle.retryAfter > wait {
			wait = rle.retryAfter
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if token := c.tokens.Current(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return core.NewNotFoundError("github user", path)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return &rateLimitError{retryAfter: retryAfterHint(resp)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github returned %d for %s: %s", resp.StatusCode, path, body)
	}
}

// retryAfterHint reads the Retry-After or X-RateLimit-Reset header from a
// rate-limited response. Returns 0 when neither gives a usable wait.
func retryAfterHint(resp *http.Response) time.Duration {
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if raw := resp.Header.Get("X-RateLimit-Reset"); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)); d > 0 {
				return d
			}
		}
	}
	return 0
}

type searchUsersResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Login string `json:"login"`
	} `json:"items"`
}

// SearchUsernames runs a GitHub user search and returns up to limit logins,
// paging 100 at a time. GitHub caps search results at 1000 per query.
func (c *Client) SearchUsernames(ctx context.Context, query string, limit int) ([]string, error) {
	if query == "" {
		return nil, core.NewInvalidRequestError("search query must not be empty", nil)
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	var usernames []string
	for page := 1; len(usernames) < limit; page++ {
		path := fmt.Sprintf("/search/users?q=%s&per_page=100&page=%d", url.QueryEscape(query), page)
		var resp searchUsersResponse
		if err := c.getJSON(ctx, path, &resp); err != nil {
			return usernames, err
		}
		if len(resp.Items) == 0 {
			break
		}
		for _, item := range resp.Items {
			usernames = append(usernames, item.Login)
			if len(usernames) == limit {
				break
			}
		}
	}
	return usernames, nil
}

// FetchPage retrieves an arbitrary URL's body, capped at 256 KiB. The social
// stage uses it to scan blog pages for additional links.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(body), nil
}
