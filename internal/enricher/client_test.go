package enricher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/levicap/github-scrapper/internal/core"
)

const userFixture = `{
	"login": "gopher",
	"name": "Go Pher",
	"email": "gopher@example.com",
	"bio": "I write Go. Find me on twitter.com/gopher",
	"blog": "gopher.dev",
	"twitter_username": "gopher",
	"hireable": true,
	"followers": 120,
	"following": 5,
	"public_repos": 30,
	"public_gists": 2,
	"html_url": "https://github.com/gopher",
	"avatar_url": "https://avatars.example.com/gopher"
}`

const reposFixture = `[
	{"name": "alpha", "stargazers_count": 42, "language": "Go", "html_url": "https://github.com/gopher/alpha", "description": "first"},
	{"name": "beta", "stargazers_count": 7, "language": "", "html_url": "https://github.com/gopher/beta", "description": ""}
]`

func TestFetchProfile(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/users/gopher":
			fmt.Fprint(w, userFixture)
		case "/users/gopher/repos":
			if got := r.URL.Query().Get("per_page"); got != "5" {
				t.Errorf("repos per_page = %q, want 5", got)
			}
			fmt.Fprint(w, reposFixture)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(NewTokenSource([]string{"token-1"}), WithBaseURL(srv.URL))

	profile, repos, err := client.FetchProfile(context.Background(), "gopher")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if gotAuth != "Bearer token-1" {
		t.Errorf("Authorization = %q, want Bearer token-1", gotAuth)
	}
	if profile.Name != "Go Pher" || profile.Followers != 120 {
		t.Errorf("profile = %+v", profile)
	}
	if profile.Hireable == nil || !*profile.Hireable {
		t.Error("hireable flag lost")
	}
	if len(repos) != 2 || repos[0].Name != "alpha" || repos[0].Stars != 42 {
		t.Errorf("repos = %+v", repos)
	}
}

func TestFetchProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(NewTokenSource(nil), WithBaseURL(srv.URL))

	_, _, err := client.FetchProfile(context.Background(), "ghost")
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Code != core.ErrCodeNotFound {
		t.Fatalf("FetchProfile() error = %v, want not_found", err)
	}
}

func TestFetchProfileRotatesTokensOnRateLimit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/users/gopher":
			fmt.Fprint(w, userFixture)
		case "/users/gopher/repos":
			fmt.Fprint(w, reposFixture)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tokens := NewTokenSource([]string{"token-1", "token-2"})
	client := NewClient(tokens, WithBaseURL(srv.URL), WithRotationWait(time.Millisecond))

	profile, _, err := client.FetchProfile(context.Background(), "gopher")
	if err != nil {
		t.Fatalf("FetchProfile() after rate limit error = %v", err)
	}
	if profile.Name != "Go Pher" {
		t.Errorf("profile.Name = %q", profile.Name)
	}
	if tokens.Current() != "token-2" {
		t.Errorf("active token = %q, want token-2 after rotation", tokens.Current())
	}
}

func TestFetchProfileGivesUpWhenEveryTokenIsLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(NewTokenSource([]string{"a", "b"}), WithBaseURL(srv.URL), WithRotationWait(time.Millisecond))

	_, _, err := client.FetchProfile(context.Background(), "gopher")
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("FetchProfile() error = %v, want rate limit", err)
	}
}

func TestRetryAfterHint(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	if got := retryAfterHint(resp); got != 0 {
		t.Errorf("hint without headers = %v, want 0", got)
	}

	resp.Header.Set("Retry-After", "30")
	if got := retryAfterHint(resp); got != 30*time.Second {
		t.Errorf("Retry-After hint = %v, want 30s", got)
	}

	resp.Header.Del("Retry-After")
	resp.Header.Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Minute).Unix()))
	if got := retryAfterHint(resp); got <= 50*time.Second || got > time.Minute {
		t.Errorf("X-RateLimit-Reset hint = %v, want just under 1m", got)
	}

	resp.Header.Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(-time.Minute).Unix()))
	if got := retryAfterHint(resp); got != 0 {
		t.Errorf("past reset hint = %v, want 0", got)
	}
}

func TestTokenSourceRotation(t *testing.T) {
	tokens := NewTokenSource([]string{"a", "b", "c"})
	if tokens.Current() != "a" {
		t.Fatalf("Current() = %q, want a", tokens.Current())
	}
	if got := tokens.Rotate(); got != "b" {
		t.Fatalf("Rotate() = %q, want b", got)
	}
	tokens.Rotate()
	if got := tokens.Rotate(); got != "a" {
		t.Fatalf("Rotate() wrapped to %q, want a", got)
	}

	empty := NewTokenSource(nil)
	if empty.Current() != "" || empty.Rotate() != "" {
		t.Error("empty token source should yield empty tokens")
	}
}

func TestSearchUsernamesPagesUntilLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/users" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("q"); got != "location:berlin" {
			t.Errorf("q = %q, want location:berlin", got)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"total_count": 150, "items": [`+searchItems(0, 100)+`]}`)
		case "2":
			fmt.Fprint(w, `{"total_count": 150, "items": [`+searchItems(100, 50)+`]}`)
		default:
			fmt.Fprint(w, `{"total_count": 150, "items": []}`)
		}
	}))
	defer srv.Close()

	client := NewClient(NewTokenSource(nil), WithBaseURL(srv.URL))

	usernames, err := client.SearchUsernames(context.Background(), "location:berlin", 120)
	if err != nil {
		t.Fatalf("SearchUsernames() error = %v", err)
	}
	if len(usernames) != 120 {
		t.Fatalf("len(usernames) = %d, want 120", len(usernames))
	}
	if usernames[0] != "user-0" || usernames[119] != "user-119" {
		t.Errorf("usernames = [%s ... %s]", usernames[0], usernames[119])
	}
}

func TestSearchUsernamesStopsOnEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `{"total_count": 2, "items": [{"login": "gopher"}, {"login": "ferris"}]}`)
			return
		}
		fmt.Fprint(w, `{"total_count": 2, "items": []}`)
	}))
	defer srv.Close()

	client := NewClient(NewTokenSource(nil), WithBaseURL(srv.URL))

	usernames, err := client.SearchUsernames(context.Background(), "gopher", 500)
	if err != nil {
		t.Fatalf("SearchUsernames() error = %v", err)
	}
	if len(usernames) != 2 || usernames[0] != "gopher" {
		t.Errorf("usernames = %v", usernames)
	}
}

func TestSearchUsernamesRejectsEmptyQuery(t *testing.T) {
	client := NewClient(NewTokenSource(nil))

	_, err := client.SearchUsernames(context.Background(), "", 10)
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Code != core.ErrCodeInvalidRequest {
		t.Fatalf("SearchUsernames() error = %v, want invalid_request", err)
	}
}

func searchItems(start, n int) string {
	items := make([]string, 0, n)
	for i := start; i < start+n; i++ {
		items = append(items, fmt.Sprintf(`{"login": "user-%d"}`, i))
	}
	return strings.Join(items, ",")
}

func TestProfileEnricherProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/gopher":
			fmt.Fprint(w, userFixture)
		case "/users/gopher/repos":
			fmt.Fprint(w, reposFixture)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := NewProfileEnricher(NewClient(NewTokenSource(nil), WithBaseURL(srv.URL)))

	enr, err := e.Process(context.Background(), core.Unit{Username: "gopher"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if enr.Profile == nil || enr.Profile.Email != "gopher@example.com" {
		t.Fatalf("profile payload = %+v", enr.Profile)
	}
	if len(enr.Repos) != 2 {
		t.Fatalf("repos = %+v", enr.Repos)
	}

	links := linkMap(enr.Social)
	if links["twitter"] != "https://twitter.com/gopher" {
		t.Errorf("twitter link = %q", links["twitter"])
	}
}
