package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/rsaito/github-compare/internal/domain"
)

var testID = domain.Identifier{Owner: "octo", Name: "demo"}

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP
// server. Retry delays are shrunk so retry paths run instantly.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gateway := &GitHubGateway{
		client:        restClient,
		limiter:       rate.NewLimiter(rate.Inf, 0),
		logger:        logger,
		maxAttempts:   3,
		baseDelay:     time.Millisecond,
		maxDelay:      5 * time.Millisecond,
		acceptedDelay: time.Millisecond,
	}
	return gateway, server
}

func TestGitHubGateway_FetchMetadata(t *testing.T) {
	testCases := []struct {
		name         string
		handlerFunc  func(w http.ResponseWriter, r *http.Request)
		expected     domain.Metadata
		expectError  bool
		checkError   func(t *testing.T, err error)
		expectedHits int32
	}{
		{
			name: "happy path - maps repository fields",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.URL.Path, "/repos/octo/demo")
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `{
					"full_name": "octo/demo",
					"description": "a demo",
					"stargazers_count": 120,
					"forks_count": 7,
					"watchers_count": 120,
					"open_issues_count": 3,
					"language": "Go",
					"license": {"name": "MIT License"},
					"html_url": "https://github.com/octo/demo",
					"created_at": "2020-01-02T15:04:05Z",
					"updated_at": "2024-06-01T00:00:00Z"
				}`)
			},
			expected: domain.Metadata{
				FullName:    "octo/demo",
				Description: "a demo",
				Stars:       120,
				Forks:       7,
				Watchers:    120,
				OpenIssues:  3,
				Language:    "Go",
				License:     "MIT License",
				HTMLURL:     "https://github.com/octo/demo",
				CreatedAt:   time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC),
				UpdatedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			},
			expectedHits: 1,
		},
		{
			name: "not found - surfaces immediately without retry",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "Not Found"}`)
			},
			expectError: true,
			checkError: func(t *testing.T, err error) {
				assert.True(t, IsNotFound(err))
				var ferr *FetchError
				require.ErrorAs(t, err, &ferr)
				assert.Equal(t, testID, ferr.ID)
				assert.Equal(t, 1, ferr.Attempts)
			},
			expectedHits: 1,
		},
		{
			name: "unauthorized - surfaces immediately without retry",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"message": "Requires authentication"}`)
			},
			expectError: true,
			checkError: func(t *testing.T, err error) {
				assert.True(t, IsUnauthorized(err))
			},
			expectedHits: 1,
		},
		{
			name: "server errors - retries exhaust into a transient error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			},
			expectError: true,
			checkError: func(t *testing.T, err error) {
				assert.True(t, IsTransient(err))
				var ferr *FetchError
				require.ErrorAs(t, err, &ferr)
				assert.Equal(t, 3, ferr.Attempts)
			},
			expectedHits: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				tc.handlerFunc(w, r)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			meta, err := gateway.FetchMetadata(context.Background(), testID)
			if tc.expectError {
				require.Error(t, err)
				tc.checkError(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, meta)
			}
			assert.Equal(t, tc.expectedHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestGitHubGateway_RetryRecovers(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"full_name": "octo/demo", "stargazers_count": 1}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	meta, err := gateway.FetchMetadata(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "octo/demo", meta.FullName)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGitHubGateway_RetryOnRateLimit(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Unix()))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"full_name": "octo/demo"}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	meta, err := gateway.FetchMetadata(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "octo/demo", meta.FullName)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGitHubGateway_FetchContributors(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repos/octo/demo/contributors")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[
			{"login": "x", "contributions": 50},
			{"login": "y", "contributions": 10}
		]`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	contributors, err := gateway.FetchContributors(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Contributor{
		{Login: "x", Contributions: 50},
		{Login: "y", Contributions: 10},
	}, contributors)
}

func TestGitHubGateway_FetchCommitActivity(t *testing.T) {
	week1 := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)
	activityJSON := fmt.Sprintf(`[
		{"days": [0,1,2,0,1,0,1], "total": 5, "week": %d},
		{"days": [0,0,2,0,0,0,0], "total": 2, "week": %d}
	]`, week1.Unix(), week2.Unix())

	testCases := []struct {
		name         string
		acceptedHits int32
		expected     []domain.CommitWeek
		expectedHits int32
	}{
		{
			name:         "happy path - maps weekly totals",
			acceptedHits: 0,
			expected: []domain.CommitWeek{
				{WeekStart: week1, Commits: 5},
				{WeekStart: week2, Commits: 2},
			},
			expectedHits: 1,
		},
		{
			name:         "in progress once - succeeds on the extra attempt",
			acceptedHits: 1,
			expected: []domain.CommitWeek{
				{WeekStart: week1, Commits: 5},
				{WeekStart: week2, Commits: 2},
			},
			expectedHits: 2,
		},
		{
			name:         "in progress persists - falls back to an empty series",
			acceptedHits: 2,
			expected:     nil,
			expectedHits: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&hits, 1) <= tc.acceptedHits {
					w.WriteHeader(http.StatusAccepted)
					return
				}
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, activityJSON)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			weeks, err := gateway.FetchCommitActivity(context.Background(), testID)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, weeks)
			assert.Equal(t, tc.expectedHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestGitHubGateway_FetchLanguages(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repos/octo/demo/languages")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"Go": 800, "Python": 200}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	languages, err := gateway.FetchLanguages(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Go": 800, "Python": 200}, languages)
}

func TestGitHubGateway_FetchReadme(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repos/octo/demo/readme")
		w.WriteHeader(http.StatusOK)
		// "# demo" base64-encoded.
		fmt.Fprint(w, `{"type": "file", "encoding": "base64", "content": "IyBkZW1v"}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	readme, err := gateway.FetchReadme(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "# demo", readme)
}
