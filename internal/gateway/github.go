// Package gateway provides a gateway to the GitHub REST API with typed
// errors and a bounded retry policy for transient failures.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/rsaito/github-compare/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching one repository's
// sub-resources from GitHub. Each method targets an independent resource, so
// callers may issue them concurrently and merge the results by identifier.
type Fetcher interface {
	FetchMetadata(ctx context.Context, id domain.Identifier) (domain.Metadata, error)
	FetchContributors(ctx context.Context, id domain.Identifier) ([]domain.Contributor, error)
	FetchCommitActivity(ctx context.Context, id domain.Identifier) ([]domain.CommitWeek, error)
	FetchLanguages(ctx context.Context, id domain.Identifier) (map[string]int64, error)
	FetchReadme(ctx context.Context, id domain.Identifier) (string, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	client  *github.Client
	limiter *rate.Limiter
	logger  *logrus.Logger

	maxAttempts   int
	baseDelay     time.Duration
	maxDelay      time.Duration
	acceptedDelay time.Duration
}

// NewGitHubGateway creates a gateway authenticated with token. An empty token
// is valid and restricts results to public data at anonymous rate limits.
func NewGitHubGateway(token string, logger *logrus.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	var transport http.RoundTripper = rateLimitWaiter
	if token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	return &GitHubGateway{
		client: github.NewClient(&http.Client{
			Transport: transport,
			Timeout:   15 * time.Second,
		}),
		limiter:       rate.NewLimiter(rate.Every(150*time.Millisecond), 8),
		logger:        logger,
		maxAttempts:   3,
		baseDelay:     500 * time.Millisecond,
		maxDelay:      10 * time.Second,
		acceptedDelay: 2 * time.Second,
	}, nil
}

func (g *GitHubGateway) FetchMetadata(ctx context.Context, id domain.Identifier) (domain.Metadata, error) {
	var meta domain.Metadata
	err := g.withRetry(ctx, id, "metadata", func(ctx context.Context) error {
		repo, _, err := g.client.Repositories.Get(ctx, id.Owner, id.Name)
		if err != nil {
			return err
		}
		meta = domain.Metadata{
			FullName:    repo.GetFullName(),
			Description: repo.GetDescription(),
			Stars:       repo.GetStargazersCount(),
			Forks:       repo.GetForksCount(),
			Watchers:    repo.GetWatchersCount(),
			OpenIssues:  repo.GetOpenIssuesCount(),
			Language:    repo.GetLanguage(),
			License:     repo.GetLicense().GetName(),
			HTMLURL:     repo.GetHTMLURL(),
			CreatedAt:   repo.GetCreatedAt().Time,
			UpdatedAt:   repo.GetUpdatedAt().Time,
		}
		return nil
	})
	if err != nil {
		return domain.Metadata{}, err
	}
	return meta, nil
}

func (g *GitHubGateway) FetchContributors(ctx context.Context, id domain.Identifier) ([]domain.Contributor, error) {
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var contributors []domain.Contributor
	for {
		var page []*github.Contributor
		var resp *github.Response
		err := g.withRetry(ctx, id, "contributors", func(ctx context.Context) error {
			var err error
			page, resp, err = g.client.Repositories.ListContributors(ctx, id.Owner, id.Name, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			contributors = append(contributors, domain.Contributor{
				Login:         c.GetLogin(),
				Contributions: c.GetContributions(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return contributors, nil
}

// FetchCommitActivity fetches the weekly commit series. GitHub computes the
// statistics asynchronously and answers 202 until they are ready; that state
// gets one extra retry with a fixed delay and then degrades to an empty
// series rather than failing the fetch.
func (g *GitHubGateway) FetchCommitActivity(ctx context.Context, id domain.Identifier) ([]domain.CommitWeek, error) {
	weeks, err := g.commitActivity(ctx, id)
	var accepted *github.AcceptedError
	if !errors.As(err, &accepted) {
		return weeks, err
	}

	g.logger.WithField("repository", id.String()).Debug("Commit activity still computing, waiting for one more attempt")
	select {
	case <-time.After(g.acceptedDelay):
	case <-ctx.Done():
		return nil, &FetchError{Kind: KindTransient, ID: id, Resource: "commit_activity", Err: ctx.Err()}
	}

	weeks, err = g.commitActivity(ctx, id)
	if errors.As(err, &accepted) {
		g.logger.WithField("repository", id.String()).Warn("Commit activity unavailable, falling back to an empty series")
		return nil, nil
	}
	return weeks, err
}

func (g *GitHubGateway) commitActivity(ctx context.Context, id domain.Identifier) ([]domain.CommitWeek, error) {
	var weeks []domain.CommitWeek
	err := g.withRetry(ctx, id, "commit_activity", func(ctx context.Context) error {
		activity, _, err := g.client.Repositories.ListCommitActivity(ctx, id.Owner, id.Name)
		if err != nil {
			return err
		}
		weeks = make([]domain.CommitWeek, 0, len(activity))
		for _, week := range activity {
			weeks = append(weeks, domain.CommitWeek{
				WeekStart: week.GetWeek().Time.UTC(),
				Commits:   week.GetTotal(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return weeks, nil
}

func (g *GitHubGateway) FetchLanguages(ctx context.Context, id domain.Identifier) (map[string]int64, error) {
	var languages map[string]int64
	err := g.withRetry(ctx, id, "languages", func(ctx context.Context) error {
		byteCounts, _, err := g.client.Repositories.ListLanguages(ctx, id.Owner, id.Name)
		if err != nil {
			return err
		}
		languages = make(map[string]int64, len(byteCounts))
		for name, bytes := range byteCounts {
			languages[name] = int64(bytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return languages, nil
}

func (g *GitHubGateway) FetchReadme(ctx context.Context, id domain.Identifier) (string, error) {
	var readme string
	err := g.withRetry(ctx, id, "readme", func(ctx context.Context) error {
		content, _, err := g.client.Repositories.GetReadme(ctx, id.Owner, id.Name, nil)
		if err != nil {
			return err
		}
		readme, err = content.GetContent()
		return err
	})
	if err != nil {
		return "", err
	}
	return readme, nil
}

// withRetry runs call under the client-side pacer and retries rate-limited
// and transient failures with exponential backoff up to maxAttempts. All
// other failures, including a 202 from the statistics endpoints, propagate
// immediately. Exhausted retries surface as a transient error carrying the
// attempt count.
func (g *GitHubGateway) withRetry(ctx context.Context, id domain.Identifier, resource string, call func(context.Context) error) error {
	var lastErr *FetchError
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return &FetchError{Kind: KindTransient, ID: id, Resource: resource, Attempts: attempt, Err: err}
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			return err
		}

		ferr := classify(id, resource, err)
		ferr.Attempts = attempt
		if !ferr.retryable() {
			return ferr
		}
		lastErr = ferr
		if attempt == g.maxAttempts {
			break
		}

		delay := g.backoff(attempt, ferr.RetryAfter)
		g.logger.WithFields(logrus.Fields{
			"repository": id.String(),
			"resource":   resource,
			"kind":       ferr.Kind.String(),
			"attempt":    attempt,
			"delay":      delay.String(),
		}).Debug("Retrying fetch")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &FetchError{Kind: KindTransient, ID: id, Resource: resource, Attempts: attempt, Err: ctx.Err()}
		}
	}

	lastErr.Kind = KindTransient
	lastErr.Attempts = g.maxAttempts
	return lastErr
}

func (g *GitHubGateway) backoff(attempt int, retryAfter time.Duration) time.Duration {
	delay := g.baseDelay << (attempt - 1)
	if retryAfter > delay {
		delay = retryAfter
	}
	if delay > g.maxDelay {
		delay = g.maxDelay
	}
	return delay
}

// classify maps a go-github error onto the gateway's error taxonomy.
func classify(id domain.Identifier, resource string, err error) *FetchError {
	ferr := &FetchError{ID: id, Resource: resource, Err: err}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse
	switch {
	case errors.As(err, &rateErr):
		ferr.Kind = KindRateLimited
		if until := time.Until(rateErr.Rate.Reset.Time); until > 0 {
			ferr.RetryAfter = until
		}
	case errors.As(err, &abuseErr):
		ferr.Kind = KindRateLimited
		if abuseErr.RetryAfter != nil {
			ferr.RetryAfter = *abuseErr.RetryAfter
		}
	case errors.As(err, &respErr):
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			ferr.Kind = KindNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			ferr.Kind = KindUnauthorized
		case http.StatusTooManyRequests:
			ferr.Kind = KindRateLimited
		default:
			ferr.Kind = KindTransient
		}
	default:
		// Transport-level failure, e.g. a timeout or connection reset.
		ferr.Kind = KindTransient
	}
	return ferr
}
