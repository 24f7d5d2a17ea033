// Package usecase contains the business logic of the application.
package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/montanaflynn/stats"

	"github.com/rsaito/github-compare/internal/domain"
)

const (
	defaultTopContributors = 10
	readmePreviewLength    = 1000
)

// Options tune the normalization step.
type Options struct {
	// Weeks keeps only the trailing N weeks of each commit series; 0 keeps all.
	Weeks int
	// TopContributors caps the per-repository contributor list; 0 means 10.
	TopContributors int
	// ContributorFilter keeps only logins containing this substring
	// (case-insensitive) before the top-N cut.
	ContributorFilter string
}

// MalformedRecordError signals that a raw record is missing a required field
// or carries one of the wrong shape. Such records are never repaired with
// guessed defaults.
type MalformedRecordError struct {
	ID     domain.Identifier
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record for %s: %s %s", e.ID, e.Field, e.Reason)
}

// Normalize turns one or two raw repository records into a render-ready
// comparison. It is deterministic: identical inputs always produce identical
// results, and nothing here consults the clock or any other ambient state.
func Normalize(records []*domain.Record, opts Options) (*domain.ComparisonResult, error) {
	if len(records) == 0 || len(records) > 2 {
		return nil, fmt.Errorf("normalize expects 1 or 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
	}

	topN := opts.TopContributors
	if topN <= 0 {
		topN = defaultTopContributors
	}

	views := make([]domain.RepositoryView, 0, len(records))
	windows := make([][]domain.CommitWeek, 0, len(records))
	for _, rec := range records {
		weeks := windowWeeks(rec.CommitWeeks, opts.Weeks)
		windows = append(windows, weeks)
		views = append(views, buildView(rec, weeks, topN, opts.ContributorFilter))
	}

	return &domain.ComparisonResult{
		Views:    views,
		Timeline: alignTimeline(records, windows),
	}, nil
}

func buildView(rec *domain.Record, weeks []domain.CommitWeek, topN int, filter string) domain.RepositoryView {
	totalContributions := 0
	for _, c := range rec.Contributors {
		totalContributions += c.Contributions
	}

	return domain.RepositoryView{
		ID:                 rec.ID,
		Metadata:           rec.Metadata,
		ContributorCount:   len(rec.Contributors),
		TotalContributions: totalContributions,
		TopContributors:    topContributors(rec.Contributors, topN, filter),
		Languages:          languageShares(rec.Languages),
		Commits:            summarizeCommits(weeks),
		ReadmePreview:      truncate(rec.Readme, readmePreviewLength),
	}
}

func topContributors(contributors []domain.Contributor, topN int, filter string) []domain.Contributor {
	filter = strings.ToLower(filter)
	top := make([]domain.Contributor, 0, len(contributors))
	for _, c := range contributors {
		if filter == "" || strings.Contains(strings.ToLower(c.Login), filter) {
			top = append(top, c)
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Contributions != top[j].Contributions {
			return top[i].Contributions > top[j].Contributions
		}
		return top[i].Login < top[j].Login
	})
	if len(top) > topN {
		top = top[:topN]
	}
	return top
}

// languageShares converts byte counts to 0-100 shares of the repository's
// byte total, in tenths of a percent. Shares are apportioned by largest
// remainder so they sum to exactly 100.0 whenever any bytes are present;
// rounding each share independently would let the drift of three or more
// languages push the sum off by several tenths. Ordered by byte count
// descending, name ascending on ties, so identical inputs always render
// identically.
func languageShares(languages map[string]int64) []domain.LanguageShare {
	var total int64
	for _, bytes := range languages {
		total += bytes
	}

	shares := make([]domain.LanguageShare, 0, len(languages))
	for name, bytes := range languages {
		shares = append(shares, domain.LanguageShare{Name: name, Bytes: bytes})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Bytes != shares[j].Bytes {
			return shares[i].Bytes > shares[j].Bytes
		}
		return shares[i].Name < shares[j].Name
	})
	if total == 0 {
		return shares
	}

	const wholeTenths = 1000
	tenths := make([]int, len(shares))
	remainders := make([]float64, len(shares))
	assigned := 0
	for i, share := range shares {
		exact := float64(share.Bytes) / float64(total) * wholeTenths
		floor := math.Floor(exact)
		tenths[i] = int(floor)
		remainders[i] = exact - floor
		assigned += tenths[i]
	}

	// Hand the leftover tenths to the largest remainders; the stable sort
	// keeps the byte-count/name order as the tie-break.
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := 0; i < wholeTenths-assigned; i++ {
		tenths[order[i]]++
	}

	for i := range shares {
		shares[i].Percent = float64(tenths[i]) / 10
	}
	return shares
}

func summarizeCommits(weeks []domain.CommitWeek) domain.CommitSummary {
	if len(weeks) == 0 {
		return domain.CommitSummary{}
	}

	summary := domain.CommitSummary{}
	counts := make([]float64, 0, len(weeks))
	for _, week := range weeks {
		summary.TotalCommits += week.Commits
		if week.Commits > summary.WeeklyMax {
			summary.WeeklyMax = week.Commits
		}
		counts = append(counts, float64(week.Commits))
	}

	mean, _ := stats.Mean(counts)
	median, _ := stats.Median(counts)
	summary.WeeklyMean, _ = stats.Round(mean, 1)
	summary.WeeklyMedian, _ = stats.Round(median, 1)
	return summary
}

// windowWeeks keeps the trailing n weeks of a chronological series.
func windowWeeks(weeks []domain.CommitWeek, n int) []domain.CommitWeek {
	if n <= 0 || n >= len(weeks) {
		return weeks
	}
	return weeks[len(weeks)-n:]
}

// alignTimeline merges the commit series of all records onto one shared week
// axis: the union of their week starts, strictly increasing, with missing
// weeks filled with zero so every series has the same length.
func alignTimeline(records []*domain.Record, windows [][]domain.CommitWeek) domain.CommitTimeline {
	weekSet := make(map[int64]time.Time)
	for _, window := range windows {
		for _, week := range window {
			weekSet[week.WeekStart.Unix()] = week.WeekStart.UTC()
		}
	}

	starts := make([]int64, 0, len(weekSet))
	for start := range weekSet {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	weeks := make([]time.Time, 0, len(starts))
	for _, start := range starts {
		weeks = append(weeks, weekSet[start])
	}

	series := make([]domain.TimelineSeries, 0, len(records))
	for i, rec := range records {
		byWeek := make(map[int64]int, len(windows[i]))
		for _, week := range windows[i] {
			byWeek[week.WeekStart.Unix()] = week.Commits
		}
		counts := make([]int, len(starts))
		for j, start := range starts {
			counts[j] = byWeek[start]
		}
		series = append(series, domain.TimelineSeries{Repository: rec.ID.String(), Counts: counts})
	}

	return domain.CommitTimeline{Weeks: weeks, Series: series}
}

func validateRecord(rec *domain.Record) error {
	if rec == nil {
		return &MalformedRecordError{Field: "record", Reason: "is absent"}
	}
	if rec.ID.Owner == "" || rec.ID.Name == "" {
		return &MalformedRecordError{ID: rec.ID, Field: "identifier", Reason: "has an empty owner or name"}
	}
	switch {
	case rec.Metadata.Stars < 0:
		return &MalformedRecordError{ID: rec.ID, Field: "stars", Reason: "is negative"}
	case rec.Metadata.Forks < 0:
		return &MalformedRecordError{ID: rec.ID, Field: "forks", Reason: "is negative"}
	case rec.Metadata.Watchers < 0:
		return &MalformedRecordError{ID: rec.ID, Field: "watchers", Reason: "is negative"}
	case rec.Metadata.OpenIssues < 0:
		return &MalformedRecordError{ID: rec.ID, Field: "open_issues", Reason: "is negative"}
	}
	for _, c := range rec.Contributors {
		if c.Login == "" {
			return &MalformedRecordError{ID: rec.ID, Field: "contributor.login", Reason: "is empty"}
		}
		if c.Contributions < 0 {
			return &MalformedRecordError{ID: rec.ID, Field: "contributor.contributions", Reason: "is negative"}
		}
	}
	var prev time.Time
	for _, week := range rec.CommitWeeks {
		if week.WeekStart.IsZero() {
			return &MalformedRecordError{ID: rec.ID, Field: "commit_week.week_start", Reason: "is zero"}
		}
		if week.Commits < 0 {
			return &MalformedRecordError{ID: rec.ID, Field: "commit_week.commits", Reason: "is negative"}
		}
		if !prev.IsZero() && !week.WeekStart.After(prev) {
			return &MalformedRecordError{ID: rec.ID, Field: "commit_weeks", Reason: "are not chronological"}
		}
		prev = week.WeekStart
	}
	for name, bytes := range rec.Languages {
		if name == "" {
			return &MalformedRecordError{ID: rec.ID, Field: "language.name", Reason: "is empty"}
		}
		if bytes < 0 {
			return &MalformedRecordError{ID: rec.ID, Field: "language.bytes", Reason: "is negative"}
		}
	}
	return nil
}

// truncate cuts s at n bytes, backing up to a rune boundary so the preview
// never ends in an invalid UTF-8 fragment.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
