package domain

import "time"

// LanguageShare is one language's slice of a repository's byte total.
// Percent is a 0-100 value rounded to one decimal.
type LanguageShare struct {
	Name    string  `json:"name"`
	Bytes   int64   `json:"bytes"`
	Percent float64 `json:"percent"`
}

// CommitSummary describes the weekly commit counts observed for one repository.
type CommitSummary struct {
	TotalCommits int     `json:"total_commits"`
	WeeklyMean   float64 `json:"weekly_mean"`
	WeeklyMedian float64 `json:"weekly_median"`
	WeeklyMax    int     `json:"weekly_max"`
}

// RepositoryView is the normalized, render-ready view of one repository.
type RepositoryView struct {
	ID                 Identifier      `json:"id"`
	Metadata           Metadata        `json:"metadata"`
	ContributorCount   int             `json:"contributor_count"`
	TotalContributions int             `json:"total_contributions"`
	TopContributors    []Contributor   `json:"top_contributors"`
	Languages          []LanguageShare `json:"languages"`
	Commits            CommitSummary   `json:"commits"`
	ReadmePreview      string          `json:"readme_preview,omitempty"`
}

// TimelineSeries is one repository's commit counts along the shared week axis.
type TimelineSeries struct {
	Repository string `json:"repository"`
	Counts     []int  `json:"counts"`
}

// CommitTimeline aligns the weekly commit series of all compared repositories
// on one shared, strictly increasing week axis. Every series has exactly
// len(Weeks) entries; weeks without commits carry a zero.
type CommitTimeline struct {
	Weeks  []time.Time      `json:"weeks"`
	Series []TimelineSeries `json:"series"`
}

// ComparisonResult pairs the normalized views of the compared repositories
// with their aligned commit timeline. It always contains exactly one view per
// requested repository, never partial entries.
type ComparisonResult struct {
	Views    []RepositoryView `json:"repositories"`
	Timeline CommitTimeline   `json:"timeline"`
}
