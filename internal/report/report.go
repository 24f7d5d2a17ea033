// Package report renders a plain-text analysis report from a normalized
// repository view, suitable for download or archiving next to the charts.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/rsaito/github-compare/internal/domain"
)

const (
	headerRule  = 50
	sectionRule = 20
)

// Build renders the report for one repository of a comparison result.
// generatedAt is passed in explicitly so the output stays reproducible.
func Build(result *domain.ComparisonResult, index int, generatedAt time.Time) (string, error) {
	if index < 0 || index >= len(result.Views) {
		return "", fmt.Errorf("report index %d out of range for %d repositories", index, len(result.Views))
	}
	view := result.Views[index]

	var b strings.Builder
	fmt.Fprintf(&b, "Repository Analysis Report for %s\n", view.ID.Name)
	b.WriteString(strings.Repeat("=", headerRule) + "\n")
	fmt.Fprintf(&b, "\nGenerated on: %s\n", generatedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("\nRepository Metadata:\n")
	b.WriteString(strings.Repeat("-", sectionRule) + "\n")
	fmt.Fprintf(&b, "Name: %s\n", view.ID.Name)
	fmt.Fprintf(&b, "Owner: %s\n", view.ID.Owner)
	fmt.Fprintf(&b, "Description: %s\n", orFallback(view.Metadata.Description, "No description provided"))
	fmt.Fprintf(&b, "Stars: %d\n", view.Metadata.Stars)
	fmt.Fprintf(&b, "Forks: %d\n", view.Metadata.Forks)
	fmt.Fprintf(&b, "Open Issues: %d\n", view.Metadata.OpenIssues)
	fmt.Fprintf(&b, "Watchers: %d\n", view.Metadata.Watchers)
	fmt.Fprintf(&b, "Language: %s\n", orFallback(view.Metadata.Language, "Not specified"))
	fmt.Fprintf(&b, "License: %s\n", orFallback(view.Metadata.License, "Not specified"))
	fmt.Fprintf(&b, "Created: %s\n", view.Metadata.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Last Updated: %s\n", view.Metadata.UpdatedAt.Format("2006-01-02"))

	b.WriteString("\nTop Contributors:\n")
	b.WriteString(strings.Repeat("-", sectionRule) + "\n")
	for i, c := range view.TopContributors {
		fmt.Fprintf(&b, "%d. %s: %d contributions\n", i+1, c.Login, c.Contributions)
	}

	b.WriteString("\nLanguage Distribution:\n")
	b.WriteString(strings.Repeat("-", sectionRule) + "\n")
	for _, share := range view.Languages {
		fmt.Fprintf(&b, "%s: %.1f%% (%d bytes)\n", share.Name, share.Percent, share.Bytes)
	}

	b.WriteString("\nWeekly Commit Activity:\n")
	b.WriteString(strings.Repeat("-", sectionRule) + "\n")
	series := seriesFor(result.Timeline, view.ID.String())
	for i, week := range result.Timeline.Weeks {
		fmt.Fprintf(&b, "Week of %s: %d commits\n", week.Format("2006-01-02"), series[i])
	}
	fmt.Fprintf(&b, "Total commits in window: %d\n", view.Commits.TotalCommits)

	return b.String(), nil
}

func seriesFor(timeline domain.CommitTimeline, repository string) []int {
	for _, s := range timeline.Series {
		if s.Repository == repository {
			return s.Counts
		}
	}
	return make([]int, len(timeline.Weeks))
}

func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
