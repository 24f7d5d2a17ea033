// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Identifier addresses one GitHub repository by its owner and name.
type Identifier struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns the canonical "owner/name" form.
func (id Identifier) String() string {
	return id.Owner + "/" + id.Name
}

// ParseIdentifier extracts an Identifier from either an "owner/name" pair or a
// full repository URL such as "https://github.com/owner/name".
func ParseIdentifier(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identifier{}, fmt.Errorf("invalid repository %q: expected owner/name or a github.com URL", raw)
	}
	return Identifier{Owner: parts[0], Name: parts[1]}, nil
}

// Metadata holds the repository fields surfaced by the metadata endpoint.
type Metadata struct {
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	OpenIssues  int       `json:"open_issues"`
	Language    string    `json:"language"`
	License     string    `json:"license"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Contributor is one entry of a repository's contributor list.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// CommitWeek is one entry of a repository's weekly commit activity, keyed by
// the week-start timestamp.
type CommitWeek struct {
	WeekStart time.Time `json:"week_start"`
	Commits   int       `json:"commits"`
}

// Record is the raw, fully merged result of fetching one repository. It is
// assembled once after all sub-fetches complete and treated as immutable from
// then on.
type Record struct {
	ID           Identifier       `json:"id"`
	Metadata     Metadata         `json:"metadata"`
	Contributors []Contributor    `json:"contributors"`
	CommitWeeks  []CommitWeek     `json:"commit_weeks"`
	Languages    map[string]int64 `json:"languages"`
	Readme       string           `json:"readme,omitempty"`
}
