package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rsaito/github-compare/internal/domain"
	"github.com/rsaito/github-compare/internal/gateway"
)

// Collector orchestrates the fetching and normalization of repository data.
type Collector struct {
	fetcher gateway.Fetcher
	logger  *logrus.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, logger *logrus.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect fetches all sub-resources of one repository concurrently and merges
// them into a single record. The record is constructed only after every
// sub-fetch has completed, so callers never observe a partially merged one.
// A missing README degrades to an empty string; everything else is fatal for
// the record.
func (c *Collector) Collect(ctx context.Context, id domain.Identifier) (*domain.Record, error) {
	c.logger.WithField("repository", id.String()).Debug("Collecting repository data")

	var (
		metadata     domain.Metadata
		contributors []domain.Contributor
		commitWeeks  []domain.CommitWeek
		languages    map[string]int64
		readme       string
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		metadata, err = c.fetcher.FetchMetadata(egCtx, id)
		return err
	})

	eg.Go(func() error {
		var err error
		contributors, err = c.fetcher.FetchContributors(egCtx, id)
		return err
	})

	eg.Go(func() error {
		var err error
		commitWeeks, err = c.fetcher.FetchCommitActivity(egCtx, id)
		return err
	})

	eg.Go(func() error {
		var err error
		languages, err = c.fetcher.FetchLanguages(egCtx, id)
		return err
	})

	eg.Go(func() error {
		content, err := c.fetcher.FetchReadme(egCtx, id)
		if err != nil {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			c.logger.WithFields(logrus.Fields{
				"repository": id.String(),
				"error":      err,
			}).Warn("README unavailable, continuing without it")
			return nil
		}
		readme = content
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &domain.Record{
		ID:           id,
		Metadata:     metadata,
		Contributors: contributors,
		CommitWeeks:  commitWeeks,
		Languages:    languages,
		Readme:       readme,
	}, nil
}

// Compare fetches one or two repositories concurrently and normalizes them
// into a comparison. If any repository fails irrecoverably the whole
// comparison fails with that repository's error; results collected for the
// others are discarded rather than returned partially.
func (c *Collector) Compare(ctx context.Context, ids []domain.Identifier, opts Options) (*domain.ComparisonResult, error) {
	if len(ids) == 0 || len(ids) > 2 {
		return nil, fmt.Errorf("compare expects 1 or 2 repositories, got %d", len(ids))
	}

	records := make([]*domain.Record, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			record, err := c.Collect(egCtx, id)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	c.logger.WithField("repositories", len(records)).Debug("All repository data collected")
	return Normalize(records, opts)
}
