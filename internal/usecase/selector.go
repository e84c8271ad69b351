package usecase

import (
	"sort"
	"time"

	"aidigest/internal/domain"
)

// SelectionPolicy bounds how many fetched articles enter a digest run.
type SelectionPolicy struct {
	Window      time.Duration
	MaxArticles int
}

// SelectRecent returns the articles published within the lookback window,
// most-recent-first, truncated to max. An empty result is a valid outcome,
// not an error.
func SelectRecent(articles []domain.Article, now time.Time, window time.Duration, max int) []domain.Article {
	cutoff := now.Add(-window)

	recent := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if article.PublishedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, article)
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt.After(recent[j].PublishedAt)
	})

	if max > 0 && len(recent) > max {
		recent = recent[:max]
	}

	return recent
}
