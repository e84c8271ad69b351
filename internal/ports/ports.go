package ports

import (
	"context"
	"time"

	"aidigest/internal/domain"
)

// ArticleSource pulls fresh articles from the configured feeds. A failing
// feed is reported as a FeedError; it never aborts the whole fetch.
type ArticleSource interface {
	Fetch(ctx context.Context) ([]domain.Article, []domain.FeedError)
}

// Summarizer condenses a single article into a short natural-language summary.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article) (string, error)
}

// Destination delivers the rendered digest to one external channel
// (Slack webhook, email relay, ...).
type Destination interface {
	Name() string
	Deliver(ctx context.Context, msg domain.DigestMessage) error
}

// Scheduler controls when digest runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
