package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

const defaultFeedTimeout = 15 * time.Second

// Fetcher retrieves and parses the configured RSS/Atom feeds. A broken feed
// is reported as a domain.FeedError and never aborts the remaining feeds.
type Fetcher struct {
	parser       *gofeed.Parser
	sources      []domain.FeedSource
	timeout      time.Duration
	perFeedLimit int
	excerptLimit int
	logger       *slog.Logger
}

var _ ports.ArticleSource = (*Fetcher)(nil)

// Options tunes per-feed limits; zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration
	PerFeedLimit int
	ExcerptLimit int
}

// NewFetcher wires an HTTP client into a gofeed parser for the given sources.
func NewFetcher(client *http.Client, sources []domain.FeedSource, opts Options, logger *slog.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "aidigest/1.0"

	return &Fetcher{
		parser:       parser,
		sources:      sources,
		timeout:      timeout,
		perFeedLimit: opts.PerFeedLimit,
		excerptLimit: opts.ExcerptLimit,
		logger:       logger,
	}
}

// Fetch walks the configured feeds in order and returns their articles,
// newest-first within each feed, plus one FeedError per failed feed.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Article, []domain.FeedError) {
	var (
		articles []domain.Article
		failures []domain.FeedError
	)

	for _, src := range f.sources {
		items, err := f.fetchOne(ctx, src)
		if err != nil {
			f.warn("feed failed", "feed", src.Name, "error", err)
			failures = append(failures, domain.FeedError{Feed: src.Name, Err: err.Error()})
			continue
		}
		f.debug("feed fetched", "feed", src.Name, "articles", len(items))
		articles = append(articles, items...)
	}

	return articles, failures
}

func (f *Fetcher) fetchOne(ctx context.Context, src domain.FeedSource) ([]domain.Article, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(src.URL, fetchCtx)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article, ok := f.toArticle(src, item)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	if f.perFeedLimit > 0 && len(articles) > f.perFeedLimit {
		articles = articles[:f.perFeedLimit]
	}

	return articles, nil
}

// toArticle converts a feed item, skipping entries that would violate the
// "no blank title or URL" invariant or that carry no usable timestamp.
func (f *Fetcher) toArticle(src domain.FeedSource, item *gofeed.Item) (domain.Article, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return domain.Article{}, false
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if published == nil {
		return domain.Article{}, false
	}

	body := item.Description
	if body == "" {
		body = item.Content
	}

	return domain.Article{
		Feed:        src.Name,
		Title:       title,
		URL:         link,
		Excerpt:     extractExcerpt(body, f.excerptLimit),
		PublishedAt: published.UTC(),
	}, true
}

// extractExcerpt strips HTML markup from a feed item body and collapses
// whitespace, truncating to limit runes.
func extractExcerpt(body string, limit int) string {
	if body == "" {
		return ""
	}

	text := body
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	if limit > 0 {
		runes := []rune(text)
		if len(runes) > limit {
			text = strings.TrimSpace(string(runes[:limit])) + "..."
		}
	}

	return text
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
