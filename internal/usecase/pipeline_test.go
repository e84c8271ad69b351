package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

type fakeSource struct {
	articles  []domain.Article
	feedErrs  []domain.FeedError
	panicking bool
}

func (f *fakeSource) Fetch(ctx context.Context) ([]domain.Article, []domain.FeedError) {
	if f.panicking {
		panic("feed host exploded")
	}
	return f.articles, f.feedErrs
}

type fakeSummarizer struct {
	err   error
	block chan struct{}
}

func (f *fakeSummarizer) Summarize(ctx context.Context, article domain.Article) (string, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}
	return "summary of " + article.Title, nil
}

type fakeDestination struct {
	name string
	err  error

	mu        sync.Mutex
	delivered []domain.DigestMessage
}

func (f *fakeDestination) Name() string { return f.name }

func (f *fakeDestination) Deliver(ctx context.Context, msg domain.DigestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, msg)
	return nil
}

func (f *fakeDestination) lastMessage() (domain.DigestMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.delivered) == 0 {
		return domain.DigestMessage{}, false
	}
	return f.delivered[len(f.delivered)-1], true
}

func recentArticles(now time.Time, titles ...string) []domain.Article {
	articles := make([]domain.Article, 0, len(titles))
	for i, title := range titles {
		articles = append(articles, domain.Article{
			Feed:        "test",
			Title:       title,
			URL:         fmt.Sprintf("https://example.com/%d", i),
			PublishedAt: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return articles
}

func newTestPipeline(source *fakeSource, summarizer *fakeSummarizer, destinations ...*fakeDestination) *Pipeline {
	dests := make([]ports.Destination, 0, len(destinations))
	for _, d := range destinations {
		dests = append(dests, d)
	}

	return NewPipeline(PipelineDeps{
		Source:     source,
		Summarizer: summarizer,
		Dispatcher: NewDispatcher(dests, nil),
		Policy:     SelectionPolicy{Window: 24 * time.Hour, MaxArticles: 12},
	})
}

func TestPipelineEmptySelectionIsSuccess(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	source := &fakeSource{articles: []domain.Article{
		{Feed: "test", Title: "old", URL: "https://example.com/old", PublishedAt: now.Add(-72 * time.Hour)},
	}}
	dest := &fakeDestination{name: "slack"}
	p := newTestPipeline(source, &fakeSummarizer{}, dest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.Status != domain.StatusSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	msg, ok := dest.lastMessage()
	if !ok {
		t.Fatal("expected the nothing-to-report digest to be delivered")
	}
	if want := nothingToReport; !strings.Contains(msg.Text, want) {
		t.Fatalf("digest %q does not state there is nothing to report", msg.Text)
	}
}

func TestPipelineAllFeedsFailingIsPartial(t *testing.T) {
	t.Parallel()

	source := &fakeSource{feedErrs: []domain.FeedError{
		{Feed: "one", Err: "dns failure"},
		{Feed: "two", Err: "http 500"},
	}}
	dest := &fakeDestination{name: "slack"}
	p := newTestPipeline(source, &fakeSummarizer{}, dest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.Status != domain.StatusPartial {
		t.Fatalf("expected partial when every feed failed, got %s", result.Status)
	}
	msg, ok := dest.lastMessage()
	if !ok {
		t.Fatal("the nothing-to-report digest should still be delivered")
	}
	if !strings.Contains(msg.Text, nothingToReport) {
		t.Fatalf("unexpected digest: %q", msg.Text)
	}
}

func TestPipelineAllSummariesFailDeliversFallback(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	source := &fakeSource{articles: recentArticles(now, "first", "second")}
	dest := &fakeDestination{name: "slack"}
	p := newTestPipeline(source, &fakeSummarizer{err: errors.New("rate limited")}, dest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if !result.SummarizationFailed {
		t.Fatal("expected aggregate summarization failure")
	}
	if result.Status != domain.StatusPartial {
		t.Fatalf("expected partial, got %s", result.Status)
	}

	msg, ok := dest.lastMessage()
	if !ok {
		t.Fatal("expected fallback digest to be delivered")
	}
	if !strings.Contains(msg.Text, "first") || !strings.Contains(msg.Text, "second") {
		t.Fatalf("fallback digest missing article titles: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, missingSummary) {
		t.Fatalf("fallback digest missing placeholder: %q", msg.Text)
	}
}

func TestPipelineOneOfTwoDestinationsFailsIsPartial(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	source := &fakeSource{articles: recentArticles(now, "only")}
	slackDest := &fakeDestination{name: "slack"}
	emailDest := &fakeDestination{name: "email", err: errors.New("sendgrid returned 500")}
	p := newTestPipeline(source, &fakeSummarizer{}, slackDest, emailDest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.Status != domain.StatusPartial {
		t.Fatalf("expected partial, got %s", result.Status)
	}
	if len(result.Deliveries) != 2 {
		t.Fatalf("expected 2 delivery outcomes, got %d", len(result.Deliveries))
	}
}

func TestPipelineAllDeliveriesFailIsFailure(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	source := &fakeSource{articles: recentArticles(now, "only")}
	dest := &fakeDestination{name: "slack", err: errors.New("webhook gone")}
	p := newTestPipeline(source, &fakeSummarizer{}, dest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.Status != domain.StatusFailure {
		t.Fatalf("expected failure, got %s", result.Status)
	}
}

func TestPipelineRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	source := &fakeSource{articles: recentArticles(now, "slow")}
	block := make(chan struct{})
	dest := &fakeDestination{name: "slack"}
	p := newTestPipeline(source, &fakeSummarizer{block: block}, dest)

	done := make(chan domain.DigestResult, 1)
	go func() {
		result, _ := p.Execute(context.Background())
		done <- result
	}()

	waitUntil(t, p.Active)

	start := time.Now()
	_, err := p.Execute(context.Background())
	if !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("rejection took %v, should be immediate", elapsed)
	}

	close(block)
	result := <-done
	if result.Status != domain.StatusSuccess {
		t.Fatalf("first run should finish successfully, got %s", result.Status)
	}
	if p.Active() {
		t.Fatal("pipeline should be inactive after the run")
	}

	// The lock is released: a new run is accepted.
	if _, err := p.Execute(context.Background()); err != nil {
		t.Fatalf("follow-up run rejected: %v", err)
	}
}

func TestPipelineRecoversFromStagePanic(t *testing.T) {
	t.Parallel()

	dest := &fakeDestination{name: "slack"}
	p := newTestPipeline(&fakeSource{panicking: true}, &fakeSummarizer{}, dest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.Status != domain.StatusFailure {
		t.Fatalf("expected failure after panic, got %s", result.Status)
	}
	if p.Active() {
		t.Fatal("run lock must be released after a panic")
	}

	// The process stays available for the next trigger.
	if _, err := p.Execute(context.Background()); err != nil {
		t.Fatalf("pipeline unusable after panic: %v", err)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	source := &fakeSource{
		articles: recentArticles(now, "alpha", "beta"),
		feedErrs: []domain.FeedError{{Feed: "dead-feed", Err: "context deadline exceeded"}},
	}
	dest := &fakeDestination{name: "slack"}
	p := newTestPipeline(source, &fakeSummarizer{}, dest)

	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.Status != domain.StatusSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	if got := result.SummarizedCount(); got != 2 {
		t.Fatalf("expected 2 summarized articles, got %d", got)
	}
	if len(result.FeedErrors) != 1 {
		t.Fatalf("expected 1 feed error, got %d", len(result.FeedErrors))
	}

	msg, ok := dest.lastMessage()
	if !ok {
		t.Fatal("expected digest to be delivered")
	}
	if !strings.Contains(msg.Text, "summary of alpha") || !strings.Contains(msg.Text, "summary of beta") {
		t.Fatalf("digest missing summaries: %q", msg.Text)
	}

	last := p.LastResult()
	if last == nil || last.RunID != result.RunID {
		t.Fatal("LastResult should expose the finished run")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
