package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// ErrRunActive is returned when a trigger arrives while a run is in flight.
// The caller gets the rejection immediately; runs are never queued.
var ErrRunActive = errors.New("digest run already active")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Summarizer ports.Summarizer
	Dispatcher *Dispatcher
	Policy     SelectionPolicy
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Pipeline orchestrates one digest run: fetch, select, summarize, format,
// deliver. At most one run is active at a time; the active flag is guarded
// by a mutex and released on every exit path, including panics.
type Pipeline struct {
	source     ports.ArticleSource
	summarizer ports.Summarizer
	dispatcher *Dispatcher
	policy     SelectionPolicy
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	state domain.RunState
	last  *domain.DigestResult
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		summarizer: deps.Summarizer,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
		logger:     logger,
		now:        now,
		state:      domain.StateIdle,
	}
}

// Execute runs the pipeline to a terminal state. A second invocation while
// a run is active returns ErrRunActive without waiting.
func (p *Pipeline) Execute(ctx context.Context) (domain.DigestResult, error) {
	if !p.tryAcquire() {
		return domain.DigestResult{}, ErrRunActive
	}
	return p.run(ctx), nil
}

// Active reports whether a run is currently between Idle and Done.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != domain.StateIdle && p.state != domain.StateDone
}

// State returns the stage the pipeline is currently in.
func (p *Pipeline) State() domain.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastResult returns the most recent terminal result, or nil before the
// first run completes.
func (p *Pipeline) LastResult() *domain.DigestResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	copied := *p.last
	return &copied
}

func (p *Pipeline) tryAcquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.StateIdle && p.state != domain.StateDone {
		return false
	}
	p.state = domain.StateFetching
	return true
}

func (p *Pipeline) setState(state domain.RunState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// run executes the stages in fixed order. Panics inside a stage are
// converted into a failure result so the process stays available for the
// next trigger.
func (p *Pipeline) run(ctx context.Context) (result domain.DigestResult) {
	result = domain.DigestResult{
		RunID:     uuid.NewString(),
		StartedAt: p.now().UTC(),
		Status:    domain.StatusFailure,
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panicked", "run_id", result.RunID, "panic", fmt.Sprintf("%v", r))
			result.Status = domain.StatusFailure
		}
		result.FinishedAt = p.now().UTC()

		p.mu.Lock()
		p.state = domain.StateDone
		stored := result
		p.last = &stored
		p.mu.Unlock()

		p.logger.Info("run finished",
			"run_id", result.RunID,
			"status", result.Status,
			"articles", len(result.Articles),
			"feed_errors", len(result.FeedErrors))
	}()

	p.logger.Info("run started", "run_id", result.RunID)

	articles, feedErrs := p.source.Fetch(ctx)
	result.FeedErrors = feedErrs

	p.setState(domain.StateSelecting)
	selected := SelectRecent(articles, result.StartedAt, p.policy.Window, p.policy.MaxArticles)
	p.logger.Info("articles selected", "run_id", result.RunID, "fetched", len(articles), "selected", len(selected))

	p.setState(domain.StateSummarizing)
	result.Articles = p.summarizeAll(ctx, selected)
	result.SummarizationFailed = len(selected) > 0 && result.SummarizedCount() == 0
	if result.SummarizationFailed {
		p.logger.Warn("all summarizations failed, delivering title/link fallback", "run_id", result.RunID)
	}

	p.setState(domain.StateFormatting)
	result.Digest = FormatDigest(result.Articles)
	msg := domain.DigestMessage{
		Subject: FormatSubject(result.StartedAt),
		Text:    result.Digest,
	}

	p.setState(domain.StateDelivering)
	result.Deliveries = p.dispatcher.Dispatch(ctx, msg)

	result.Status = aggregateStatus(result)
	return result
}

func (p *Pipeline) summarizeAll(ctx context.Context, selected []domain.Article) []domain.ArticleSummary {
	summaries := make([]domain.ArticleSummary, 0, len(selected))
	for _, article := range selected {
		entry := domain.ArticleSummary{Article: article}
		summary, err := p.summarizer.Summarize(ctx, article)
		if err != nil {
			entry.Err = err.Error()
			p.logger.Warn("summarization failed", "title", article.Title, "error", err)
		} else {
			entry.Summary = summary
		}
		summaries = append(summaries, entry)
	}
	return summaries
}

// aggregateStatus derives the overall run status. Delivery decides between
// failure and the rest; summarization or destination failures downgrade a
// delivered run to partial. Feed errors are logged but only downgrade the
// run when no feed produced an article at all.
func aggregateStatus(result domain.DigestResult) domain.RunStatus {
	delivered := false
	destinationFailed := false
	for _, outcome := range result.Deliveries {
		if outcome.Delivered() {
			delivered = true
		} else {
			destinationFailed = true
		}
	}

	if !delivered {
		return domain.StatusFailure
	}

	summaryFailed := false
	for _, entry := range result.Articles {
		if !entry.Summarized() {
			summaryFailed = true
			break
		}
	}

	allFeedsDark := len(result.Articles) == 0 && len(result.FeedErrors) > 0

	if destinationFailed || summaryFailed || allFeedsDark {
		return domain.StatusPartial
	}
	return domain.StatusSuccess
}
