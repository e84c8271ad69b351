package domain

import "time"

// FeedSource identifies a configured RSS/Atom endpoint. Loaded once at
// startup and read-only afterwards.
type FeedSource struct {
	Name string
	URL  string
}

// Article is a single entry fetched from a feed. Immutable once created;
// entries with an empty title or URL never become Articles.
type Article struct {
	Feed        string
	Title       string
	URL         string
	Excerpt     string
	PublishedAt time.Time
}

// FeedError records a single feed that could not be fetched or parsed.
type FeedError struct {
	Feed string
	Err  string
}

// DigestRequest carries the selected articles into summarization.
type DigestRequest struct {
	Articles []Article
	RunAt    time.Time
}

// ArticleSummary pairs an article with its summarization outcome. When Err
// is non-empty the article is rendered as a title/link fallback.
type ArticleSummary struct {
	Article Article
	Summary string
	Err     string
}

// Summarized reports whether the summarization call for this article succeeded.
func (s ArticleSummary) Summarized() bool {
	return s.Err == ""
}

// DigestMessage is the rendered digest handed to delivery destinations.
type DigestMessage struct {
	Subject string
	Text    string
}

// DeliveryOutcome records one delivery attempt per configured destination.
type DeliveryOutcome struct {
	Destination string
	Err         string
}

// Delivered reports whether this destination accepted the digest.
func (o DeliveryOutcome) Delivered() bool {
	return o.Err == ""
}

// RunStatus is the terminal status of a digest run.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailure RunStatus = "failure"
)

// RunState names the stage a run is currently in.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateFetching    RunState = "fetching"
	StateSelecting   RunState = "selecting"
	StateSummarizing RunState = "summarizing"
	StateFormatting  RunState = "formatting"
	StateDelivering  RunState = "delivering"
	StateDone        RunState = "done"
)

// DigestResult is the full outcome of one pipeline run.
type DigestResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Digest     string
	Articles   []ArticleSummary
	FeedErrors []FeedError
	Deliveries []DeliveryOutcome

	// SummarizationFailed is set when every selected article failed to
	// summarize, i.e. the aggregate summarization stage failed and the
	// delivered digest is the title/link fallback.
	SummarizationFailed bool
}

// SummarizedCount returns how many articles carry a real summary.
func (r DigestResult) SummarizedCount() int {
	n := 0
	for _, a := range r.Articles {
		if a.Summarized() {
			n++
		}
	}
	return n
}
