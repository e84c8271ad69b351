package usecase

import (
	"fmt"
	"strings"
	"time"

	"aidigest/internal/domain"
)

const (
	digestHeader    = "*📰 AI + Dev Digest:*"
	nothingToReport = "Nothing to report today."
	missingSummary  = "No summary available."
)

// FormatDigest renders the summarized articles into one digest text block.
// It is pure and deterministic: the same input always produces identical
// output, and an article whose summarization failed is still rendered as a
// title/link entry.
func FormatDigest(summaries []domain.ArticleSummary) string {
	if len(summaries) == 0 {
		return digestHeader + "\n\n" + nothingToReport + "\n"
	}

	blocks := []string{digestHeader + "\n"}
	for i, s := range summaries {
		summary := missingSummary
		if s.Summarized() {
			summary = strings.TrimSpace(s.Summary)
		}
		blocks = append(blocks, fmt.Sprintf("*%d. <%s|%s>*\n> %s\n",
			i+1, s.Article.URL, s.Article.Title, summary))
	}

	return strings.Join(blocks, "\n")
}

// FormatSubject builds the dated subject line used by the email destination.
func FormatSubject(runAt time.Time) string {
	return fmt.Sprintf("Daily News Digest -- %s", runAt.Format("2006-01-02"))
}
