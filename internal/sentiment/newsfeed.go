package sentiment

import (
	"context"
	"time"
)

// Headline is one news item a NewsFeed returns.
type Headline struct {
	Title       string
	Publisher   string
	PublishedAt time.Time
}

// NewsFeed fetches recent headlines for a company name. Implementations
// are expected to apply their own source-specific lookback semantics;
// Enricher passes lookback as a hint, not a hard contract.
type NewsFeed interface {
	FetchHeadlines(ctx context.Context, companyName string, lookback time.Duration) ([]Headline, error)
}
