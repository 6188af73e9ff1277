package sentiment

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nsedesk/signalengine/internal/apperr"
)

// GoogleNewsFeed is the default NewsFeed, grounded on the teacher corpus's
// _fetch_google_news: an unauthenticated RSS search scoped to a company
// name and a lookback window. No RSS/feed-parsing library appears anywhere
// in the example pack, so this decodes the feed with encoding/xml directly
// rather than reaching for an out-of-pack dependency.
type GoogleNewsFeed struct {
	httpClient *http.Client
	baseURL    string
}

// NewGoogleNewsFeed builds a GoogleNewsFeed against baseURL (the RSS search
// root, e.g. "https://news.google.com/rss").
func NewGoogleNewsFeed(baseURL string) *GoogleNewsFeed {
	if baseURL == "" {
		baseURL = "https://news.google.com/rss"
	}
	return &GoogleNewsFeed{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	Source  struct {
		Value string `xml:",chardata"`
	} `xml:"source"`
}

// FetchHeadlines searches the feed for companyName and returns items
// published within lookback of now, in feed order (not re-sorted), capped
// at 10 per spec.md §4.10.
func (f *GoogleNewsFeed) FetchHeadlines(ctx context.Context, companyName string, lookback time.Duration) ([]Headline, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en", f.baseURL, url.QueryEscape(companyName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.New(apperr.VendorMalformed, "newsfeed", "build request", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.VendorNetwork, "newsfeed", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.VendorNetwork, "newsfeed", "read response", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperr.New(apperr.VendorRateLimited, "newsfeed", "rate limited", nil)
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.VendorMalformed, "newsfeed", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, apperr.New(apperr.VendorMalformed, "newsfeed", "decode rss", err)
	}

	cutoff := time.Now().Add(-lookback)
	out := make([]Headline, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		published, perr := time.Parse(time.RFC1123, item.PubDate)
		if perr != nil {
			published, perr = time.Parse(time.RFC1123Z, item.PubDate)
		}
		if perr == nil && published.Before(cutoff) {
			continue
		}
		out = append(out, Headline{
			Title:       item.Title,
			Publisher:   item.Source.Value,
			PublishedAt: published,
		})
		if len(out) >= 10 {
			break
		}
	}
	return out, nil
}
