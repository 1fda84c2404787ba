package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/stockpulse/stockpulse/internal/infra"
	"github.com/stockpulse/stockpulse/pkg/models"
	"github.com/stockpulse/stockpulse/pkg/utils"
)

// YahooRSSURL is the per-ticker headline feed.
const YahooRSSURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// DefaultNewsLimit is how many headlines a ticker page shows.
const DefaultNewsLimit = 6

// News fetches ticker headlines from the Yahoo Finance RSS feed.
type News struct {
	feedURL string
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewsOption configures a News client.
type NewsOption func(*News)

// WithNewsFeedURL replaces the feed endpoint.
func WithNewsFeedURL(u string) NewsOption { return func(n *News) { n.feedURL = u } }

// WithNewsHTTPClient replaces the HTTP client used by the feed parser.
func WithNewsHTTPClient(c *http.Client) NewsOption { return func(n *News) { n.parser.Client = c } }

// NewNews creates a news client. Headlines are cached for ten minutes when
// no shared cache is supplied.
func NewNews(cache *infra.Cache, opts ...NewsOption) *News {
	if cache == nil {
		cache = infra.NewCache(10 * time.Minute)
	}
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	parser.Client = NewHTTPClient()

	n := &News{
		feedURL: YahooRSSURL,
		cache:   cache,
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  parser,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "Yahoo Finance News" }

// StockNews returns up to limit headlines for ticker, newest first.
// A non-positive limit means DefaultNewsLimit.
func (n *News) StockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	symbol := utils.NormalizeTicker(ticker)

	articles, _, err := infra.Load(ctx, n.cache, "news:"+symbol, func(ctx context.Context) ([]models.NewsArticle, error) {
		return n.fetchRSS(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// fetchRSS parses the feed for one symbol.
func (n *News) fetchRSS(ctx context.Context, symbol string) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("s", utils.ToYahooSymbol(symbol))
	q.Set("region", "US")
	q.Set("lang", "en-US")

	feed, err := n.parser.ParseURLWithContext(n.feedURL+"?"+q.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS for %s: %w", symbol, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Ticker:  symbol,
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  feedSource(feed, item),
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, a)
	}

	sortArticlesByDate(articles)
	return articles, nil
}

func feedSource(feed *gofeed.Feed, item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if feed.Title != "" {
		return feed.Title
	}
	return "Yahoo Finance"
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sortArticlesByDate sorts newest first; undated items sink to the end.
func sortArticlesByDate(articles []models.NewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
