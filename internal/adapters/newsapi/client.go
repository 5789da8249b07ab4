package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brandpulse/internal/adapters/config"
	"brandpulse/internal/adapters/ratelimit"
	"brandpulse/internal/adapters/retry"
	"brandpulse/internal/domain/document"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/text"
)

// Compile-time check
var _ document.Source = (*Client)(nil)

const (
	everythingPath = "/v2/everything"
	// maxPageSize is the NewsAPI upper bound for pageSize
	maxPageSize   = 100
	excerptLength = 220
	keywordCount  = 5
)

// Client fetches brand mentions from the NewsAPI "everything" endpoint
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retry      *retry.Middleware
	now        func() time.Time
	log        *logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithClock overrides time.Now for the "from" date
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// NewClient creates a NewsAPI document source
func NewClient(cfg config.NewsAPIConfig, opts ...Option) *Client {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.MaxRetries

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.NewLimiter("newsapi", cfg.RequestsPerMinute),
		retry:      retry.New(rc),
		now:        time.Now,
		log:        logger.Get().Component("newsapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type everythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch returns the newest articles mentioning the brand.
// Every upstream failure is reported as errors.ErrSourceUnavailable.
func (c *Client) Fetch(ctx context.Context, q document.Query) (document.Batch, error) {
	if c.apiKey == "" {
		return document.Batch{}, errors.Wrap(errors.ErrSourceUnavailable, "newsapi key not configured")
	}

	var resp everythingResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = c.get(ctx, q)
		return err
	})
	if err != nil {
		return document.Batch{}, errors.Join(errors.ErrSourceUnavailable, err)
	}

	docs := make([]document.Document, 0, min(len(resp.Articles), q.MaxDocuments))
	for _, a := range resp.Articles {
		if len(docs) == q.MaxDocuments {
			break
		}
		docs = append(docs, c.toDocument(a, q.Brand))
	}

	c.log.Debugw("Fetched news articles",
		"brand", q.Brand,
		"articles", len(docs),
		"total_available", resp.TotalResults,
	)

	return document.Batch{Documents: docs, TotalAvailable: resp.TotalResults}, nil
}

func (c *Client) get(ctx context.Context, q document.Query) (everythingResponse, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q", q.Brand))
	params.Set("from", c.now().UTC().AddDate(0, 0, -q.DaysBack).Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprint(min(q.MaxDocuments, maxPageSize)))
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+everythingPath+"?"+params.Encode(), nil)
	if err != nil {
		return everythingResponse{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", "brandpulse/1.0")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return everythingResponse{}, errors.Wrap(err, "failed to fetch news")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		if res.StatusCode == http.StatusUnauthorized {
			c.log.Errorw("NewsAPI authentication failed, verify NEWS_API_KEY")
		}
		return everythingResponse{}, &retry.StatusError{Code: res.StatusCode, Body: string(body)}
	}

	var out everythingResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return everythingResponse{}, errors.Wrap(err, "failed to decode response")
	}
	if out.Status != "ok" {
		return everythingResponse{}, errors.Newf("newsapi status %q: %s %s", out.Status, out.Code, out.Message)
	}
	return out, nil
}

func (c *Client) toDocument(a article, brand string) document.Document {
	title := text.StripHTML(a.Title)
	description := text.StripHTML(a.Description)
	content := text.StripHTML(a.Content)

	excerpt := description
	if excerpt == "" {
		excerpt = content
	}

	publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		publishedAt = time.Time{}
	}

	source := a.Source.Name
	if source == "" {
		source = "Unknown"
	}

	return document.Document{
		Title:       title,
		Source:      source,
		Author:      a.Author,
		URL:         a.URL,
		PublishedAt: publishedAt.UTC(),
		Excerpt:     text.Truncate(excerpt, excerptLength),
		Keywords:    text.Keywords(strings.Join([]string{title, description, content}, " "), brand, keywordCount),
	}
}
