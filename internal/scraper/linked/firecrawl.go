// Package linked fetches cross-origin partner pages as HTML so contacts can
// be extracted from them without a browser slot.
package linked

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mendableai/firecrawl-go"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/pkg/utils"
)

// ErrDisabled is returned when no firecrawl API key is configured
var ErrDisabled = errors.New("linked: page fetching disabled")

// Fetcher returns the HTML of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FirecrawlFetcher fetches pages through the Firecrawl scrape API
type FirecrawlFetcher struct {
	cfg    config.LinkedConfig
	app    *firecrawl.FirecrawlApp
	logger logging.Logger
}

// NewFirecrawlFetcher creates a fetcher. Without an API key the fetcher is
// returned disabled and every Fetch fails with ErrDisabled.
func NewFirecrawlFetcher(cfg config.LinkedConfig, logger logging.Logger) (*FirecrawlFetcher, error) {
	f := &FirecrawlFetcher{
		cfg:    cfg,
		logger: logger.WithField("component", "firecrawl"),
	}
	if cfg.APIKey == "" {
		return f, nil
	}

	app, err := firecrawl.NewFirecrawlApp(cfg.APIKey, cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firecrawl: %w", err)
	}
	f.app = app

	f.logger.Info("Firecrawl fetcher initialized", map[string]interface{}{
		"api_url": cfg.APIURL,
	})
	return f, nil
}

// Enabled reports whether the fetcher has credentials
func (f *FirecrawlFetcher) Enabled() bool {
	return f.app != nil
}

// Fetch scrapes url as HTML, retrying with a linear backoff
func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.app == nil {
		return "", ErrDisabled
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	retries := f.cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		html, err := f.scrape(ctx, url)
		if err == nil {
			f.logger.Debug("Fetched partner page", map[string]interface{}{
				"url":            url,
				"content_length": len(html),
				"attempt":        attempt,
			})
			return html, nil
		}
		lastErr = err

		f.logger.Info("Firecrawl scrape attempt failed", map[string]interface{}{
			"url":     url,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < retries {
			if err := utils.SleepContext(ctx, time.Duration(attempt)*time.Second); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("firecrawl scraping failed after %d attempts: %w", retries, lastErr)
}

// scrape runs one blocking SDK call, abandoned when ctx ends
func (f *FirecrawlFetcher) scrape(ctx context.Context, url string) (string, error) {
	type result struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}
	done := make(chan result, 1)

	go func() {
		doc, err := f.app.ScrapeURL(url, &firecrawl.ScrapeParams{Formats: []string{"html"}})
		done <- result{doc: doc, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if r.doc == nil || r.doc.HTML == "" {
			return "", fmt.Errorf("no content found in Firecrawl response")
		}
		return r.doc.HTML, nil
	}
}
