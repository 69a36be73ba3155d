// Package app wires the enrichment pipeline from configuration. It is shared
// by the server and the command line tool.
package app

import (
	"fmt"

	"jobleads/internal/config"
	"jobleads/internal/enrichment"
	"jobleads/internal/logging"
	"jobleads/internal/scraper/browser"
	"jobleads/internal/scraper/captcha"
	"jobleads/internal/scraper/consent"
	"jobleads/internal/scraper/contact"
	"jobleads/internal/scraper/linked"
	"jobleads/internal/scraper/ratelimit"
	"jobleads/internal/store"
)

// App holds the long-lived collaborators of one process
type App struct {
	Config       *config.Config
	Session      *browser.Session
	Limiter      *ratelimit.Limiter
	Sink         store.Sink
	Solver       captcha.Solver
	Orchestrator *enrichment.Orchestrator
	logger       logging.Logger
}

// Build creates every collaborator. The browser is not launched until the
// first job needs a page.
func Build(cfg *config.Config, logger logging.Logger) (*App, error) {
	solver, err := captcha.NewSolver(cfg.Challenge, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	fetcher, err := linked.NewFirecrawlFetcher(cfg.Linked, logger)
	if err != nil {
		return nil, err
	}

	sink, err := store.New(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result store: %w", err)
	}

	session := browser.NewSession(cfg.Browser, logger)
	limiter := ratelimit.New(cfg.RateLimit, logger)

	orchestrator := enrichment.NewOrchestrator(cfg.Enrichment, enrichment.Dependencies{
		Visitor:   session,
		Consent:   consent.NewHandler(cfg.Consent, logger),
		Challenge: captcha.NewFlow(solver, cfg.Challenge, logger),
		Extractor: contact.NewExtractor(cfg.Extraction),
		Limiter:   limiter,
		Fetcher:   fetcher,
		Sink:      sink,
	}, logger)

	logger.Info("Enrichment pipeline initialized", map[string]interface{}{
		"solver":         solver.Name(),
		"slots":          cfg.Browser.SlotCount,
		"redis":          cfg.Redis.Enabled,
		"partner_follow": cfg.Enrichment.FollowExternalLinks && fetcher.Enabled(),
	})

	return &App{
		Config:       cfg,
		Session:      session,
		Limiter:      limiter,
		Sink:         sink,
		Solver:       solver,
		Orchestrator: orchestrator,
		logger:       logger,
	}, nil
}

// Close waits for pending result writes and releases the browser and store
func (a *App) Close() error {
	a.Orchestrator.Flush()
	a.Limiter.Stop()

	var firstErr error
	if err := a.Session.Close(); err != nil {
		a.logger.Error("Failed to close browser session", map[string]interface{}{"error": err.Error()})
		firstErr = err
	}
	if err := a.Sink.Close(); err != nil {
		a.logger.Error("Failed to close result store", map[string]interface{}{"error": err.Error()})
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
