// Package enrichment drives a job from its listing to an EnrichmentResult:
// consent, challenge, extraction and the fallback policy, one job at a time
// or in paced batches.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/internal/scraper/browser"
	"jobleads/internal/scraper/captcha"
	"jobleads/internal/scraper/contact"
	"jobleads/internal/scraper/linked"
	"jobleads/internal/scraper/ratelimit"
	"jobleads/internal/store"
	"jobleads/pkg/models"
	"jobleads/pkg/utils"
)

// ConsentHandler clears cookie walls; implemented by consent.Handler
type ConsentHandler interface {
	Preseed(ctx context.Context, page browser.Page, pageURL string) error
	Handle(ctx context.Context, page browser.Page, jobID string) bool
}

// ChallengeResolver solves image challenges; implemented by captcha.Flow
type ChallengeResolver interface {
	Resolve(ctx context.Context, page browser.Page, jobID string) captcha.Outcome
}

// Dependencies are the collaborators of an Orchestrator. Limiter, Fetcher
// and Sink are optional.
type Dependencies struct {
	Visitor   browser.Visitor
	Consent   ConsentHandler
	Challenge ChallengeResolver
	Extractor *contact.Extractor
	Limiter   *ratelimit.Limiter
	Fetcher   linked.Fetcher
	Sink      store.Sink
}

// Orchestrator enriches job records
type Orchestrator struct {
	cfg    config.EnrichmentConfig
	deps   Dependencies
	logger logging.Logger

	sleep   func(ctx context.Context, d time.Duration) error
	persist sync.WaitGroup
}

func NewOrchestrator(cfg config.EnrichmentConfig, deps Dependencies, logger logging.Logger) *Orchestrator {
	if deps.Sink == nil {
		deps.Sink = store.NopSink{}
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: logger.WithField("component", "enrichment"),
		sleep:  utils.SleepContext,
	}
}

// pageScan is what one browser visit produced
type pageScan struct {
	contacts []models.Contact
	outcome  captcha.Outcome
	finalURL string
}

// Enrich produces a result for job. It never panics and never returns nil:
// every error ends up in a failed result.
func (o *Orchestrator) Enrich(ctx context.Context, job models.JobRecord) (result *models.EnrichmentResult) {
	result = models.NewEnrichmentResult(job)
	logger := o.logger.WithField("job_id", job.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Enrichment panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			result.Fail(fmt.Errorf("internal error: %v", r))
		}
		o.save(result)
	}()

	if existing := contact.ExistingContacts(job); len(existing) > 0 {
		sel := contact.Select(job, nil, false)
		result.Challenge = models.ChallengeSkipped
		result.Complete(sel.Contacts, sel.Best, sel.Tier)
		logger.Info("Reused listing contact", map[string]interface{}{"confidence": string(sel.Tier)})
		return result
	}

	if strings.TrimSpace(job.ID) == "" {
		result.Fail(utils.NewValidationError("job id is required"))
		return result
	}

	detailURL := o.detailURL(job)
	result.SourceURL = detailURL
	host := utils.HostOf(detailURL)

	if o.deps.Limiter != nil {
		if err := o.deps.Limiter.Wait(ctx, host); err != nil {
			logger.Warn("Navigation not permitted", map[string]interface{}{"host": host, "error": err.Error()})
			result.Fail(err)
			return result
		}
	}

	jobCtx := ctx
	if o.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, o.cfg.JobTimeout)
		defer cancel()
	}

	scan, err := o.scan(jobCtx, job, detailURL)
	if err != nil {
		if o.deps.Limiter != nil {
			o.deps.Limiter.RecordFailure(host, err)
		}
		logger.Error("Enrichment failed", map[string]interface{}{
			"url":   detailURL,
			"error": err.Error(),
		})
		result.Fail(err)
		return result
	}
	if o.deps.Limiter != nil {
		o.deps.Limiter.RecordSuccess(host)
	}

	if scan.finalURL != "" {
		result.SourceURL = scan.finalURL
	}
	result.Challenge = scan.outcome.ChallengeOutcome()
	challengeFailed := scan.outcome.State == captcha.StateFailed
	if challengeFailed {
		result.Error = "challenge not solved: " + scan.outcome.Reason
	}

	contacts := scan.contacts
	if challengeFailed {
		// the contact block stayed locked; only partner links are usable
		contacts = externalLinks(contacts)
	}
	if o.cfg.FollowExternalLinks && !hasDirect(contacts) {
		contacts = append(contacts, o.followPartnerLink(jobCtx, logger, job, contacts)...)
	}

	sel := contact.Select(job, contacts, challengeFailed)
	if sel.Tier == models.TierVeryHigh && fromPartnerPage(sel.Contacts) {
		sel.Tier = models.TierHigh
	}
	result.Complete(sel.Contacts, sel.Best, sel.Tier)

	logger.Info("Job enriched", map[string]interface{}{
		"confidence": string(result.Confidence),
		"contacts":   len(result.Contacts),
		"challenge":  string(result.Challenge),
		"cycles":     scan.outcome.Cycles,
	})
	return result
}

// scan visits the detail page: consent, challenge, then DOM extraction with
// an HTML pass when the DOM yields no email or phone
func (o *Orchestrator) scan(ctx context.Context, job models.JobRecord, detailURL string) (pageScan, error) {
	var scan pageScan

	err := o.deps.Visitor.Visit(ctx, job.ID, func(ctx context.Context, page browser.Page) error {
		logger := o.logger.WithField("job_id", job.ID)

		if err := o.deps.Consent.Preseed(ctx, page, detailURL); err != nil {
			logger.Debug("Consent preseed failed", map[string]interface{}{"error": err.Error()})
		}
		if err := page.Navigate(ctx, detailURL); err != nil {
			return utils.NewScrapingError(fmt.Sprintf("navigation to %s failed: %v", detailURL, err))
		}
		if err := o.sleep(ctx, o.cfg.StepDelay); err != nil {
			return err
		}

		o.deps.Consent.Handle(ctx, page, job.ID)
		if err := o.sleep(ctx, o.cfg.StepDelay); err != nil {
			return err
		}

		scan.outcome = o.deps.Challenge.Resolve(ctx, page, job.ID)
		scan.finalURL = page.URL()

		contacts, err := o.deps.Extractor.ExtractDOM(ctx, page)
		if err != nil {
			logger.Warn("DOM extraction failed, falling back to markup", map[string]interface{}{"error": err.Error()})
		}
		if !hasDirect(contacts) {
			html, err := page.HTML(ctx)
			if err != nil {
				logger.Warn("Failed to read page markup", map[string]interface{}{"error": err.Error()})
			} else {
				contacts = append(contacts, o.deps.Extractor.ExtractHTML(html, scan.finalURL)...)
			}
		}
		scan.contacts = contacts
		return nil
	})
	if err != nil {
		if errors.Is(err, browser.ErrLaunchFailed) {
			return scan, utils.NewBrowserLaunchError(err.Error())
		}
		return scan, err
	}
	return scan, nil
}

// followPartnerLink fetches the first external application link as HTML and
// returns the emails and phones found there
func (o *Orchestrator) followPartnerLink(ctx context.Context, logger logging.Logger, job models.JobRecord, contacts []models.Contact) []models.Contact {
	if o.deps.Fetcher == nil {
		return nil
	}

	target := job.ExternalURL
	for _, c := range contacts {
		if c.Type == models.ContactTypeExternalLink {
			target = c.Value
			break
		}
	}
	if target == "" {
		return nil
	}

	html, err := o.deps.Fetcher.Fetch(ctx, target)
	if err != nil {
		if !errors.Is(err, linked.ErrDisabled) {
			logger.Warn("Failed to fetch partner page", map[string]interface{}{"url": target, "error": err.Error()})
		}
		return nil
	}

	var found []models.Contact
	for _, c := range o.deps.Extractor.ExtractHTML(html, target) {
		if c.IsDirect() {
			c.Source = models.SourcePartnerPage
			found = append(found, c)
		}
	}
	logger.Debug("Followed partner page", map[string]interface{}{"url": target, "contacts": len(found)})
	return found
}

// detailURL prefers the listing URL and otherwise builds one from the job id
func (o *Orchestrator) detailURL(job models.JobRecord) string {
	if job.URL != "" {
		return job.URL
	}
	return strings.TrimRight(o.cfg.TargetBaseURL, "/") + "/" + url.PathEscape(job.ID)
}

// save hands the result to the sink without blocking the caller
func (o *Orchestrator) save(result *models.EnrichmentResult) {
	o.persist.Add(1)
	go func() {
		defer o.persist.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := o.deps.Sink.Save(ctx, result); err != nil {
			o.logger.Warn("Failed to persist enrichment result", map[string]interface{}{
				"job_id": result.Job.ID,
				"error":  err.Error(),
			})
		}
	}()
}

// Flush waits for pending sink writes
func (o *Orchestrator) Flush() {
	o.persist.Wait()
}

func hasDirect(contacts []models.Contact) bool {
	for _, c := range contacts {
		if c.IsDirect() {
			return true
		}
	}
	return false
}

func externalLinks(contacts []models.Contact) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if c.Type == models.ContactTypeExternalLink {
			out = append(out, c)
		}
	}
	return out
}

func fromPartnerPage(contacts []models.Contact) bool {
	if len(contacts) == 0 {
		return false
	}
	for _, c := range contacts {
		if c.Source != models.SourcePartnerPage {
			return false
		}
	}
	return true
}
