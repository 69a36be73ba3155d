// Package consent gets cookie-consent overlays out of the way before the
// contact section of a page is read.
package consent

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ysmood/gson"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/internal/scraper/browser"
	"jobleads/pkg/utils"
)

// targetAttr tags the accept control chosen by markAcceptScript
const targetAttr = "data-consent-target"

// Strategy names the step that cleared the consent wall
type Strategy string

const (
	StrategyNone        Strategy = "none"
	StrategyCookies     Strategy = "cookies"
	StrategyAPI         Strategy = "api"
	StrategyClick       Strategy = "click"
	StrategySecondClick Strategy = "second_click"
	StrategyRemoval     Strategy = "removal"
)

// Result describes how a consent wall was handled
type Result struct {
	Strategy   Strategy
	BannerSeen bool
}

// Handler runs the consent strategies in order of cost
type Handler struct {
	cfg    config.ConsentConfig
	logger logging.Logger
}

func NewHandler(cfg config.ConsentConfig, logger logging.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger.WithField("component", "consent"),
	}
}

// Preseed sets the known consent cookies for pageURL. Call it before
// navigating so the first render already sees them.
func (h *Handler) Preseed(ctx context.Context, page browser.Page, pageURL string) error {
	if len(h.cfg.Cookies) == 0 {
		return nil
	}

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	cookies := make([]browser.Cookie, 0, len(h.cfg.Cookies))
	for _, c := range h.cfg.Cookies {
		cookie := browser.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path}
		if cookie.Domain == "" {
			cookie.Domain = host
		}
		if cookie.Domain == "" {
			cookie.URL = pageURL
		}
		cookies = append(cookies, cookie)
	}

	if err := page.SetCookies(ctx, cookies); err != nil {
		return fmt.Errorf("failed to preseed consent cookies: %w", err)
	}
	return nil
}

// Handle clears the consent wall as far as it can and always returns true:
// a banner that stays up must not stop enrichment.
func (h *Handler) Handle(ctx context.Context, page browser.Page, jobID string) bool {
	result := h.Resolve(ctx, page, jobID)

	h.logger.Debug("Consent handled", map[string]interface{}{
		"job_id":      jobID,
		"strategy":    string(result.Strategy),
		"banner_seen": result.BannerSeen,
	})
	return true
}

// Resolve runs the strategies and reports which one cleared the wall. It
// never panics; page errors only move it on to the next strategy.
func (h *Handler) Resolve(ctx context.Context, page browser.Page, jobID string) (result Result) {
	result = Result{Strategy: StrategyNone}
	logger := h.logger.WithField("job_id", jobID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Consent handling panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			result = Result{Strategy: StrategyNone, BannerSeen: result.BannerSeen}
		}
	}()

	seeded := len(h.cfg.Cookies) > 0
	if len(h.cfg.StorageFlags) > 0 {
		if _, err := page.Eval(ctx, storageScript, h.cfg.StorageFlags); err != nil {
			logger.Debug("Failed to set consent storage flags", map[string]interface{}{"error": err.Error()})
		} else {
			seeded = true
		}
	}

	if !h.pollForBanner(ctx, page) {
		if seeded {
			result.Strategy = StrategyCookies
		}
		return result
	}
	result.BannerSeen = true

	if called, err := page.Eval(ctx, consentAPIScript); err == nil && truthy(called) {
		h.settle(ctx)
		if !h.bannerPresent(ctx, page) {
			result.Strategy = StrategyAPI
			return result
		}
	}

	if h.clickAccept(ctx, page, logger) {
		h.settle(ctx)
		if !h.bannerPresent(ctx, page) {
			result.Strategy = StrategyClick
			return result
		}
		// two-step flows show a second banner after the first accept
		if h.clickAccept(ctx, page, logger) {
			h.settle(ctx)
			if !h.bannerPresent(ctx, page) {
				result.Strategy = StrategySecondClick
				return result
			}
		}
	}

	if removed, err := page.Eval(ctx, removeOverlaysScript, h.cfg.Vocabulary, h.cfg.VendorMarkers); err != nil {
		logger.Warn("Failed to remove consent overlays", map[string]interface{}{"error": err.Error()})
	} else {
		logger.Debug("Removed consent overlays", map[string]interface{}{"removed": removed.Val()})
	}
	result.Strategy = StrategyRemoval
	return result
}

// pollForBanner checks for a banner a bounded number of times, scrolling
// between checks.
func (h *Handler) pollForBanner(ctx context.Context, page browser.Page) bool {
	iterations := h.cfg.PollIterations
	if iterations < 1 {
		iterations = 1
	}

	for i := 0; i < iterations; i++ {
		if h.bannerPresent(ctx, page) {
			return true
		}
		if i == iterations-1 {
			break
		}
		_, _ = page.Eval(ctx, scrollScript, i%2 == 0)
		if err := utils.SleepContext(ctx, h.cfg.PollInterval); err != nil {
			return false
		}
	}
	return false
}

func (h *Handler) bannerPresent(ctx context.Context, page browser.Page) bool {
	res, err := page.Eval(ctx, bannerScript, h.cfg.BannerPhrases, h.cfg.VendorMarkers)
	if err != nil {
		return false
	}
	return truthy(res)
}

// clickAccept tags the first matching accept control and clicks it, falling
// back to synthetic events and then the Enter key. Controls inside a shadow
// root cannot be found by selector and only get the synthetic events.
func (h *Handler) clickAccept(ctx context.Context, page browser.Page, logger logging.Logger) bool {
	res, err := page.Eval(ctx, markAcceptScript, h.cfg.AcceptPhrases, targetAttr)
	if err != nil {
		return false
	}
	label, _ := res.Val().(string)
	if label == "" {
		return false
	}

	el, findErr := page.Find(ctx, "["+targetAttr+"]")
	if findErr == nil {
		if err := el.Click(); err == nil {
			logger.Debug("Clicked consent control", map[string]interface{}{"label": label})
			return true
		}
	}
	if ok, err := page.Eval(ctx, dispatchClickScript, targetAttr); err == nil && truthy(ok) {
		logger.Debug("Dispatched click on consent control", map[string]interface{}{"label": label})
		return true
	}
	return findErr == nil && el.PressEnter() == nil
}

func truthy(j gson.JSON) bool {
	b, ok := j.Val().(bool)
	return ok && b
}

func (h *Handler) settle(ctx context.Context) {
	_ = utils.SleepContext(ctx, h.cfg.SettleDelay)
}
