package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/pkg/utils"
)

const livenessTimeout = 5 * time.Second

// Session owns the single long-lived browser process shared by all jobs.
// The process is launched lazily, probed before reuse and relaunched when
// the probe fails.
type Session struct {
	cfg    config.BrowserConfig
	policy RequestPolicy
	slots  *Slots
	logger logging.Logger
	// openPage defaults to NewPage
	openPage func(ctx context.Context, jobID string) (Page, error)

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool

	launches    atomic.Int64
	relaunches  atomic.Int64
	pagesOpened atomic.Int64
	pagesClosed atomic.Int64
	blocked     atomic.Int64
}

// Metrics is a snapshot of session activity
type Metrics struct {
	Alive           bool      `json:"alive"`
	Launches        int64     `json:"launches"`
	Relaunches      int64     `json:"relaunches"`
	PagesOpened     int64     `json:"pages_opened"`
	PagesClosed     int64     `json:"pages_closed"`
	RequestsBlocked int64     `json:"requests_blocked"`
	Slots           SlotStats `json:"slots"`
}

func NewSession(cfg config.BrowserConfig, logger logging.Logger) *Session {
	s := &Session{
		cfg: cfg,
		policy: RequestPolicy{
			BlockedHosts:    cfg.BlockedHosts,
			AllowedPatterns: cfg.AllowedPatterns,
		},
		slots:  NewSlots(cfg.SlotCount),
		logger: logger.WithField("component", "browser_session"),
	}
	s.openPage = s.NewPage
	return s
}

// AcquireSlot blocks until one of the page slots is free
func (s *Session) AcquireSlot(ctx context.Context) error {
	return s.slots.Acquire(ctx)
}

// ReleaseSlot frees a slot taken with AcquireSlot
func (s *Session) ReleaseSlot() {
	s.slots.Release()
}

// Browser returns a live browser, launching or relaunching it as needed
func (s *Session) Browser(ctx context.Context) (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	if s.browser != nil {
		if alive(s.browser) {
			return s.browser, nil
		}
		s.logger.Warn("Browser process failed liveness probe, relaunching", map[string]interface{}{
			"launches": s.launches.Load(),
		})
		s.teardownLocked()
		s.relaunches.Add(1)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.LaunchRetries; attempt++ {
		if attempt > 0 {
			if err := utils.SleepContext(ctx, time.Duration(attempt)*time.Second); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
			}
		}

		b, l, err := s.launch(ctx)
		if err == nil {
			s.browser, s.launcher = b, l
			s.launches.Add(1)
			s.logger.Info("Browser launched", map[string]interface{}{
				"attempt":  attempt + 1,
				"headless": s.cfg.Headless,
			})
			return b, nil
		}

		lastErr = err
		s.logger.Error("Browser launch attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, lastErr)
}

func (s *Session) launch(ctx context.Context) (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().
		Headless(s.cfg.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-background-networking").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("lang", "de-DE")

	if bin := chromePath(s.cfg.BinPath); bin != "" {
		l = l.Bin(bin)
	} else {
		s.logger.Warn("System Chrome not found, rod will download a browser")
	}

	type launched struct {
		url string
		err error
	}
	done := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		done <- launched{url: u, err: err}
	}()

	timeout := s.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var controlURL string
	select {
	case res := <-done:
		if res.err != nil {
			return nil, nil, res.err
		}
		controlURL = res.url
	case <-timer.C:
		l.Kill()
		return nil, nil, fmt.Errorf("launch timed out after %s", timeout)
	case <-ctx.Done():
		l.Kill()
		return nil, nil, ctx.Err()
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect to browser: %w", err)
	}
	return b, l, nil
}

func alive(b *rod.Browser) bool {
	_, err := b.Timeout(livenessTimeout).Pages()
	return err == nil
}

// Healthy reports whether a launched browser answers the liveness probe.
// The probe runs outside the lock.
func (s *Session) Healthy() bool {
	s.mu.Lock()
	b, closed := s.browser, s.closed
	s.mu.Unlock()
	return !closed && b != nil && alive(b)
}

// NewPage opens a fresh tab for jobID with the realistic header set and the
// request filter installed.
func (s *Session) NewPage(ctx context.Context, jobID string) (Page, error) {
	b, err := s.Browser(ctx)
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if s.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	logger := s.logger.WithField("job_id", jobID)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		logger.Warn("Failed to set viewport", map[string]interface{}{"error": err.Error()})
	}

	if s.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.cfg.UserAgent,
			AcceptLanguage: s.cfg.AcceptLanguage,
			Platform:       "Win32",
		}); err != nil {
			logger.Warn("Failed to set user agent", map[string]interface{}{"error": err.Error()})
		}
	}

	if _, err := page.SetExtraHeaders([]string{
		"Accept-Language", s.cfg.AcceptLanguage,
		"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Upgrade-Insecure-Requests", "1",
	}); err != nil {
		logger.Warn("Failed to set extra headers", map[string]interface{}{"error": err.Error()})
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if s.policy.ShouldBlock(h.Request.Type(), h.Request.URL().String()) {
			s.blocked.Add(1)
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()

	s.pagesOpened.Add(1)
	return &rodPage{
		page:       page,
		router:     router,
		navTimeout: s.cfg.NavigationTimeout,
		onClose:    func() { s.pagesClosed.Add(1) },
	}, nil
}

// Visit acquires a slot, opens a page, runs fn and always closes the page
// and releases the slot, including when fn panics.
func (s *Session) Visit(ctx context.Context, jobID string, fn PageFunc) error {
	if err := s.AcquireSlot(ctx); err != nil {
		return fmt.Errorf("acquire page slot: %w", err)
	}
	defer s.ReleaseSlot()

	page, err := s.openPage(ctx, jobID)
	if err != nil {
		return err
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Debug("Failed to close page", map[string]interface{}{
				"job_id": jobID,
				"error":  err.Error(),
			})
		}
	}()

	return fn(ctx, page)
}

func (s *Session) Metrics() Metrics {
	s.mu.Lock()
	isAlive := !s.closed && s.browser != nil
	s.mu.Unlock()

	return Metrics{
		Alive:           isAlive,
		Launches:        s.launches.Load(),
		Relaunches:      s.relaunches.Load(),
		PagesOpened:     s.pagesOpened.Load(),
		PagesClosed:     s.pagesClosed.Load(),
		RequestsBlocked: s.blocked.Load(),
		Slots:           s.slots.Stats(),
	}
}

// Close shuts the browser down. Later calls to Browser fail with
// ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.teardownLocked()
	s.logger.Info("Browser session closed", map[string]interface{}{
		"pages_opened": s.pagesOpened.Load(),
	})
	return err
}

func (s *Session) teardownLocked() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return err
}
