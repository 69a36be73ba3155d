package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ysmood/gson"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/internal/scraper/browser"
	"jobleads/pkg/models"
	"jobleads/pkg/utils"
)

// heuristicAttr tags an image found by the copy heuristic so it can be
// looked up as an element
const heuristicAttr = "data-challenge-image"

// heuristicScript looks for an image near challenge copy when none of the
// known selectors matched
const heuristicScript = `(copy, attr) => {
	document.querySelectorAll('[' + attr + ']').forEach((el) => el.removeAttribute(attr));
	const words = (copy || []).map((w) => w.toLowerCase());
	const named = (el) => ['id', 'class', 'src', 'alt', 'name', 'aria-label']
		.map((a) => (el.getAttribute(a) || '').toLowerCase())
		.some((v) => v.includes('captcha') || v.includes('sicherheitsabfrage'));
	for (const img of document.querySelectorAll('img')) {
		let near = named(img);
		for (let n = img.parentElement, depth = 0; !near && n && depth < 4; n = n.parentElement, depth++) {
			const text = (n.innerText || '').toLowerCase();
			near = words.some((w) => text.includes(w)) || named(n);
		}
		if (!near) continue;
		const r = img.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		img.setAttribute(attr, '1');
		return true;
	}
	return false;
}`

// contactScript reports whether the contact block has been revealed
const contactScript = `() => {
	if (document.querySelector('a[href^="mailto:"], a[href^="tel:"]')) return true;
	const text = (document.body ? document.body.innerText : '') || '';
	return /(E-?Mail|Telefon)\s*:/i.test(text);
}`

// ChallengeAttempt is one submitted answer
type ChallengeAttempt struct {
	ImageBytes    []byte `json:"-"`
	SubmittedText string `json:"submittedText"`
	Accepted      bool   `json:"accepted"`
	AttemptIndex  int    `json:"attemptIndex"`
	Cycle         int    `json:"cycle"`
}

// Outcome is the terminal result of one Resolve call
type Outcome struct {
	State    State
	Attempts []ChallengeAttempt
	Cycles   int
	Elapsed  time.Duration
	Reason   string
}

// Solved reports whether the page no longer shows the challenge
func (o Outcome) Solved() bool {
	return o.State == StateSolved
}

// ChallengeOutcome maps the terminal state to the result field
func (o Outcome) ChallengeOutcome() models.ChallengeOutcome {
	switch o.State {
	case StateSolved:
		return models.ChallengeSolved
	case StateNoChallenge:
		return models.ChallengeNone
	default:
		return models.ChallengeFailed
	}
}

// Flow drives one page through detect, capture, solve, submit and verify
// until the challenge is gone or the cycle or time bound is hit.
type Flow struct {
	solver Solver
	cfg    config.ChallengeConfig
	logger logging.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFlow(solver Solver, cfg config.ChallengeConfig, logger logging.Logger) *Flow {
	if cfg.MaxCycles < 1 {
		cfg.MaxCycles = 1
	}
	return &Flow{
		solver: solver,
		cfg:    cfg,
		logger: logger.WithField("component", "challenge_flow"),
		now:    time.Now,
		sleep:  utils.SleepContext,
	}
}

// run is the mutable state of a single Resolve call
type run struct {
	page   browser.Page
	logger logging.Logger
	start  time.Time

	cycles     int
	image      []byte
	answer     Answer
	variants   []string
	variantIdx int
	attempts   []ChallengeAttempt
	reason     string
}

// Resolve runs the state machine on page. It never returns an error: page
// failures and exhausted bounds end in StateFailed with a reason.
func (f *Flow) Resolve(ctx context.Context, page browser.Page, jobID string) Outcome {
	r := &run{
		page:   page,
		logger: f.logger.WithField("job_id", jobID),
		start:  f.now(),
	}

	state := StateDetect
	for !state.Terminal() {
		next := f.guard(ctx, r, state)
		if next == "" {
			next = f.step(ctx, r, state)
		}
		if !canTransition(state, next) {
			r.reason = fmt.Sprintf("illegal transition %s -> %s", state, next)
			next = StateFailed
		}

		r.logger.Debug("Challenge state transition", map[string]interface{}{
			"from":   string(state),
			"to":     string(next),
			"cycle":  r.cycles,
			"reason": r.reason,
		})
		state = next
	}

	outcome := Outcome{
		State:    state,
		Attempts: r.attempts,
		Cycles:   r.cycles,
		Elapsed:  f.now().Sub(r.start),
		Reason:   r.reason,
	}

	switch state {
	case StateSolved:
		f.waitForContacts(ctx, page)
		r.logger.Info("Challenge solved", map[string]interface{}{
			"cycles":   outcome.Cycles,
			"attempts": len(outcome.Attempts),
			"elapsed":  utils.FormatDuration(outcome.Elapsed),
		})
	case StateFailed:
		r.logger.Warn("Challenge not solved", map[string]interface{}{
			"cycles":   outcome.Cycles,
			"attempts": len(outcome.Attempts),
			"elapsed":  utils.FormatDuration(outcome.Elapsed),
			"reason":   outcome.Reason,
		})
	}
	return outcome
}

// guard enforces cancellation, the time budget and the cycle limit. It
// returns StateFailed when a bound is hit and "" otherwise.
func (f *Flow) guard(ctx context.Context, r *run, state State) State {
	if err := ctx.Err(); err != nil {
		r.reason = err.Error()
		return StateFailed
	}
	if f.cfg.TimeBudget > 0 && f.now().Sub(r.start) >= f.cfg.TimeBudget {
		r.reason = "time budget exceeded"
		return StateFailed
	}
	if state == StateCapture && r.cycles >= f.cfg.MaxCycles {
		r.reason = "cycle limit reached"
		return StateFailed
	}
	return ""
}

func (f *Flow) step(ctx context.Context, r *run, state State) State {
	switch state {
	case StateDetect:
		return f.detect(ctx, r)
	case StateCapture:
		return f.capture(ctx, r)
	case StateSolve:
		return f.solve(ctx, r)
	case StateSanitize:
		return f.sanitize(r)
	case StateSubmit:
		return f.submit(ctx, r)
	case StateVerify:
		return f.verify(ctx, r)
	case StateRetryVariant:
		r.variantIdx++
		return StateSubmit
	case StateRefresh:
		return f.refresh(ctx, r)
	default:
		r.reason = fmt.Sprintf("unknown state %s", state)
		return StateFailed
	}
}

func (f *Flow) detect(ctx context.Context, r *run) State {
	if _, err := f.findImage(ctx, r.page); err != nil {
		return StateNoChallenge
	}
	return StateCapture
}

func (f *Flow) capture(ctx context.Context, r *run) State {
	r.cycles++
	r.answer = Answer{}
	r.variants = nil
	r.variantIdx = 0

	el, err := f.findImage(ctx, r.page)
	if err != nil {
		r.reason = "challenge image disappeared before capture"
		return StateFailed
	}

	// the exact bytes behind src read better than a re-rendered screenshot
	image, err := el.Resource()
	if err != nil || len(image) == 0 {
		image, err = el.Screenshot()
	}
	if err != nil || len(image) == 0 {
		r.logger.Warn("Failed to capture challenge image", map[string]interface{}{"error": errString(err)})
		return StateRefresh
	}

	r.image = image
	return StateSolve
}

func (f *Flow) solve(ctx context.Context, r *run) State {
	// the solver may not outlive the remaining budget
	solveCtx := ctx
	if f.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, f.cfg.TimeBudget-f.now().Sub(r.start))
		defer cancel()
	}

	answer, err := f.solver.Solve(solveCtx, Request{
		Image:         r.image,
		MinLength:     f.cfg.MinLength,
		MaxLength:     f.cfg.MaxLength,
		CaseSensitive: f.cfg.CaseSensitive,
		Language:      f.cfg.Language,
	})
	if err != nil || strings.TrimSpace(answer.Text) == "" {
		if err == nil {
			err = ErrNoAnswer
		}
		r.logger.Warn("Challenge solver failed", map[string]interface{}{
			"solver": f.solver.Name(),
			"error":  err.Error(),
		})
		if errors.Is(err, ErrSolverUnavailable) {
			r.reason = err.Error()
			return StateFailed
		}
		return StateRefresh
	}

	r.answer = answer
	return StateSanitize
}

func (f *Flow) sanitize(r *run) State {
	text := strings.Join(strings.Fields(r.answer.Text), "")

	if f.cfg.UnsupportedRunes != "" && strings.ContainsAny(text, f.cfg.UnsupportedRunes) {
		// the form mangles these, a new image is cheaper than a lost submission
		r.logger.Debug("Answer contains unsupported characters, requesting new image", map[string]interface{}{
			"answer": text,
		})
		return StateRefresh
	}
	n := len([]rune(text))
	if (f.cfg.MinLength > 0 && n < f.cfg.MinLength) || (f.cfg.MaxLength > 0 && n > f.cfg.MaxLength) {
		r.logger.Debug("Answer length out of range, requesting new image", map[string]interface{}{
			"answer": text,
			"length": n,
		})
		return StateRefresh
	}

	r.variants = answerVariants(text)
	r.variantIdx = 0
	return StateSubmit
}

// answerVariants returns the answer followed by its upper and lower case
// variants, without duplicates. They are tried whatever the case hint.
func answerVariants(text string) []string {
	candidates := []string{text, strings.ToUpper(text), strings.ToLower(text)}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			variants = append(variants, c)
		}
	}
	return variants
}

func (f *Flow) submit(ctx context.Context, r *run) State {
	text := r.variants[r.variantIdx]

	input, err := f.findFirst(ctx, r.page, f.cfg.InputSelectors)
	if err != nil {
		r.reason = "challenge input not found"
		return StateFailed
	}
	if err := input.Fill(text); err != nil {
		r.reason = fmt.Sprintf("failed to type answer: %v", err)
		return StateFailed
	}

	submitted := false
	if button, err := f.findFirst(ctx, r.page, f.cfg.SubmitSelectors); err == nil {
		submitted = button.Click() == nil
	}
	if !submitted {
		if err := input.PressEnter(); err != nil {
			r.reason = fmt.Sprintf("failed to submit answer: %v", err)
			return StateFailed
		}
	}

	r.attempts = append(r.attempts, ChallengeAttempt{
		ImageBytes:    r.image,
		SubmittedText: text,
		AttemptIndex:  len(r.attempts),
		Cycle:         r.cycles,
	})

	_ = f.sleep(ctx, f.cfg.SettleDelay)
	return StateVerify
}

func (f *Flow) verify(ctx context.Context, r *run) State {
	if _, err := f.findImage(ctx, r.page); err != nil {
		r.attempts[len(r.attempts)-1].Accepted = true
		f.report(ctx, r, true)
		return StateSolved
	}

	if r.variantIdx+1 < len(r.variants) {
		return StateRetryVariant
	}
	f.report(ctx, r, false)
	return StateRefresh
}

func (f *Flow) refresh(ctx context.Context, r *run) State {
	if button, err := f.findFirst(ctx, r.page, f.cfg.RefreshSelectors); err == nil {
		if err := button.Click(); err != nil {
			r.logger.Debug("Failed to click challenge reload", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = f.sleep(ctx, f.cfg.SettleDelay)
	return StateCapture
}

func (f *Flow) report(ctx context.Context, r *run, correct bool) {
	if r.answer.ID == "" {
		return
	}
	if err := f.solver.Report(ctx, r.answer.ID, correct); err != nil {
		r.logger.Debug("Failed to report challenge answer", map[string]interface{}{
			"captcha_id": r.answer.ID,
			"correct":    correct,
			"error":      err.Error(),
		})
	}
}

// findImage returns the visible challenge image, trying the configured
// selectors first and the copy heuristic second
func (f *Flow) findImage(ctx context.Context, page browser.Page) (browser.Element, error) {
	for _, selector := range f.cfg.ImageSelectors {
		if el, err := page.Find(ctx, selector); err == nil && f.usableImage(el) {
			return el, nil
		}
	}

	res, err := page.Eval(ctx, heuristicScript, f.cfg.ChallengeCopy, heuristicAttr)
	if err != nil || !truthy(res) {
		return nil, browser.ErrElementNotFound
	}
	el, err := page.Find(ctx, "["+heuristicAttr+"]")
	if err != nil || !f.usableImage(el) {
		return nil, browser.ErrElementNotFound
	}
	return el, nil
}

// usableImage rejects hidden images and tiny placeholders
func (f *Flow) usableImage(el browser.Element) bool {
	if visible, err := el.Visible(); err != nil || !visible {
		return false
	}
	w, h, err := el.Size()
	if err != nil {
		return false
	}
	return w >= f.cfg.MinImageWidth && h >= f.cfg.MinImageHeight && w > 0 && h > 0
}

func (f *Flow) findFirst(ctx context.Context, page browser.Page, selectors []string) (browser.Element, error) {
	for _, selector := range selectors {
		el, err := page.Find(ctx, selector)
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err == nil && visible {
			return el, nil
		}
	}
	return nil, browser.ErrElementNotFound
}

// waitForContacts gives the revealed contact block a bounded amount of time
// to render
func (f *Flow) waitForContacts(ctx context.Context, page browser.Page) {
	if f.cfg.ContactWait <= 0 {
		return
	}
	deadline := f.now().Add(f.cfg.ContactWait)
	for f.now().Before(deadline) {
		if res, err := page.Eval(ctx, contactScript); err == nil && truthy(res) {
			return
		}
		if err := f.sleep(ctx, 250*time.Millisecond); err != nil {
			return
		}
	}
}

func truthy(j gson.JSON) bool {
	b, ok := j.Val().(bool)
	return ok && b
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
