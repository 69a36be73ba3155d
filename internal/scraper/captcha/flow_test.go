package captcha

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/internal/scraper/browser/browsertest"
)

const (
	imageSelector   = "#kontaktdaten-captcha-image"
	inputSelector   = "#kontaktdaten-captcha-input"
	submitSelector  = "#kontaktdaten-captcha-absenden-button"
	refreshSelector = "#kontaktdaten-captcha-reload-button"
)

type reportCall struct {
	id      string
	correct bool
}

type fakeSolver struct {
	mu      sync.Mutex
	solveFn func(n int, req Request) (Answer, error)
	calls   int
	reports []reportCall
}

func (s *fakeSolver) Solve(ctx context.Context, req Request) (Answer, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	return s.solveFn(n, req)
}

func (s *fakeSolver) Report(ctx context.Context, id string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, reportCall{id: id, correct: correct})
	return nil
}

func (s *fakeSolver) Name() string { return "fake" }

func answering(texts ...string) *fakeSolver {
	return &fakeSolver{solveFn: func(n int, _ Request) (Answer, error) {
		text := texts[len(texts)-1]
		if n <= len(texts) {
			text = texts[n-1]
		}
		return Answer{ID: "task-" + text, Text: text}, nil
	}}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testChallengeConfig() config.ChallengeConfig {
	cfg := config.Default().Challenge
	cfg.SettleDelay = 0
	cfg.ContactWait = 0
	return cfg
}

func newTestFlow(solver Solver, cfg config.ChallengeConfig) *Flow {
	f := NewFlow(solver, cfg, logging.NewNopLogger())
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

// challengePage has a visible challenge image, an input and a submit button
func challengePage() (*browsertest.Page, *browsertest.Element, *browsertest.Element, *browsertest.Element) {
	page := browsertest.NewPage("https://www.arbeitsagentur.de/jobsuche/jobdetail/1")
	image := page.AddElement(imageSelector, browsertest.NewElement(200, 50))
	image.ResourceBytes = []byte("png-bytes")
	input := page.AddElement(inputSelector, browsertest.NewElement(150, 30))
	submit := page.AddElement(submitSelector, browsertest.NewElement(80, 30))
	return page, image, input, submit
}

func TestResolveNoChallenge(t *testing.T) {
	solver := answering("abcde")
	page := browsertest.NewPage("https://www.arbeitsagentur.de/jobsuche/jobdetail/1")

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateNoChallenge, outcome.State)
	assert.Equal(t, 0, outcome.Cycles)
	assert.Empty(t, outcome.Attempts)
	assert.Zero(t, solver.calls)
}

func TestResolveIgnoresTinyImages(t *testing.T) {
	page := browsertest.NewPage("https://example.de")
	page.AddElement(imageSelector, browsertest.NewElement(1, 1))

	outcome := newTestFlow(answering("abcde"), testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateNoChallenge, outcome.State)
}

func TestResolveSolvedFirstTry(t *testing.T) {
	solver := answering("AbC12")
	page, image, input, submit := challengePage()
	submit.OnClick = func() { image.Detach() }

	cfg := testChallengeConfig()
	cfg.ContactWait = time.Second
	page.ReturnOnEval(contactScript, true)

	outcome := newTestFlow(solver, cfg).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateSolved, outcome.State)
	assert.True(t, outcome.Solved())
	assert.Equal(t, 1, outcome.Cycles)
	require.Len(t, outcome.Attempts, 1)
	assert.Equal(t, "AbC12", outcome.Attempts[0].SubmittedText)
	assert.Equal(t, []byte("png-bytes"), outcome.Attempts[0].ImageBytes)
	assert.True(t, outcome.Attempts[0].Accepted)
	assert.Equal(t, "AbC12", input.CurrentValue())
	assert.Equal(t, []reportCall{{id: "task-AbC12", correct: true}}, solver.reports)
	assert.Equal(t, 1, page.EvalCount(contactScript))
}

func TestResolveRetriesCaseVariants(t *testing.T) {
	tests := []struct {
		name          string
		caseSensitive bool
	}{
		{name: "case insensitive hint", caseSensitive: false},
		{name: "case sensitive hint", caseSensitive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solver := answering("AbC12")
			page, image, input, submit := challengePage()
			submit.OnClick = func() {
				if input.CurrentValue() == "abc12" {
					image.Detach()
				}
			}
			cfg := testChallengeConfig()
			cfg.CaseSensitive = tt.caseSensitive

			outcome := newTestFlow(solver, cfg).Resolve(context.Background(), page, "job-1")

			assert.Equal(t, StateSolved, outcome.State)
			assert.Equal(t, 1, outcome.Cycles)
			assert.Equal(t, 1, solver.calls)
			require.Len(t, outcome.Attempts, 3)
			assert.Equal(t, []string{"AbC12", "ABC12", "abc12"}, []string{
				outcome.Attempts[0].SubmittedText, outcome.Attempts[1].SubmittedText, outcome.Attempts[2].SubmittedText,
			})
			assert.False(t, outcome.Attempts[0].Accepted)
			assert.True(t, outcome.Attempts[2].Accepted)
		})
	}
}

func TestResolveRefreshesOnUnsupportedCharacters(t *testing.T) {
	solver := answering("Müll1", "Abcd1")
	page, image, _, submit := challengePage()
	reload := page.AddElement(refreshSelector, browsertest.NewElement(30, 30))
	submit.OnClick = func() { image.Detach() }

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateSolved, outcome.State)
	assert.Equal(t, 2, outcome.Cycles)
	assert.Equal(t, 1, reload.Clicks)
	require.Len(t, outcome.Attempts, 1)
	assert.Equal(t, "Abcd1", outcome.Attempts[0].SubmittedText)
}

func TestResolveFailsAfterMaxCycles(t *testing.T) {
	solver := answering("AbC12")
	page, _, _, submit := challengePage()
	reload := page.AddElement(refreshSelector, browsertest.NewElement(30, 30))

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, "cycle limit reached", outcome.Reason)
	assert.Equal(t, 3, outcome.Cycles)
	assert.Equal(t, 3, solver.calls)
	assert.Len(t, outcome.Attempts, 9)
	assert.Equal(t, 9, submit.Clicks)
	assert.Equal(t, 3, reload.Clicks)
	assert.Len(t, solver.reports, 3)
	for _, r := range solver.reports {
		assert.False(t, r.correct)
	}
}

func TestResolveStopsAtTimeBudget(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	solver := &fakeSolver{solveFn: func(int, Request) (Answer, error) {
		clock.Advance(40 * time.Second)
		return Answer{ID: "slow", Text: "AbC12"}, nil
	}}
	page, _, _, _ := challengePage()

	f := newTestFlow(solver, testChallengeConfig())
	f.now = clock.Now

	outcome := f.Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, "time budget exceeded", outcome.Reason)
	assert.Equal(t, 2, outcome.Cycles)
	assert.Equal(t, 80*time.Second, outcome.Elapsed)
}

func TestResolveFallsBackToScreenshot(t *testing.T) {
	solver := answering("AbC12")
	page, image, _, submit := challengePage()
	image.ResourceErr = errors.New("cross-origin")
	image.ScreenshotBytes = []byte("screenshot")
	submit.OnClick = func() { image.Detach() }

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	require.Len(t, outcome.Attempts, 1)
	assert.Equal(t, []byte("screenshot"), outcome.Attempts[0].ImageBytes)
}

func TestResolvePressesEnterWithoutSubmitButton(t *testing.T) {
	solver := answering("AbC12")
	page, image, input, _ := challengePage()
	page.RemoveElement(submitSelector)
	input.OnEnter = func() { image.Detach() }

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateSolved, outcome.State)
	assert.Equal(t, 1, input.Enters)
}

func TestResolveSolverErrorsCountAsFailedAttempts(t *testing.T) {
	solver := &fakeSolver{solveFn: func(n int, _ Request) (Answer, error) {
		if n == 1 {
			return Answer{}, errors.New("ERROR_CAPTCHA_UNSOLVABLE")
		}
		return Answer{ID: "2", Text: "Abcd1"}, nil
	}}
	page, image, _, submit := challengePage()
	submit.OnClick = func() { image.Detach() }

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateSolved, outcome.State)
	assert.Equal(t, 2, outcome.Cycles)
}

func TestResolveUnavailableSolverFailsFast(t *testing.T) {
	solver := &fakeSolver{solveFn: func(int, Request) (Answer, error) {
		return Answer{}, ErrSolverUnavailable
	}}
	page, _, _, _ := challengePage()

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, 1, solver.calls)
	assert.Equal(t, 1, outcome.Cycles)
}

func TestResolveUsesCopyHeuristic(t *testing.T) {
	solver := answering("AbC12")
	page := browsertest.NewPage("https://example.de")
	image := page.AddElement("["+heuristicAttr+"]", browsertest.NewElement(180, 60))
	image.ResourceBytes = []byte("img")
	input := page.AddElement("input[name*='captcha']", browsertest.NewElement(150, 30))
	input.OnEnter = func() { image.Detach() }
	page.OnEval(heuristicScript, func(...interface{}) (interface{}, error) {
		return !image.Detached(), nil
	})

	outcome := newTestFlow(solver, testChallengeConfig()).Resolve(context.Background(), page, "job-1")

	assert.Equal(t, StateSolved, outcome.State)
	assert.Equal(t, 1, input.Enters)
}

func TestResolveCancelledContext(t *testing.T) {
	page, _, _, _ := challengePage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := newTestFlow(answering("AbC12"), testChallengeConfig()).Resolve(ctx, page, "job-1")

	assert.Equal(t, StateFailed, outcome.State)
	assert.Equal(t, 0, outcome.Cycles)
}

func TestOutcomeChallengeOutcome(t *testing.T) {
	assert.Equal(t, "solved", string(Outcome{State: StateSolved}.ChallengeOutcome()))
	assert.Equal(t, "no_challenge", string(Outcome{State: StateNoChallenge}.ChallengeOutcome()))
	assert.Equal(t, "failed", string(Outcome{State: StateFailed}.ChallengeOutcome()))
}

func TestAnswerVariants(t *testing.T) {
	assert.Equal(t, []string{"AbC12", "ABC12", "abc12"}, answerVariants("AbC12"))
	assert.Equal(t, []string{"abc12", "ABC12"}, answerVariants("abc12"))
	assert.Equal(t, []string{"12345"}, answerVariants("12345"))
}
