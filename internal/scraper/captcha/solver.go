// Package captcha detects and answers the image challenge that guards the
// contact block of a job detail page.
package captcha

import (
	"context"
	"errors"
	"fmt"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

var (
	// ErrNoAnswer is returned when the solver produced an empty answer
	ErrNoAnswer = errors.New("captcha: solver returned no answer")
	// ErrSolverUnavailable is returned when the provider is not configured
	ErrSolverUnavailable = errors.New("captcha: solver not configured")
)

// Request is one image to be read by a solver
type Request struct {
	Image         []byte
	MinLength     int
	MaxLength     int
	CaseSensitive bool
	Language      string
	Hint          string
}

// Answer is the solver's reading of an image. ID identifies the task for
// later reporting and may be empty.
type Answer struct {
	ID   string
	Text string
}

// Solver turns challenge images into text
type Solver interface {
	Solve(ctx context.Context, req Request) (Answer, error)
	// Report tells the provider whether an answer was accepted by the page
	Report(ctx context.Context, id string, correct bool) error
	Name() string
}

// NewSolver creates the solver selected by cfg.Provider
func NewSolver(cfg config.ChallengeConfig, llm config.LLMConfig, logger logging.Logger) (Solver, error) {
	switch cfg.Provider {
	case "", "2captcha":
		return NewTwoCaptchaSolver(cfg, logger), nil
	case "claude":
		return NewClaudeSolver(cfg, llm, logger), nil
	default:
		return nil, fmt.Errorf("unsupported captcha provider: %s", cfg.Provider)
	}
}

func requestHint(req Request) string {
	if req.Hint != "" {
		return req.Hint
	}
	hint := "Gib die dargestellten Zeichen ein"
	if req.MinLength > 0 && req.MaxLength > 0 {
		hint = fmt.Sprintf("%s (%d-%d Zeichen)", hint, req.MinLength, req.MaxLength)
	}
	return hint
}
