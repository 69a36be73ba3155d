package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

// TwoCaptchaSolver sends images to the 2captcha human solving service
type TwoCaptchaSolver struct {
	cfg    config.ChallengeConfig
	client *api2captcha.Client
	logger logging.Logger
}

// NewTwoCaptchaSolver creates a new 2captcha solver instance
func NewTwoCaptchaSolver(cfg config.ChallengeConfig, logger logging.Logger) *TwoCaptchaSolver {
	logger = logger.WithField("component", "2captcha")

	if cfg.APIKey == "" {
		logger.Warn("2captcha API key not configured - challenge solving will fail")
	}

	client := api2captcha.NewClient(cfg.APIKey)
	if cfg.Timeout > 0 {
		client.DefaultTimeout = int(cfg.Timeout.Seconds())
	}
	if cfg.PollingInterval > 0 {
		client.PollingInterval = int(cfg.PollingInterval.Seconds())
	}

	logger.Info("2captcha client configured", map[string]interface{}{
		"default_timeout":  client.DefaultTimeout,
		"polling_interval": client.PollingInterval,
	})

	return &TwoCaptchaSolver{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

func (s *TwoCaptchaSolver) Name() string {
	return "2captcha"
}

// normalCaptcha builds the 2captcha image task for req
func normalCaptcha(req Request) api2captcha.Normal {
	return api2captcha.Normal{
		Base64:        base64.StdEncoding.EncodeToString(req.Image),
		CaseSensitive: req.CaseSensitive,
		MinLen:        req.MinLength,
		MaxLen:        req.MaxLength,
		Lang:          req.Language,
		HintText:      requestHint(req),
	}
}

// Solve submits a normal image captcha and waits for the answer. The client
// library blocks without a context, so the call runs in its own goroutine
// and is abandoned when ctx ends.
func (s *TwoCaptchaSolver) Solve(ctx context.Context, req Request) (Answer, error) {
	if s.cfg.APIKey == "" {
		return Answer{}, ErrSolverUnavailable
	}
	if len(req.Image) == 0 {
		return Answer{}, fmt.Errorf("captcha: empty image")
	}

	captcha := normalCaptcha(req)

	type result struct {
		code, id string
		err      error
	}
	done := make(chan result, 1)
	startTime := time.Now()

	go func() {
		code, id, err := s.client.Solve(captcha.ToRequest())
		done <- result{code: code, id: id, err: err}
	}()

	select {
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			s.logger.Error("Failed to solve image captcha", map[string]interface{}{
				"captcha_id": r.id,
				"error":      r.err.Error(),
				"timeout":    errors.Is(r.err, api2captcha.ErrTimeout),
			})
			return Answer{ID: r.id}, fmt.Errorf("2captcha solve failed: %w", r.err)
		}
		if r.code == "" {
			return Answer{ID: r.id}, ErrNoAnswer
		}

		s.logger.Info("Image captcha solved", map[string]interface{}{
			"captcha_id":   r.id,
			"solving_time": time.Since(startTime).String(),
		})
		return Answer{ID: r.id, Text: r.code}, nil
	}
}

// Report flags an answer as accepted or rejected so bad answers are refunded
func (s *TwoCaptchaSolver) Report(ctx context.Context, id string, correct bool) error {
	if id == "" || s.cfg.APIKey == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Report(id, correct); err != nil {
		return fmt.Errorf("2captcha report failed: %w", err)
	}
	return nil
}

// Balance returns the remaining account balance
func (s *TwoCaptchaSolver) Balance(ctx context.Context) (float64, error) {
	if s.cfg.APIKey == "" {
		return 0, ErrSolverUnavailable
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	balance, err := s.client.GetBalance()
	if err != nil {
		return 0, fmt.Errorf("2captcha balance check failed: %w", err)
	}
	return balance, nil
}
