package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

// ClaudeSolver reads challenge images with Claude's vision input
type ClaudeSolver struct {
	client    anthropic.Client
	cfg       config.ChallengeConfig
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	apiKey    string
	logger    logging.Logger
}

// NewClaudeSolver creates a new Claude solver instance
func NewClaudeSolver(cfg config.ChallengeConfig, llm config.LLMConfig, logger logging.Logger) *ClaudeSolver {
	apiKey := llm.APIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}

	model := anthropic.ModelClaude3_7SonnetLatest
	if llm.Model != "" {
		model = anthropic.Model(llm.Model)
	}

	maxTokens := int64(llm.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 64
	}

	return &ClaudeSolver{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		cfg:       cfg,
		model:     model,
		maxTokens: maxTokens,
		timeout:   llm.Timeout,
		apiKey:    apiKey,
		logger:    logger.WithField("component", "claude_captcha"),
	}
}

func (s *ClaudeSolver) Name() string {
	return "claude"
}

// Solve asks the model to transcribe the image
func (s *ClaudeSolver) Solve(ctx context.Context, req Request) (Answer, error) {
	if s.apiKey == "" {
		return Answer{}, ErrSolverUnavailable
	}
	if len(req.Image) == 0 {
		return Answer{}, fmt.Errorf("captcha: empty image")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startTime := time.Now()
	response, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(imageMediaType(req.Image), base64.StdEncoding.EncodeToString(req.Image)),
				anthropic.NewTextBlock(buildTranscriptionPrompt(req)),
			),
		},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to call Claude API: %w", err)
	}

	var text string
	for _, content := range response.Content {
		if t := content.AsText().Text; t != "" {
			text = t
			break
		}
	}
	text = cleanTranscription(text)
	if text == "" {
		return Answer{ID: response.ID}, ErrNoAnswer
	}

	s.logger.Info("Image captcha transcribed", map[string]interface{}{
		"model":        string(s.model),
		"solving_time": time.Since(startTime).String(),
	})
	return Answer{ID: response.ID, Text: text}, nil
}

// Report is a no-op, there is no feedback channel for model answers
func (s *ClaudeSolver) Report(ctx context.Context, id string, correct bool) error {
	return nil
}

func buildTranscriptionPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("The image shows a distorted text challenge. Reply with the characters exactly as shown and nothing else. ")
	if req.MinLength > 0 && req.MaxLength > 0 {
		fmt.Fprintf(&b, "The answer has between %d and %d characters. ", req.MinLength, req.MaxLength)
	}
	if req.CaseSensitive {
		b.WriteString("Upper and lower case matter. ")
	} else {
		b.WriteString("Case does not matter. ")
	}
	b.WriteString("Use only the letters a-z, A-Z and digits 0-9.")
	return b.String()
}

// cleanTranscription keeps the first token of the reply without quotes or
// code fences
func cleanTranscription(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`\"' \n")
	if fields := strings.Fields(text); len(fields) > 0 {
		return strings.Trim(fields[0], "`\"'.,")
	}
	return ""
}

func imageMediaType(image []byte) string {
	switch {
	case len(image) >= 3 && image[0] == 0xFF && image[1] == 0xD8 && image[2] == 0xFF:
		return "image/jpeg"
	case len(image) >= 4 && string(image[:4]) == "GIF8":
		return "image/gif"
	case len(image) >= 12 && string(image[:4]) == "RIFF" && string(image[8:12]) == "WEBP":
		return "image/webp"
	default:
		return "image/png"
	}
}
