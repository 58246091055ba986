// Package minutes turns a raw transcript into structured meeting
// minutes by prompting an OpenAI-compatible chat model.
package minutes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/fmueller/voxnotes/internal/config"
	"go.uber.org/zap"
)

// ErrNotConfigured means no API key was provided; minutes generation is
// an optional feature and the rest of the app works without it.
var ErrNotConfigured = errors.New("minutes generation is not configured")

const DefaultTemplate = "business"

// Prompt placeholders: {transcript} and {date}.
const defaultBusinessTemplate = `You are an experienced business consultant. Create professional
meeting minutes from the transcript below.

Date: {date}
Transcript:
{transcript}

Produce markdown with these sections: Attendees, Action Items
(owner and due date when stated), Decisions, and Discussion Notes
grouped by topic.

Strict rules:
- Never invent information that is not in the transcript; write
  "[not stated]" for anything unclear.
- Only list decisions that were explicitly agreed on.
- Transcribe numbers, dates, and proper nouns exactly.
- Keep discussion notes thorough; completeness beats brevity.`

type Generator struct {
	client    *openai.Client
	model     string
	templates map[string]string
	now       func() time.Time
	logger    *zap.Logger
}

// New builds a generator from config. The API key is read from the
// environment variable the config names, never stored in the file.
func New(cfg config.MinutesConfig, logger *zap.Logger) (*Generator, error) {
	if !cfg.Enabled {
		return nil, ErrNotConfigured
	}

	apiKey := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrNotConfigured, cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	templates := map[string]string{DefaultTemplate: defaultBusinessTemplate}
	for name, tmpl := range cfg.Templates {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(tmpl) == "" {
			continue
		}
		templates[name] = tmpl
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		templates: templates,
		now:       time.Now,
		logger:    logger,
	}, nil
}

func (g *Generator) TemplateNames() []string {
	names := make([]string, 0, len(g.templates))
	for name := range g.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate renders the named template with the transcript and asks the
// model for minutes. An empty templateName means the default.
func (g *Generator) Generate(ctx context.Context, transcript, templateName string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errors.New("transcript is empty")
	}

	if templateName == "" {
		templateName = DefaultTemplate
	}
	tmpl, ok := g.templates[templateName]
	if !ok {
		return "", fmt.Errorf("unknown minutes template %q", templateName)
	}

	prompt := renderTemplate(tmpl, transcript, g.now())

	started := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("minutes completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("minutes completion returned no choices")
	}

	g.logger.Info("minutes generated",
		zap.String("template", templateName),
		zap.Duration("elapsed", time.Since(started)),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func renderTemplate(tmpl, transcript string, now time.Time) string {
	return strings.NewReplacer(
		"{transcript}", transcript,
		"{date}", now.Format("2006-01-02"),
	).Replace(tmpl)
}
