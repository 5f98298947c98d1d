// Package gemini transcribes page images with Google's Gemini models.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/pdf-extractor/internal/llm"
)

// Config for the Gemini vision client.
type Config struct {
	APIKey      string
	Model       string // e.g. "gemini-2.0-flash"
	Temperature float32
	Timeout     time.Duration
}

// Client implements llm.VisionClient on top of genai.
type Client struct {
	cfg    Config
	sdk    *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{cfg: cfg, sdk: sdk, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini:" + c.cfg.Model }

// Transcribe implements llm.VisionClient.
func (c *Client) Transcribe(ctx context.Context, img llm.PageImage) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(img.Prompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	temp := c.cfg.Temperature

	resp, err := c.sdk.Models.GenerateContent(ctx, c.cfg.Model, contents, &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		c.logger.Error("vision.gemini.request_error",
			"path", img.Source, "page", img.PageNumber, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := llm.CleanTranscription(responseText(resp))
	c.logger.Info("vision.gemini.ok",
		"path", img.Source,
		"page", img.PageNumber,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
