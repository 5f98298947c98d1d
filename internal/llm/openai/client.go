package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/joseph-ayodele/pdf-extractor/internal/llm"
)

// Config for the OpenAI vision client.
type Config struct {
	APIKey      string        // required
	BaseURL     string        // optional, e.g. an OpenAI-compatible gateway
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // per request
	MaxRetries  int
}

// Client transcribes page images with the chat completions API.
type Client struct {
	cfg    Config
	sdk    openaisdk.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{cfg: cfg, sdk: openaisdk.NewClient(opts...), logger: logger}
}

func (c *Client) Name() string { return "openai:" + c.cfg.Model }

// Transcribe implements llm.VisionClient.
func (c *Client) Transcribe(ctx context.Context, img llm.PageImage) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("vision.openai.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"path", img.Source,
		"page", img.PageNumber,
		"image_bytes", len(img.Data),
	)

	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.cfg.Model),
		Temperature: openaisdk.Float(float64(c.cfg.Temperature)),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			{
				OfUser: &openaisdk.ChatCompletionUserMessageParam{
					Content: openaisdk.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openaisdk.ChatCompletionContentPartUnionParam{
							{OfText: &openaisdk.ChatCompletionContentPartTextParam{Text: img.Prompt}},
							{OfImageURL: &openaisdk.ChatCompletionContentPartImageParam{
								ImageURL: openaisdk.ChatCompletionContentPartImageImageURLParam{
									URL:    llm.DataURL(img),
									Detail: "high",
								},
							}},
						},
					},
				},
			},
		},
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error("vision.openai.request_error",
			"req_id", rid, "path", img.Source, "page", img.PageNumber, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	text := llm.CleanTranscription(resp.Choices[0].Message.Content)
	c.logger.Info("vision.openai.ok",
		"req_id", rid,
		"path", img.Source,
		"page", img.PageNumber,
		"chars", len(strings.TrimSpace(text)),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
