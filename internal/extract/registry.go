package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/pdf-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/pdf-extractor/internal/ocr"
)

// Deps are optional collaborators; nil fields are built from config.
type Deps struct {
	Runner     ocr.Runner
	Recognizer ocr.Recognizer
	Vision     llm.VisionClient
	Logger     *slog.Logger
}

// OCRConfig maps the application config onto the ocr package config.
func OCRConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		Engine:              cfg.OCR.Engine,
		Pdftoppm:            cfg.OCR.Pdftoppm,
		Tesseract:           cfg.OCR.Tesseract,
		Language:            cfg.OCR.Language,
		DPI:                 cfg.OCR.DPI,
		TessdataDir:         cfg.OCR.TessdataDir,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
		PSM:                 cfg.OCR.PSM,
		OEM:                 cfg.OCR.OEM,
	}
}

// NewBackends builds the configured backends in priority order.
func NewBackends(ctx context.Context, cfg *common.Config, deps Deps) ([]Backend, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := deps.Runner
	if runner == nil {
		runner = ocr.NewExecRunner(logger)
	}
	ocrCfg := OCRConfig(cfg)
	raster := ocr.NewRasterizer(ocrCfg, runner, logger)

	backends := make([]Backend, 0, len(cfg.Extraction.Backends))
	for _, name := range cfg.Extraction.Backends {
		switch name {
		case constants.BackendDirect:
			backends = append(backends, NewDirectBackend(cfg.Extraction.MinTextDensity, logger))

		case constants.BackendOCR:
			rec := deps.Recognizer
			if rec == nil {
				var err error
				if rec, err = ocr.NewRecognizer(ocrCfg, runner); err != nil {
					return nil, common.NewAppError(common.CodeConfigError, "ocr backend", err)
				}
			}
			backends = append(backends, NewOCRBackend(raster, rec, logger))

		case constants.BackendVision:
			client := deps.Vision
			if client == nil {
				var err error
				if client, err = NewVisionClient(ctx, cfg.Vision, logger); err != nil {
					return nil, common.NewAppError(common.CodeConfigError, "vision backend", err)
				}
			}
			backends = append(backends, NewVisionBackend(raster, client, cfg.Vision.Prompt, logger))

		default:
			return nil, common.NewAppError(common.CodeConfigError, fmt.Sprintf("unknown backend %q", name), common.ErrInvalidInput)
		}
	}
	if len(backends) == 0 {
		return nil, common.NewAppError(common.CodeConfigError, "no backends configured", common.ErrInvalidInput)
	}
	return backends, nil
}

// NewVisionClient builds the client for the configured provider.
func NewVisionClient(ctx context.Context, cfg common.VisionConfig, logger *slog.Logger) (llm.VisionClient, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			MaxRetries:  2,
		}, logger), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
