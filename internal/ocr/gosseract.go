//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// GosseractRecognizer runs libtesseract in-process through a pool of clients.
type GosseractRecognizer struct {
	cfg  Config
	pool *sync.Pool
}

func NewGosseractRecognizer(cfg Config) (*GosseractRecognizer, error) {
	cfg = cfg.WithDefaults()

	// validate settings once so pooled clients can ignore errors
	probe := newGosseractClient(cfg)
	defer probe.Close()
	if err := probe.SetLanguage(cfg.Language); err != nil {
		return nil, fmt.Errorf("%w: set language %q: %v", ErrEngineUnavailable, cfg.Language, err)
	}
	if cfg.PSM > 0 {
		if err := probe.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode %d: %w", cfg.PSM, err)
		}
	}

	return &GosseractRecognizer{
		cfg: cfg,
		pool: &sync.Pool{
			New: func() any {
				c := newGosseractClient(cfg)
				_ = c.SetLanguage(cfg.Language)
				if cfg.PSM > 0 {
					_ = c.SetPageSegMode(gosseract.PageSegMode(cfg.PSM))
				}
				return c
			},
		},
	}, nil
}

func newGosseractClient(cfg Config) *gosseract.Client {
	c := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		c.TessdataPrefix = cfg.TessdataDir
	}
	return c
}

func (g *GosseractRecognizer) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	type result struct {
		rec Recognition
		err error
	}
	// buffered so the worker never blocks after ctx is done
	resultCh := make(chan result, 1)

	go func() {
		client := g.pool.Get().(*gosseract.Client)
		defer g.pool.Put(client)
		rec, err := g.recognize(client, imagePath)
		resultCh <- result{rec, err}
	}()

	select {
	case <-ctx.Done():
		return Recognition{}, ctx.Err()
	case res := <-resultCh:
		return res.rec, res.err
	}
}

func (g *GosseractRecognizer) recognize(client *gosseract.Client, imagePath string) (Recognition, error) {
	if err := client.SetImage(imagePath); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("gosseract text: %w", err)
	}
	rec := Recognition{Text: Normalize(StripBoxNoise(text))}
	if !g.cfg.EnableTSVConfidence || rec.Text == "" {
		return rec, nil
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return rec, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	conf := sum / float64(len(boxes)) / 100.0
	rec.Confidence = &conf
	return rec, nil
}
