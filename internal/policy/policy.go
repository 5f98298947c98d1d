// Package policy decides each page by trying backends in priority order and
// stopping at the first acceptable outcome.
package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

// Config holds the acceptance tunables.
type Config struct {
	MinAcceptConfidence float64       // bar for PartialSuccess, 0..1
	AttemptTimeout      time.Duration // 0 = bounded only by the caller's context
}

// Policy is safe for concurrent use; it holds no per-page state.
type Policy struct {
	backends []extract.Backend
	cfg      Config
	logger   *slog.Logger
}

func New(backends []extract.Backend, cfg Config, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{backends: backends, cfg: cfg, logger: logger}
}

// FromConfig builds a policy from the application config.
func FromConfig(backends []extract.Backend, cfg *common.Config, logger *slog.Logger) *Policy {
	return New(backends, Config{
		MinAcceptConfidence: cfg.Extraction.MinAcceptConfidence,
		AttemptTimeout:      cfg.Extraction.AttemptTimeout,
	}, logger)
}

// Backends returns the backend names in trial order.
func (p *Policy) Backends() []string {
	names := make([]string, len(p.backends))
	for i, b := range p.backends {
		names[i] = b.Name()
	}
	return names
}

// Decide runs page through the backends. The returned error is non-nil only
// when ctx was cancelled before the page reached a terminal state; the
// partial PageResult must then be discarded.
func (p *Policy) Decide(ctx context.Context, page pdfdoc.Page) (entity.PageResult, error) {
	res := entity.PageResult{
		Index:    page.Index,
		State:    constants.PageExhaustedFailed,
		Attempts: make([]entity.Attempt, 0, len(p.backends)),
	}
	logger := common.LoggerFrom(ctx, p.logger).With("page", page.Index)

	for _, b := range p.backends {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		a := p.attempt(ctx, b, page)
		res.Attempts = append(res.Attempts, a)

		if err := ctx.Err(); err != nil && a.Failed() {
			return res, err
		}
		if p.acceptable(a.Outcome) {
			accepted := a
			res.Accepted = &accepted
			res.State = constants.PageAccepted
			logger.Debug("page accepted", "backend", a.Backend, "tries", len(res.Attempts))
			return res, nil
		}
		logger.Debug("backend declined page",
			"backend", a.Backend, "kind", a.Outcome.Kind, "reason", a.Outcome.Reason)
	}

	logger.Info("page exhausted all backends", "tries", len(res.Attempts))
	return res, nil
}

func (p *Policy) attempt(ctx context.Context, b extract.Backend, page pdfdoc.Page) entity.Attempt {
	if p.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
	}
	return b.Attempt(ctx, page)
}

func (p *Policy) acceptable(o entity.Outcome) bool {
	switch o.Kind {
	case constants.OutcomeSuccess:
		return true
	case constants.OutcomePartialSuccess:
		return o.ConfidenceOr(0) >= p.cfg.MinAcceptConfidence
	default:
		return false
	}
}
