package async

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/ingest"
)

// Job is one document handed to the pool.
type Job struct {
	Candidate   ingest.Candidate
	SubmittedAt time.Time
}

type eventKind int

const (
	eventDispatched eventKind = iota
	eventResult
	eventSkipped
	eventCancelled
)

// event is what the dispatcher and the workers send to the collector.
type event struct {
	kind   eventKind
	job    Job
	result entity.DocumentResult
}

// antsLogger routes pool diagnostics to slog.
type antsLogger struct{ logger *slog.Logger }

func (l antsLogger) Printf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "ants")
}
