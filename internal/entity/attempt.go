package entity

import (
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
)

// Outcome is the result of one backend attempt on one page.
type Outcome struct {
	Kind       constants.OutcomeKind `json:"kind"`
	Text       string                `json:"-"`
	Confidence *float64              `json:"confidence,omitempty"` // set only for PartialSuccess
	Reason     constants.Reason      `json:"reason,omitempty"`     // set only for Failure
	Detail     string                `json:"detail,omitempty"`     // free-form diagnostics, never parsed
}

// Attempt records one (page, backend) trial. Attempts are values and are never mutated after creation.
type Attempt struct {
	Backend   string        `json:"backend"`
	PageIndex int           `json:"page_index"`
	Outcome   Outcome       `json:"outcome"`
	Duration  time.Duration `json:"duration"`
}

func Success(text string) Outcome {
	return Outcome{Kind: constants.OutcomeSuccess, Text: text}
}

func PartialSuccess(text string, confidence float64) Outcome {
	return Outcome{Kind: constants.OutcomePartialSuccess, Text: text, Confidence: &confidence}
}

func Failure(reason constants.Reason, detail string) Outcome {
	return Outcome{Kind: constants.OutcomeFailure, Reason: reason, Detail: detail}
}

// Failed reports whether the attempt produced no usable text.
func (a Attempt) Failed() bool {
	return a.Outcome.Kind == constants.OutcomeFailure
}

// ConfidenceOr returns the attempt confidence, or def when the backend gave none.
func (o Outcome) ConfidenceOr(def float64) float64 {
	if o.Confidence == nil {
		return def
	}
	return *o.Confidence
}
