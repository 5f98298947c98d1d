package constants

// DocumentStatus is the canonical status of a processed document.
type DocumentStatus string

// Stable values (store these exact strings in the ledger and reports).
const (
	DocumentComplete        DocumentStatus = "COMPLETE"         // every page accepted
	DocumentPartialComplete DocumentStatus = "PARTIAL_COMPLETE" // some pages accepted, some failed
	DocumentFailed          DocumentStatus = "FAILED"           // no page accepted, or document fatal
)

// PageState is the terminal state of one page decision.
type PageState string

const (
	PageAccepted        PageState = "ACCEPTED"
	PageExhaustedFailed PageState = "EXHAUSTED_FAILED"
)

// OutcomeKind classifies a single backend attempt.
type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "SUCCESS"
	OutcomePartialSuccess OutcomeKind = "PARTIAL_SUCCESS"
	OutcomeFailure        OutcomeKind = "FAILURE"
)
