package constants

// Reason is a structured failure code carried by a failed attempt or a failed document.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonTooSparse         Reason = "too_sparse"
	ReasonOCREmpty          Reason = "ocr_empty"
	ReasonTimeout           Reason = "timeout"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonEmptyPage         Reason = "empty_page"
	ReasonEngineUnavailable Reason = "engine_unavailable"
	ReasonEngineError       Reason = "engine_error"
	ReasonCorruptStream     Reason = "corrupt_stream"
	ReasonVisionEmpty       Reason = "vision_empty"
	ReasonCancelled         Reason = "cancelled"
	ReasonLowConfidence     Reason = "low_confidence"

	// document level
	ReasonUnopenable    Reason = "unopenable"
	ReasonNoPages       Reason = "no_pages"
	ReasonInternalError Reason = "internal_error"

	// discovery level
	ReasonZeroSize   Reason = "zero_size"
	ReasonUnreadable Reason = "unreadable"
	ReasonTooLarge   Reason = "too_large"
	ReasonNotPDF     Reason = "not_pdf"
)
