// Package llm holds the vision-model clients used to transcribe rendered pages.
package llm

import "context"

// PageImage is one rendered page sent to a vision model.
type PageImage struct {
	Data       []byte
	MIMEType   string // e.g. "image/png"
	Prompt     string
	Source     string // document path, for logs
	PageNumber int    // 1-based
}

// VisionClient transcribes the text visible in a page image.
type VisionClient interface {
	Transcribe(ctx context.Context, img PageImage) (string, error)
	Name() string
}
