package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/pdf-extractor/internal/ocr/ocrtest"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

type fakeVision struct {
	text  string
	err   error
	calls atomic.Int32
	last  llm.PageImage
}

func (f *fakeVision) Name() string { return "fake" }

func (f *fakeVision) Transcribe(_ context.Context, img llm.PageImage) (string, error) {
	f.calls.Add(1)
	f.last = img
	return f.text, f.err
}

func TestVisionBackendOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		client     *fakeVision
		wantKind   constants.OutcomeKind
		wantReason constants.Reason
	}{
		{"success", &fakeVision{text: "Page one\r\n\r\n\r\n\r\nbody"}, constants.OutcomeSuccess, ""},
		{"empty answer", &fakeVision{text: "   "}, constants.OutcomeFailure, constants.ReasonVisionEmpty},
		{"api error", &fakeVision{err: errors.New("429 rate limited")}, constants.OutcomeFailure, constants.ReasonEngineError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raster := &fakeRaster{dir: t.TempDir()}
			b := NewVisionBackend(raster, tt.client, "transcribe", nil)

			got := b.Attempt(context.Background(), pdfdoc.DetachedPage("/docs/a.pdf", 1, 0, 0))

			assert.Equal(t, constants.BackendVision, got.Backend)
			assert.Equal(t, tt.wantKind, got.Outcome.Kind)
			assert.Equal(t, tt.wantReason, got.Outcome.Reason)
			assert.EqualValues(t, 1, tt.client.calls.Load())
			assert.Equal(t, 2, tt.client.last.PageNumber)
			assert.Equal(t, "/docs/a.pdf", tt.client.last.Source)
			assert.Equal(t, "transcribe", tt.client.last.Prompt)
			assert.Equal(t, "image/png", tt.client.last.MIMEType)

			_, releases := raster.counts()
			assert.Equal(t, 1, releases)
		})
	}
}

func TestVisionBackendNormalizesText(t *testing.T) {
	client := &fakeVision{text: "Page one\r\n\r\n\r\n\r\nbody"}
	b := NewVisionBackend(&fakeRaster{dir: t.TempDir()}, client, "p", nil)

	got := b.Attempt(context.Background(), pdfdoc.DetachedPage("/docs/a.pdf", 0, 0, 0))
	assert.Equal(t, "Page one\n\nbody", got.Outcome.Text)
}

func TestOpenAIClientTranscribe(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "`+"```text\\nInvoice 001\\nTotal 10.00\\n```"+`"}
			}]
		}`)
	}))
	defer srv.Close()

	client := openai.NewClient(openai.Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/",
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
	}, nil)

	text, err := client.Transcribe(context.Background(), llm.PageImage{
		Data:       ocrtest.PNGHeader,
		MIMEType:   "image/png",
		Prompt:     common.DefaultVisionPrompt,
		PageNumber: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice 001\nTotal 10.00", text)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	encoded, _ := json.Marshal(body["messages"])
	assert.Contains(t, string(encoded), "data:image/png;base64,")
	assert.Contains(t, string(encoded), "Transcribe all text")
}

func TestOpenAIClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "bad image", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	client := openai.NewClient(openai.Config{APIKey: "k", BaseURL: srv.URL + "/"}, nil)
	b := NewVisionBackend(&fakeRaster{dir: t.TempDir()}, client, "p", nil)

	got := b.Attempt(context.Background(), pdfdoc.DetachedPage("/docs/a.pdf", 0, 0, 0))
	assert.Equal(t, constants.ReasonEngineError, got.Outcome.Reason)
}

func TestCleanTranscription(t *testing.T) {
	assert.Equal(t, "abc", llm.CleanTranscription("```\nabc\n```"))
	assert.Equal(t, "abc", llm.CleanTranscription("  abc  "))
	assert.Equal(t, "a ``` b", llm.CleanTranscription("a ``` b"))
}

func TestNewBackendsOrder(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Extraction.Backends = []string{"ocr", "direct", "vision"}

	backends, err := NewBackends(context.Background(), cfg, Deps{
		Runner: ocrtest.NewFakeRunner(),
		Vision: &fakeVision{},
	})
	require.NoError(t, err)
	require.Len(t, backends, 3)
	assert.Equal(t, "ocr", backends[0].Name())
	assert.Equal(t, "direct", backends[1].Name())
	assert.Equal(t, "vision", backends[2].Name())

	cfg.Extraction.Backends = []string{"telepathy"}
	_, err = NewBackends(context.Background(), cfg, Deps{})
	assert.Error(t, err)
}
