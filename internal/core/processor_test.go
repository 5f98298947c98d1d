package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
	"github.com/joseph-ayodele/pdf-extractor/internal/policy"
	"github.com/joseph-ayodele/pdf-extractor/internal/testutil"
)

// deciderFunc adapts a function to PageDecider.
type deciderFunc func(ctx context.Context, page pdfdoc.Page) (entity.PageResult, error)

func (f deciderFunc) Decide(ctx context.Context, page pdfdoc.Page) (entity.PageResult, error) {
	return f(ctx, page)
}

type openerFunc func(ctx context.Context, path string) (*pdfdoc.Document, error)

func (f openerFunc) Open(ctx context.Context, path string) (*pdfdoc.Document, error) {
	return f(ctx, path)
}

func accepted(index int, backend, text string) entity.PageResult {
	a := entity.Attempt{Backend: backend, PageIndex: index, Outcome: entity.Success(text)}
	return entity.PageResult{Index: index, State: constants.PageAccepted, Accepted: &a, Attempts: []entity.Attempt{a}}
}

func exhausted(index int) entity.PageResult {
	return entity.PageResult{
		Index: index,
		State: constants.PageExhaustedFailed,
		Attempts: []entity.Attempt{
			{Backend: "direct", PageIndex: index, Outcome: entity.Failure(constants.ReasonEmptyPage, "")},
			{Backend: "ocr", PageIndex: index, Outcome: entity.Failure(constants.ReasonOCREmpty, "")},
		},
	}
}

func writeDoc(t *testing.T, pages int) string {
	t.Helper()
	texts := make([]string, pages)
	for i := range texts {
		texts[i] = fmt.Sprintf("page %d", i)
	}
	return testutil.WritePDF(t, filepath.Join(t.TempDir(), "doc.pdf"), texts...)
}

func TestProcessDocumentPartialComplete(t *testing.T) {
	path := writeDoc(t, 3)
	decider := deciderFunc(func(_ context.Context, page pdfdoc.Page) (entity.PageResult, error) {
		switch page.Index {
		case 0:
			return accepted(0, "direct", "alpha"), nil
		case 1:
			return exhausted(1), nil
		default:
			return accepted(2, "ocr", "gamma"), nil
		}
	})
	p := NewProcessor(nil, pdfdoc.NewOpener(nil), decider, Config{PageWorkers: 2, PageSeparator: "\n\n"})

	res, err := p.ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, constants.DocumentPartialComplete, res.Status)
	assert.Equal(t, "alpha\n\n\n\ngamma", res.Text)
	assert.Equal(t, []int{1}, res.FailedPages)
	assert.Equal(t, map[string]int{"direct": 1, "ocr": 1}, res.BackendUsage)
	assert.Equal(t, path, res.Path)
	assert.Len(t, res.ContentHash, 64)
	assert.Positive(t, res.SizeBytes)
	for i, pr := range res.Pages {
		assert.Equal(t, i, pr.Index)
	}
}

func TestProcessDocumentStatus(t *testing.T) {
	tests := []struct {
		name       string
		fail       func(i int) bool
		wantStatus constants.DocumentStatus
		wantFailed []int
	}{
		{"all accepted", func(int) bool { return false }, constants.DocumentComplete, []int{}},
		{"none accepted", func(int) bool { return true }, constants.DocumentFailed, []int{0, 1, 2, 3}},
		{"last page fails", func(i int) bool { return i == 3 }, constants.DocumentPartialComplete, []int{3}},
	}
	path := writeDoc(t, 4)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decider := deciderFunc(func(_ context.Context, page pdfdoc.Page) (entity.PageResult, error) {
				if tt.fail(page.Index) {
					return exhausted(page.Index), nil
				}
				return accepted(page.Index, "direct", "x"), nil
			})
			res, err := NewProcessor(nil, pdfdoc.NewOpener(nil), decider, Config{PageWorkers: 4}).
				ProcessDocument(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantFailed, res.FailedPages)
			assert.Equal(t, constants.ReasonNone, res.Reason)
		})
	}
}

func TestProcessDocumentOrderIndependentOfCompletion(t *testing.T) {
	const n = 8
	path := writeDoc(t, n)

	sequential := func(_ context.Context, page pdfdoc.Page) (entity.PageResult, error) {
		return accepted(page.Index, "direct", fmt.Sprintf("text-%d", page.Index)), nil
	}
	want, err := NewProcessor(nil, pdfdoc.NewOpener(nil), deciderFunc(sequential), Config{PageWorkers: 1, PageSeparator: "\n\n"}).
		ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	for seed := int64(1); seed <= 5; seed++ {
		delays := rand.New(rand.NewSource(seed)).Perm(n)
		shuffled := func(ctx context.Context, page pdfdoc.Page) (entity.PageResult, error) {
			time.Sleep(time.Duration(delays[page.Index]) * time.Millisecond)
			return sequential(ctx, page)
		}
		got, err := NewProcessor(nil, pdfdoc.NewOpener(nil), deciderFunc(shuffled), Config{PageWorkers: n, PageSeparator: "\n\n"}).
			ProcessDocument(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, want.Text, got.Text, "seed %d", seed)
		assert.Equal(t, want.Status, got.Status)
		require.Len(t, got.Pages, n)
		for i, pr := range got.Pages {
			assert.Equal(t, i, pr.Index)
		}
	}
}

func TestProcessDocumentUnopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	testutil.WriteFile(t, path, []byte("%PDF-1.7\ngarbage"))

	var calls atomic.Int32
	decider := deciderFunc(func(context.Context, pdfdoc.Page) (entity.PageResult, error) {
		calls.Add(1)
		return entity.PageResult{}, nil
	})
	res, err := NewProcessor(nil, pdfdoc.NewOpener(nil), decider, Config{}).ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, constants.DocumentFailed, res.Status)
	assert.Equal(t, constants.ReasonUnopenable, res.Reason)
	assert.NotEmpty(t, res.Detail)
	assert.Empty(t, res.Pages)
	assert.EqualValues(t, 0, calls.Load())
}

func TestProcessDocumentOpenerInternalError(t *testing.T) {
	opener := openerFunc(func(context.Context, string) (*pdfdoc.Document, error) {
		return nil, errors.New("disk on fire")
	})
	_, err := NewProcessor(nil, opener, nil, Config{}).ProcessDocument(context.Background(), "/x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestProcessDocumentRecoversPanic(t *testing.T) {
	path := writeDoc(t, 3)
	decider := deciderFunc(func(_ context.Context, page pdfdoc.Page) (entity.PageResult, error) {
		if page.Index == 1 {
			panic("backend exploded")
		}
		return accepted(page.Index, "direct", "ok"), nil
	})
	_, err := NewProcessor(nil, pdfdoc.NewOpener(nil), decider, Config{PageWorkers: 3}).
		ProcessDocument(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInternal)
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestProcessDocumentCancelled(t *testing.T) {
	path := writeDoc(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	decider := deciderFunc(func(ctx context.Context, page pdfdoc.Page) (entity.PageResult, error) {
		if page.Index == 0 {
			cancel()
		}
		<-ctx.Done()
		return entity.PageResult{Index: page.Index}, ctx.Err()
	})
	res, err := NewProcessor(nil, pdfdoc.NewOpener(nil), decider, Config{PageWorkers: 2}).ProcessDocument(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Path)
	assert.Empty(t, res.Pages)
}

func TestProcessDocumentMaxPages(t *testing.T) {
	path := writeDoc(t, 5)
	var calls atomic.Int32
	decider := deciderFunc(func(_ context.Context, page pdfdoc.Page) (entity.PageResult, error) {
		calls.Add(1)
		return accepted(page.Index, "direct", "t"), nil
	})
	res, err := NewProcessor(nil, pdfdoc.NewOpener(nil), decider, Config{PageWorkers: 2, MaxPages: 2}).
		ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	assert.EqualValues(t, 2, calls.Load())
	require.Len(t, res.Pages, 5)
	assert.Equal(t, []int{2, 3, 4}, res.FailedPages)
	assert.Equal(t, constants.DocumentPartialComplete, res.Status)
	assert.Empty(t, res.Pages[4].Attempts)
}

// ocrStub always succeeds and counts invocations.
type ocrStub struct{ calls atomic.Int32 }

func (o *ocrStub) Name() string { return constants.BackendOCR }

func (o *ocrStub) Attempt(_ context.Context, page pdfdoc.Page) entity.Attempt {
	o.calls.Add(1)
	return entity.Attempt{Backend: o.Name(), PageIndex: page.Index, Outcome: entity.Success("ocr text")}
}

func TestProcessDocumentWithDirectBackend(t *testing.T) {
	path := testutil.WritePDF(t, filepath.Join(t.TempDir(), "mixed.pdf"),
		testutil.Paragraph(300), "", testutil.Paragraph(300))

	ocr := &ocrStub{}
	pol := policy.New([]extract.Backend{extract.NewDirectBackend(0.5, nil), ocr},
		policy.Config{MinAcceptConfidence: 0.6, AttemptTimeout: 5 * time.Second}, nil)
	p := NewProcessor(nil, pdfdoc.NewOpener(nil), pol, Config{PageWorkers: 2, PageSeparator: "\n\n"})

	first, err := p.ProcessDocument(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, constants.DocumentComplete, first.Status)
	assert.Equal(t, map[string]int{"direct": 2, "ocr": 1}, first.BackendUsage)
	assert.EqualValues(t, 1, ocr.calls.Load(), "only the blank page falls through to ocr")
	require.Len(t, first.Pages[1].Attempts, 2)
	assert.Equal(t, constants.ReasonEmptyPage, first.Pages[1].Attempts[0].Outcome.Reason)

	second, err := p.ProcessDocument(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Status, second.Status)
}
