package ingest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/testutil"
)

func relPaths(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.RelPath
	}
	sort.Strings(out)
	return out
}

func reasons(us []entity.UnprocessedFile) map[string]constants.Reason {
	out := map[string]constants.Reason{}
	for _, u := range us {
		out[filepath.Base(u.Path)] = u.Reason
	}
	return out
}

func TestDiscoverFiltersAndValidates(t *testing.T) {
	root := t.TempDir()
	testutil.WritePDF(t, filepath.Join(root, "a.pdf"), "one")
	testutil.WritePDF(t, filepath.Join(root, "nested", "deep", "B.PDF"), "two")
	testutil.WritePDF(t, filepath.Join(root, ".hidden", "c.pdf"), "three")
	testutil.WritePDF(t, filepath.Join(root, "drafts", "d.pdf"), "four")
	testutil.WriteFile(t, filepath.Join(root, "notes.txt"), []byte("not a candidate"))
	testutil.WriteFile(t, filepath.Join(root, "empty.pdf"), nil)
	testutil.WriteFile(t, filepath.Join(root, "fake.pdf"), []byte("PK\x03\x04 this is a zip"))

	res, err := Discover(context.Background(), root, Options{
		Extensions:   []string{"pdf"},
		Exclude:      []string{"drafts/**"},
		SkipHidden:   true,
		SniffContent: true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf", "nested/deep/B.PDF"}, relPaths(res.Candidates))
	assert.Equal(t, map[string]constants.Reason{
		"empty.pdf": constants.ReasonZeroSize,
		"fake.pdf":  constants.ReasonNotPDF,
	}, reasons(res.Unprocessed))
	for _, c := range res.Candidates {
		assert.Positive(t, c.Size)
	}
}

func TestDiscoverWithoutSniffing(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "fake.pdf"), []byte("not really"))

	res, err := Discover(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Unprocessed)
}

func TestDiscoverMaxFileSize(t *testing.T) {
	root := t.TempDir()
	testutil.WritePDF(t, filepath.Join(root, "big.pdf"), testutil.Paragraph(2000))

	res, err := Discover(context.Background(), root, Options{MaxFileSize: 100}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, constants.ReasonTooLarge, reasons(res.Unprocessed)["big.pdf"])
}

func TestDiscoverUnreadableFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	path := filepath.Join(root, "locked.pdf")
	testutil.WritePDF(t, path, "secret")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	res, err := Discover(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, constants.ReasonUnreadable, reasons(res.Unprocessed)["locked.pdf"])
}

func TestDiscoverEmptyRoot(t *testing.T) {
	res, err := Discover(context.Background(), t.TempDir(), Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.Unprocessed)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDiscovery)
	assert.True(t, common.IsProcessLevel(err))
}

func TestDiscoverInvalidPattern(t *testing.T) {
	_, err := Discover(context.Background(), t.TempDir(), Options{Exclude: []string{"[unclosed"}}, nil)
	assert.ErrorIs(t, err, common.ErrDiscovery)
}

func TestDiscoverSingleFileRoot(t *testing.T) {
	path := testutil.WritePDF(t, filepath.Join(t.TempDir(), "one.pdf"), "x")

	res, err := Discover(context.Background(), path, Options{SniffContent: true}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "one.pdf", res.Candidates[0].RelPath)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	testutil.WriteFile(t, a, []byte("same bytes"))
	testutil.WriteFile(t, b, []byte("same bytes"))

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	_, err = HashFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.git"))
	assert.True(t, IsHidden(".env"))
	assert.False(t, IsHidden("/a/b.pdf"))
	assert.False(t, IsHidden("."))
}

func TestWatchReportsNewDocuments(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := Watch(ctx, WatchConfig{Root: root, Extensions: []string{"pdf"}, Debounce: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	testutil.WriteFile(t, filepath.Join(root, "ignored.txt"), []byte("x"))
	testutil.WritePDF(t, filepath.Join(root, "new.pdf"), "fresh")

	select {
	case batch := <-events:
		require.NotEmpty(t, batch)
		for _, p := range batch {
			assert.Equal(t, "new.pdf", filepath.Base(p))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no watch event")
	}

	cancel()
	for range events {
	}
}
