// Package ingest finds candidate documents under a root directory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

// sniffLen is how much of each file is read for the readability and content checks.
const sniffLen = 3072

// Options controls discovery.
type Options struct {
	Extensions   []string // empty = constants.AllowedExtensions
	Exclude      []string // doublestar patterns matched against the slash-separated path relative to root
	SkipHidden   bool
	MaxFileSize  int64 // bytes, 0 = no limit
	SniffContent bool  // require PDF magic bytes
}

// OptionsFromConfig maps the input config onto discovery options.
func OptionsFromConfig(cfg common.InputConfig) Options {
	return Options{
		Extensions:   cfg.Extensions,
		Exclude:      cfg.Exclude,
		SkipHidden:   cfg.SkipHidden,
		MaxFileSize:  int64(cfg.MaxFileSizeMB) << 20,
		SniffContent: cfg.SniffContent,
	}
}

// Candidate is a validated file ready for dispatch.
type Candidate struct {
	Path    string // as walked, rooted at the discovery root
	RelPath string // relative to root, slash separated
	Size    int64
}

// Result is the outcome of a discovery walk.
type Result struct {
	Candidates  []Candidate
	Unprocessed []entity.UnprocessedFile
	Scanned     int // regular files seen, before filtering
}

// Discover walks root recursively. Files that match the extension filter but
// fail validation end up in Unprocessed and are never returned as candidates.
// Only a missing or unreadable root is an error; an empty tree is not.
func Discover(ctx context.Context, root string, opts Options, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out Result

	if strings.TrimSpace(root) == "" {
		return out, common.DiscoveryError("root path is required", common.ErrInvalidInput)
	}
	info, err := os.Stat(root)
	if err != nil {
		return out, common.DiscoveryError("stat root "+root, err)
	}

	exts := ExtSet(opts.Extensions)
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return out, common.DiscoveryError(fmt.Sprintf("invalid exclude pattern %q", p), common.ErrInvalidInput)
		}
	}

	// a single file is a tree of one
	if !info.IsDir() {
		out.Scanned = 1
		if !AllowedExt(filepath.Ext(root), exts) {
			return out, nil
		}
		out.add(validate(root, filepath.Base(root), opts))
		return out, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warn("discovery: cannot read entry", "path", path, "error", walkErr)
			out.Unprocessed = append(out.Unprocessed, entity.UnprocessedFile{
				Path: path, Reason: constants.ReasonUnreadable, Detail: walkErr.Error(),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded(rel, opts.Exclude) {
			logger.Debug("discovery: excluded", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		out.Scanned++
		if !AllowedExt(filepath.Ext(path), exts) {
			return nil
		}
		out.add(validate(path, rel, opts))
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		return out, common.DiscoveryError("walk "+root, err)
	}

	logger.Info("discovery finished",
		"root", root,
		"scanned", out.Scanned,
		"candidates", len(out.Candidates),
		"unprocessed", len(out.Unprocessed),
	)
	return out, nil
}

func (r *Result) add(c Candidate, bad *entity.UnprocessedFile) {
	if bad != nil {
		r.Unprocessed = append(r.Unprocessed, *bad)
		return
	}
	r.Candidates = append(r.Candidates, c)
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// validate checks that the file is non-empty, readable, within the size
// limit and, when requested, actually a PDF.
func validate(path, rel string, opts Options) (Candidate, *entity.UnprocessedFile) {
	reject := func(reason constants.Reason, detail string) (Candidate, *entity.UnprocessedFile) {
		return Candidate{}, &entity.UnprocessedFile{Path: path, Reason: reason, Detail: detail}
	}

	info, err := os.Stat(path)
	if err != nil {
		return reject(constants.ReasonUnreadable, err.Error())
	}
	if info.Size() == 0 {
		return reject(constants.ReasonZeroSize, "file is empty")
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return reject(constants.ReasonTooLarge, fmt.Sprintf("%d bytes exceeds limit of %d", info.Size(), opts.MaxFileSize))
	}

	head, err := readHead(path)
	if err != nil {
		return reject(constants.ReasonUnreadable, err.Error())
	}
	if opts.SniffContent {
		if mt := mimetype.Detect(head); !mt.Is(constants.MIMEPDF) {
			return reject(constants.ReasonNotPDF, "detected "+mt.String())
		}
	}
	return Candidate{Path: path, RelPath: rel, Size: info.Size()}, nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
