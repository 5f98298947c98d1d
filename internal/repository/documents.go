package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

const documentsTable = "processed_documents"

var documentColumns = []string{
	"content_hash",
	"source_path",
	"size_bytes",
	"status",
	"pages",
	"failed_pages",
	"output_path",
	"run_id",
	"processed_at",
	"duration_ms",
	"backends_used",
}

// plain DDL: valid for both sqlite and postgres
const createDocumentsTable = `CREATE TABLE IF NOT EXISTS processed_documents (
	content_hash  VARCHAR(64) PRIMARY KEY,
	source_path   TEXT NOT NULL,
	size_bytes    BIGINT NOT NULL,
	status        VARCHAR(32) NOT NULL,
	pages         INTEGER NOT NULL,
	failed_pages  INTEGER NOT NULL,
	output_path   TEXT NOT NULL,
	run_id        VARCHAR(64) NOT NULL,
	processed_at  BIGINT NOT NULL,
	duration_ms   BIGINT NOT NULL,
	backends_used TEXT NOT NULL
)`

// DocumentRepository is the processed-documents ledger, keyed by content hash.
type DocumentRepository interface {
	EnsureSchema(ctx context.Context) error
	// Get returns common.ErrNotFound when hash was never recorded.
	Get(ctx context.Context, hash string) (*entity.LedgerRecord, error)
	Record(ctx context.Context, rec entity.LedgerRecord) error
	List(ctx context.Context, limit int) ([]entity.LedgerRecord, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Driver.ExecContext(ctx, createDocumentsTable); err != nil {
		r.logger.Error("failed to create ledger table", "error", err)
		return common.NewAppError(common.CodeInternalError, "create ledger table", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func (r *documentRepo) Get(ctx context.Context, hash string) (*entity.LedgerRecord, error) {
	d := entsql.Dialect(r.db.Dialect)
	query, args := d.Select(documentColumns...).
		From(d.Table(documentsTable)).
		Where(entsql.EQ("content_hash", hash)).
		Limit(1).
		Query()

	recs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get ledger record", "content_hash", hash, "error", err)
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.ErrNotFound
	}
	return &recs[0], nil
}

func (r *documentRepo) Record(ctx context.Context, rec entity.LedgerRecord) error {
	if rec.ContentHash == "" {
		return common.NewAppError(common.CodeInternalError, "ledger record without content hash", common.ErrInvalidInput)
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(
			rec.ContentHash,
			rec.SourcePath,
			rec.SizeBytes,
			string(rec.Status),
			rec.Pages,
			rec.FailedPages,
			rec.OutputPath,
			rec.RunID,
			rec.ProcessedAt.UnixMilli(),
			rec.DurationMS,
			rec.BackendsUsed,
		).
		OnConflict(
			entsql.ConflictColumns("content_hash"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.Driver.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to record ledger entry", "content_hash", rec.ContentHash, "path", rec.SourcePath, "error", err)
		return errors.Join(common.ErrDatabase, err)
	}
	r.logger.Debug("ledger entry recorded", "content_hash", rec.ContentHash, "status", rec.Status)
	return nil
}

func (r *documentRepo) List(ctx context.Context, limit int) ([]entity.LedgerRecord, error) {
	d := entsql.Dialect(r.db.Dialect)
	sel := d.Select(documentColumns...).
		From(d.Table(documentsTable)).
		OrderBy(entsql.Desc("processed_at"), "content_hash")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	recs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list ledger records", "error", err)
		return nil, err
	}
	return recs, nil
}

func (r *documentRepo) query(ctx context.Context, query string, args []any) ([]entity.LedgerRecord, error) {
	rows, err := r.db.Driver.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.LedgerRecord
	for rows.Next() {
		var (
			rec         entity.LedgerRecord
			status      string
			processedAt int64
		)
		if err := rows.Scan(
			&rec.ContentHash,
			&rec.SourcePath,
			&rec.SizeBytes,
			&status,
			&rec.Pages,
			&rec.FailedPages,
			&rec.OutputPath,
			&rec.RunID,
			&processedAt,
			&rec.DurationMS,
			&rec.BackendsUsed,
		); err != nil {
			return nil, errors.Join(common.ErrDatabase, err)
		}
		rec.Status = constants.DocumentStatus(status)
		rec.ProcessedAt = time.UnixMilli(processedAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(common.ErrDatabase, err)
	}
	return out, nil
}

// NewLedgerRecord summarizes a document result for the ledger.
func NewLedgerRecord(res entity.DocumentResult, outputPath, runID string) entity.LedgerRecord {
	return entity.LedgerRecord{
		ContentHash:  res.ContentHash,
		SourcePath:   res.Path,
		SizeBytes:    res.SizeBytes,
		Status:       res.Status,
		Pages:        res.PageCount(),
		FailedPages:  len(res.FailedPages),
		OutputPath:   outputPath,
		RunID:        runID,
		ProcessedAt:  res.StartedAt.Add(res.Duration).UTC(),
		DurationMS:   res.Duration.Milliseconds(),
		BackendsUsed: entity.FormatBackendUsage(res.BackendUsage),
	}
}
