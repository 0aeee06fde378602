package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/superbearblog/media-service/internal/config"
	"github.com/superbearblog/media-service/internal/storage"
	"github.com/superbearblog/media-service/internal/types"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS media_files (
			id VARCHAR(512) PRIMARY KEY,
			url TEXT NOT NULL,
			file_name VARCHAR(255) NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			uploaded_by VARCHAR(255) NOT NULL DEFAULT ''
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS media_references (
			id UUID PRIMARY KEY,
			media_id VARCHAR(512) NOT NULL REFERENCES media_files(id) ON DELETE CASCADE,
			content_type VARCHAR(50) NOT NULL CHECK (content_type IN ('article', 'newsletter_issue')),
			content_id VARCHAR(255) NOT NULL,
			ref_context VARCHAR(50) NOT NULL CHECK (ref_context IN ('content', 'cover_image')),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_media_references_media_id ON media_references(media_id);`,
		`CREATE INDEX IF NOT EXISTS idx_media_references_content ON media_references(content_type, content_id);`,
		`
		CREATE TABLE IF NOT EXISTS articles (
			id VARCHAR(255) PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			cover_image_url TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS newsletter_issues (
			id VARCHAR(255) PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			cover_image_url TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS cleanup_operations (
			id UUID PRIMARY KEY,
			op_type VARCHAR(50) NOT NULL CHECK (op_type IN ('manual', 'scheduled')),
			status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'completed')),
			dry_run BOOLEAN NOT NULL DEFAULT FALSE,
			started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP,
			files_processed INTEGER NOT NULL DEFAULT 0,
			files_deleted INTEGER NOT NULL DEFAULT 0,
			bytes_freed BIGINT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT ''
		);
		`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) CreateMediaFile(ctx context.Context, file types.MediaFile) error {
	query := `
	INSERT INTO media_files (id, url, file_name, size, uploaded_at, uploaded_by)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.Db.ExecContext(ctx, query, file.ID, file.URL, file.FileName, file.Size, file.UploadedAt, file.UploadedBy)
	return err
}

func (p *Postgres) GetMediaFile(ctx context.Context, id string) (types.MediaFile, error) {
	var f types.MediaFile
	query := `
	SELECT id, url, file_name, size, uploaded_at, uploaded_by
	FROM media_files WHERE id = $1
	`

	err := p.Db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.URL, &f.FileName, &f.Size, &f.UploadedAt, &f.UploadedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return f, storage.ErrNotFound
	}
	return f, err
}

func (p *Postgres) ListMediaFiles(ctx context.Context) ([]types.MediaFile, error) {
	query := `
	SELECT id, url, file_name, size, uploaded_at, uploaded_by
	FROM media_files ORDER BY uploaded_at DESC
	`

	rows, err := p.Db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMediaFiles(rows)
}

func (p *Postgres) DeleteMediaFile(ctx context.Context, id string) error {
	res, err := p.Db.ExecContext(ctx, `DELETE FROM media_files WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *Postgres) FindOrphanedMedia(ctx context.Context, olderThan *time.Time) ([]types.MediaFile, error) {
	query := `
	SELECT m.id, m.url, m.file_name, m.size, m.uploaded_at, m.uploaded_by
	FROM media_files m
	LEFT JOIN media_references r ON r.media_id = m.id
	WHERE r.id IS NULL
	`
	args := []interface{}{}

	if olderThan != nil {
		query += ` AND m.uploaded_at < $1`
		args = append(args, *olderThan)
	}
	query += ` ORDER BY m.uploaded_at ASC`

	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMediaFiles(rows)
}

func scanMediaFiles(rows *sql.Rows) ([]types.MediaFile, error) {
	var files []types.MediaFile
	for rows.Next() {
		var f types.MediaFile
		if err := rows.Scan(&f.ID, &f.URL, &f.FileName, &f.Size, &f.UploadedAt, &f.UploadedBy); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (p *Postgres) CountReferences(ctx context.Context, mediaID string) (int, error) {
	var count int
	err := p.Db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_references WHERE media_id = $1`, mediaID).Scan(&count)
	return count, err
}

func (p *Postgres) GetReferences(ctx context.Context, mediaID string) ([]types.MediaReference, error) {
	query := `
	SELECT id, media_id, content_type, content_id, ref_context, created_at
	FROM media_references WHERE media_id = $1 ORDER BY created_at ASC
	`

	rows, err := p.Db.QueryContext(ctx, query, mediaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []types.MediaReference
	for rows.Next() {
		var r types.MediaReference
		if err := rows.Scan(&r.ID, &r.MediaID, &r.ContentType, &r.ContentID, &r.Context, &r.CreatedAt); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ReplaceReferences swaps the full reference set of one content entity in a
// single transaction, so a re-scan of unchanged content is idempotent.
// References to keys without a media_files row are skipped rather than failing
// the whole sync.
func (p *Postgres) ReplaceReferences(ctx context.Context, contentType types.ContentType, contentID string, refs []types.MediaReference) error {
	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM media_references WHERE content_type = $1 AND content_id = $2`,
		contentType, contentID)
	if err != nil {
		return err
	}

	insert := `
	INSERT INTO media_references (id, media_id, content_type, content_id, ref_context)
	SELECT $1, m.id, $3, $4, $5 FROM media_files m WHERE m.id = $2
	`
	for _, ref := range refs {
		_, err := tx.ExecContext(ctx, insert,
			uuid.New().String(), ref.MediaID, contentType, contentID, ref.Context)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *Postgres) DeleteReferencesForContent(ctx context.Context, contentType types.ContentType, contentID string) error {
	_, err := p.Db.ExecContext(ctx,
		`DELETE FROM media_references WHERE content_type = $1 AND content_id = $2`,
		contentType, contentID)
	return err
}

func (p *Postgres) UpsertContent(ctx context.Context, contentType types.ContentType, contentID, title, body, coverImageURL string) error {
	table, err := contentTable(contentType)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, title, body, cover_image_url, updated_at)
	VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	ON CONFLICT (id) DO UPDATE
	SET title = EXCLUDED.title, body = EXCLUDED.body,
	    cover_image_url = EXCLUDED.cover_image_url, updated_at = CURRENT_TIMESTAMP
	`, table)

	_, err = p.Db.ExecContext(ctx, query, contentID, title, body, coverImageURL)
	return err
}

// ScanContentForKey is the secondary scan used by verification: it looks for
// the raw key inside content bodies and cover URLs, catching references the
// tracked table might have missed.
func (p *Postgres) ScanContentForKey(ctx context.Context, key string) ([]types.ContentMatch, error) {
	var matches []types.ContentMatch

	for _, ct := range []types.ContentType{types.ContentTypeArticle, types.ContentTypeNewsletterIssue} {
		table, err := contentTable(ct)
		if err != nil {
			return nil, err
		}

		query := fmt.Sprintf(`
		SELECT id, title FROM %s
		WHERE body LIKE '%%' || $1 || '%%' OR cover_image_url LIKE '%%' || $1 || '%%'
		`, table)

		rows, err := p.Db.QueryContext(ctx, query, key)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			var m types.ContentMatch
			m.ContentType = ct
			if err := rows.Scan(&m.ContentID, &m.Title); err != nil {
				rows.Close()
				return nil, err
			}
			matches = append(matches, m)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return matches, nil
}

func contentTable(contentType types.ContentType) (string, error) {
	switch contentType {
	case types.ContentTypeArticle:
		return "articles", nil
	case types.ContentTypeNewsletterIssue:
		return "newsletter_issues", nil
	default:
		return "", fmt.Errorf("unknown content type: %s", contentType)
	}
}

func (p *Postgres) CreateCleanupOperation(ctx context.Context, op types.CleanupOperation) error {
	query := `
	INSERT INTO cleanup_operations (id, op_type, status, dry_run, started_at)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := p.Db.ExecContext(ctx, query, op.ID, op.Type, op.Status, op.DryRun, op.StartedAt)
	return err
}

func (p *Postgres) FinishCleanupOperation(ctx context.Context, id string, processed, deleted int, bytesFreed int64, errorMessage string) error {
	query := `
	UPDATE cleanup_operations
	SET status = $2, completed_at = CURRENT_TIMESTAMP,
	    files_processed = $3, files_deleted = $4, bytes_freed = $5, error_message = $6
	WHERE id = $1
	`

	res, err := p.Db.ExecContext(ctx, query, id, types.OperationStatusCompleted, processed, deleted, bytesFreed, errorMessage)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *Postgres) GetCleanupHistory(ctx context.Context, limit int) ([]types.CleanupOperation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, op_type, status, dry_run, started_at, completed_at,
	       files_processed, files_deleted, bytes_freed, error_message
	FROM cleanup_operations ORDER BY started_at DESC LIMIT $1
	`

	rows, err := p.Db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []types.CleanupOperation
	for rows.Next() {
		var op types.CleanupOperation
		var completedAt sql.NullTime
		err := rows.Scan(&op.ID, &op.Type, &op.Status, &op.DryRun, &op.StartedAt, &completedAt,
			&op.FilesProcessed, &op.FilesDeleted, &op.BytesFreed, &op.ErrorMessage)
		if err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			op.CompletedAt = &t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
