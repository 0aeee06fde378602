package types

import "time"

// ContentType identifies the kind of content entity that can reference media.
type ContentType string

const (
	ContentTypeArticle         ContentType = "article"
	ContentTypeNewsletterIssue ContentType = "newsletter_issue"
)

// ReferenceContext describes where inside a content entity a media file is used.
type ReferenceContext string

const (
	ReferenceContextContent    ReferenceContext = "content"
	ReferenceContextCoverImage ReferenceContext = "cover_image"
)

// MediaFile represents one uploaded asset tracked in the reference store.
type MediaFile struct {
	ID         string    `json:"id" db:"id"`
	URL        string    `json:"url" db:"url"`
	FileName   string    `json:"file_name" db:"file_name"`
	Size       int64     `json:"size" db:"size"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by" db:"uploaded_by"`
}

// MediaReference represents one use of a MediaFile by one content entity.
type MediaReference struct {
	ID          string           `json:"id" db:"id"`
	MediaID     string           `json:"media_id" db:"media_id"`
	ContentType ContentType      `json:"content_type" db:"content_type"`
	ContentID   string           `json:"content_id" db:"content_id"`
	Context     ReferenceContext `json:"context" db:"ref_context"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// MediaUsage is the reference summary for a single media file.
type MediaUsage struct {
	MediaID         string           `json:"media_id"`
	TotalReferences int              `json:"total_references"`
	References      []MediaReference `json:"references"`
}

// VerificationResult is the outcome of independently re-checking one media id
// before deletion. A failed verification is reported, never thrown.
type VerificationResult struct {
	MediaID        string   `json:"media_id"`
	IsOrphaned     bool     `json:"is_orphaned"`
	ReferenceCount int      `json:"reference_count"`
	SafeToDelete   bool     `json:"safe_to_delete"`
	Warnings       []string `json:"warnings"`
}

// OperationType distinguishes manually triggered cleanups from scheduled runs.
type OperationType string

const (
	OperationTypeManual    OperationType = "manual"
	OperationTypeScheduled OperationType = "scheduled"
)

// OperationStatus is the lifecycle state of a cleanup operation. The only
// transition is running -> completed; "completed" means the run finished,
// not that every item succeeded.
type OperationStatus string

const (
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
)

// CleanupOperation is the audit record for one cleanup run (dry or real).
type CleanupOperation struct {
	ID             string          `json:"id" db:"id"`
	Type           OperationType   `json:"type" db:"op_type"`
	Status         OperationStatus `json:"status" db:"status"`
	DryRun         bool            `json:"dry_run" db:"dry_run"`
	StartedAt      time.Time       `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	FilesProcessed int             `json:"files_processed" db:"files_processed"`
	FilesDeleted   int             `json:"files_deleted" db:"files_deleted"`
	BytesFreed     int64           `json:"bytes_freed" db:"bytes_freed"`
	ErrorMessage   string          `json:"error_message,omitempty" db:"error_message"`
}

// Cleanup error codes.
const (
	ErrCodeUnsafeDelete = "UNSAFE_DELETE"
	ErrCodeDeleteFailed = "DELETE_FAILED"
)

// CleanupError is one per-item failure inside a cleanup run.
type CleanupError struct {
	MediaID     string `json:"media_id"`
	Message     string `json:"message"`
	Code        string `json:"code"`
	Recoverable bool   `json:"recoverable"`
}

// CleanupResult is the aggregate outcome of one CleanupOrphans call.
type CleanupResult struct {
	OperationID string         `json:"operation_id"`
	Processed   int            `json:"processed"`
	Deleted     int            `json:"deleted"`
	Failed      int            `json:"failed"`
	Errors      []CleanupError `json:"errors"`
	FreedSpace  int64          `json:"freed_space"`
	DryRun      bool           `json:"dry_run"`
}

// OrphanStatistics is a simple aggregate over the current orphan set.
type OrphanStatistics struct {
	TotalOrphans    int        `json:"total_orphans"`
	TotalOrphanSize int64      `json:"total_orphan_size"`
	OldestOrphan    *time.Time `json:"oldest_orphan,omitempty"`
	NewestOrphan    *time.Time `json:"newest_orphan,omitempty"`
}

// CleanupPreview reports what a cleanup run would do, without doing it.
type CleanupPreview struct {
	Orphans             []MediaFile          `json:"orphans"`
	Verifications       []VerificationResult `json:"verifications"`
	EstimatedSpaceFreed int64                `json:"estimated_space_freed"`
	SafeToDeleteCount   int                  `json:"safe_to_delete_count"`
}

// ContentMatch is one content row found by the secondary scan for a media key.
type ContentMatch struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
	Title       string      `json:"title"`
}
