package media

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/superbearblog/media-service/internal/cache"
	"github.com/superbearblog/media-service/internal/services/cleanup"
	"github.com/superbearblog/media-service/internal/services/objectstore"
	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/storage"
	"github.com/superbearblog/media-service/internal/types"
	"github.com/superbearblog/media-service/internal/utils/response"
)

// UploadURLRequest asks for a presigned upload slot.
type UploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// RegisterUploadRequest records a completed upload in the reference store.
type RegisterUploadRequest struct {
	ObjectKey  string `json:"object_key" validate:"required"`
	FileName   string `json:"file_name"`
	UploadedBy string `json:"uploaded_by"`
}

// CleanupRequest triggers a cleanup run. With no media ids the current orphan
// set becomes the target, optionally limited by an upload-age cutoff.
type CleanupRequest struct {
	MediaIDs      []string `json:"media_ids"`
	DryRun        bool     `json:"dry_run"`
	OlderThanDays int      `json:"older_than_days" validate:"gte=0"`
}

// List returns every tracked media file
// @Summary List tracked media files
// @Tags media
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/admin/media [get]
func List(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := storage.ListMediaFiles(r.Context())
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media files fetched successfully", files))
	}
}

// Orphans returns media files with zero tracked references
// @Summary List orphaned media files
// @Tags media
// @Produce json
// @Param older_than_days query int false "Only orphans uploaded more than N days ago"
// @Success 200 {object} response.Response
// @Router /api/admin/media/orphans [get]
func Orphans(trk *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cutoff, err := olderThanCutoff(r.URL.Query().Get("older_than_days"))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		orphans, err := trk.FindOrphanedMedia(r.Context(), cutoff)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Orphaned media fetched successfully", orphans))
	}
}

// Usage returns the reference summary for one media file
// @Summary Get media usage
// @Tags media
// @Produce json
// @Param id path string true "Media ID (object key)"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "Media not found"
// @Router /api/admin/media/usage/{id} [get]
func Usage(cacheService *cache.CacheService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID := r.PathValue("id")
		if mediaID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("media ID is required")))
			return
		}

		usage, err := cacheService.GetMediaUsage(r.Context(), mediaID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media file not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media usage fetched successfully", usage))
	}
}

// Stats returns aggregate statistics over the current orphan set
// @Summary Get orphan statistics
// @Tags media
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/admin/media/stats [get]
func Stats(cacheService *cache.CacheService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := cacheService.GetOrphanStatistics(r.Context())
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Orphan statistics fetched successfully", stats))
	}
}

// Preview reports what a cleanup run would do without deleting anything
// @Summary Preview a cleanup run
// @Tags cleanup
// @Produce json
// @Param older_than_days query int false "Only orphans uploaded more than N days ago"
// @Success 200 {object} response.Response
// @Router /api/admin/media/cleanup/preview [get]
func Preview(engine *cleanup.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cutoff, err := olderThanCutoff(r.URL.Query().Get("older_than_days"))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		preview, err := engine.PreviewCleanup(r.Context(), cutoff)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cleanup preview generated successfully", preview))
	}
}

// Cleanup triggers a cleanup run over the given ids or the whole orphan set
// @Summary Run orphan cleanup
// @Description Deletes verified-safe orphans from the object store and the reference store. Every run is recorded as an audit record; set dry_run to report without deleting.
// @Tags cleanup
// @Accept json
// @Produce json
// @Param request body CleanupRequest true "Cleanup parameters"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response "Bad request"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /api/admin/media/cleanup [post]
func Cleanup(cacheService *cache.CacheService, trk *tracker.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CleanupRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		mediaIDs := req.MediaIDs
		if len(mediaIDs) == 0 {
			var cutoff *time.Time
			if req.OlderThanDays > 0 {
				t := time.Now().UTC().AddDate(0, 0, -req.OlderThanDays)
				cutoff = &t
			}

			orphans, err := trk.FindOrphanedMedia(r.Context(), cutoff)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
				return
			}
			for _, o := range orphans {
				mediaIDs = append(mediaIDs, o.ID)
			}
		}

		result, err := cacheService.CleanupOrphans(r.Context(), mediaIDs, req.DryRun, types.OperationTypeManual)
		if err != nil {
			slog.Error("Cleanup run failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cleanup run finished", result))
	}
}

// History returns past cleanup operations, most recent first
// @Summary Get cleanup history
// @Tags cleanup
// @Produce json
// @Param limit query int false "Maximum number of operations to return" default(20)
// @Success 200 {object} response.Response
// @Router /api/admin/media/cleanup/history [get]
func History(engine *cleanup.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("limit must be a positive integer")))
				return
			}
			limit = n
		}

		history, err := engine.GetCleanupHistory(r.Context(), limit)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cleanup history fetched successfully", history))
	}
}

// UploadURL hands out a presigned upload slot
// @Summary Generate a presigned upload URL
// @Tags media
// @Accept json
// @Produce json
// @Param request body UploadURLRequest true "Upload parameters"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response "Bad request"
// @Router /api/admin/media/upload-url [post]
func UploadURL(store *objectstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UploadURLRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		info, err := store.GeneratePresignedUploadURL(req.ContentType)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Upload URL generated successfully", info))
	}
}

// RegisterUpload records a completed upload as a tracked media file
// @Summary Register an uploaded object
// @Description Verifies the object exists in the remote store and creates its media record. Newly registered files sit inside the grace window and will not be deleted by cleanup.
// @Tags media
// @Accept json
// @Produce json
// @Param request body RegisterUploadRequest true "Uploaded object"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response "Bad request"
// @Failure 404 {object} response.Response "Object not found in remote store"
// @Router /api/admin/media [post]
func RegisterUpload(st storage.Storage, store *objectstore.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterUploadRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// The upload must have actually happened before it is tracked.
		info, err := store.Stat(r.Context(), req.ObjectKey)
		if err != nil {
			if errors.Is(err, objectstore.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("object not found in remote store")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		fileName := req.FileName
		if fileName == "" {
			fileName = req.ObjectKey
		}

		file := types.MediaFile{
			ID:         req.ObjectKey,
			URL:        store.ObjectURL(req.ObjectKey),
			FileName:   fileName,
			Size:       info.Size,
			UploadedAt: time.Now().UTC(),
			UploadedBy: req.UploadedBy,
		}

		if err := st.CreateMediaFile(r.Context(), file); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		slog.Info("Media file registered", slog.String("media_id", file.ID), slog.Int64("size", file.Size))

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Media file registered successfully", file))
	}
}

func olderThanCutoff(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return nil, errors.New("older_than_days must be a non-negative integer")
	}
	if days == 0 {
		return nil, nil
	}

	t := time.Now().UTC().AddDate(0, 0, -days)
	return &t, nil
}
