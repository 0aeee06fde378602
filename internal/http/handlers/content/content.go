package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/superbearblog/media-service/internal/services/references"
	"github.com/superbearblog/media-service/internal/types"
	"github.com/superbearblog/media-service/internal/utils/response"
)

// SyncRequest carries one content entity's current state for reference syncing.
type SyncRequest struct {
	ContentType   string `json:"content_type" validate:"required,oneof=article newsletter_issue"`
	ContentID     string `json:"content_id" validate:"required"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	CoverImageURL string `json:"cover_image_url"`
}

// Sync replaces the reference rows for one content entity
// @Summary Sync media references for a content entity
// @Description Parses the content body and cover image for embedded media and replaces the entity's tracked references. Call on every content create or update; syncing is idempotent.
// @Tags content
// @Accept json
// @Produce json
// @Param request body SyncRequest true "Content entity"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response "Bad request"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /api/admin/content/sync [post]
func Sync(syncer *references.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncRequest

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

		count, err := syncer.SyncContent(r.Context(), types.ContentType(req.ContentType), req.ContentID, req.Title, req.Body, req.CoverImageURL)
		if err != nil {
			slog.Error("Content sync failed",
				slog.String("content_type", req.ContentType),
				slog.String("content_id", req.ContentID),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("References synced successfully", map[string]int{"references": count}))
	}
}

// Remove drops all reference rows held by a deleted content entity
// @Summary Remove media references for a deleted content entity
// @Tags content
// @Produce json
// @Param type path string true "Content type" Enums(article, newsletter_issue)
// @Param id path string true "Content ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response "Bad request"
// @Router /api/admin/content/{type}/{id} [delete]
func Remove(syncer *references.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentType := r.PathValue("type")
		contentID := r.PathValue("id")

		if contentType != string(types.ContentTypeArticle) && contentType != string(types.ContentTypeNewsletterIssue) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(fmt.Errorf("unknown content type: %s", contentType)))
			return
		}
		if contentID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("content ID is required")))
			return
		}

		if err := syncer.RemoveContent(r.Context(), types.ContentType(contentType), contentID); err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("References removed successfully", nil))
	}
}
