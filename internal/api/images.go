package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"face-score/internal/apierr"
	"face-score/internal/logger"
	"face-score/internal/middleware"
	"face-score/internal/records"
	"face-score/internal/storage"
	"face-score/internal/validate"
)

// Image serves stored bytes by content id. Content never changes under an
// id, so responses are cacheable forever.
func (s *Server) Image(c *gin.Context) {
	id := records.HashFromID(c.Query("id"))
	if !storage.ValidContentID(id) {
		s.fail(c, apierr.Validation("invalid image id"))
		return
	}

	get := s.Objects.Get
	if c.Query("thumb") == "1" {
		get = s.Objects.GetThumbnail
	}
	data, err := get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(c, apierr.NotFound("image not found"))
		return
	}
	if err != nil {
		s.fail(c, apierr.Storage("failed to read image", err))
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (s *Server) ListImages(c *gin.Context) {
	page, limit, err := validate.Pagination(c.Query("page"), c.Query("limit"), 20)
	if err != nil {
		s.fail(c, err)
		return
	}
	from, to, err := validate.DateRange(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		s.fail(c, err)
		return
	}

	q := records.ListQuery{Page: page, Limit: limit, From: from, To: to, Desc: true, SortBy: records.SortTimestamp}
	switch c.DefaultQuery("sort_by", "timestamp") {
	case "timestamp":
	case "score":
		q.SortBy = records.SortScore
	default:
		s.fail(c, apierr.Validation("sort_by must be timestamp or score"))
		return
	}
	switch c.DefaultQuery("order", "desc") {
	case "desc":
	case "asc":
		q.Desc = false
	default:
		s.fail(c, apierr.Validation("order must be asc or desc"))
		return
	}

	result, err := s.Records.List(c.Request.Context(), q)
	if err != nil {
		s.fail(c, apierr.Storage("failed to list images", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"images":     result.Records,
		"pagination": result.Pagination,
	})
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteImages removes images first and metadata second, like the
// retention sweep. Image failures are counted, not fatal.
func (s *Server) DeleteImages(c *gin.Context) {
	ctx := c.Request.Context()

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apierr.Validation("invalid request body"))
		return
	}
	if err := validate.IDs(req.IDs); err != nil {
		s.fail(c, err)
		return
	}

	found, err := s.Records.GetByIDs(ctx, req.IDs)
	if err != nil {
		s.fail(c, apierr.Storage("failed to load images", err))
		return
	}

	deletedImages, failedImages := 0, 0
	for _, rec := range found {
		if err := s.Objects.Delete(ctx, rec.ContentHash); err != nil {
			failedImages++
			logger.Warn("image delete failed", map[string]any{"id": rec.ID, "error": err})
			continue
		}
		deletedImages++
	}

	deleted, err := s.Records.DeleteByIDs(ctx, req.IDs)
	if err != nil {
		s.fail(c, apierr.Storage("failed to delete records", err))
		return
	}

	logger.Info("images deleted", map[string]any{
		"by":             middleware.Username(c),
		"requested":      len(req.IDs),
		"deleted":        deleted,
		"images_deleted": deletedImages,
		"images_failed":  failedImages,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"requested":      len(req.IDs),
		"deleted":        deleted,
		"images_deleted": deletedImages,
		"images_failed":  failedImages,
	})
}
