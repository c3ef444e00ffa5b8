package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"face-score/internal/apierr"
	"face-score/internal/commentary"
	"face-score/internal/faceapi"
	"face-score/internal/logger"
	"face-score/internal/records"
	"face-score/internal/storage"
	"face-score/internal/turnstile"
	"face-score/internal/validate"
)

// maxBodyBytes leaves room for base64 overhead on a 10 MiB image.
const maxBodyBytes = 15 << 20

type submitRequest struct {
	Image             string `json:"image"`
	TurnstileResponse string `json:"turnstile_response"`
	AppType           string `json:"app_type"`
}

func (s *Server) Score(c *gin.Context) {
	s.submit(c, records.KindScore, commentary.ScorePrompt)
}

func (s *Server) Fortune(c *gin.Context) {
	s.submit(c, records.KindFortune, commentary.FortunePrompt)
}

func (s *Server) submit(c *gin.Context, kind records.Kind, prompt func(faceapi.Face) string) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apierr.Validation("invalid request body"))
		return
	}
	if err := validate.Base64Image(req.Image); err != nil {
		s.fail(c, err)
		return
	}

	if s.Turnstile != nil && s.Turnstile.Enabled() && !turnstile.IsMiniProgram(c.Request, req.AppType) {
		token := req.TurnstileResponse
		if token == "" {
			token = turnstile.Token(c.Request)
		}
		if !s.Turnstile.Verify(ctx, token, c.ClientIP()) {
			s.fail(c, apierr.Forbidden("human verification failed"))
			return
		}
	}

	data, err := storage.DecodeBase64Image(req.Image)
	if err != nil {
		s.fail(c, apierr.E(apierr.KindValidation, "invalid base64 image", err))
		return
	}

	faces, err := s.Faces.Detect(ctx, storage.StripDataURL(req.Image))
	if err != nil {
		s.fail(c, faceError(err))
		return
	}
	face := faces[0]
	score := math.Round(face.Score()*10) / 10
	comment := s.Comments.Comment(ctx, prompt(face), score)

	id := storage.ContentID(data)
	rec := records.ScoreRecord{
		ContentHash: id,
		Kind:        kind,
		Score:       score,
		Comment:     comment,
		Gender:      records.ParseGender(face.Gender()),
		Age:         face.Age(),
		ImageURL:    "/api/image?id=" + id,
		CreatedAt:   s.now(),
	}
	s.persist(c, rec, data)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"kind":      kind,
		"score":     score,
		"comment":   comment,
		"gender":    rec.Gender,
		"age":       rec.Age,
		"key":       records.RecordID(id),
		"image_url": rec.ImageURL,
	})
}

// persist writes the object before the metadata so a record never points at
// a missing image. Failures are logged and never reach the caller.
func (s *Server) persist(c *gin.Context, rec records.ScoreRecord, data []byte) {
	ctx := c.Request.Context()
	fields := map[string]any{"id": rec.ContentHash, "request_id": c.GetString("request_id")}

	if err := s.Objects.Put(ctx, rec.ContentHash, data); err != nil {
		fields["error"] = err
		logger.Error("image store failed, result not persisted", fields)
		return
	}
	if err := s.Objects.PutThumbnail(ctx, rec.ContentHash, data); err != nil {
		logger.Warn("thumbnail failed", map[string]any{"id": rec.ContentHash, "error": err})
	}
	if _, err := s.Records.Upsert(ctx, rec); err != nil {
		fields["error"] = err
		logger.Error("metadata upsert failed, image left for retention", fields)
	}
}

func faceError(err error) error {
	switch {
	case errors.Is(err, faceapi.ErrNoFace):
		return apierr.E(apierr.KindValidation, "no face detected", err)
	case errors.Is(err, faceapi.ErrTimeout):
		return apierr.Upstream("face analysis timed out", err)
	case errors.Is(err, faceapi.ErrNotConfigured):
		return apierr.Upstream("face analysis is unavailable", err)
	}
	var ue *faceapi.UpstreamError
	if errors.As(err, &ue) {
		return apierr.Upstream(ue.Message, err)
	}
	return apierr.Upstream("face analysis failed", err)
}

func (s *Server) fail(c *gin.Context, err error) {
	if apierr.KindOf(err) == apierr.KindInternal || apierr.KindOf(err) == apierr.KindStorage {
		logger.Error("request failed", map[string]any{
			"path":       c.Request.URL.Path,
			"error":      err,
			"request_id": c.GetString("request_id"),
		})
	}
	apierr.Write(c, err, s.Debug)
}
