// Package api holds the thin per-route HTTP handlers. Each handler
// composes the rate limiter, content-addressed store, metadata store and
// retention sweeper; none of them re-derive hashing, upsert or window
// logic.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"face-score/internal/config"
	"face-score/internal/faceapi"
	"face-score/internal/records"
	"face-score/internal/retention"
)

type Analyzer interface {
	Detect(ctx context.Context, imageBase64 string) ([]faceapi.Face, error)
}

type Commenter interface {
	Comment(ctx context.Context, prompt string, score float64) string
}

type BotVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) bool
}

type ObjectStore interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	PutThumbnail(ctx context.Context, id string, original []byte) error
	GetThumbnail(ctx context.Context, id string) ([]byte, error)
}

type RecordStore interface {
	Upsert(ctx context.Context, rec records.ScoreRecord) (records.ScoreRecord, error)
	Get(ctx context.Context, id string) (records.ScoreRecord, error)
	List(ctx context.Context, q records.ListQuery) (records.Page, error)
	GetByIDs(ctx context.Context, ids []string) ([]records.ScoreRecord, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	Stats(ctx context.Context, now time.Time) (records.Stats, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (retention.Report, error)
	Status(ctx context.Context) (retention.Status, error)
}

// Enqueuer hands work to the background worker.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	Faces     Analyzer
	Comments  Commenter
	Turnstile BotVerifier
	Objects   ObjectStore
	Records   RecordStore
	Sweeper   Sweeper
	// Queue is optional; without it cleanup always runs inline.
	Queue Enqueuer

	TurnstileSiteKey string
	Debug            bool
	Now              func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Routes maps route names to their middleware. Limit returns the rate
// limiter for a route; Auth guards admin endpoints.
type Routes struct {
	Limit func(route string) gin.HandlerFunc
	Auth  gin.HandlerFunc
}

// RegisterRoutes mounts the public and admin endpoints under g.
func (s *Server) RegisterRoutes(g *gin.RouterGroup, rt Routes) {
	g.POST("/score", rt.Limit(config.RouteScore), s.Score)
	g.POST("/fortune", rt.Limit(config.RouteFortune), s.Fortune)
	g.GET("/image", rt.Limit(config.RouteImage), s.Image)
	g.GET("/turnstile", s.TurnstileConfig)

	g.GET("/images", rt.Limit(config.RouteImages), rt.Auth, s.ListImages)
	g.DELETE("/images", rt.Limit(config.RouteImages), rt.Auth, s.DeleteImages)
	g.GET("/verify", rt.Limit(config.RouteVerify), rt.Auth, s.Verify)
	g.POST("/cleanup", rt.Limit(config.RouteCleanup), rt.Auth, s.Cleanup)
}
