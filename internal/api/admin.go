package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"face-score/internal/apierr"
	"face-score/internal/logger"
	"face-score/internal/middleware"
	"face-score/internal/retention"
)

// Verify reports on retention. action is retention (default), stats or
// cleanup-status.
func (s *Server) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	switch action := c.DefaultQuery("action", "retention"); action {
	case "retention", "cleanup-status":
		st, err := s.Sweeper.Status(ctx)
		if err != nil {
			s.fail(c, apierr.Storage("failed to read retention status", err))
			return
		}
		body := gin.H{"success": true, "action": action, "retention": st}
		if action == "cleanup-status" {
			body["last_sweep"] = st.LastSweep
		}
		c.JSON(http.StatusOK, body)

	case "stats":
		st, err := s.Records.Stats(ctx, s.now())
		if err != nil {
			s.fail(c, apierr.Storage("failed to read stats", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "action": action, "stats": st})

	default:
		s.fail(c, apierr.Validation("unknown action"))
	}
}

// Cleanup runs the retention sweep now. With async=1 and a queue
// configured it is handed to the worker instead.
func (s *Server) Cleanup(c *gin.Context) {
	ctx := c.Request.Context()
	by := middleware.Username(c)

	if c.Query("async") == "1" && s.Queue != nil {
		task, err := retention.NewSweepTask(time.Time{})
		if err != nil {
			s.fail(c, err)
			return
		}
		taskID := uuid.NewString()
		if _, err := s.Queue.EnqueueContext(ctx, task, asynq.TaskID(taskID)); err != nil {
			s.fail(c, apierr.Storage("failed to enqueue cleanup", err))
			return
		}
		logger.Info("cleanup enqueued", map[string]any{"by": by, "task_id": taskID})
		c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": taskID})
		return
	}

	rep, err := s.Sweeper.Sweep(ctx)
	if err != nil {
		s.fail(c, apierr.Storage("cleanup failed", err))
		return
	}
	logger.Info("cleanup run", map[string]any{"by": by, "deleted_records": rep.DeletedRecords})
	c.JSON(http.StatusOK, gin.H{"success": true, "report": rep})
}

func (s *Server) TurnstileConfig(c *gin.Context) {
	enabled := s.Turnstile != nil && s.Turnstile.Enabled()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"enabled":  enabled,
		"site_key": s.TurnstileSiteKey,
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}
