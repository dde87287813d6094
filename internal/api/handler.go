package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ClubSend/internal/db"
	"ClubSend/internal/jobs"
	"ClubSend/internal/models"
	"ClubSend/internal/sender"
	"ClubSend/internal/worker"
)

type JobService interface {
	Enqueue(ctx context.Context, eventID, customMessage string) (*models.EmailJob, error)
	Status(ctx context.Context, id uuid.UUID) (*models.EmailJob, error)
	ProcessNext(ctx context.Context) (*models.EmailJob, sender.Result, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context) (*models.EmailJob, error)
}

type Handler struct {
	Jobs       JobService
	Dispatcher Dispatcher
	Log        *zap.Logger
}

type enqueueRequest struct {
	EventID       string `json:"eventId"`
	CustomMessage string `json:"customMessage"`
}

// Enqueue handles POST /api/email-jobs.
func (h *Handler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	job, err := h.Jobs.Enqueue(c.Request.Context(), req.EventID, req.CustomMessage)
	if errors.Is(err, jobs.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err != nil {
		h.Log.Error("failed to queue email job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to queue email job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email job queued",
		"jobId":   job.ID,
	})
}

// Status handles GET /api/email-jobs/:id.
func (h *Handler) Status(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid job id"})
		return
	}

	job, err := h.Jobs.Status(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "job not found"})
		return
	}
	if err != nil {
		h.Log.Error("failed to read email job", zap.Stringer("job_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to read email job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "job": job})
}

// Process handles POST /api/process-email-jobs. By default the oldest queued
// job is handed to the worker pool; with ?wait=true it runs in the request.
func (h *Handler) Process(c *gin.Context) {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	if wait {
		h.processSync(c)
		return
	}

	job, err := h.Dispatcher.Dispatch(c.Request.Context())
	switch {
	case errors.Is(err, jobs.ErrNoQueuedJob):
		c.JSON(http.StatusOK, gin.H{"message": "No queued email jobs"})
	case errors.Is(err, worker.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": err.Error()})
	case err != nil:
		h.processError(c, err)
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"message": "Email job started",
			"jobId":   job.ID,
		})
	}
}

func (h *Handler) processSync(c *gin.Context) {
	job, result, err := h.Jobs.ProcessNext(c.Request.Context())
	if errors.Is(err, jobs.ErrNoQueuedJob) {
		c.JSON(http.StatusOK, gin.H{"message": "No queued email jobs"})
		return
	}
	if err != nil {
		h.processError(c, err)
		return
	}

	message := "Email job completed"
	if !result.Success {
		message = "Email job failed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"message": message,
		"jobId":   job.ID,
		"result":  result,
	})
}

func (h *Handler) processError(c *gin.Context, err error) {
	h.Log.Error("failed to process email jobs", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
}
