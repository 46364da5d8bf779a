package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docuvoice/backend/internal/api/dto"
	"github.com/docuvoice/backend/internal/convert"
	"github.com/docuvoice/backend/internal/ledger"
)

// SubmitJob handles POST /api/v1/jobs
// Converts the input if needed, starts async text detection, and records
// the job in the ledger.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := uuid.Parse(req.JobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", req.JobID))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = h.uploadBucket
	}

	ctx := c.Request.Context()

	h.notify(c, req.ConnectionID, "Invoking Textract")

	inputKey, err := h.resolveInput(c, bucket, req.Key, req.JobID)
	if err != nil {
		if errors.Is(err, convert.ErrUnsupportedFileType) {
			h.notify(c, req.ConnectionID, "ERROR - Failed to convert file")
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Input file type not supported",
			})
			return
		}
		h.notify(c, req.ConnectionID, "ERROR - Failed to convert file")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to convert file",
		})
		return
	}

	taskID, err := h.ocr.StartTextDetection(ctx, bucket, inputKey)
	if err != nil {
		h.logger.Error("Failed to start text detection",
			slog.String("job_id", req.JobID),
			slog.String("error", err.Error()),
		)
		h.notify(c, req.ConnectionID, "ERROR - Failed to convert file")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to start text detection",
		})
		return
	}

	rec := ledger.Record{
		JobID:        req.JobID,
		UserID:       req.UserID,
		ConnectionID: req.ConnectionID,
		StartTime:    time.Now().UTC(),
		InputFile:    path.Base(inputKey),
		OcrTaskID:    taskID,
	}

	if err := h.ledger.Create(ctx, &rec); err != nil {
		h.notify(c, req.ConnectionID, "ERROR - Failed to convert file")
		if errors.Is(err, ledger.ErrDuplicateJob) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Job already exists",
			})
			return
		}
		h.logger.Error("Failed to create ledger record",
			slog.String("job_id", req.JobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	h.logger.Info("Job submitted",
		slog.String("job_id", req.JobID),
		slog.String("ocr_task_id", taskID),
		slog.String("input_file", rec.InputFile),
	)

	c.JSON(http.StatusAccepted, toJobResponse(&rec))
}

// resolveInput returns the storage key the OCR job should read: PDF inputs
// pass through, raster images get converted and uploaded alongside the
// original.
func (h *JobHandler) resolveInput(c *gin.Context, bucket, key, jobID string) (string, error) {
	resolved, needsConversion, err := convert.ResolveKey(key)
	if err != nil {
		return "", err
	}

	if !needsConversion {
		return resolved, nil
	}

	ctx := c.Request.Context()

	data, err := h.store.GetObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}

	pdf, err := convert.ToPDF(ctx, data)
	if err != nil {
		return "", err
	}

	if err := h.store.PutObject(ctx, bucket, resolved, pdf, "application/pdf"); err != nil {
		return "", err
	}

	h.logger.Info("Converted input to PDF",
		slog.String("job_id", jobID),
		slog.String("key", key),
		slog.String("converted_key", resolved),
	)

	return resolved, nil
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	rec, err := h.ledger.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toJobResponse(rec))
}

func (h *JobHandler) notify(c *gin.Context, connectionID, message string) {
	if err := h.notifier.Push(c.Request.Context(), connectionID, message); err != nil {
		h.logger.Warn("Failed to push status notification",
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	}
}

func toJobResponse(rec *ledger.Record) dto.JobResponse {
	resp := dto.JobResponse{
		JobID:        rec.JobID,
		UserID:       rec.UserID,
		ConnectionID: rec.ConnectionID,
		StartTime:    rec.StartTime.Format(time.RFC3339),
		InputFile:    rec.InputFile,
		OcrTaskID:    rec.OcrTaskID,
	}
	if rec.SpeechTaskID != nil {
		resp.SpeechTaskID = *rec.SpeechTaskID
	}
	return resp
}
