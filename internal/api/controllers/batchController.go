package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
)

// BatchRunner enriches several records. services.BatchProcessor satisfies it.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, req dto.BatchRequest) (*dto.BatchSummary, error)
}

// BatchController starts batch enrichment runs
type BatchController struct {
	webhookSecret string
	runner        BatchRunner
	running       atomic.Bool
	background    func(func())
	logger        zerolog.Logger
}

// NewBatchController creates a new BatchController instance
func NewBatchController(webhookSecret string, runner BatchRunner) *BatchController {
	return &BatchController{
		webhookSecret: webhookSecret,
		runner:        runner,
		background:    func(fn func()) { go fn() },
		logger:        logging.Component("BatchController"),
	}
}

// EnrichPending godoc
// @Summary      Enrich pending records
// @Description  Start a background batch over the named records, or the oldest pending records when none are named. Only one batch runs at a time.
// @Tags         records
// @Accept       json
// @Produce      json
// @Param        Authorization header string true "Bearer token with webhook secret"
// @Param        request body dto.BatchRequest false "Batch selection"
// @Success      200 {object} map[string]string "Batch accepted"
// @Failure      400 {object} dto.ErrorResponse "Bad request"
// @Failure      401 {object} dto.ErrorResponse "Unauthorized"
// @Failure      409 {object} dto.ErrorResponse "A batch is already running"
// @Router       /api/v1/records/enrich-pending [post]
func (c *BatchController) EnrichPending(ctx *gin.Context) {
	if !validateBearer(ctx, c.webhookSecret, c.logger) {
		return
	}

	var req dto.BatchRequest
	// an empty body selects every pending record
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid batch request"})
		return
	}

	if !c.running.CompareAndSwap(false, true) {
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "a batch is already running"})
		return
	}

	c.logger.Info().
		Int("record_ids", len(req.RecordIDs)).
		Int("limit", req.Limit).
		Msg("batch accepted")

	ctx.JSON(http.StatusOK, gin.H{"status": "accepted"})

	c.background(func() {
		defer c.running.Store(false)
		summary, err := c.runner.ProcessBatch(context.Background(), req)
		if err != nil {
			c.logger.Error().Err(err).Msg("batch failed")
			return
		}
		c.logger.Info().
			Int("total", summary.Total).
			Int("completed", summary.Completed).
			Int("failed", summary.Failed).
			Msg("batch finished")
	})
}
