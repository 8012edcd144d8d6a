package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/services"
)

// RecordsController handles fundraise record HTTP requests
type RecordsController struct {
	store     services.RecordStore
	processor services.RecordProcessor
	logger    zerolog.Logger
}

// NewRecordsController creates a new RecordsController instance
func NewRecordsController(store services.RecordStore, processor services.RecordProcessor) *RecordsController {
	return &RecordsController{
		store:     store,
		processor: processor,
		logger:    logging.Component("RecordsController"),
	}
}

// CreateRecord godoc
// @Summary      Create a fundraise record
// @Description  Insert a new pending fundraise record. The record is enriched later by the webhook, the enrich endpoint or a batch.
// @Tags         records
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateRecordRequest true "Record to create"
// @Success      201 {object} dto.FundraiseRecord "Created record"
// @Failure      400 {object} dto.ErrorResponse "Bad request - validation error"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/v1/records [post]
func (ctrl *RecordsController) CreateRecord(c *gin.Context) {
	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	record := dto.NewPendingRecord(uuid.NewString(), req.CompanyName, req.RaiseDate, req.AmountRaised, req.Investors)
	if err := ctrl.store.CreateRecord(c.Request.Context(), record); err != nil {
		ctrl.logger.Error().Err(err).Str("company", record.CompanyName).Msg("failed to create record")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to create record"})
		return
	}

	ctrl.logger.Info().Str("record_id", record.ID).Str("company", record.CompanyName).Msg("record created")
	c.JSON(http.StatusCreated, record)
}

// GetRecord godoc
// @Summary      Get a fundraise record
// @Description  Return a record with its status and enrichment fields
// @Tags         records
// @Produce      json
// @Param        id path string true "Record ID"
// @Success      200 {object} dto.FundraiseRecord "Record"
// @Failure      404 {object} dto.ErrorResponse "Record not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/v1/records/{id} [get]
func (ctrl *RecordsController) GetRecord(c *gin.Context) {
	id := c.Param("id")

	record, err := ctrl.store.GetRecord(c.Request.Context(), id)
	if err != nil {
		ctrl.writeError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// EnrichRecord godoc
// @Summary      Enrich a fundraise record
// @Description  Run the enrichment of one pending record synchronously and return the stored result
// @Tags         records
// @Produce      json
// @Param        id path string true "Record ID"
// @Success      200 {object} dto.FundraiseRecord "Enriched record"
// @Failure      404 {object} dto.ErrorResponse "Record not found"
// @Failure      409 {object} dto.ErrorResponse "Record is not pending"
// @Failure      422 {object} dto.ErrorResponse "Record is malformed"
// @Failure      500 {object} dto.ErrorResponse "Enrichment failed"
// @Router       /api/v1/records/{id}/enrich [post]
func (ctrl *RecordsController) EnrichRecord(c *gin.Context) {
	id := c.Param("id")

	record, err := ctrl.processor.ProcessRecord(c.Request.Context(), id)
	if err != nil {
		ctrl.writeError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// writeError maps store and processor errors to HTTP statuses
func (ctrl *RecordsController) writeError(c *gin.Context, id string, err error) {
	switch {
	case errors.Is(err, dto.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "record not found"})
	case errors.Is(err, dto.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, dto.ErrInvalidRecord):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	default:
		ctrl.logger.Error().Err(err).Str("record_id", id).Msg("request failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}
