package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/services"
)

// WebhookController handles Supabase database webhook requests
type WebhookController struct {
	webhookSecret string
	processor     services.RecordProcessor
	// background runs the enrichment after the response is sent
	background func(func())
	logger     zerolog.Logger
}

// NewWebhookController creates a new WebhookController instance
func NewWebhookController(webhookSecret string, processor services.RecordProcessor) *WebhookController {
	return &WebhookController{
		webhookSecret: webhookSecret,
		processor:     processor,
		background:    func(fn func()) { go fn() },
		logger:        logging.Component("WebhookController"),
	}
}

// HandleRecordCreated handles POST /webhooks/record-created
// This endpoint is called by Supabase when a new fundraise record is inserted
// @Summary Handle record created webhook
// @Description Receives the Supabase database webhook for a new fundraise record and enriches it in the background
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token with webhook secret"
// @Param payload body dto.WebhookPayload true "Webhook payload from Supabase"
// @Success 200 {object} map[string]string "Webhook accepted or ignored"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 400 {object} dto.ErrorResponse "Bad request"
// @Router /webhooks/record-created [post]
func (c *WebhookController) HandleRecordCreated(ctx *gin.Context) {
	if !validateBearer(ctx, c.webhookSecret, c.logger) {
		return
	}

	var payload dto.WebhookPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		c.logger.Warn().Err(err).Msg("failed to parse webhook payload")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid webhook payload",
		})
		return
	}

	record := payload.RecordFromPayload()
	if record == nil {
		c.logger.Debug().
			Str("type", payload.Type).
			Str("table", payload.Table).
			Msg("webhook ignored")
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	c.logger.Info().
		Str("record_id", record.ID).
		Str("company", record.CompanyName).
		Msg("record received")

	ctx.JSON(http.StatusOK, gin.H{
		"status":    "accepted",
		"record_id": record.ID,
	})

	id := record.ID
	c.background(func() {
		startTime := time.Now()
		if _, err := c.processor.ProcessRecord(context.Background(), id); err != nil {
			c.logger.Error().Err(err).Str("record_id", id).Msg("background enrichment failed")
			return
		}
		c.logger.Info().Str("record_id", id).Dur("duration", time.Since(startTime)).Msg("background enrichment finished")
	})
}

// validateBearer checks the Authorization header against secret and writes
// a 401 when it does not match. An empty secret rejects every request.
func validateBearer(ctx *gin.Context, secret string, logger zerolog.Logger) bool {
	authHeader := ctx.GetHeader("Authorization")
	expected := "Bearer " + secret

	if secret == "" || subtle.ConstantTimeCompare([]byte(authHeader), []byte(expected)) != 1 {
		// never log the header itself
		logger.Warn().
			Bool("has_auth_header", authHeader != "").
			Str("client_ip", ctx.ClientIP()).
			Str("path", ctx.Request.URL.Path).
			Msg("authentication failed")
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return false
	}
	return true
}
