package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"webstar/fundraise-enrichment-worker/internal/dto"
	"webstar/fundraise-enrichment-worker/internal/handlers"
	"webstar/fundraise-enrichment-worker/internal/logging"
)

// PressSearcher finds press-release URLs for a funding round.
// handlers.GoogleSearchHandler satisfies it.
type PressSearcher interface {
	FindPressURLs(ctx context.Context, q handlers.SearchQuery) []string
}

// SearchController handles search-related HTTP requests
type SearchController struct {
	searcher PressSearcher
	logger   zerolog.Logger
}

// NewSearchController creates a new SearchController instance
func NewSearchController(searcher PressSearcher) *SearchController {
	return &SearchController{
		searcher: searcher,
		logger:   logging.Component("SearchController"),
	}
}

// Search godoc
// @Summary      Search press releases for a funding round
// @Description  Run the press-release search for a company and return up to three relevant URLs. Nothing is stored.
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        request body dto.SearchRequest true "Search parameters"
// @Success      200 {object} dto.SearchResponse "Press URLs found"
// @Failure      400 {object} dto.ErrorResponse "Bad request - validation error"
// @Router       /api/v1/search [post]
func (ctrl *SearchController) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	urls := ctrl.searcher.FindPressURLs(c.Request.Context(), handlers.SearchQuery{
		CompanyName: req.CompanyName,
		Investors:   req.Investors,
		RaiseDate:   req.RaiseDate,
	})
	if urls == nil {
		urls = []string{}
	}

	ctrl.logger.Info().
		Str("company", req.CompanyName).
		Int("urls", len(urls)).
		Msg("search completed")

	c.JSON(http.StatusOK, dto.SearchResponse{
		CompanyName: req.CompanyName,
		URLs:        urls,
		Total:       len(urls),
	})
}
