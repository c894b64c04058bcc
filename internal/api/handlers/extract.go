package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobscout/internal/pipeline"
	"jobscout/pkg/models"
)

// ExtractRequest is the thin external request shape for triggering a C7
// extraction run against one search keyword.
type ExtractRequest struct {
	Keyword        string `json:"keyword" validate:"required"`
	MaxResults     int    `json:"max_results,omitempty"`
	MaxPages       int    `json:"max_pages,omitempty"`
	SaveResults    bool   `json:"save_results,omitempty"`
	ExtractDetails bool   `json:"extract_details,omitempty"`
}

// ExtractHandler exposes C7's ExtractFromKeyword over HTTP. It runs
// synchronously: C7 is strictly single-threaded over one browser instance
// (spec §5), so this handler does not accept concurrent extraction
// requests any more gracefully than the pipeline itself does.
func ExtractHandler(p *pipeline.Pipeline) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID, _ := c.Get("request_id").(string)

		var req ExtractRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid_request", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}
		if req.Keyword == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid_request", Message: "keyword is required", RequestID: requestID, Timestamp: time.Now(),
			})
		}

		result, err := p.ExtractFromKeyword(c.Request().Context(), req.Keyword, req.MaxResults, req.SaveResults, req.ExtractDetails, req.MaxPages)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "extraction_failed", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, result)
	}
}
