package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"jobscout/internal/matcher"
	"jobscout/internal/resume"
	"jobscout/pkg/models"
)

var matchValidate = validator.New()

// MatchRequest is the thin external request shape for C12.
type MatchRequest struct {
	Resume  resume.Profile `json:"resume" validate:"required"`
	Website string         `json:"website,omitempty"`
	TopK    int            `json:"top_k,omitempty"`
}

// MatchHandler exposes C12's FindMatchingJobs over HTTP.
func MatchHandler(m *matcher.Matcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID, _ := c.Get("request_id").(string)

		var req MatchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid_request", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}
		if err := matchValidate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "validation_failed", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}

		bundle, err := m.FindMatchingJobs(c.Request().Context(), &req.Resume, matcher.Filters{Website: req.Website}, req.TopK)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "match_failed", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, bundle)
	}
}
