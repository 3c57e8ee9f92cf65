// Package handlers provides HTTP handler implementations for the rider and
// operator surfaces.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the mapping from service errors to HTTP results, and
// helpers for success responses and pagination.
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error logging and formatting; 5xx responses are
//     logged with the request-scoped logger.
//   - `serviceError()` is the single place where service sentinels become
//     statuses, so every endpoint answers the same error the same way.
//
// Example error response:
//
//	HTTP/1.1 422 Unprocessable Entity
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "validation_failed",
//	  "message": "submission has 1 invalid field(s)",
//	  "fields": {"question_9f0c...": "choose a value between 1 and 5"}
//	}
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/http/middleware"
	"github.com/tbourn/rider-feedback/internal/services"
	"github.com/tbourn/rider-feedback/internal/survey"
	"github.com/tbourn/rider-feedback/internal/utils"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"throttled"`
	// Human-readable message (safe to show to riders)
	Message string `json:"message" example:"you already sent feedback for this vehicle, please try again later"`
	// Per-field messages of a rejected submission
	Fields survey.FieldErrors `json:"fields,omitempty"`
	// Form to re-display after a rejected submission, with the posted values
	Form *services.SurveyForm `json:"form,omitempty"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

// Fail is the exported variant of fail(), used by router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// serviceError translates a service error into the matching HTTP result.
// Unknown errors become a 500 whose message does not leak internals.
func serviceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var terr *services.ThrottledError

	switch {
	case errors.As(err, &verr):
		abort(c, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    ErrCodeValidationFailed,
			Message: verr.Error(),
			Fields:  verr.Fields,
			Form:    verr.Form,
		})
	case errors.As(err, &terr):
		c.Header("Retry-After", strconv.Itoa(terr.RetryAfterSeconds()))
		fail(c, http.StatusTooManyRequests, ErrCodeThrottled, "you already sent feedback for this vehicle, please try again later")
	case errors.Is(err, services.ErrCatalogChanged):
		fail(c, http.StatusConflict, ErrCodeCatalogChanged, services.ErrCatalogChanged.Error())
	case errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrVehicleNotFound),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrNoVehicles):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrTenantInactive):
		fail(c, http.StatusServiceUnavailable, ErrCodeTenantInactive, err.Error())
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, services.ErrExclusiveFilter):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// attachment sends data as a named download.
func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"        example:"1"`
	PageSize   int   `json:"page_size"   example:"20"`
	Total      int64 `json:"total"       example:"57"`
	TotalPages int   `json:"total_pages" example:"3"`
	HasNext    bool  `json:"has_next"    example:"true"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
