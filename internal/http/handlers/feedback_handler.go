// Feedback HTTP handlers.
//
// Read-only operator views over rider input, under
// {API_BASE_PATH}/tenants/{tenant}:
//   - GET /submissions   (paginated, newest first, with answers)
//   - GET /complaints    (paginated, newest first; ?q= switches to keyword search)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/services"
	"github.com/tbourn/rider-feedback/internal/utils"
)

const maxSearchResults = 50

// ListSubmissionsResponse wraps a page of submissions.
type ListSubmissionsResponse struct {
	Submissions []domain.Submission `json:"submissions"`
	Pagination  Pagination          `json:"pagination"`
}

// ListComplaintsResponse wraps a page of complaints.
type ListComplaintsResponse struct {
	Complaints []domain.Complaint `json:"complaints"`
	Pagination Pagination         `json:"pagination"`
}

// SearchComplaintsResponse carries ranked complaint hits.
type SearchComplaintsResponse struct {
	Query   string                  `json:"query"   example:"driver rude"`
	Results []services.ComplaintHit `json:"results"`
}

// ListSubmissions godoc
// @ID          listSubmissions
// @Summary     List submissions
// @Description Returns a page of rider submissions, newest first, with their answers.
// @Tags        Feedback
// @Produce     json
//
// @Param       tenant     path   string  true   "Tenant slug"                   example(acme)
// @Param       page       query  int     false  "Page number (>=1)"             minimum(1) default(1)
// @Param       page_size  query  int     false  "Page size (1..100)"            minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSubmissionsResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/submissions [get]
func (h *Handlers) ListSubmissions(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.feedback.ListSubmissions(c.Request.Context(), currentTenant(c).ID, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListSubmissionsResponse{
		Submissions: items,
		Pagination:  newPagination(page, pageSize, total),
	})
}

// ListComplaints godoc
// @ID          listComplaints
// @Summary     List or search complaints
// @Description Returns a page of complaints, newest first. With q set it returns ranked keyword hits instead
// @Description (handlers.SearchComplaintsResponse); k bounds the hits (default 20, max 50).
// @Tags        Feedback
// @Produce     json
//
// @Param       tenant     path   string  true   "Tenant slug"                   example(acme)
// @Param       q          query  string  false  "Keyword search"                example(rude driver)
// @Param       k          query  int     false  "Max search hits"               minimum(1) maximum(50) default(20)
// @Param       page       query  int     false  "Page number (>=1)"             minimum(1) default(1)
// @Param       page_size  query  int     false  "Page size (1..100)"            minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListComplaintsResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/complaints [get]
func (h *Handlers) ListComplaints(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := currentTenant(c).ID

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		k := utils.AtoiDefault(c.Query("k"), 0)
		if k > maxSearchResults {
			k = maxSearchResults
		}
		hits, err := h.feedback.SearchComplaints(ctx, tenantID, q, k)
		if err != nil {
			serviceError(c, err)
			return
		}
		ok(c, http.StatusOK, SearchComplaintsResponse{Query: q, Results: hits})
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.feedback.ListComplaints(ctx, tenantID, page, pageSize)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListComplaintsResponse{
		Complaints: items,
		Pagination: newPagination(page, pageSize, total),
	})
}
