// Rider HTTP handlers.
//
// This file exposes the public, unauthenticated rider surface of a tenant:
//   - GET  /t/{tenant}/survey              (vehicle selection)
//   - GET  /t/{tenant}/survey/{transit}    (form descriptor)
//   - POST /t/{tenant}/survey/{transit}    (form-encoded submission)
//   - GET  /t/{tenant}/thank-you           (confirmation)
//
// A successful submission answers 303 See Other to the confirmation page and
// leaves a short-lived flash cookie that the confirmation reads once.
package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/domain"
)

const (
	flashCookie = "rf_flash"
	flashMaxAge = 300 // seconds

	flashSuccess      = "submission_success"
	flashHasComplaint = "has_complaint"
)

// VehicleChoice is one entry of the vehicle selection list.
type VehicleChoice struct {
	TransitNumber string `json:"transit_number"  example:"101"`
	Route         string `json:"route,omitempty" example:"Ruta Centro"`
	SurveyURL     string `json:"survey_url"      example:"/t/acme/survey/101"`
}

// VehicleSelectionResponse lists the vehicles a rider can pick from.
type VehicleSelectionResponse struct {
	Tenant   string          `json:"tenant"   example:"acme"`
	Vehicles []VehicleChoice `json:"vehicles"`
}

// ThankYouResponse is the confirmation payload. TodayCount is set only when
// the visit follows a successful submission.
type ThankYouResponse struct {
	Submitted    bool   `json:"submitted"             example:"true"`
	HasComplaint bool   `json:"has_complaint"         example:"false"`
	TodayCount   *int64 `json:"today_count,omitempty" example:"42"`
}

// SelectVehicle godoc
// @ID          selectVehicle
// @Summary     Pick the vehicle to rate
// @Description A transit_number query redirects straight to that vehicle's survey. Otherwise a tenant with
// @Description no vehicles answers 404, a single vehicle redirects and several are listed.
// @Tags        Rider
// @Produce     json
//
// @Param       tenant          path   string  true   "Tenant slug"            example(acme)
// @Param       transit_number  query  string  false  "Vehicle transit number" example(101)
//
// @Success     200  {object} handlers.VehicleSelectionResponse
// @Success     302  {string} string "Redirect to /t/{tenant}/survey/{transit}"
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found or no vehicles"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /t/{tenant}/survey [get]
func (h *Handlers) SelectVehicle(c *gin.Context) {
	t := currentTenant(c)

	if transit := strings.TrimSpace(c.Query("transit_number")); transit != "" {
		c.Redirect(http.StatusFound, surveyPath(t, transit))
		return
	}

	vehicles, err := h.transport.ListVehicles(c.Request.Context(), t.ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	switch len(vehicles) {
	case 0:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no vehicles are registered for this operator")
		return
	case 1:
		c.Redirect(http.StatusFound, surveyPath(t, vehicles[0].TransitNumber))
		return
	}

	resp := VehicleSelectionResponse{Tenant: t.Slug, Vehicles: make([]VehicleChoice, 0, len(vehicles))}
	for _, v := range vehicles {
		vc := VehicleChoice{TransitNumber: v.TransitNumber, SurveyURL: surveyPath(t, v.TransitNumber)}
		if v.Route != nil {
			vc.Route = v.Route.Name
		}
		resp.Vehicles = append(resp.Vehicles, vc)
	}
	ok(c, http.StatusOK, resp)
}

// SurveyForm godoc
// @ID          surveyForm
// @Summary     Survey form of a vehicle
// @Description Returns the active questions as form fields (keys question_{id}) plus the complaint section.
// @Tags        Rider
// @Produce     json
//
// @Param       tenant   path  string  true  "Tenant slug"             example(acme)
// @Param       transit  path  string  true  "Vehicle transit number"  example(101)
//
// @Success     200  {object} services.SurveyForm
// @Failure     404  {object} handlers.ErrorResponse "Tenant or vehicle not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /t/{tenant}/survey/{transit} [get]
func (h *Handlers) SurveyForm(c *gin.Context) {
	f, err := h.survey.Form(c.Request.Context(), currentTenant(c), c.Param("transit"), nil)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// SubmitSurvey godoc
// @ID          submitSurvey
// @Summary     Submit rider feedback
// @Description Validates and stores a form-encoded submission. Fields are question_{id} (repeat the key for
// @Description multi_choice), complaint_reason and complaint_text. One submission per client and vehicle is
// @Description accepted per throttle window.
// @Tags        Rider
// @Accept      x-www-form-urlencoded
// @Produce     json
//
// @Param       tenant            path      string  true   "Tenant slug"             example(acme)
// @Param       transit           path      string  true   "Vehicle transit number"  example(101)
// @Param       complaint_reason  formData  string  false  "Complaint reason ID"     format(uuid)
// @Param       complaint_text    formData  string  false  "Complaint text"          example(The driver skipped my stop)
//
// @Success     303  {string} string "Redirect to /t/{tenant}/thank-you"
// @Failure     400  {object} handlers.ErrorResponse "Unreadable form body"
// @Failure     404  {object} handlers.ErrorResponse "Tenant or vehicle not found"
// @Failure     409  {object} handlers.ErrorResponse "Survey changed while answering (catalog_changed)"
// @Failure     422  {object} handlers.ErrorResponse "Invalid answers, with fields and the re-filled form"
// @Failure     429  {object} handlers.ErrorResponse "Already submitted for this vehicle (see Retry-After)"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /t/{tenant}/survey/{transit} [post]
func (h *Handlers) SubmitSurvey(c *gin.Context) {
	t := currentTenant(c)
	if err := c.Request.ParseForm(); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form body")
		return
	}

	receipt, err := h.survey.Submit(c.Request.Context(), t, c.Param("transit"), c.ClientIP(), c.Request.PostForm)
	if err != nil {
		serviceError(c, err)
		return
	}

	flash := url.Values{flashSuccess: {"1"}}
	if receipt.HasComplaint {
		flash.Set(flashHasComplaint, "1")
	}
	h.setFlash(c, t, signFlash(h.flashKey, t.Slug, flash.Encode()), flashMaxAge)
	c.Redirect(http.StatusSeeOther, tenantPath(t)+"/thank-you")
}

// ThankYou godoc
// @ID          thankYou
// @Summary     Submission confirmation
// @Description Consumes the signed flash cookie left by a successful submission. Without a valid cookie the
// @Description response reports submitted=false; a cookie whose signature does not verify is cleared.
// @Tags        Rider
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
//
// @Success     200  {object} handlers.ThankYouResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /t/{tenant}/thank-you [get]
func (h *Handlers) ThankYou(c *gin.Context) {
	t := currentTenant(c)

	signed, err := c.Cookie(flashCookie)
	if err != nil || signed == "" {
		ok(c, http.StatusOK, ThankYouResponse{})
		return
	}
	h.setFlash(c, t, "", -1)

	raw, valid := verifyFlash(h.flashKey, t.Slug, signed)
	if !valid {
		ok(c, http.StatusOK, ThankYouResponse{})
		return
	}
	flash, err := url.ParseQuery(raw)
	if err != nil || flash.Get(flashSuccess) != "1" {
		ok(c, http.StatusOK, ThankYouResponse{})
		return
	}

	count, err := h.survey.TodayCount(c.Request.Context(), t.ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ThankYouResponse{
		Submitted:    true,
		HasComplaint: flash.Get(flashHasComplaint) == "1",
		TodayCount:   &count,
	})
}

func (h *Handlers) setFlash(c *gin.Context, t *domain.Tenant, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, maxAge, tenantPath(t), "", h.SecureCookies, true)
}

func tenantPath(t *domain.Tenant) string {
	return "/t/" + url.PathEscape(t.Slug)
}

func surveyPath(t *domain.Tenant, transit string) string {
	return tenantPath(t) + "/survey/" + url.PathEscape(transit)
}
