// Catalog HTTP handlers.
//
// This file exposes the operator endpoints that maintain a tenant's survey
// catalog, under {API_BASE_PATH}/tenants/{tenant}:
//   - GET    /questions               (list, active and inactive)
//   - POST   /questions               (create, with options)
//   - PUT    /questions/{id}          (text, position, active)
//   - DELETE /questions/{id}          (cascades options and answers)
//   - POST   /questions/{id}/options  (add option)
//   - DELETE /options/{id}
//   - GET    /complaint-reasons
//   - POST   /complaint-reasons
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/services"
)

// CreateQuestionRequest is the JSON payload for a new question. Kind cannot
// be changed afterwards.
type CreateQuestionRequest struct {
	Text     string              `json:"text"     binding:"required,max=255"                example:"How clean was the bus?"`
	Kind     domain.QuestionKind `json:"kind"     binding:"required,question_kind"          example:"rating" enums:"rating,text,choice,multi_choice"`
	Position *int                `json:"position" binding:"omitempty,min=0"                 example:"0"`
	Active   *bool               `json:"active"                                             example:"true"`
	Options  []string            `json:"options"  binding:"omitempty,dive,required,max=255" example:"Clean,Dirty"`
}

// UpdateQuestionRequest lists the mutable question fields; omitted fields
// are left unchanged.
type UpdateQuestionRequest struct {
	Text     *string `json:"text"     binding:"omitempty,max=255" example:"How clean was the unit?"`
	Position *int    `json:"position" binding:"omitempty,min=0"   example:"2"`
	Active   *bool   `json:"active"                               example:"false"`
}

// CreateOptionRequest is the JSON payload for a new option. A nil Position
// appends after the last option.
type CreateOptionRequest struct {
	Text     string `json:"text"     binding:"required,max=255" example:"Very crowded"`
	Position *int   `json:"position" binding:"omitempty,min=0"  example:"1"`
}

// CreateReasonRequest is the JSON payload for a new complaint reason.
type CreateReasonRequest struct {
	Label string `json:"label" binding:"required,max=255" example:"Reckless driving"`
}

// ListQuestionsResponse wraps the catalog.
type ListQuestionsResponse struct {
	Questions []domain.Question `json:"questions"`
}

// ListReasonsResponse wraps the complaint reasons.
type ListReasonsResponse struct {
	Reasons []domain.ComplaintReason `json:"reasons"`
}

// ListQuestions godoc
// @ID          listQuestions
// @Summary     List survey questions
// @Description Returns every question of the tenant, active and inactive, in display order with their options.
// @Tags        Catalog
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
//
// @Success     200  {object} handlers.ListQuestionsResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/questions [get]
func (h *Handlers) ListQuestions(c *gin.Context) {
	qs, err := h.catalog.ListQuestions(c.Request.Context(), currentTenant(c).ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListQuestionsResponse{Questions: qs})
}

// CreateQuestion godoc
// @ID          createQuestion
// @Summary     Create a survey question
// @Description Adds a question to the catalog. Choice kinds may carry their options; the kind cannot change later.
// @Tags        Catalog
// @Accept      json
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
// @Param       body    body  handlers.CreateQuestionRequest true "Question payload"
//
// @Success     201  {object} domain.Question
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/questions [post]
func (h *Handlers) CreateQuestion(c *gin.Context) {
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text and a kind of rating, text, choice or multi_choice are required")
		return
	}
	q, err := h.catalog.CreateQuestion(c.Request.Context(), currentTenant(c).ID, services.QuestionInput{
		Text:     req.Text,
		Kind:     req.Kind,
		Position: req.Position,
		Active:   req.Active,
		Options:  req.Options,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, q)
}

// UpdateQuestion godoc
// @ID          updateQuestion
// @Summary     Update a survey question
// @Description Edits text, position or the active flag. Omitted fields are left unchanged.
// @Tags        Catalog
// @Accept      json
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"          example(acme)
// @Param       id      path  string  true  "Question ID (UUID)"   format(uuid) example(9f0c2a6e-4c1b-4a57-9d2e-3f4b5c6d7e8f)
// @Param       body    body  handlers.UpdateQuestionRequest true "Fields to change"
//
// @Success     200  {object} domain.Question
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Tenant or question not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/questions/{id} [put]
func (h *Handlers) UpdateQuestion(c *gin.Context) {
	var req UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	q, err := h.catalog.UpdateQuestion(c.Request.Context(), currentTenant(c).ID, c.Param("id"), services.QuestionPatch{
		Text:     req.Text,
		Position: req.Position,
		Active:   req.Active,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, q)
}

// DeleteQuestion godoc
// @ID          deleteQuestion
// @Summary     Delete a survey question
// @Description Removes a question together with its options and every stored answer to it.
// @Tags        Catalog
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"          example(acme)
// @Param       id      path  string  true  "Question ID (UUID)"   format(uuid) example(9f0c2a6e-4c1b-4a57-9d2e-3f4b5c6d7e8f)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Tenant or question not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/questions/{id} [delete]
func (h *Handlers) DeleteQuestion(c *gin.Context) {
	if err := h.catalog.DeleteQuestion(c.Request.Context(), currentTenant(c).ID, c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// AddOption godoc
// @ID          addOption
// @Summary     Add an option to a question
// @Description Adds an option to a choice or multi_choice question. Without a position it goes last.
// @Tags        Catalog
// @Accept      json
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"          example(acme)
// @Param       id      path  string  true  "Question ID (UUID)"   format(uuid) example(9f0c2a6e-4c1b-4a57-9d2e-3f4b5c6d7e8f)
// @Param       body    body  handlers.CreateOptionRequest true "Option payload"
//
// @Success     201  {object} domain.Option
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload or question kind takes no options"
// @Failure     404  {object} handlers.ErrorResponse "Tenant or question not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/questions/{id}/options [post]
func (h *Handlers) AddOption(c *gin.Context) {
	var req CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "option text required (1-255 chars)")
		return
	}
	o, err := h.catalog.AddOption(c.Request.Context(), currentTenant(c).ID, c.Param("id"), req.Text, req.Position)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, o)
}

// DeleteOption godoc
// @ID          deleteOption
// @Summary     Delete a question option
// @Tags        Catalog
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"        example(acme)
// @Param       id      path  string  true  "Option ID (UUID)"   format(uuid) example(1b2c3d4e-5f60-4718-8a9b-0c1d2e3f4a5b)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Tenant or option not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/options/{id} [delete]
func (h *Handlers) DeleteOption(c *gin.Context) {
	if err := h.catalog.DeleteOption(c.Request.Context(), currentTenant(c).ID, c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	noContent(c)
}

// ListReasons godoc
// @ID          listComplaintReasons
// @Summary     List complaint reasons
// @Tags        Catalog
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
//
// @Success     200  {object} handlers.ListReasonsResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/complaint-reasons [get]
func (h *Handlers) ListReasons(c *gin.Context) {
	rs, err := h.catalog.ListReasons(c.Request.Context(), currentTenant(c).ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListReasonsResponse{Reasons: rs})
}

// CreateReason godoc
// @ID          createComplaintReason
// @Summary     Create a complaint reason
// @Tags        Catalog
// @Accept      json
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
// @Param       body    body  handlers.CreateReasonRequest true "Reason payload"
//
// @Success     201  {object} domain.ComplaintReason
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/complaint-reasons [post]
func (h *Handlers) CreateReason(c *gin.Context) {
	var req CreateReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "label required (1-255 chars)")
		return
	}
	r, err := h.catalog.CreateReason(c.Request.Context(), currentTenant(c).ID, req.Label)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}
