// Transport registry HTTP handlers.
//
//   - GET  /routes,   POST /routes
//   - GET  /vehicles, POST /vehicles
//
// All under {API_BASE_PATH}/tenants/{tenant}.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/services"
)

// CreateRouteRequest is the JSON payload for a new route.
type CreateRouteRequest struct {
	Name string `json:"name" binding:"required,max=100" example:"Ruta Centro"`
}

// CreateVehicleRequest is the JSON payload for a new vehicle.
type CreateVehicleRequest struct {
	TransitNumber  string `json:"transit_number"  binding:"required,max=25"   example:"101"`
	InternalNumber string `json:"internal_number" binding:"omitempty,max=8"   example:"U-17"`
	Owner          string `json:"owner"           binding:"omitempty,max=100" example:"Transportes del Puerto"`
	RouteID        string `json:"route_id"                                    example:"5d6e7f80-9a1b-4c2d-8e3f-4a5b6c7d8e9f"`
}

// ListRoutesResponse wraps the tenant's routes.
type ListRoutesResponse struct {
	Routes []domain.Route `json:"routes"`
}

// ListVehiclesResponse wraps the tenant's vehicles.
type ListVehiclesResponse struct {
	Vehicles []domain.Vehicle `json:"vehicles"`
}

// ListRoutes godoc
// @ID          listRoutes
// @Summary     List routes
// @Description Returns the tenant's routes ordered by name.
// @Tags        Transport
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
//
// @Success     200  {object} handlers.ListRoutesResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/routes [get]
func (h *Handlers) ListRoutes(c *gin.Context) {
	rs, err := h.transport.ListRoutes(c.Request.Context(), currentTenant(c).ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListRoutesResponse{Routes: rs})
}

// CreateRoute godoc
// @ID          createRoute
// @Summary     Create a route
// @Tags        Transport
// @Accept      json
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
// @Param       body    body  handlers.CreateRouteRequest true "Route payload"
//
// @Success     201  {object} domain.Route
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/routes [post]
func (h *Handlers) CreateRoute(c *gin.Context) {
	var req CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-100 chars)")
		return
	}
	r, err := h.transport.CreateRoute(c.Request.Context(), currentTenant(c).ID, req.Name)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListVehicles godoc
// @ID          listVehicles
// @Summary     List vehicles
// @Description Returns the tenant's vehicles ordered by transit number, with their route.
// @Tags        Transport
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
//
// @Success     200  {object} handlers.ListVehiclesResponse
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/vehicles [get]
func (h *Handlers) ListVehicles(c *gin.Context) {
	vs, err := h.transport.ListVehicles(c.Request.Context(), currentTenant(c).ID)
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListVehiclesResponse{Vehicles: vs})
}

// CreateVehicle godoc
// @ID          createVehicle
// @Summary     Register a vehicle
// @Description Registers a vehicle under a tenant-unique transit number, optionally on a route.
// @Tags        Transport
// @Accept      json
// @Produce     json
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
// @Param       body    body  handlers.CreateVehicleRequest true "Vehicle payload"
//
// @Success     201  {object} domain.Vehicle
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload or unknown route"
// @Failure     404  {object} handlers.ErrorResponse "Tenant not found"
// @Failure     409  {object} handlers.ErrorResponse "Transit number already taken"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/vehicles [post]
func (h *Handlers) CreateVehicle(c *gin.Context) {
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transit_number required (1-25 chars)")
		return
	}
	v, err := h.transport.CreateVehicle(c.Request.Context(), currentTenant(c).ID, services.VehicleInput{
		TransitNumber:  req.TransitNumber,
		InternalNumber: req.InternalNumber,
		Owner:          req.Owner,
		RouteID:        req.RouteID,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusCreated, v)
}
