// Report and QR HTTP handlers.
//
//   - GET  /reports/summary      (?period=today|week|month|year|all, route_id | vehicle_id)
//   - GET  /reports/export.xlsx  (same filters, XLSX download)
//   - POST /qr                   (PNG for one vehicle, ZIP for several)
//
// All under {API_BASE_PATH}/tenants/{tenant}.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// QRRequest selects the vehicles to render.
type QRRequest struct {
	Mode         string `json:"mode"          binding:"required,oneof=all single range" example:"range" enums:"all,single,range"`
	VehicleID    string `json:"vehicle_id"    binding:"required_if=Mode single"         example:"7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d"`
	StartTransit string `json:"start_transit" binding:"required_if=Mode range"          example:"100"`
	EndTransit   string `json:"end_transit"   binding:"required_if=Mode range"          example:"199"`
}

func reportFilter(c *gin.Context) services.ReportFilter {
	return services.ReportFilter{
		Period:    c.Query("period"),
		RouteID:   c.Query("route_id"),
		VehicleID: c.Query("vehicle_id"),
	}
}

// ReportSummary godoc
// @ID          reportSummary
// @Summary     Feedback dashboard
// @Description Aggregates submissions and complaints over a period in the configured time zone: per-question
// @Description summaries, complaints by reason and by vehicle, and a timeline (hourly for today, daily otherwise).
// @Tags        Reports
// @Produce     json
//
// @Param       tenant      path   string  true   "Tenant slug"                 example(acme)
// @Param       period      query  string  false  "Reporting window"            Enums(today, week, month, year, all) default(today)
// @Param       route_id    query  string  false  "Only vehicles of this route" format(uuid)
// @Param       vehicle_id  query  string  false  "Only this vehicle"           format(uuid)
//
// @Success     200  {object} services.Report
// @Failure     400  {object} handlers.ErrorResponse "Unknown period or both route_id and vehicle_id"
// @Failure     404  {object} handlers.ErrorResponse "Tenant, route or vehicle not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/reports/summary [get]
func (h *Handlers) ReportSummary(c *gin.Context) {
	r, err := h.reports.Summary(c.Request.Context(), currentTenant(c).ID, reportFilter(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ReportExport godoc
// @ID          reportExport
// @Summary     Export the dashboard as XLSX
// @Description Same filters as the summary, delivered as a workbook download.
// @Tags        Reports
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//
// @Param       tenant      path   string  true   "Tenant slug"                 example(acme)
// @Param       period      query  string  false  "Reporting window"            Enums(today, week, month, year, all) default(today)
// @Param       route_id    query  string  false  "Only vehicles of this route" format(uuid)
// @Param       vehicle_id  query  string  false  "Only this vehicle"           format(uuid)
//
// @Success     200  {file}   file "report_{tenant}_{period}.xlsx"
// @Failure     400  {object} handlers.ErrorResponse "Unknown period or both route_id and vehicle_id"
// @Failure     404  {object} handlers.ErrorResponse "Tenant, route or vehicle not found"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/reports/export.xlsx [get]
func (h *Handlers) ReportExport(c *gin.Context) {
	t := currentTenant(c)
	data, r, err := h.reports.Export(c.Request.Context(), t.ID, reportFilter(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	attachment(c, "report_"+safeName(t.Slug)+"_"+r.Period+".xlsx", xlsxContentType, data)
}

// GenerateQR godoc
// @ID          generateQR
// @Summary     Render vehicle QR codes
// @Description Encodes each selected vehicle's survey link. One vehicle yields a PNG, several a ZIP of PNGs.
// @Tags        QR
// @Accept      json
// @Produce     image/png
// @Produce     application/zip
//
// @Param       tenant  path  string  true  "Tenant slug"  example(acme)
// @Param       body    body  handlers.QRRequest true "Vehicle selection"
//
// @Success     200  {file}   file "QR_{transit}.png or QR_Codes_{tenant}.zip"
// @Failure     400  {object} handlers.ErrorResponse "Invalid selection"
// @Failure     404  {object} handlers.ErrorResponse "Tenant or vehicle not found, or empty selection"
// @Failure     503  {object} handlers.ErrorResponse "Tenant inactive"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /api/v1/tenants/{tenant}/qr [post]
func (h *Handlers) GenerateQR(c *gin.Context) {
	var req QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mode must be all, single (with vehicle_id) or range (with start_transit and end_transit)")
		return
	}
	f, err := h.qr.Generate(c.Request.Context(), currentTenant(c), services.QRSelection{
		Mode:         req.Mode,
		VehicleID:    req.VehicleID,
		StartTransit: req.StartTransit,
		EndTransit:   req.EndTransit,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	attachment(c, f.Name, f.ContentType, f.Data)
}

// safeName keeps header-safe filename characters.
func safeName(s string) string {
	b := []byte(s)
	for i, ch := range b {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
