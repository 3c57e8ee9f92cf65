// Package handlers wires HTTP endpoints to application services.
//
// Handlers are transport-thin: they bind and validate input, read the tenant
// resolved by middleware.Tenant, call a service and translate the result
// (or the service error, see serviceError) into an HTTP response.
package handlers

import (
	"context"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/http/middleware"
	"github.com/tbourn/rider-feedback/internal/services"
)

//
// Service contracts (context-aware)
//

// SurveyService builds, validates and reconciles rider submissions.
type SurveyService interface {
	Form(ctx context.Context, tenant *domain.Tenant, transit string, raw url.Values) (*services.SurveyForm, error)
	Submit(ctx context.Context, tenant *domain.Tenant, transit, client string, raw url.Values) (*services.Receipt, error)
	TodayCount(ctx context.Context, tenantID string) (int64, error)
}

// CatalogService maintains questions, options and complaint reasons.
type CatalogService interface {
	CreateQuestion(ctx context.Context, tenantID string, in services.QuestionInput) (*domain.Question, error)
	ListQuestions(ctx context.Context, tenantID string) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, tenantID, id string, p services.QuestionPatch) (*domain.Question, error)
	DeleteQuestion(ctx context.Context, tenantID, id string) error
	AddOption(ctx context.Context, tenantID, questionID, text string, position *int) (*domain.Option, error)
	DeleteOption(ctx context.Context, tenantID, id string) error
	CreateReason(ctx context.Context, tenantID, label string) (*domain.ComplaintReason, error)
	ListReasons(ctx context.Context, tenantID string) ([]domain.ComplaintReason, error)
}

// TransportService maintains routes and vehicles.
type TransportService interface {
	CreateRoute(ctx context.Context, tenantID, name string) (*domain.Route, error)
	ListRoutes(ctx context.Context, tenantID string) ([]domain.Route, error)
	CreateVehicle(ctx context.Context, tenantID string, in services.VehicleInput) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, tenantID string) ([]domain.Vehicle, error)
}

// FeedbackService lists and searches rider input.
type FeedbackService interface {
	ListSubmissions(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Submission, int64, error)
	ListComplaints(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Complaint, int64, error)
	SearchComplaints(ctx context.Context, tenantID, query string, k int) ([]services.ComplaintHit, error)
}

// ReportService computes dashboards and their XLSX export.
type ReportService interface {
	Summary(ctx context.Context, tenantID string, f services.ReportFilter) (*services.Report, error)
	Export(ctx context.Context, tenantID string, f services.ReportFilter) ([]byte, *services.Report, error)
}

// QRService renders vehicle QR codes.
type QRService interface {
	Generate(ctx context.Context, tenant *domain.Tenant, sel services.QRSelection) (*services.QRFile, error)
}

//
// Handler wiring
//

// Handlers groups the rider and operator endpoints.
type Handlers struct {
	survey    SurveyService
	catalog   CatalogService
	transport TransportService
	feedback  FeedbackService
	reports   ReportService
	qr        QRService

	// SecureCookies marks the confirmation cookie Secure.
	SecureCookies bool

	flashKey []byte
}

// Deps lists the services Handlers depends on.
type Deps struct {
	Survey    SurveyService
	Catalog   CatalogService
	Transport TransportService
	Feedback  FeedbackService
	Reports   ReportService
	QR        QRService

	// FlashKey signs the confirmation cookie. A random per-process key is
	// used when empty, which is enough for a single replica.
	FlashKey []byte
}

// New constructs Handlers bound to the given services and registers the
// package's binding validators.
func New(d Deps) *Handlers {
	registerValidators()
	key := d.FlashKey
	if len(key) == 0 {
		key = newFlashKey()
	}
	return &Handlers{
		flashKey:  key,
		survey:    d.Survey,
		catalog:   d.Catalog,
		transport: d.Transport,
		feedback:  d.Feedback,
		reports:   d.Reports,
		qr:        d.QR,
	}
}

var validatorsOnce sync.Once

// registerValidators adds the custom binding tags to gin's validator:
//
//	question_kind: one of rating, text, choice, multi_choice
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("question_kind", func(fl validator.FieldLevel) bool {
			return domain.QuestionKind(fl.Field().String()).Valid()
		})
	})
}

// currentTenant returns the tenant resolved by middleware.Tenant. Routes using it
// are always mounted behind that middleware.
func currentTenant(c *gin.Context) *domain.Tenant {
	return middleware.TenantFrom(c)
}
