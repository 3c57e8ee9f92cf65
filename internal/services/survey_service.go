// Package services – SurveyService
//
// This file implements the rider submission path: building the per-vehicle
// form from the active catalog, validating a posted form, consulting the
// submission throttle and reconciling the result into storage.
//
// Order of operations on submit:
//  1. resolve the vehicle (ErrVehicleNotFound)
//  2. validate answers and the complaint section (*ValidationError)
//  3. consume the throttle quota (*ThrottledError)
//  4. write submission, answers and complaint in one transaction
//
// Invalid input never reaches the throttle, so it never consumes quota.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/observability"
	"github.com/tbourn/rider-feedback/internal/repo"
	"github.com/tbourn/rider-feedback/internal/survey"
	"github.com/tbourn/rider-feedback/internal/throttle"
)

// SurveyService coordinates form building, validation, throttling and reconciliation.
type SurveyService struct {
	DB       *gorm.DB
	Throttle throttle.Throttle

	// Location is the tenant-facing time zone used for "today".
	Location *time.Location
	Now      func() time.Time
}

// SurveyForm is the rider-facing form of one vehicle.
type SurveyForm struct {
	Tenant        string         `json:"tenant" example:"acme"`
	VehicleID     string         `json:"vehicle_id"`
	TransitNumber string         `json:"transit_number" example:"101"`
	Route         string         `json:"route,omitempty" example:"Ruta Centro"`
	Fields        []survey.Field `json:"fields"`
	Complaint     []survey.Field `json:"complaint"`

	form    *survey.Form
	reasons []domain.ComplaintReason
	vehicle *domain.Vehicle
}

// Receipt is the outcome of a reconciled submission.
type Receipt struct {
	SubmissionID string `json:"submission_id"`
	HasComplaint bool   `json:"has_complaint" example:"true"`
}

// Form builds the form for the vehicle with the given transit number. raw,
// when non-nil, is echoed into field values.
func (s *SurveyService) Form(ctx context.Context, tenant *domain.Tenant, transit string, raw url.Values) (*SurveyForm, error) {
	v, err := repo.GetVehicleByTransit(ctx, s.DB, tenant.ID, transit)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	questions, err := repo.ListQuestions(ctx, s.DB, tenant.ID, true)
	if err != nil {
		return nil, err
	}
	reasons, err := repo.ListReasons(ctx, s.DB, tenant.ID)
	if err != nil {
		return nil, err
	}

	form := survey.Build(questions, raw)
	out := &SurveyForm{
		Tenant:        tenant.Slug,
		VehicleID:     v.ID,
		TransitNumber: v.TransitNumber,
		Fields:        form.Fields,
		Complaint:     survey.ComplaintFields(reasons, raw),
		form:          form,
		reasons:       reasons,
		vehicle:       v,
	}
	if v.Route != nil {
		out.Route = v.Route.Name
	}
	return out, nil
}

// Submit validates raw against the vehicle's current form and, if valid and
// not throttled for client, reconciles it.
func (s *SurveyService) Submit(ctx context.Context, tenant *domain.Tenant, transit, client string, raw url.Values) (_ *Receipt, err error) {
	ctx, span := observability.StartSpan(ctx, "survey", "Submit", tenant.ID, attribute.String("vehicle.transit", transit))
	defer func() { observability.EndSpan(span, err) }()

	f, err := s.Form(ctx, tenant, transit, nil)
	if err != nil {
		return nil, err
	}

	responses, errs := f.form.Validate(raw)
	complaint, cerrs := survey.ValidateComplaint(raw, f.reasons)
	errs.Merge(cerrs)
	if len(errs) > 0 {
		shown, ferr := s.Form(ctx, tenant, transit, raw)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &ValidationError{Fields: errs, Form: shown}
	}

	if s.Throttle != nil {
		d, err := s.Throttle.Allow(ctx, throttle.Key(client, f.VehicleID))
		if err != nil {
			return nil, fmt.Errorf("consult throttle: %w", err)
		}
		if !d.Allowed {
			observability.ThrottledTotal.WithLabelValues(tenant.Slug).Inc()
			return nil, &ThrottledError{RetryAfter: d.RetryAfter}
		}
	}

	receipt, err := s.Reconcile(ctx, tenant.ID, f.VehicleID, responses, complaint)
	if err != nil {
		reason := "internal"
		if errors.Is(err, ErrCatalogChanged) {
			reason = "catalog_changed"
		}
		observability.ReconcileFailuresTotal.WithLabelValues(tenant.Slug, reason).Inc()
		return nil, err
	}

	observability.SubmissionsTotal.WithLabelValues(tenant.Slug).Inc()
	if receipt.HasComplaint {
		observability.ComplaintsTotal.WithLabelValues(tenant.Slug).Inc()
	}
	return receipt, nil
}

// Reconcile persists one submission atomically: the submission header, one
// answer per non-empty response (in the given order) and, when a reason was
// chosen, a complaint. Every referenced question, option and reason is
// re-checked inside the transaction; any drift rolls everything back with
// ErrCatalogChanged.
func (s *SurveyService) Reconcile(ctx context.Context, tenantID, vehicleID string, responses []survey.Response, complaint survey.Complaint) (*Receipt, error) {
	now := clock(s.Now)
	receipt := &Receipt{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := repo.CreateSubmission(ctx, tx, tenantID, vehicleID, now)
		if err != nil {
			return err
		}
		receipt.SubmissionID = sub.ID

		ids := make([]string, 0, len(responses))
		for _, r := range responses {
			ids = append(ids, r.QuestionID)
		}
		questions, err := repo.GetQuestionsByIDs(ctx, tx, tenantID, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.Question, len(questions))
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
		}

		for _, r := range responses {
			if r.Value.Empty() {
				continue
			}
			q, ok := byID[r.QuestionID]
			if !ok {
				return driftf("question %s no longer exists", r.QuestionID)
			}
			if q.Kind != r.Value.Kind {
				return driftf("question %s changed kind from %s to %s", q.ID, r.Value.Kind, q.Kind)
			}
			for _, ref := range r.Value.OptionRefs() {
				if !hasOption(q, ref) {
					return driftf("option %s is not an option of question %s", ref, q.ID)
				}
			}

			a := &domain.Answer{SubmissionID: sub.ID, QuestionID: q.ID, CreatedAt: now}
			if !survey.Apply(r.Value, a) {
				return driftf("question %s has unknown kind %s", q.ID, q.Kind)
			}
			if err := repo.CreateAnswer(ctx, tx, a); err != nil {
				if repo.IsForeignKey(err) {
					return driftf("answer to question %s: %v", q.ID, err)
				}
				return err
			}
		}

		if !complaint.Filed() {
			return nil
		}
		reason, err := repo.GetReason(ctx, tx, tenantID, complaint.ReasonID)
		if err != nil {
			if isNotFound(err) {
				return driftf("complaint reason %s no longer exists", complaint.ReasonID)
			}
			return err
		}
		c := &domain.Complaint{
			TenantID:    tenantID,
			VehicleID:   &vehicleID,
			ReasonID:    &reason.ID,
			Text:        complaint.Text,
			SubmittedAt: now,
		}
		if err := repo.CreateComplaint(ctx, tx, c); err != nil {
			if repo.IsForeignKey(err) {
				return driftf("complaint: %v", err)
			}
			return err
		}
		receipt.HasComplaint = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCatalogChanged) {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("tenant_id", tenantID).
				Str("vehicle_id", vehicleID).
				Msg("submission rolled back: catalog drift")
			return nil, ErrCatalogChanged
		}
		return nil, err
	}
	return receipt, nil
}

// TodayCount counts the tenant's submissions since local midnight.
func (s *SurveyService) TodayCount(ctx context.Context, tenantID string) (int64, error) {
	loc := localZone(s.Location)
	now := clock(s.Now).In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return repo.CountSubmissionsSince(ctx, s.DB, tenantID, midnight)
}

// driftf wraps ErrCatalogChanged with detail for the anomaly log.
func driftf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCatalogChanged, fmt.Sprintf(format, args...))
}

func hasOption(q *domain.Question, id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
