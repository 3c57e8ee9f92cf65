// Package services defines the business logic of the feedback service:
// tenant resolution, the survey submission path, catalog and transport
// maintenance, read-only feedback listings, reports and QR payloads.
//
// This file centralizes service-level errors so they can be returned
// consistently by service methods and mapped to HTTP results by handlers.
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tbourn/rider-feedback/internal/survey"
)

// Lookup errors.
var (
	// ErrTenantNotFound indicates that no tenant uses the requested slug.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantInactive indicates that the tenant exists but is switched off.
	ErrTenantInactive = errors.New("tenant is inactive")

	// ErrVehicleNotFound indicates that the transit number or vehicle id does
	// not belong to the tenant.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrNotFound covers any other tenant-scoped record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoVehicles is returned when a QR selection matches no vehicle.
	ErrNoVehicles = errors.New("no vehicles match the selection")
)

// Submission errors.
var (
	// ErrCatalogChanged is returned when a submitted value references a
	// question, option or reason that changed or vanished while the request
	// was in flight. Nothing is persisted.
	ErrCatalogChanged = errors.New("the survey changed while you were answering it, please try again")

	// ErrThrottled matches every *ThrottledError.
	ErrThrottled = errors.New("too many submissions")
)

// Input errors.
var (
	// ErrInvalidPeriod is returned for an unknown report period token.
	ErrInvalidPeriod = errors.New("period must be one of today, week, month, year, all")

	// ErrExclusiveFilter is returned when a report is filtered by both route and vehicle.
	ErrExclusiveFilter = errors.New("route_id and vehicle_id are mutually exclusive")

	// ErrInvalidInput wraps operator input that fails a business rule.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a unique key (e.g. transit number) is taken.
	ErrConflict = errors.New("already exists")
)

// ValidationError carries per-field messages and the form to re-display.
// No state was mutated and the throttle was not consulted.
type ValidationError struct {
	Fields survey.FieldErrors
	Form   *SurveyForm
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("submission has %d invalid field(s)", len(e.Fields))
}

// ThrottledError reports the remaining cooldown of a rejected submission.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many submissions, retry in %s", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrThrottled) true for any *ThrottledError.
func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

// RetryAfterSeconds is the cooldown rounded up to whole seconds, at least 1.
func (e *ThrottledError) RetryAfterSeconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
