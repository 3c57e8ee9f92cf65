// Package services – TransportService
//
// This file implements the transport registry: routes and the vehicles
// (units) riders scan. Vehicle transit numbers are the public identifier
// encoded in QR codes and are unique per tenant.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
)

const (
	maxRouteNameLen      = 100
	maxTransitNumberLen  = 25
	maxInternalNumberLen = 8
	maxOwnerLen          = 100
)

// TransportService manages routes and vehicles.
type TransportService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// VehicleInput is the operator payload for a new vehicle.
type VehicleInput struct {
	TransitNumber  string
	InternalNumber string
	Owner          string
	RouteID        string
}

// CreateRoute adds a named route.
func (s *TransportService) CreateRoute(ctx context.Context, tenantID, name string) (*domain.Route, error) {
	name = normalizeSpace(name)
	if name == "" {
		return nil, invalid("route name is required")
	}
	if utf8.RuneCountInString(name) > maxRouteNameLen {
		return nil, invalid("route name must be at most %d characters", maxRouteNameLen)
	}
	return repo.CreateRoute(ctx, s.DB, tenantID, name, clock(s.Now))
}

// ListRoutes returns the tenant's routes by name.
func (s *TransportService) ListRoutes(ctx context.Context, tenantID string) ([]domain.Route, error) {
	return repo.ListRoutes(ctx, s.DB, tenantID)
}

// CreateVehicle registers a vehicle. The route, when given, must belong to
// the tenant. A taken transit number yields ErrConflict.
func (s *TransportService) CreateVehicle(ctx context.Context, tenantID string, in VehicleInput) (*domain.Vehicle, error) {
	in.TransitNumber = strings.TrimSpace(in.TransitNumber)
	in.InternalNumber = strings.TrimSpace(in.InternalNumber)
	in.Owner = normalizeSpace(in.Owner)
	in.RouteID = strings.TrimSpace(in.RouteID)

	switch {
	case in.TransitNumber == "":
		return nil, invalid("transit_number is required")
	case utf8.RuneCountInString(in.TransitNumber) > maxTransitNumberLen:
		return nil, invalid("transit_number must be at most %d characters", maxTransitNumberLen)
	case utf8.RuneCountInString(in.InternalNumber) > maxInternalNumberLen:
		return nil, invalid("internal_number must be at most %d characters", maxInternalNumberLen)
	case utf8.RuneCountInString(in.Owner) > maxOwnerLen:
		return nil, invalid("owner must be at most %d characters", maxOwnerLen)
	}

	v := &domain.Vehicle{
		TenantID:       tenantID,
		TransitNumber:  in.TransitNumber,
		InternalNumber: in.InternalNumber,
		Owner:          in.Owner,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.RouteID != "" {
			r, err := repo.GetRoute(ctx, tx, tenantID, in.RouteID)
			if err != nil {
				if isNotFound(err) {
					return invalid("route %s does not exist", in.RouteID)
				}
				return err
			}
			v.RouteID = &r.ID
			v.Route = r
		}
		if err := repo.CreateVehicle(ctx, tx, v, clock(s.Now)); err != nil {
			if repo.IsDuplicate(err) {
				return ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListVehicles returns the tenant's vehicles by transit number.
func (s *TransportService) ListVehicles(ctx context.Context, tenantID string) ([]domain.Vehicle, error) {
	return repo.ListVehicles(ctx, s.DB, tenantID)
}

// Vehicle fetches one vehicle by transit number.
func (s *TransportService) Vehicle(ctx context.Context, tenantID, transit string) (*domain.Vehicle, error) {
	v, err := repo.GetVehicleByTransit(ctx, s.DB, tenantID, strings.TrimSpace(transit))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

// normalizeSpace trims s and collapses runs of whitespace to one space.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
