// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for routes and vehicles.
//
// Vehicles are looked up by their public transit number, which is unique
// per tenant. Range selection compares transit numbers as strings, so
// "10" sorts before "9".
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
)

// CreateRoute inserts a route for the tenant.
func CreateRoute(ctx context.Context, db *gorm.DB, tenantID, name string, now time.Time) (*domain.Route, error) {
	r := &domain.Route{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListRoutes returns the tenant's routes ordered by name.
func ListRoutes(ctx context.Context, db *gorm.DB, tenantID string) ([]domain.Route, error) {
	var out []domain.Route
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetRoute fetches one route scoped to the tenant, or ErrNotFound.
func GetRoute(ctx context.Context, db *gorm.DB, tenantID, id string) (*domain.Route, error) {
	var r domain.Route
	if err := db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateVehicle inserts v, assigning its ID and timestamps. A duplicate
// transit number within the tenant surfaces as a unique violation (see IsDuplicate).
func CreateVehicle(ctx context.Context, db *gorm.DB, v *domain.Vehicle, now time.Time) error {
	v.ID = uuid.NewString()
	v.CreatedAt = now.UTC()
	v.UpdatedAt = now.UTC()
	return db.WithContext(ctx).Omit("Route").Create(v).Error
}

// ListVehicles returns the tenant's vehicles ordered by transit number,
// with their route preloaded.
func ListVehicles(ctx context.Context, db *gorm.DB, tenantID string) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := db.WithContext(ctx).
		Preload("Route").
		Where("tenant_id = ?", tenantID).
		Order("transit_number ASC").
		Find(&out).Error
	return out, err
}

// ListVehiclesInRange returns vehicles whose transit number lies in
// [start, end] by string comparison.
func ListVehiclesInRange(ctx context.Context, db *gorm.DB, tenantID, start, end string) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := db.WithContext(ctx).
		Preload("Route").
		Where("tenant_id = ? AND transit_number >= ? AND transit_number <= ?", tenantID, start, end).
		Order("transit_number ASC").
		Find(&out).Error
	return out, err
}

// GetVehicle fetches one vehicle by ID scoped to the tenant, or ErrNotFound.
func GetVehicle(ctx context.Context, db *gorm.DB, tenantID, id string) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := db.WithContext(ctx).
		Preload("Route").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVehicleByTransit fetches one vehicle by its public transit number, or ErrNotFound.
func GetVehicleByTransit(ctx context.Context, db *gorm.DB, tenantID, transit string) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := db.WithContext(ctx).
		Preload("Route").
		Where("tenant_id = ? AND transit_number = ?", tenantID, transit).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}
