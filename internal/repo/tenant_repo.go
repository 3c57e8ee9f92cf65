package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
)

// CreateTenant inserts a tenant. Provisioning is done by cmd/seed only.
func CreateTenant(ctx context.Context, db *gorm.DB, slug, name string, active bool, now time.Time) (*domain.Tenant, error) {
	t := &domain.Tenant{
		ID:        uuid.NewString(),
		Slug:      slug,
		Name:      name,
		Active:    active,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTenantBySlug fetches a tenant by its URL slug, active or not.
// Returns ErrNotFound when no tenant carries the slug.
func GetTenantBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
