package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
)

// TenantService resolves URL slugs to tenants.
type TenantService struct {
	DB *gorm.DB
}

// Resolve returns the active tenant with the given slug. Unknown slugs
// yield ErrTenantNotFound; known but inactive tenants yield ErrTenantInactive.
func (s *TenantService) Resolve(ctx context.Context, slug string) (*domain.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrTenantNotFound
	}
	t, err := repo.GetTenantBySlug(ctx, s.DB, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !t.Active {
		return nil, ErrTenantInactive
	}
	return t, nil
}

// isNotFound treats the repo-level not-found sentinel as "not found".
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// clock returns now() in UTC, defaulting to time.Now.
func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}

// localZone defaults a nil location to UTC.
func localZone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
