// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the :tenant path parameter of the rider and operator
// surfaces to an active tenant and makes it available to handlers.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/services"
)

const tenantKey = "tenant"

// TenantResolver looks up an active tenant by slug.
type TenantResolver interface {
	Resolve(ctx context.Context, slug string) (*domain.Tenant, error)
}

// Tenant resolves c.Param("tenant") and stores the tenant for TenantFrom.
//
//   - unknown slug:    404 not_found
//   - inactive tenant: 503 tenant_inactive
//   - lookup failure:  500 internal_error
func Tenant(res TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("tenant")
		t, err := res.Resolve(c.Request.Context(), slug)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTenantNotFound):
				abortJSON(c, http.StatusNotFound, "not_found", "tenant not found")
			case errors.Is(err, services.ErrTenantInactive):
				abortJSON(c, http.StatusServiceUnavailable, "tenant_inactive", "this operator is not accepting feedback")
			default:
				LoggerFrom(c).Error().Err(err).Str("tenant", slug).Msg("tenant lookup failed")
				abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			}
			return
		}

		c.Set(tenantKey, t)
		WithLogField(c, "tenant", t.Slug)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(
			attribute.String("tenant.id", t.ID),
			attribute.String("tenant.slug", t.Slug),
		)
		c.Next()
	}
}

// TenantFrom returns the tenant stored by Tenant, or nil when the route is
// not tenant-scoped.
func TenantFrom(c *gin.Context) *domain.Tenant {
	if v, ok := c.Get(tenantKey); ok {
		if t, ok := v.(*domain.Tenant); ok {
			return t
		}
	}
	return nil
}

// abortJSON writes the standard error envelope and stops the chain.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
