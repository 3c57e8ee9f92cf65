// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes give rider and operator
// clients a stable, machine-readable error taxonomy next to the human-readable message.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (e.g., bad_request, not_found, conflict) mirror common HTTP
//     status semantics.
//   - Domain-specific codes (e.g., validation_failed, catalog_changed) are reserved
//     for outcomes of the submission path that status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "catalog_changed",
//	  "message": "the survey changed while you were answering it, please try again"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeThrottled        = "throttled"
	ErrCodeCatalogChanged   = "catalog_changed"
	ErrCodeTenantInactive   = "tenant_inactive"
)
