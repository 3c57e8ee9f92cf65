// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the write path for rider input
// (submissions, answers, complaints) and the read-only operator listings
// over them. There is no update or delete path for rider input.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
)

// CreateSubmission inserts a submission header stamped with at.
func CreateSubmission(ctx context.Context, db *gorm.DB, tenantID, vehicleID string, at time.Time) (*domain.Submission, error) {
	s := &domain.Submission{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		VehicleID:   vehicleID,
		SubmittedAt: at.UTC(),
	}
	if err := db.WithContext(ctx).Omit("Answers").Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// CreateAnswer inserts a, assigning its ID. SelectedOptions are linked
// through answer_options in one batch; the options themselves are never upserted.
func CreateAnswer(ctx context.Context, db *gorm.DB, a *domain.Answer) error {
	a.ID = uuid.NewString()
	a.CreatedAt = a.CreatedAt.UTC()
	return db.WithContext(ctx).Omit("SelectedOptions.*").Create(a).Error
}

// CreateComplaint inserts c, assigning its ID.
func CreateComplaint(ctx context.Context, db *gorm.DB, c *domain.Complaint) error {
	c.ID = uuid.NewString()
	c.SubmittedAt = c.SubmittedAt.UTC()
	return db.WithContext(ctx).Omit("Reason", "Vehicle").Create(c).Error
}

// CountSubmissionsSince counts the tenant's submissions at or after since.
func CountSubmissionsSince(ctx context.Context, db *gorm.DB, tenantID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("tenant_id = ? AND submitted_at >= ?", tenantID, since.UTC()).
		Count(&n).Error
	return n, err
}

// CountSubmissions returns the tenant's total number of submissions.
func CountSubmissions(ctx context.Context, db *gorm.DB, tenantID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("tenant_id = ?", tenantID).
		Count(&n).Error
	return n, err
}

// ListSubmissionsPage returns a page of submissions, newest first, with
// answers and their selected options preloaded.
func ListSubmissionsPage(ctx context.Context, db *gorm.DB, tenantID string, offset, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	err := db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("answers.id ASC") }).
		Preload("Answers.SelectedOptions").
		Where("tenant_id = ?", tenantID).
		Order("submitted_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountComplaints returns the tenant's total number of complaints.
func CountComplaints(ctx context.Context, db *gorm.DB, tenantID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("tenant_id = ?", tenantID).
		Count(&n).Error
	return n, err
}

// ListComplaintsPage returns a page of complaints, newest first, with
// reason and vehicle preloaded.
func ListComplaintsPage(ctx context.Context, db *gorm.DB, tenantID string, offset, limit int) ([]domain.Complaint, error) {
	var out []domain.Complaint
	err := db.WithContext(ctx).
		Preload("Reason").
		Preload("Vehicle").
		Where("tenant_id = ?", tenantID).
		Order("submitted_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListComplaintsWithText returns up to limit of the tenant's most recent
// complaints carrying non-empty text, for keyword search.
func ListComplaintsWithText(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]domain.Complaint, error) {
	var out []domain.Complaint
	err := db.WithContext(ctx).
		Preload("Reason").
		Preload("Vehicle").
		Where("tenant_id = ? AND text <> ''", tenantID).
		Order("submitted_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
