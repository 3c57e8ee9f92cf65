// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the survey
// catalog: questions, their options, and complaint reasons.
//
// Deletes are expanded explicitly (join rows, then answers, then options)
// so they behave the same whether or not the store enforces foreign keys.
// Callers run multi-statement deletes inside a transaction.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
)

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("options.position ASC, options.id ASC")
}

// CreateQuestion inserts q with its options, assigning IDs and timestamps.
func CreateQuestion(ctx context.Context, db *gorm.DB, q *domain.Question, now time.Time) error {
	now = now.UTC()
	q.ID = uuid.NewString()
	q.CreatedAt, q.UpdatedAt = now, now
	for i := range q.Options {
		q.Options[i].ID = uuid.NewString()
		q.Options[i].QuestionID = q.ID
		q.Options[i].CreatedAt, q.Options[i].UpdatedAt = now, now
	}
	return db.WithContext(ctx).Create(q).Error
}

// NextQuestionPosition returns one past the tenant's highest question position.
func NextQuestionPosition(ctx context.Context, db *gorm.DB, tenantID string) (int, error) {
	var max int
	err := db.WithContext(ctx).
		Model(&domain.Question{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	return max + 1, err
}

// ListQuestions returns the tenant's questions ordered by position then id,
// options preloaded in position order. activeOnly restricts to active questions.
func ListQuestions(ctx context.Context, db *gorm.DB, tenantID string, activeOnly bool) ([]domain.Question, error) {
	var out []domain.Question
	q := db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("position ASC, id ASC").Find(&out).Error
	return out, err
}

// GetQuestionsByIDs returns the tenant's questions among ids, with options.
// Missing ids are simply absent from the result.
func GetQuestionsByIDs(ctx context.Context, db *gorm.DB, tenantID string, ids []string) ([]domain.Question, error) {
	var out []domain.Question
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&out).Error
	return out, err
}

// GetQuestion fetches one question with its options, or ErrNotFound.
func GetQuestion(ctx context.Context, db *gorm.DB, tenantID, id string) (*domain.Question, error) {
	var q domain.Question
	err := db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion applies the given column updates and bumps updated_at.
// Returns ErrNotFound if no question matched.
func UpdateQuestion(ctx context.Context, db *gorm.DB, tenantID, id string, fields map[string]any, now time.Time) error {
	fields["updated_at"] = now.UTC()
	res := db.WithContext(ctx).
		Model(&domain.Question{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteQuestion removes a question together with its options, its answers
// and their option links. Returns ErrNotFound if no question matched.
func DeleteQuestion(ctx context.Context, db *gorm.DB, tenantID, id string) error {
	db = db.WithContext(ctx)
	var n int64
	if err := db.Model(&domain.Question{}).Where("id = ? AND tenant_id = ?", id, tenantID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	if err := db.Exec(
		"DELETE FROM answer_options WHERE answer_id IN (SELECT id FROM answers WHERE question_id = ?)", id,
	).Error; err != nil {
		return err
	}
	if err := db.Where("question_id = ?", id).Delete(&domain.Answer{}).Error; err != nil {
		return err
	}
	if err := db.Where("question_id = ?", id).Delete(&domain.Option{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&domain.Question{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateOption inserts o, assigning its ID and timestamps.
func CreateOption(ctx context.Context, db *gorm.DB, o *domain.Option, now time.Time) error {
	o.ID = uuid.NewString()
	o.CreatedAt, o.UpdatedAt = now.UTC(), now.UTC()
	return db.WithContext(ctx).Create(o).Error
}

// NextOptionPosition returns one past the question's highest option position.
func NextOptionPosition(ctx context.Context, db *gorm.DB, questionID string) (int, error) {
	var max int
	err := db.WithContext(ctx).
		Model(&domain.Option{}).
		Where("question_id = ?", questionID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	return max + 1, err
}

// GetOption fetches an option whose question belongs to the tenant, or ErrNotFound.
func GetOption(ctx context.Context, db *gorm.DB, tenantID, id string) (*domain.Option, error) {
	var o domain.Option
	err := db.WithContext(ctx).
		Where("id = ? AND question_id IN (SELECT id FROM questions WHERE tenant_id = ?)", id, tenantID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOption removes an option. Multi-choice links to it are dropped and
// single-choice answers pointing at it are cleared.
func DeleteOption(ctx context.Context, db *gorm.DB, id string) error {
	db = db.WithContext(ctx)
	if err := db.Exec("DELETE FROM answer_options WHERE option_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Model(&domain.Answer{}).
		Where("selected_option_id = ?", id).
		Update("selected_option_id", nil).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&domain.Option{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateReason inserts a complaint reason for the tenant.
func CreateReason(ctx context.Context, db *gorm.DB, tenantID, label string, now time.Time) (*domain.ComplaintReason, error) {
	r := &domain.ComplaintReason{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Label:     label,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListReasons returns the tenant's complaint reasons ordered by label.
func ListReasons(ctx context.Context, db *gorm.DB, tenantID string) ([]domain.ComplaintReason, error) {
	var out []domain.ComplaintReason
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("label ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetReason fetches one complaint reason scoped to the tenant, or ErrNotFound.
func GetReason(ctx context.Context, db *gorm.DB, tenantID, id string) (*domain.ComplaintReason, error) {
	var r domain.ComplaintReason
	if err := db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}
