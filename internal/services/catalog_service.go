// Package services – CatalogService
//
// This file implements maintenance of the survey catalog: ordered, typed
// questions with their ordered options, and the tenant's complaint reasons.
// Question kinds are fixed at creation; changing a kind would reinterpret
// answers already stored under the old kind.
package services

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
)

const (
	maxQuestionTextLen = 255
	maxOptionTextLen   = 255
	maxReasonLabelLen  = 255
)

// CatalogService manages questions, options and complaint reasons.
type CatalogService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// QuestionInput is the operator payload for a new question. Nil Position
// appends after the last question; nil Active means active.
type QuestionInput struct {
	Text     string
	Kind     domain.QuestionKind
	Position *int
	Active   *bool
	Options  []string
}

// QuestionPatch lists the mutable question fields. Nil means unchanged.
type QuestionPatch struct {
	Text     *string
	Position *int
	Active   *bool
}

// CreateQuestion validates and inserts a question with its options, which
// are positioned in the given order.
func (s *CatalogService) CreateQuestion(ctx context.Context, tenantID string, in QuestionInput) (*domain.Question, error) {
	text, err := checkText("text", in.Text, maxQuestionTextLen)
	if err != nil {
		return nil, err
	}
	if !in.Kind.Valid() {
		return nil, invalid("kind %q is not one of rating, text, choice, multi_choice", in.Kind)
	}
	if len(in.Options) > 0 && !in.Kind.HasOptions() {
		return nil, invalid("%s questions take no options", in.Kind)
	}
	if in.Position != nil && *in.Position < 0 {
		return nil, invalid("position must not be negative")
	}

	q := &domain.Question{
		TenantID: tenantID,
		Text:     text,
		Kind:     in.Kind,
		Active:   in.Active == nil || *in.Active,
	}
	for i, o := range in.Options {
		ot, err := checkText("option", o, maxOptionTextLen)
		if err != nil {
			return nil, err
		}
		q.Options = append(q.Options, domain.Option{Text: ot, Position: i + 1})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Position != nil {
			q.Position = *in.Position
		} else {
			next, err := repo.NextQuestionPosition(ctx, tx, tenantID)
			if err != nil {
				return err
			}
			q.Position = next
		}
		return repo.CreateQuestion(ctx, tx, q, clock(s.Now))
	})
	if err != nil {
		return nil, err
	}
	if q.Options == nil {
		q.Options = []domain.Option{}
	}
	return q, nil
}

// ListQuestions returns every question of the tenant, active or not, in
// display order with options.
func (s *CatalogService) ListQuestions(ctx context.Context, tenantID string) ([]domain.Question, error) {
	return repo.ListQuestions(ctx, s.DB, tenantID, false)
}

// UpdateQuestion applies p and returns the updated question.
func (s *CatalogService) UpdateQuestion(ctx context.Context, tenantID, id string, p QuestionPatch) (*domain.Question, error) {
	fields := map[string]any{}
	if p.Text != nil {
		text, err := checkText("text", *p.Text, maxQuestionTextLen)
		if err != nil {
			return nil, err
		}
		fields["text"] = text
	}
	if p.Position != nil {
		if *p.Position < 0 {
			return nil, invalid("position must not be negative")
		}
		fields["position"] = *p.Position
	}
	if p.Active != nil {
		fields["active"] = *p.Active
	}

	var out *domain.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := repo.UpdateQuestion(ctx, tx, tenantID, id, fields, clock(s.Now)); err != nil {
				return err
			}
		}
		q, err := repo.GetQuestion(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// DeleteQuestion removes a question with its options and every answer to it.
func (s *CatalogService) DeleteQuestion(ctx context.Context, tenantID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.DeleteQuestion(ctx, tx, tenantID, id)
	})
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// AddOption appends (or positions) an option on a choice or multi_choice question.
func (s *CatalogService) AddOption(ctx context.Context, tenantID, questionID, text string, position *int) (*domain.Option, error) {
	text, err := checkText("text", text, maxOptionTextLen)
	if err != nil {
		return nil, err
	}
	if position != nil && *position < 0 {
		return nil, invalid("position must not be negative")
	}
	o := &domain.Option{QuestionID: questionID, Text: text}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := repo.GetQuestion(ctx, tx, tenantID, questionID)
		if err != nil {
			return err
		}
		if !q.Kind.HasOptions() {
			return invalid("%s questions take no options", q.Kind)
		}
		if position != nil {
			o.Position = *position
		} else {
			next, err := repo.NextOptionPosition(ctx, tx, q.ID)
			if err != nil {
				return err
			}
			o.Position = next
		}
		return repo.CreateOption(ctx, tx, o, clock(s.Now))
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// DeleteOption removes an option. Past single-choice answers that picked it
// become empty and multi-choice answers lose it.
func (s *CatalogService) DeleteOption(ctx context.Context, tenantID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := repo.GetOption(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		return repo.DeleteOption(ctx, tx, o.ID)
	})
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// CreateReason adds a complaint reason.
func (s *CatalogService) CreateReason(ctx context.Context, tenantID, label string) (*domain.ComplaintReason, error) {
	label, err := checkText("label", label, maxReasonLabelLen)
	if err != nil {
		return nil, err
	}
	return repo.CreateReason(ctx, s.DB, tenantID, label, clock(s.Now))
}

// ListReasons returns the tenant's complaint reasons by label.
func (s *CatalogService) ListReasons(ctx context.Context, tenantID string) ([]domain.ComplaintReason, error) {
	return repo.ListReasons(ctx, s.DB, tenantID)
}

// checkText normalizes whitespace and enforces a non-empty, bounded value.
func checkText(field, s string, max int) (string, error) {
	s = normalizeSpace(s)
	if s == "" {
		return "", invalid("%s is required", field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return s, nil
}
