// Package services – FeedbackService
//
// This file implements the operator's read-only view over rider input:
// paginated submissions (with their answers), paginated complaints, and a
// keyword search over recent complaint text. There is no update or delete
// path for submissions, answers or complaints.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/repo"
	"github.com/tbourn/rider-feedback/internal/search"
	"github.com/tbourn/rider-feedback/internal/utils"
)

const (
	defaultSearchWindow = 1000
	defaultSearchK      = 20
)

// searchStopwords are dropped from complaint text and queries.
var searchStopwords = []string{
	"a", "an", "and", "the", "of", "to", "in", "is", "was", "it", "on", "for",
	"el", "la", "los", "las", "de", "del", "y", "que", "en", "un", "una", "es", "muy",
}

// FeedbackService lists and searches rider input.
type FeedbackService struct {
	DB *gorm.DB

	// SearchWindow caps how many recent complaints are indexed per search.
	SearchWindow int
}

// ComplaintHit is one search result.
type ComplaintHit struct {
	Complaint domain.Complaint `json:"complaint"`
	Snippet   string           `json:"snippet" example:"the driver was rude and skipped my stop"`
	Score     float64          `json:"score" example:"2.31"`
}

// ListSubmissions returns a page of submissions, newest first, with answers.
func (s *FeedbackService) ListSubmissions(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Submission, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountSubmissions(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Submission{}, 0, nil
	}
	items, err := repo.ListSubmissionsPage(ctx, s.DB, tenantID, offset, limit)
	return items, total, err
}

// ListComplaints returns a page of complaints, newest first, with reason and vehicle.
func (s *FeedbackService) ListComplaints(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Complaint, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountComplaints(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Complaint{}, 0, nil
	}
	items, err := repo.ListComplaintsPage(ctx, s.DB, tenantID, offset, limit)
	return items, total, err
}

// SearchComplaints ranks the most recent complaints with text against query.
// k <= 0 means 20.
func (s *FeedbackService) SearchComplaints(ctx context.Context, tenantID, query string, k int) ([]ComplaintHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []ComplaintHit{}, nil
	}
	if k <= 0 {
		k = defaultSearchK
	}
	window := s.SearchWindow
	if window <= 0 {
		window = defaultSearchWindow
	}
	complaints, err := repo.ListComplaintsWithText(ctx, s.DB, tenantID, window)
	if err != nil {
		return nil, err
	}

	docs := make([]search.Document, 0, len(complaints))
	byID := make(map[string]domain.Complaint, len(complaints))
	for _, c := range complaints {
		docs = append(docs, search.Document{ID: c.ID, Text: c.Text})
		byID[c.ID] = c
	}
	idx := search.NewIndex(docs, search.WithStopwords(searchStopwords))

	results := idx.TopK(query, k)
	out := make([]ComplaintHit, 0, len(results))
	for _, r := range results {
		out = append(out, ComplaintHit{Complaint: byID[r.ID], Snippet: r.Snippet, Score: r.Score})
	}
	return out, nil
}

// pageBounds applies defaults for invalid page/pageSize.
func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return utils.Offset(page, pageSize), pageSize
}
