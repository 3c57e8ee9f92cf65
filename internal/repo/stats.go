// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the grouped aggregate queries behind
// the operator reports. Each function is read-only and scoped by a
// StatsFilter. Counting happens in SQL; presentation happens in services.
package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/rider-feedback/internal/domain"
)

// StatsFilter narrows report queries. Since is inclusive; RouteID and
// VehicleID are mutually exclusive (the service rejects both).
type StatsFilter struct {
	TenantID  string
	Since     *time.Time
	RouteID   string
	VehicleID string
}

// scope applies the filter to a table carrying tenant_id, vehicle_id and
// submitted_at columns (submissions or complaints).
func (f StatsFilter) scope(q *gorm.DB, table string) *gorm.DB {
	q = q.Where(table+".tenant_id = ?", f.TenantID)
	if f.Since != nil {
		q = q.Where(table+".submitted_at >= ?", f.Since.UTC())
	}
	switch {
	case f.VehicleID != "":
		q = q.Where(table+".vehicle_id = ?", f.VehicleID)
	case f.RouteID != "":
		q = q.Where(table+".vehicle_id IN (SELECT id FROM vehicles WHERE route_id = ?)", f.RouteID)
	}
	return q
}

// RatingTotals is the count and sum of rating answers for one question.
type RatingTotals struct {
	Count int64
	Total int64
}

// OptionCount is how often one option was picked.
type OptionCount struct {
	OptionID string
	Text     string
	Count    int64
}

// ReasonCount is the number of complaints filed under one reason.
// ReasonID and Label are nil for complaints without a reason.
type ReasonCount struct {
	ReasonID *string
	Label    *string
	Count    int64
}

// VehicleCount is the number of complaints filed against one vehicle.
type VehicleCount struct {
	TransitNumber string
	Count         int64
}

// SumRatings returns count and sum of rating_value for questionID over the
// filtered submissions.
func SumRatings(ctx context.Context, db *gorm.DB, f StatsFilter, questionID string) (RatingTotals, error) {
	var out RatingTotals
	q := db.WithContext(ctx).
		Table("answers").
		Select("COUNT(answers.rating_value) AS count, COALESCE(SUM(answers.rating_value), 0) AS total").
		Joins("JOIN submissions ON submissions.id = answers.submission_id").
		Where("answers.question_id = ? AND answers.rating_value IS NOT NULL", questionID)
	err := f.scope(q, "submissions").Scan(&out).Error
	return out, err
}

// CountOptions returns per-option pick counts for questionID, in option
// order. Options never picked are absent. multi selects the answer_options
// link table instead of selected_option_id.
func CountOptions(ctx context.Context, db *gorm.DB, f StatsFilter, questionID string, multi bool) ([]OptionCount, error) {
	var out []OptionCount
	q := db.WithContext(ctx).
		Table("answers").
		Select("options.id AS option_id, options.text AS text, COUNT(*) AS count").
		Joins("JOIN submissions ON submissions.id = answers.submission_id")
	if multi {
		q = q.Joins("JOIN answer_options ON answer_options.answer_id = answers.id").
			Joins("JOIN options ON options.id = answer_options.option_id")
	} else {
		q = q.Joins("JOIN options ON options.id = answers.selected_option_id")
	}
	q = q.Where("answers.question_id = ?", questionID)
	err := f.scope(q, "submissions").
		Group("options.id, options.text, options.position").
		Order("options.position ASC, options.id ASC").
		Scan(&out).Error
	return out, err
}

// CountFilteredSubmissions counts submissions matching f.
func CountFilteredSubmissions(ctx context.Context, db *gorm.DB, f StatsFilter) (int64, error) {
	var n int64
	err := f.scope(db.WithContext(ctx).Model(&domain.Submission{}), "submissions").Count(&n).Error
	return n, err
}

// CountFilteredComplaints counts complaints matching f.
func CountFilteredComplaints(ctx context.Context, db *gorm.DB, f StatsFilter) (int64, error) {
	var n int64
	err := f.scope(db.WithContext(ctx).Model(&domain.Complaint{}), "complaints").Count(&n).Error
	return n, err
}

// ComplaintsByReason groups filtered complaints by reason, largest first.
func ComplaintsByReason(ctx context.Context, db *gorm.DB, f StatsFilter) ([]ReasonCount, error) {
	var out []ReasonCount
	q := db.WithContext(ctx).
		Table("complaints").
		Select("complaints.reason_id AS reason_id, complaint_reasons.label AS label, COUNT(*) AS count").
		Joins("LEFT JOIN complaint_reasons ON complaint_reasons.id = complaints.reason_id")
	err := f.scope(q, "complaints").
		Group("complaints.reason_id, complaint_reasons.label").
		Order("COUNT(*) DESC, complaint_reasons.label ASC").
		Scan(&out).Error
	return out, err
}

// ComplaintsByVehicle groups filtered complaints by transit number, largest
// first. Complaints whose vehicle is gone are not counted.
func ComplaintsByVehicle(ctx context.Context, db *gorm.DB, f StatsFilter) ([]VehicleCount, error) {
	var out []VehicleCount
	q := db.WithContext(ctx).
		Table("complaints").
		Select("vehicles.transit_number AS transit_number, COUNT(*) AS count").
		Joins("JOIN vehicles ON vehicles.id = complaints.vehicle_id")
	err := f.scope(q, "complaints").
		Group("vehicles.transit_number").
		Order("COUNT(*) DESC, vehicles.transit_number ASC").
		Scan(&out).Error
	return out, err
}

// TimeSlot is the width of the SQL-side grouping of submission instants.
// Current UTC offsets are whole multiples of it, so any local hour or day is
// a union of slots.
const TimeSlot = 15 * time.Minute

// SlotCount is the number of submissions in one TimeSlot. Slot counts
// TimeSlot widths since the Unix epoch.
type SlotCount struct {
	Slot  int64
	Count int64
}

// Start is the UTC instant the slot begins at.
func (s SlotCount) Start() time.Time {
	return time.Unix(s.Slot*int64(TimeSlot/time.Second), 0).UTC()
}

// SubmissionSlots counts filtered submissions per TimeSlot, oldest first.
// Rows returned are bounded by the slots in the window, not by submissions.
func SubmissionSlots(ctx context.Context, db *gorm.DB, f StatsFilter) ([]SlotCount, error) {
	var out []SlotCount
	q := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Select(slotExpr(db) + " AS slot, COUNT(*) AS count")
	err := f.scope(q, "submissions").
		Group("slot").
		Order("slot ASC").
		Scan(&out).Error
	return out, err
}

func slotExpr(db *gorm.DB) string {
	secs := int64(TimeSlot / time.Second)
	if db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("CAST(strftime('%%s', submissions.submitted_at) AS INTEGER) / %d", secs)
	}
	return fmt.Sprintf("CAST(FLOOR(EXTRACT(EPOCH FROM submissions.submitted_at) / %d) AS BIGINT)", secs)
}
