// Package domain defines the persistence models for tenants, the transport
// registry, the survey catalog and rider feedback. These types are mapped
// with GORM and form the core data layer of the feedback service.
//
// Timestamps are written explicitly by the repository layer; GORM's
// auto-timestamping is disabled on every model.
package domain

import "time"

// QuestionKind is the declared answer type of a survey question.
type QuestionKind string

const (
	KindRating      QuestionKind = "rating"
	KindText        QuestionKind = "text"
	KindChoice      QuestionKind = "choice"
	KindMultiChoice QuestionKind = "multi_choice"
)

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindRating, KindText, KindChoice, KindMultiChoice:
		return true
	}
	return false
}

// HasOptions reports whether questions of kind k are answered by picking options.
func (k QuestionKind) HasOptions() bool {
	return k == KindChoice || k == KindMultiChoice
}

// Tenant is a transit operator account. Every other row is scoped to one.
//
// Fields:
//   - Slug: URL-safe identifier used by the public and operator routes.
//   - Active: inactive tenants are answered with 503 by the tenant middleware.
type Tenant struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Slug      string    `json:"slug"       gorm:"type:varchar(63);not null;uniqueIndex:ux_tenant_slug"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Active    bool      `json:"active"     gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Tenant.
func (Tenant) TableName() string { return "tenants" }

// Route is a named transit route vehicles may be assigned to.
type Route struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  string    `json:"tenant_id"  gorm:"type:char(36);not null;index:idx_route_tenant"`
	Name      string    `json:"name"       gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Route.
func (Route) TableName() string { return "routes" }

// Vehicle is a single transit unit, the target of a QR code. TransitNumber
// is its public identifier and is unique within a tenant.
type Vehicle struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	TenantID       string    `json:"tenant_id"       gorm:"type:char(36);not null;uniqueIndex:ux_vehicle_transit,priority:1"`
	RouteID        *string   `json:"route_id"        gorm:"type:char(36);index"`
	TransitNumber  string    `json:"transit_number"  gorm:"type:varchar(25);not null;uniqueIndex:ux_vehicle_transit,priority:2"`
	InternalNumber string    `json:"internal_number" gorm:"type:varchar(8);not null;default:''"`
	Owner          string    `json:"owner,omitempty" gorm:"type:varchar(100);not null;default:''"`
	CreatedAt      time.Time `json:"created_at"      gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `json:"updated_at"      gorm:"autoUpdateTime:false"`

	// Route is cleared (not deleted) when the route goes away.
	Route *Route `json:"route,omitempty" gorm:"foreignKey:RouteID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Vehicle.
func (Vehicle) TableName() string { return "vehicles" }

// Question is one entry of a tenant's survey catalog. Active questions are
// rendered ordered by Position, ties broken by ID.
type Question struct {
	ID        string       `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  string       `json:"tenant_id"  gorm:"type:char(36);not null;index:idx_question_order,priority:1"`
	Text      string       `json:"text"       gorm:"type:varchar(255);not null"`
	Kind      QuestionKind `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('rating','text','choice','multi_choice')"`
	Position  int          `json:"position"   gorm:"not null;index:idx_question_order,priority:2"`
	Active    bool         `json:"active"     gorm:"not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"autoUpdateTime:false"`

	// Options are exclusively owned and cascade with the question.
	Options []Option `json:"options" gorm:"foreignKey:QuestionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Question.
func (Question) TableName() string { return "questions" }

// Option is a selectable value of a choice or multi_choice question.
type Option struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	QuestionID string    `json:"question_id" gorm:"type:char(36);not null;index:idx_option_order,priority:1"`
	Text       string    `json:"text"        gorm:"type:varchar(255);not null"`
	Position   int       `json:"position"    gorm:"not null;index:idx_option_order,priority:2"`
	CreatedAt  time.Time `json:"created_at"  gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `json:"updated_at"  gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Option.
func (Option) TableName() string { return "options" }

// ComplaintReason is a tenant-defined reason code riders pick when filing a complaint.
type ComplaintReason struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  string    `json:"tenant_id"  gorm:"type:char(36);not null;index:idx_reason_tenant"`
	Label     string    `json:"label"      gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for ComplaintReason.
func (ComplaintReason) TableName() string { return "complaint_reasons" }

// Submission is one completed survey attempt for one vehicle. It is written
// once, together with its answers, and never mutated afterwards.
type Submission struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	TenantID    string    `json:"tenant_id"    gorm:"type:char(36);not null;index:idx_submission_tenant_time,priority:1"`
	VehicleID   string    `json:"vehicle_id"   gorm:"type:char(36);not null;index"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index:idx_submission_tenant_time,priority:2"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:SubmissionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// Answer is one question's response within a Submission. Exactly one value
// slot is populated and it matches the question's kind:
//
//   - rating: RatingValue in [1,5]
//   - text: TextValue
//   - choice: SelectedOptionID
//   - multi_choice: SelectedOptions (join table answer_options)
type Answer struct {
	ID               string    `json:"id"                           gorm:"type:char(36);primaryKey"`
	SubmissionID     string    `json:"submission_id"                gorm:"type:char(36);not null;index"`
	QuestionID       string    `json:"question_id"                  gorm:"type:char(36);not null;index"`
	TextValue        *string   `json:"text_value,omitempty"         gorm:"type:text"`
	RatingValue      *int      `json:"rating_value,omitempty"       gorm:"check:rating_value IS NULL OR rating_value BETWEEN 1 AND 5"`
	SelectedOptionID *string   `json:"selected_option_id,omitempty" gorm:"type:char(36);index"`
	CreatedAt        time.Time `json:"created_at"                   gorm:"autoCreateTime:false"`

	SelectedOptions []Option `json:"selected_options,omitempty" gorm:"many2many:answer_options;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name for Answer.
func (Answer) TableName() string { return "answers" }

// Complaint is a standalone grievance tied to a vehicle and an optional
// reason. It is independent of any Submission.
type Complaint struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	TenantID    string    `json:"tenant_id"    gorm:"type:char(36);not null;index:idx_complaint_tenant_time,priority:1"`
	VehicleID   *string   `json:"vehicle_id"   gorm:"type:char(36);index"`
	ReasonID    *string   `json:"reason_id"    gorm:"type:char(36);index"`
	Text        string    `json:"text"         gorm:"type:text;not null;default:''"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index:idx_complaint_tenant_time,priority:2"`

	Reason  *ComplaintReason `json:"reason,omitempty"  gorm:"foreignKey:ReasonID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Vehicle *Vehicle         `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Complaint.
func (Complaint) TableName() string { return "complaints" }

// All lists every model in migration order.
func All() []any {
	return []any{
		&Tenant{},
		&Route{},
		&Vehicle{},
		&Question{},
		&Option{},
		&ComplaintReason{},
		&Submission{},
		&Answer{},
		&Complaint{},
	}
}
