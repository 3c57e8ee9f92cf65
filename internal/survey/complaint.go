package survey

import (
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/tbourn/rider-feedback/internal/domain"
)

// Form keys of the complaint section.
const (
	ComplaintReasonKey = "complaint_reason"
	ComplaintTextKey   = "complaint_text"
)

// Complaint is a validated complaint payload. It is filed only when a
// reason was selected; Text may be empty.
type Complaint struct {
	ReasonID string
	Text     string
}

// Filed reports whether the payload should produce a complaint record.
func (c Complaint) Filed() bool { return c.ReasonID != "" }

// ComplaintFields describes the optional complaint section of the form.
func ComplaintFields(reasons []domain.ComplaintReason, raw url.Values) []Field {
	reason := Field{
		Key:     ComplaintReasonKey,
		Kind:    domain.KindChoice,
		Label:   "Complaint reason",
		Options: make([]Choice, 0, len(reasons)),
	}
	for _, r := range reasons {
		reason.Options = append(reason.Options, Choice{ID: r.ID, Text: r.Label})
	}
	text := Field{
		Key:       ComplaintTextKey,
		Kind:      domain.KindText,
		Label:     "Complaint",
		Options:   []Choice{},
		MaxLength: MaxTextLength,
	}
	if raw != nil {
		reason.Value = raw[ComplaintReasonKey]
		text.Value = raw[ComplaintTextKey]
	}
	return []Field{reason, text}
}

// ValidateComplaint parses the complaint section. Text without a reason is
// rejected on the reason field; an unknown reason is rejected as an invalid choice.
func ValidateComplaint(raw url.Values, reasons []domain.ComplaintReason) (Complaint, FieldErrors) {
	errs := FieldErrors{}
	c := Complaint{
		ReasonID: first(raw[ComplaintReasonKey]),
		Text:     CleanText(first(raw[ComplaintTextKey])),
	}
	if n := utf8.RuneCountInString(c.Text); n > MaxTextLength {
		errs[ComplaintTextKey] = fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", MaxTextLength, n)
	}
	switch {
	case c.ReasonID == "" && c.Text != "":
		errs[ComplaintReasonKey] = "Select a reason for your complaint."
	case c.ReasonID != "" && !knownReason(reasons, c.ReasonID):
		errs[ComplaintReasonKey] = msgInvalidChoice
	}
	if len(errs) > 0 {
		return Complaint{}, errs
	}
	return c, errs
}

func knownReason(reasons []domain.ComplaintReason, id string) bool {
	for _, r := range reasons {
		if r.ID == id {
			return true
		}
	}
	return false
}
