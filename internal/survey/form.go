// Package survey turns a tenant's question catalog into a rider-facing form
// and parses submitted form values back into typed answers.
//
// Building and parsing are pure: nothing here touches storage. Every
// question kind is described once in a kind table (see kinds.go) that is
// used for field construction, parsing, and the reconciler's answer slot
// assignment.
package survey

import (
	"net/url"
	"strings"

	"github.com/tbourn/rider-feedback/internal/domain"
)

const (
	// MaxTextLength bounds free-text answers and complaint text, in runes.
	MaxTextLength = 1000
	RatingMin     = 1
	RatingMax     = 5

	fieldPrefix = "question_"
)

// FieldKey derives the form key of a question. Keys are never reused
// because question IDs are never reused.
func FieldKey(questionID string) string { return fieldPrefix + questionID }

// QuestionIDFromKey reverses FieldKey.
func QuestionIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, fieldPrefix) || len(key) == len(fieldPrefix) {
		return "", false
	}
	return key[len(fieldPrefix):], true
}

// Choice is one selectable value of a field.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Field describes one input control.
type Field struct {
	Key        string              `json:"key"`
	QuestionID string              `json:"question_id,omitempty"`
	Kind       domain.QuestionKind `json:"kind"`
	Label      string              `json:"label"`
	Required   bool                `json:"required"`
	Multiple   bool                `json:"multiple"`
	Options    []Choice            `json:"options"`
	Min        int                 `json:"min,omitempty"`
	Max        int                 `json:"max,omitempty"`
	MaxLength  int                 `json:"max_length,omitempty"`
	Value      []string            `json:"value,omitempty"`
}

func (f Field) hasOption(id string) bool {
	for _, o := range f.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Form is the ordered field list built from a catalog.
type Form struct {
	Fields []Field `json:"fields"`
}

// Response is a parsed, non-empty answer to one question.
type Response struct {
	QuestionID string
	Value      Value
}

// Build projects active questions (already ordered) into fields. raw, when
// non-nil, is echoed back as each field's Value for re-display. Questions
// of an unknown kind are skipped.
func Build(questions []domain.Question, raw url.Values) *Form {
	form := &Form{Fields: make([]Field, 0, len(questions))}
	for _, q := range questions {
		ops, ok := kinds[q.Kind]
		if !ok {
			continue
		}
		f := Field{
			Key:        FieldKey(q.ID),
			QuestionID: q.ID,
			Kind:       q.Kind,
			Label:      q.Text,
			Options:    []Choice{},
		}
		if q.Kind.HasOptions() {
			for _, o := range q.Options {
				f.Options = append(f.Options, Choice{ID: o.ID, Text: o.Text})
			}
		}
		ops.field(&f)
		if raw != nil {
			f.Value = raw[f.Key]
		}
		form.Fields = append(form.Fields, f)
	}
	return form
}

// Validate parses raw form values against every field. It returns the
// answered questions in field order; unanswered optional questions are
// omitted. Errors are keyed by field key.
func (f *Form) Validate(raw url.Values) ([]Response, FieldErrors) {
	errs := FieldErrors{}
	out := make([]Response, 0, len(f.Fields))
	for _, field := range f.Fields {
		v, msg := kinds[field.Kind].parse(field, raw[field.Key])
		if msg != "" {
			errs[field.Key] = msg
			continue
		}
		if v.Empty() {
			continue
		}
		out = append(out, Response{QuestionID: field.QuestionID, Value: v})
	}
	return out, errs
}

// Field returns the field with the given key.
func (f *Form) Field(key string) (Field, bool) {
	for _, fl := range f.Fields {
		if fl.Key == key {
			return fl, true
		}
	}
	return Field{}, false
}
