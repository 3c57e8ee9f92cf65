package survey

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/rider-feedback/internal/domain"
)

// Value is a parsed answer. Only the member matching Kind is meaningful.
type Value struct {
	Kind      domain.QuestionKind
	Rating    int
	Text      string
	OptionID  string
	OptionIDs []string
}

// Empty reports whether the value carries no answer.
func (v Value) Empty() bool {
	switch v.Kind {
	case domain.KindRating:
		return v.Rating == 0
	case domain.KindText:
		return v.Text == ""
	case domain.KindChoice:
		return v.OptionID == ""
	case domain.KindMultiChoice:
		return len(v.OptionIDs) == 0
	}
	return true
}

// OptionRefs lists every option id the value points at.
func (v Value) OptionRefs() []string {
	switch v.Kind {
	case domain.KindChoice:
		if v.OptionID != "" {
			return []string{v.OptionID}
		}
	case domain.KindMultiChoice:
		return v.OptionIDs
	}
	return nil
}

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice."
)

// kindOps is the single description of a question kind.
type kindOps struct {
	// field sets kind-specific constraints on a freshly built field.
	field func(f *Field)
	// parse converts raw values into a Value, or returns a user-facing error.
	parse func(f Field, raw []string) (Value, string)
	// apply writes the value into the answer slot owned by the kind.
	apply func(v Value, a *domain.Answer)
}

var kinds = map[domain.QuestionKind]kindOps{
	domain.KindRating: {
		field: func(f *Field) {
			f.Required = true
			f.Min, f.Max = RatingMin, RatingMax
		},
		parse: func(_ Field, raw []string) (Value, string) {
			s := first(raw)
			if s == "" {
				return Value{}, msgRequired
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return Value{}, "Enter a whole number."
			}
			if n < RatingMin || n > RatingMax {
				return Value{}, fmt.Sprintf("Ensure this value is between %d and %d.", RatingMin, RatingMax)
			}
			return Value{Kind: domain.KindRating, Rating: n}, ""
		},
		apply: func(v Value, a *domain.Answer) {
			n := v.Rating
			a.RatingValue = &n
		},
	},
	domain.KindText: {
		field: func(f *Field) {
			f.Required = true
			f.MaxLength = MaxTextLength
		},
		parse: func(_ Field, raw []string) (Value, string) {
			s := CleanText(first(raw))
			if s == "" {
				return Value{}, msgRequired
			}
			if n := utf8.RuneCountInString(s); n > MaxTextLength {
				return Value{}, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", MaxTextLength, n)
			}
			return Value{Kind: domain.KindText, Text: s}, ""
		},
		apply: func(v Value, a *domain.Answer) {
			s := v.Text
			a.TextValue = &s
		},
	},
	domain.KindChoice: {
		field: func(f *Field) {},
		parse: func(f Field, raw []string) (Value, string) {
			id := first(raw)
			if id == "" {
				return Value{Kind: domain.KindChoice}, ""
			}
			if !f.hasOption(id) {
				return Value{}, msgInvalidChoice
			}
			return Value{Kind: domain.KindChoice, OptionID: id}, ""
		},
		apply: func(v Value, a *domain.Answer) {
			id := v.OptionID
			a.SelectedOptionID = &id
		},
	},
	domain.KindMultiChoice: {
		field: func(f *Field) { f.Multiple = true },
		parse: func(f Field, raw []string) (Value, string) {
			seen := make(map[string]struct{}, len(raw))
			ids := make([]string, 0, len(raw))
			for _, r := range raw {
				id := strings.TrimSpace(r)
				if id == "" {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				if !f.hasOption(id) {
					return Value{}, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", id)
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			return Value{Kind: domain.KindMultiChoice, OptionIDs: ids}, ""
		},
		apply: func(v Value, a *domain.Answer) {
			a.SelectedOptions = make([]domain.Option, 0, len(v.OptionIDs))
			for _, id := range v.OptionIDs {
				a.SelectedOptions = append(a.SelectedOptions, domain.Option{ID: id})
			}
		},
	},
}

// Apply populates the answer slot matching v.Kind and leaves the others
// nil. It reports false for an unknown kind.
func Apply(v Value, a *domain.Answer) bool {
	ops, ok := kinds[v.Kind]
	if !ok {
		return false
	}
	a.RatingValue, a.TextValue, a.SelectedOptionID, a.SelectedOptions = nil, nil, nil, nil
	ops.apply(v, a)
	return true
}

func first(raw []string) string {
	if len(raw) == 0 {
		return ""
	}
	return strings.TrimSpace(raw[0])
}
