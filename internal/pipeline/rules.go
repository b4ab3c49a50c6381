// internal/pipeline/rules.go
//
// Formgate – Submission pipeline: field rules.
//
// Context
//   A Rule is a pure predicate over one field value, optionally consulting
//   the rest of the draft for cross-field checks (e.g., "confirm equals
//   password").  Rules never mutate anything and hold no state, so running
//   them twice over the same draft yields the same result.
//
//   Format-style rules (email, numeric, date) delegate to
//   go-playground/validator's tag engine rather than hand-rolled parsing, so
//   the gateway accepts exactly what the rest of the stack accepts.
//
//------------------------------------------------------------------------------

package pipeline

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// Rule checks one field value against a single constraint.  Check returns an
// empty string when the value passes, or a user-facing message when it does
// not.  The draft is read-only context for cross-field rules.
type Rule struct {
	Name  string
	Check func(value string, d *Draft) string
}

// vd is the package-level tag engine backing the format rules.  validator's
// Validate is safe for concurrent use, so one instance serves every pipeline.
var vd = validator.New()

// tagRule adapts a validator tag ("email", "numeric", "min=8") into a Rule.
func tagRule(name, tag, msg string) Rule {
	return Rule{
		Name: name,
		Check: func(value string, _ *Draft) string {
			if err := vd.Var(value, tag); err != nil {
				return msg
			}
			return ""
		},
	}
}

// Email accepts RFC-shaped addresses.
func Email() Rule {
	return tagRule("email", "email", "Enter a valid email address.")
}

// Numeric accepts decimal numbers, including a sign and fraction.
func Numeric() Rule {
	return tagRule("numeric", "numeric", "Enter a number.")
}

// MinLen requires at least n characters.  validator's min tag counts runes
// on strings, so multi-byte input is measured the way a user would count it.
func MinLen(n int) Rule {
	return tagRule("minlen", fmt.Sprintf("min=%d", n),
		fmt.Sprintf("Must be at least %d characters.", n))
}

// MaxLen allows at most n characters, counted as runes like MinLen.
func MaxLen(n int) Rule {
	return tagRule("maxlen", fmt.Sprintf("max=%d", n),
		fmt.Sprintf("Must be at most %d characters.", n))
}

// Pattern requires the value to match re; anchor the expression when a full
// match is wanted.  Compile it at pipeline build time so a bad pattern fails
// loudly, not per submission.
func Pattern(re *regexp.Regexp) Rule {
	return Rule{
		Name: "pattern",
		Check: func(value string, _ *Draft) string {
			if !re.MatchString(value) {
				return "Input does not match the required format."
			}
			return ""
		},
	}
}

// OneOf restricts the value to a fixed option list (select, radio).
func OneOf(options []string) Rule {
	allowed := make(map[string]struct{}, len(options))
	for _, o := range options {
		allowed[o] = struct{}{}
	}
	return Rule{
		Name: "oneof",
		Check: func(value string, _ *Draft) string {
			if _, ok := allowed[value]; !ok {
				return "Choose one of the listed options."
			}
			return ""
		},
	}
}

// DateISO accepts a calendar date in YYYY-MM-DD form.
func DateISO() Rule {
	return Rule{
		Name: "date",
		Check: func(value string, _ *Draft) string {
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return "Enter a date as YYYY-MM-DD."
			}
			return ""
		},
	}
}

// MatchField requires the value to equal another field of the same draft.
// The canonical use is a password confirmation box.
func MatchField(other, label string) Rule {
	return Rule{
		Name: "match",
		Check: func(value string, d *Draft) string {
			peer, _ := d.Get(other)
			if value != peer {
				return fmt.Sprintf("Does not match %s.", label)
			}
			return ""
		},
	}
}
