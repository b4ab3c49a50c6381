// internal/pipeline/validate.go
//
// Formgate – Submission pipeline: validation stage.
//
// Context
//   The Validator runs every declared rule for every field and accumulates
//   all violations, so the caller can present the complete picture instead
//   of the first failure.  Error order is stable: field declaration order
//   first, rule declaration order within a field second.
//
// Workflow
//   •  Validate walks the declared FieldRules in order.
//   •  A missing or blank required field yields exactly one "required" error
//      and suppresses that field's remaining rules.
//   •  Absent optional fields are skipped entirely.
//   •  On zero violations the draft is sealed into a ValidDraft, the only
//      type the Transformer accepts.  ValidDraft cannot be built anywhere
//      else, so a CanonicalRequest can never come from unvalidated input.
//
//------------------------------------------------------------------------------

package pipeline

// ValidationError describes a single rule violation on one field.
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// FieldRules binds one field to its ordered rule list.
type FieldRules struct {
	Field    string
	Required bool
	Rules    []Rule
	ErrorMsg string // optional override for the "required" message
}

// ValidDraft is a draft that passed validation.  The unexported field keeps
// construction inside Validate; nothing else in the program can mint one.
type ValidDraft struct {
	d *Draft
}

// Get exposes read-only access to the underlying draft values.
func (v ValidDraft) Get(name string) (string, bool) { return v.d.Get(name) }

// Names returns the declared field names in declaration order.
func (v ValidDraft) Names() []string { return v.d.Names() }

// Result is the outcome of validation: either a ValidDraft or an ordered
// list of violations, never both.
type Result struct {
	draft ValidDraft
	errs  []ValidationError
}

// Valid returns the sealed draft when validation passed.
func (r Result) Valid() (ValidDraft, bool) {
	if len(r.errs) > 0 {
		return ValidDraft{}, false
	}
	return r.draft, true
}

// Errors returns the accumulated violations in reporting order.  Empty when
// the draft is valid.
func (r Result) Errors() []ValidationError { return r.errs }

// Validator checks a draft against the declared field rules.  It holds no
// mutable state, so Validate is idempotent and safe for concurrent use.
type Validator struct {
	fields []FieldRules
}

// NewValidator builds a Validator over the declared field rules.  Order of
// the slice defines error reporting order.
func NewValidator(fields []FieldRules) *Validator {
	out := make([]FieldRules, len(fields))
	copy(out, fields)
	return &Validator{fields: out}
}

// Validate runs every rule for every field, accumulating all violations.
// Fields never short-circuit each other; within one field, a missing
// required value suppresses the remaining rules since they would only
// restate the same problem.
func (v *Validator) Validate(d *Draft) Result {
	var errs []ValidationError

	for _, fr := range v.fields {
		raw, present := d.Get(fr.Field)

		if !present || raw == "" {
			if fr.Required {
				errs = append(errs, ValidationError{
					Field:   fr.Field,
					Rule:    "required",
					Message: requiredMessage(fr),
				})
			}
			continue
		}

		for _, rule := range fr.Rules {
			if msg := rule.Check(raw, d); msg != "" {
				errs = append(errs, ValidationError{
					Field:   fr.Field,
					Rule:    rule.Name,
					Message: msg,
				})
			}
		}
	}

	if len(errs) > 0 {
		return Result{errs: errs}
	}
	return Result{draft: ValidDraft{d: d}}
}

func requiredMessage(fr FieldRules) string {
	if fr.ErrorMsg != "" {
		return fr.ErrorMsg
	}
	return "This field is required."
}
