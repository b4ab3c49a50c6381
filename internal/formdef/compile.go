// internal/formdef/compile.go
//
// Formgate – Form definitions: pipeline compiler.
//
// Context
//   A Def is declaration; a pipeline.Pipeline is machinery.  Compile bridges
//   the two: field declarations become collector specs and rule sets,
//   transform declarations become canonicalization ops, and the upstream
//   route plus the supplied Submitter complete the pipeline.  Compilation
//   happens once per form, not per submission, so regexes compile exactly
//   once and a bad definition fails at boot.
//
//------------------------------------------------------------------------------

package formdef

import (
	"fmt"
	"regexp"

	"github.com/yanizio/formgate/internal/pipeline"
)

// Compile builds a runnable pipeline for d, submitting through sub.  The
// pepper keys the derive op; it must be non-empty when any transform uses
// derive.
func Compile(d *Def, sub pipeline.Submitter, pepper []byte) (*pipeline.Pipeline, error) {
	specs := make([]pipeline.FieldSpec, 0, len(d.Fields))
	rules := make([]pipeline.FieldRules, 0, len(d.Fields))

	for i := range d.Fields {
		f := &d.Fields[i]

		// Passwords keep their whitespace; everything else is trimmed at
		// collection time, as posted browser input usually needs.
		specs = append(specs, pipeline.FieldSpec{
			Name: f.Name,
			Trim: f.Type != "password",
		})

		fr, err := fieldRules(f)
		if err != nil {
			return nil, fmt.Errorf("form %s: field %q: %w", d.ID, f.Name, err)
		}
		rules = append(rules, fr)
	}

	transforms, constants, err := transformPlan(d, pepper)
	if err != nil {
		return nil, fmt.Errorf("form %s: %w", d.ID, err)
	}

	return pipeline.New(
		pipeline.NewCollector(specs),
		pipeline.NewValidator(rules),
		pipeline.NewTransformer(d.Upstream.Method, d.Upstream.Path, transforms, constants),
		sub,
	), nil
}

// fieldRules maps one field declaration onto an ordered rule list.  Length
// rules come first, then the type rule, then pattern, then cross-field
// match, so error reporting order is predictable.
func fieldRules(f *FieldDef) (pipeline.FieldRules, error) {
	var rules []pipeline.Rule

	if f.MinLength > 0 {
		rules = append(rules, pipeline.MinLen(f.MinLength))
	}
	if f.MaxLength > 0 {
		rules = append(rules, pipeline.MaxLen(f.MaxLength))
	}

	switch f.Type {
	case "email":
		rules = append(rules, pipeline.Email())
	case "number":
		rules = append(rules, pipeline.Numeric())
	case "date":
		rules = append(rules, pipeline.DateISO())
	case "select", "radio":
		rules = append(rules, pipeline.OneOf(f.Options))
	}

	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			// Load already vetted the pattern; a failure here means the Def
			// was built by hand and skipped validation.
			return pipeline.FieldRules{}, fmt.Errorf("invalid pattern: %w", err)
		}
		rules = append(rules, pipeline.Pattern(re))
	}

	if f.Match != "" {
		rules = append(rules, pipeline.MatchField(f.Match, f.Match))
	}

	return pipeline.FieldRules{
		Field:    f.Name,
		Required: f.Required,
		Rules:    rules,
		ErrorMsg: f.ErrorMsg,
	}, nil
}

// transformPlan folds the transform declarations into per-field op chains.
// A field may appear in several TransformDefs; ops accumulate in declaration
// order, while rename and drop settle on the last writer.
func transformPlan(d *Def, pepper []byte) ([]pipeline.FieldTransform, []pipeline.Constant, error) {
	byField := make(map[string]*pipeline.FieldTransform, len(d.Fields))
	order := make([]string, 0, len(d.Fields))

	// Every declared field flows through by default.
	for i := range d.Fields {
		name := d.Fields[i].Name
		byField[name] = &pipeline.FieldTransform{Field: name}
		order = append(order, name)
	}

	for _, t := range d.Transforms {
		ft := byField[t.Field]

		switch t.Op {
		case "":
			// Plain rename.
		case "lowercase":
			ft.Ops = append(ft.Ops, pipeline.Lowercase())
		case "uppercase":
			ft.Ops = append(ft.Ops, pipeline.Uppercase())
		case "trim":
			ft.Ops = append(ft.Ops, pipeline.TrimSpace())
		case "derive":
			if len(pepper) == 0 {
				return nil, nil, fmt.Errorf("field %q: derive declared but no pepper configured", t.Field)
			}
			ft.Ops = append(ft.Ops, pipeline.DeriveHMAC(pepper))
		case "drop":
			ft.Drop = true
		default:
			return nil, nil, fmt.Errorf("field %q: unknown transform op %q", t.Field, t.Op)
		}

		if t.To != "" {
			ft.To = t.To
		}
	}

	out := make([]pipeline.FieldTransform, 0, len(order))
	for _, name := range order {
		out = append(out, *byField[name])
	}

	constants := make([]pipeline.Constant, 0, len(d.Constants))
	for _, c := range d.Constants {
		constants = append(constants, pipeline.Constant{Key: c.Key, Value: c.Value})
	}

	return out, constants, nil
}
