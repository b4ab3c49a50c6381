// internal/pipeline/draft.go
//
// Formgate – Submission pipeline: draft collection.
//
// Context
//   A submission attempt starts as raw, untrusted form input.  The Collector
//   gathers that input into a Draft: an ordered snapshot of the declared
//   fields, one per submission attempt, discarded once the Transformer has
//   run.  Field order is fixed by the collector's declaration list so that
//   validation errors are reported in a stable, deterministic order.
//
// Style
//   Comments follow the Formgate guide: full sentences, two space spacing,
//   Oxford comma.
//
//------------------------------------------------------------------------------

package pipeline

import (
	"net/url"
	"strings"
)

// FieldSpec names one expected field.  Order of FieldSpecs passed to
// NewCollector defines the reporting order for validation errors.
type FieldSpec struct {
	Name string
	Trim bool // strip surrounding whitespace at collection time
}

// Draft is the raw input of one submission attempt.  It is mutable only by
// the Collector that built it; every later stage treats it as read-only.
type Draft struct {
	names  []string
	values map[string]fieldValue
}

type fieldValue struct {
	raw     string
	present bool
}

// Get returns the raw value of a field and whether the field was present in
// the posted input.  Absent fields return ("", false).
func (d *Draft) Get(name string) (string, bool) {
	v, ok := d.values[name]
	if !ok {
		return "", false
	}
	return v.raw, v.present
}

// Names returns the declared field names in declaration order.  The returned
// slice is a copy, so callers cannot disturb reporting order.
func (d *Draft) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Collector gathers posted values into a Draft.  It is the only writer of
// Draft state.
type Collector struct {
	specs []FieldSpec
}

// NewCollector builds a Collector over the declared fields.
func NewCollector(specs []FieldSpec) *Collector {
	out := make([]FieldSpec, len(specs))
	copy(out, specs)
	return &Collector{specs: out}
}

// Collect snapshots the declared fields out of posted form values.  Undeclared
// posted keys are ignored, and a posted empty string counts as present so the
// Validator can distinguish "left blank" from "not sent at all".
func (c *Collector) Collect(posted url.Values) *Draft {
	d := &Draft{
		names:  make([]string, 0, len(c.specs)),
		values: make(map[string]fieldValue, len(c.specs)),
	}
	for _, s := range c.specs {
		d.names = append(d.names, s.Name)

		raw, ok := posted[s.Name]
		if !ok || len(raw) == 0 {
			d.values[s.Name] = fieldValue{}
			continue
		}
		v := raw[0]
		if s.Trim {
			v = strings.TrimSpace(v)
		}
		d.values[s.Name] = fieldValue{raw: v, present: true}
	}
	return d
}
