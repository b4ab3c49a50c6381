// internal/formdef/definition.go
//
// Formgate – Form definitions: YAML loader and registry.
//
// Context
//   Every form the gateway accepts is declared in a YAML file: identifier,
//   upstream route, fields with validation metadata, transform steps, and
//   constant body keys.  At boot we parse every "*.yaml" under the
//   configured forms directory and store the result in a Registry.  The
//   server fetches definitions from that Registry by ID, so there is a
//   single source of truth for what each form accepts and where it goes.
//
// Workflow
//   •  Structs mirror the YAML schema: Def → UpstreamDef / FieldDef /
//      TransformDef / ConstantDef.
//   •  Load parses a single YAML file and validates structural rules.
//   •  RegisterDir walks a directory, loads every YAML, and fills the
//      Registry.  The Registry is handed to the server explicitly; there is
//      no package-level instance.
//   •  Get offers safe, read-only access to a parsed form by ID.
//
// Style
//   Comments follow the Formgate guide: full sentences, two spaces after
//   periods, Oxford commas.
//
//------------------------------------------------------------------------------

package formdef

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Def represents one form definition loaded from YAML.
//
// The form is uniquely identified by ID, namespaced by component, e.g.
// "auth/register".  Fields declare what the gateway accepts; Transforms and
// Constants declare the canonical body forwarded upstream.
type Def struct {
	ID         string         `yaml:"id"`        // Component-scoped identifier.
	Title      string         `yaml:"title"`     // Display title, optional.
	Upstream   UpstreamDef    `yaml:"upstream"`  // Backend route.  Required.
	Fields     []FieldDef     `yaml:"fields"`    // Ordered field list.  Required.
	Transforms []TransformDef `yaml:"transform"` // Canonicalization steps.  May be empty.
	Constants  []ConstantDef  `yaml:"constants"` // Fixed body keys.  May be empty.
}

// UpstreamDef names the backend endpoint one canonical request targets.
type UpstreamDef struct {
	Method string `yaml:"method"` // Defaults to POST.
	Path   string `yaml:"path"`   // Must start with "/".
}

// FieldDef describes a single input field.  Validation metadata lives inline
// so the gateway enforces exactly what the declaration promises.
type FieldDef struct {
	Name      string   `yaml:"name"`      // Submission key.  Required.
	Label     string   `yaml:"label"`     // Human-readable label.  Required.
	Type      string   `yaml:"type"`      // text, email, password, number, date, select, radio, checkbox, textarea.
	Required  bool     `yaml:"required"`  // True if input is mandatory.
	MinLength int      `yaml:"minlength"` // ≥ 0, 0 means unset.
	MaxLength int      `yaml:"maxlength"` // ≥ 0, 0 means unset.
	Pattern   string   `yaml:"pattern"`   // Regex the full value must match.
	Options   []string `yaml:"options"`   // For select/radio.  Required there.
	Match     string   `yaml:"match"`     // Name of a peer field this one must equal.
	ErrorMsg  string   `yaml:"error"`     // Custom "required" message, optional.
}

// TransformDef declares one canonicalization step for a field.
//
// Op is one of lowercase, uppercase, trim, derive, or drop.  To renames the
// body key; it may accompany any op except drop, or stand alone with an
// empty op for a plain rename.
type TransformDef struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	To    string `yaml:"to"`
}

// ConstantDef injects a fixed key into every canonical body for this form.
type ConstantDef struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry maps form ID → *Def.  It is filled at boot and read per request;
// construct one with NewRegistry and pass it to the server explicitly.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Def
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Get returns a parsed Def by composite ID ("component/form").  The boolean
// is false when the ID is unknown.
func (r *Registry) Get(id string) (*Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// IDs returns every registered form ID in arbitrary order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for id := range r.defs {
		out = append(out, id)
	}
	return out
}

// add inserts or overrides a definition.  Caller must ensure it passed
// validation.
func (r *Registry) add(d *Def) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.ID] = d
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// Load parses one YAML file, validates its structure, and returns a
// populated Def.  It never touches any Registry.
func Load(path string) (*Def, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}

	var d Def
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}

	if err := validateDef(&d, path); err != nil {
		return nil, err
	}

	return &d, nil
}

// RegisterDir walks dir and loads every "*.yaml" into reg.  Nested
// directories are allowed; the form's ID, not its file path, is the lookup
// key.  A missing directory is an error so misconfiguration surfaces at
// boot, not on the first submission.
func (r *Registry) RegisterDir(dir string) error {
	if dir == "" {
		return errors.New("formdef: no forms directory provided")
	}

	loaded := 0
	err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".yaml") {
			return nil // skip non-YAML
		}

		d, err := Load(path)
		if err != nil {
			return err // fail fast so issues surface loudly.
		}
		if _, dup := r.Get(d.ID); dup {
			return fmt.Errorf("form %s: duplicate ID %q", path, d.ID)
		}
		r.add(d)
		loaded++
		return nil
	})
	if err != nil {
		return err
	}

	if loaded == 0 {
		return fmt.Errorf("formdef: no form definitions under %s", dir)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

var knownTypes = map[string]bool{
	"text": true, "textarea": true, "email": true, "password": true,
	"number": true, "date": true, "select": true, "radio": true,
	"checkbox": true,
}

var knownOps = map[string]bool{
	"": true, "lowercase": true, "uppercase": true, "trim": true,
	"derive": true, "drop": true,
}

// validateDef enforces structural rules that cannot be expressed via YAML
// tags alone.  It returns a descriptive error referencing the offending file.
func validateDef(d *Def, path string) error {
	if d.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", path)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("form definition %s: must declare 'fields'", path)
	}

	if d.Upstream.Method == "" {
		d.Upstream.Method = http.MethodPost
	}
	if !strings.HasPrefix(d.Upstream.Path, "/") {
		return fmt.Errorf("form %s: upstream path %q must start with '/'", path, d.Upstream.Path)
	}

	names := make(map[string]*FieldDef, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		if err := validateField(f, path); err != nil {
			return err
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name %q", path, f.Name)
		}
		names[f.Name] = f
	}

	// Cross-field references must point at declared fields.
	for i := range d.Fields {
		if m := d.Fields[i].Match; m != "" {
			if _, ok := names[m]; !ok {
				return fmt.Errorf("form %s: field %q matches undeclared field %q",
					path, d.Fields[i].Name, m)
			}
		}
	}

	for _, t := range d.Transforms {
		f, ok := names[t.Field]
		if !ok {
			return fmt.Errorf("form %s: transform targets undeclared field %q", path, t.Field)
		}
		if !knownOps[t.Op] {
			return fmt.Errorf("form %s: field %q: unknown transform op %q", path, t.Field, t.Op)
		}
		if t.Op == "drop" && t.To != "" {
			return fmt.Errorf("form %s: field %q: 'drop' cannot rename", path, t.Field)
		}
		// Derivation input must be bounded; an unbounded secret field is a
		// declaration mistake.
		if t.Op == "derive" && f.MaxLength == 0 {
			return fmt.Errorf("form %s: field %q: 'derive' requires maxlength", path, t.Field)
		}
	}

	for _, c := range d.Constants {
		if c.Key == "" {
			return fmt.Errorf("form %s: constant with empty key", path)
		}
	}

	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, path string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", path)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field %q missing 'label'", path, f.Name)
	}
	if !knownTypes[f.Type] {
		return fmt.Errorf("form %s: field %q has unknown type %q", path, f.Name, f.Type)
	}

	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field %q invalid regex pattern: %v", path, f.Name, err)
		}
	}

	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field %q minlength/maxlength cannot be negative", path, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field %q minlength greater than maxlength", path, f.Name)
	}

	if (f.Type == "select" || f.Type == "radio") && len(f.Options) == 0 {
		return fmt.Errorf("form %s: field %q of type %q needs 'options'", path, f.Name, f.Type)
	}

	return nil
}
