// internal/pipeline/transform.go
//
// Formgate – Submission pipeline: transform stage.
//
// Context
//   The Transformer turns a ValidDraft into the CanonicalRequest the
//   upstream backend expects: normalized casing, renamed keys, injected
//   constants, and one-way secret derivation.  It accepts only a ValidDraft,
//   so it never re-validates, and it reads the draft without mutating it.
//
//   Every Op is total: given well-formed input it always produces a value,
//   never an error.  Secret derivation is a deterministic HMAC-SHA-256 over
//   the field value, keyed with an operator-supplied pepper.  The same input
//   and pepper always derive the same digest, which keeps the stage pure
//   while the raw secret never leaves the gateway.
//
//------------------------------------------------------------------------------

package pipeline

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Op rewrites one field value.  Ops are pure functions of their input.
type Op func(string) string

// Lowercase folds the value to lower case.
func Lowercase() Op { return strings.ToLower }

// Uppercase folds the value to upper case.
func Uppercase() Op { return strings.ToUpper }

// TrimSpace strips surrounding whitespace.
func TrimSpace() Op { return strings.TrimSpace }

// DeriveHMAC replaces the value with hex(HMAC-SHA-256(pepper, value)).
func DeriveHMAC(pepper []byte) Op {
	key := make([]byte, len(pepper))
	copy(key, pepper)
	return func(value string) string {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(value))
		return hex.EncodeToString(mac.Sum(nil))
	}
}

// FieldTransform describes the canonical fate of one draft field.
//
// Ops run in declaration order.  A non-empty To renames the field in the
// request body.  Drop removes the field from the body entirely, which is how
// confirmation boxes and other UI-only fields stay off the wire.
type FieldTransform struct {
	Field string
	To    string
	Drop  bool
	Ops   []Op
}

// Constant injects a fixed body key that has no draft counterpart, e.g. a
// client identifier the backend contract demands.
type Constant struct {
	Key   string
	Value string
}

// CanonicalRequest is the immutable, backend-ready form of one submission.
// It can only be produced by a Transformer from a ValidDraft; all fields are
// unexported and accessors return copies.
type CanonicalRequest struct {
	method string
	path   string
	body   map[string]string
}

// Method returns the HTTP method of the upstream exchange.
func (c CanonicalRequest) Method() string { return c.method }

// Path returns the upstream request path.
func (c CanonicalRequest) Path() string { return c.path }

// Body returns a copy of the canonical body map.
func (c CanonicalRequest) Body() map[string]string {
	out := make(map[string]string, len(c.body))
	for k, v := range c.body {
		out[k] = v
	}
	return out
}

// EncodeBody serializes the canonical body as JSON.  Map keys marshal in
// sorted order, so the wire form is deterministic.
func (c CanonicalRequest) EncodeBody() ([]byte, error) {
	return json.Marshal(c.body)
}

// Transformer builds CanonicalRequests for one upstream route.
type Transformer struct {
	method    string
	path      string
	fields    []FieldTransform
	constants []Constant
}

// NewTransformer builds a Transformer targeting method+path upstream.
func NewTransformer(method, path string, fields []FieldTransform, constants []Constant) *Transformer {
	f := make([]FieldTransform, len(fields))
	copy(f, fields)
	k := make([]Constant, len(constants))
	copy(k, constants)
	return &Transformer{method: method, path: path, fields: f, constants: k}
}

// Transform produces exactly one CanonicalRequest from a valid draft.  The
// draft is read, never written; absent optional fields are omitted from the
// body rather than sent as empty strings.
func (t *Transformer) Transform(vd ValidDraft) CanonicalRequest {
	body := make(map[string]string, len(t.fields)+len(t.constants))

	for _, ft := range t.fields {
		if ft.Drop {
			continue
		}
		raw, present := vd.Get(ft.Field)
		if !present || raw == "" {
			continue
		}
		for _, op := range ft.Ops {
			raw = op(raw)
		}
		key := ft.Field
		if ft.To != "" {
			key = ft.To
		}
		body[key] = raw
	}

	for _, k := range t.constants {
		body[k.Key] = k.Value
	}

	return CanonicalRequest{method: t.method, path: t.path, body: body}
}
