// internal/formdef/definition_test.go
//
// Unit-tests for the YAML loader and the structural rules it enforces.
// Fixtures are written to t.TempDir so each case is hermetic.

package formdef

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const registerYAML = `
id: auth/register
title: Register
upstream:
  method: POST
  path: /api/v1/register
fields:
  - name: username
    label: Username
    type: text
    required: true
    minlength: 3
    maxlength: 32
  - name: email
    label: Email
    type: email
    required: true
    maxlength: 254
  - name: password
    label: Password
    type: password
    required: true
    minlength: 10
    maxlength: 64
  - name: confirm
    label: Confirm password
    type: password
    required: true
    match: password
  - name: plan
    label: Plan
    type: select
    options: [basic, pro]
transform:
  - field: username
    op: lowercase
  - field: password
    op: derive
    to: password_digest
  - field: confirm
    op: drop
constants:
  - key: client
    value: formgate
`

func writeYAML(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoad_ParsesCompleteDefinition(t *testing.T) {
	d, err := Load(writeYAML(t, "register.yaml", registerYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if d.ID != "auth/register" {
		t.Fatalf("ID = %q", d.ID)
	}
	if d.Upstream.Method != "POST" || d.Upstream.Path != "/api/v1/register" {
		t.Fatalf("upstream = %+v", d.Upstream)
	}
	if len(d.Fields) != 5 || d.Fields[0].Name != "username" {
		t.Fatalf("fields = %+v", d.Fields)
	}
	if len(d.Transforms) != 3 || d.Transforms[1].To != "password_digest" {
		t.Fatalf("transforms = %+v", d.Transforms)
	}
	if len(d.Constants) != 1 || d.Constants[0].Key != "client" {
		t.Fatalf("constants = %+v", d.Constants)
	}
}

func TestLoad_RejectsBrokenDefinitions(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string // substring of the expected error
	}{
		{
			name: "missing id",
			want: "missing required 'id'",
			yaml: `
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text}
`,
		},
		{
			name: "no fields",
			want: "must declare 'fields'",
			yaml: `
id: t/empty
upstream: {path: /x}
`,
		},
		{
			name: "relative upstream path",
			want: "must start with '/'",
			yaml: `
id: t/path
upstream: {path: x}
fields:
  - {name: a, label: A, type: text}
`,
		},
		{
			name: "duplicate field",
			want: "duplicate field name",
			yaml: `
id: t/dup
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text}
  - {name: a, label: B, type: text}
`,
		},
		{
			name: "bad regex",
			want: "invalid regex pattern",
			yaml: `
id: t/re
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text, pattern: "["}
`,
		},
		{
			name: "unknown type",
			want: "unknown type",
			yaml: `
id: t/type
upstream: {path: /x}
fields:
  - {name: a, label: A, type: carousel}
`,
		},
		{
			name: "select without options",
			want: "needs 'options'",
			yaml: `
id: t/sel
upstream: {path: /x}
fields:
  - {name: a, label: A, type: select}
`,
		},
		{
			name: "minlength above maxlength",
			want: "minlength greater than maxlength",
			yaml: `
id: t/len
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text, minlength: 9, maxlength: 3}
`,
		},
		{
			name: "match on undeclared field",
			want: "matches undeclared field",
			yaml: `
id: t/match
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text, match: ghost}
`,
		},
		{
			name: "transform on undeclared field",
			want: "targets undeclared field",
			yaml: `
id: t/tf
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text}
transform:
  - {field: ghost, op: lowercase}
`,
		},
		{
			name: "unknown transform op",
			want: "unknown transform op",
			yaml: `
id: t/op
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text}
transform:
  - {field: a, op: rot13}
`,
		},
		{
			name: "derive without maxlength",
			want: "'derive' requires maxlength",
			yaml: `
id: t/derive
upstream: {path: /x}
fields:
  - {name: a, label: A, type: password}
transform:
  - {field: a, op: derive}
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, "form.yaml", tc.yaml))
			if err == nil {
				t.Fatal("Load accepted a broken definition")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %q, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoad_DefaultsMethodToPOST(t *testing.T) {
	d, err := Load(writeYAML(t, "form.yaml", `
id: t/default
upstream: {path: /x}
fields:
  - {name: a, label: A, type: text}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Upstream.Method != "POST" {
		t.Fatalf("method = %q, want POST", d.Upstream.Method)
	}
}

func TestRegisterDir_WalksAndRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "auth")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "register.yaml"), []byte(registerYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	if err := reg.RegisterDir(dir); err != nil {
		t.Fatalf("RegisterDir: %v", err)
	}
	if _, ok := reg.Get("auth/register"); !ok {
		t.Fatal("registered form not found by ID")
	}

	// Same definition in a second registry walk of a dir that redeclares the
	// ID must fail loudly.
	if err := os.WriteFile(filepath.Join(dir, "copy.yaml"), []byte(registerYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewRegistry().RegisterDir(dir); err == nil || !strings.Contains(err.Error(), "duplicate ID") {
		t.Fatalf("duplicate ID not rejected: %v", err)
	}
}

func TestRegisterDir_EmptyDirFailsAtBoot(t *testing.T) {
	if err := NewRegistry().RegisterDir(t.TempDir()); err == nil {
		t.Fatal("empty forms directory accepted")
	}
}
