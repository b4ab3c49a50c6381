// internal/vault/vault_test.go
//
// Unit-tests for the pure helpers: reference detection and parsing, mount
// splitting, and the renewability guard.  Network paths need a live Vault
// and are exercised in integration environments instead.

package vault

import (
	"context"
	"strings"
	"testing"

	vault "github.com/hashicorp/vault/api"
)

func TestIsRef(t *testing.T) {
	if !IsRef("vault:secret/formgate#pepper") {
		t.Fatal("vault reference not recognized")
	}
	if IsRef("plain-value") || IsRef("") {
		t.Fatal("plain value misread as reference")
	}
}

func TestResolve_PlainValuePassesThrough(t *testing.T) {
	// A plain value never touches the API, so a zero client suffices.
	c := &Client{}
	got, err := c.Resolve(context.Background(), "plain-pepper")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "plain-pepper" {
		t.Fatalf("got %q, want value unchanged", got)
	}
}

func TestResolve_RejectsMalformedReference(t *testing.T) {
	c := &Client{}
	for _, ref := range []string{
		"vault:no-key-part",
		"vault:#key-only",
		"vault:path#",
	} {
		if _, err := c.Resolve(context.Background(), ref); err == nil {
			t.Fatalf("malformed reference %q accepted", ref)
		} else if !strings.Contains(err.Error(), "malformed vault reference") {
			t.Fatalf("reference %q: unexpected error %v", ref, err)
		}
	}
}

func TestSplitMount(t *testing.T) {
	if m, rel := splitMount("secret/formgate/keys"); m != "secret" || rel != "formgate/keys" {
		t.Fatalf("splitMount = %q, %q", m, rel)
	}
	if m, rel := splitMount("secret"); m != "secret" || rel != "" {
		t.Fatalf("splitMount = %q, %q", m, rel)
	}
}

func TestRenewable_GuardsNilAuth(t *testing.T) {
	if renewable(nil) {
		t.Fatal("nil secret reported renewable")
	}
	if renewable(&vault.Secret{}) {
		t.Fatal("secret without auth reported renewable")
	}
	if renewable(&vault.Secret{Auth: &vault.SecretAuth{}}) {
		t.Fatal("non-renewable token reported renewable")
	}
	if !renewable(&vault.Secret{Auth: &vault.SecretAuth{Renewable: true}}) {
		t.Fatal("renewable token not recognized")
	}
}
