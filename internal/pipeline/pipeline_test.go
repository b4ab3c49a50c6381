// internal/pipeline/pipeline_test.go
//
// Unit-tests for the orchestrator with a fake Submitter, verifying the
// short-circuit contract: an invalid draft never reaches the network stage,
// and a valid draft reaches it exactly once with the canonical shape.

package pipeline

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
)

// fakeSubmitter records calls and returns a canned outcome.
type fakeSubmitter struct {
	calls   int
	lastReq CanonicalRequest
	outcome Outcome
}

func (f *fakeSubmitter) Submit(_ context.Context, req CanonicalRequest) Outcome {
	f.calls++
	f.lastReq = req
	return f.outcome
}

func registerPipeline(sub Submitter) *Pipeline {
	c := NewCollector([]FieldSpec{
		{Name: "username", Trim: true},
		{Name: "password"},
	})
	v := NewValidator([]FieldRules{
		{Field: "username", Required: true, Rules: []Rule{MinLen(3)}},
		{Field: "password", Required: true, Rules: []Rule{MinLen(10)}},
	})
	t := NewTransformer("POST", "/api/v1/register",
		[]FieldTransform{
			{Field: "username", Ops: []Op{Lowercase()}},
			{Field: "password", Ops: []Op{DeriveHMAC([]byte("pepper"))}},
		}, nil)
	return New(c, v, t, sub)
}

func TestRun_InvalidDraftShortCircuits(t *testing.T) {
	sub := &fakeSubmitter{outcome: Success(nil)}
	p := registerPipeline(sub)

	out := p.Run(context.Background(), url.Values{
		"username": {""},
		"password": {"short"},
	})

	if out.OK() || out.Kind() != KindValidationFailed {
		t.Fatalf("outcome = %s, want validation_failed", out.Kind())
	}
	if sub.calls != 0 {
		t.Fatalf("submitter invoked %d times on invalid draft", sub.calls)
	}

	errs := out.FieldErrors()
	if len(errs) != 2 {
		t.Fatalf("want 2 field errors, got %+v", errs)
	}
	if errs[0].Field != "username" || errs[0].Rule != "required" {
		t.Fatalf("first error = %+v, want username/required", errs[0])
	}
	if errs[1].Field != "password" || errs[1].Rule != "minlen" {
		t.Fatalf("second error = %+v, want password/minlen", errs[1])
	}
}

func TestRun_ValidDraftSubmitsOnce(t *testing.T) {
	sub := &fakeSubmitter{outcome: Success(json.RawMessage(`{"id":1}`))}
	p := registerPipeline(sub)

	out := p.Run(context.Background(), url.Values{
		"username": {"Alice"},
		"password": {"longenough1"},
	})

	if !out.OK() {
		t.Fatalf("outcome = %s (%s), want success", out.Kind(), out.Detail())
	}
	if sub.calls != 1 {
		t.Fatalf("submitter invoked %d times, want 1", sub.calls)
	}

	body := sub.lastReq.Body()
	if body["username"] != "alice" {
		t.Fatalf("username = %q, want lowercased alice", body["username"])
	}
	if got := body["password"]; got == "" || got == "longenough1" {
		t.Fatalf("password reached submitter underived: %q", got)
	}
}

func TestRun_PropagatesSubmitterFailure(t *testing.T) {
	sub := &fakeSubmitter{outcome: Failure(KindServerRejected, "duplicate")}
	p := registerPipeline(sub)

	out := p.Run(context.Background(), url.Values{
		"username": {"alice"},
		"password": {"longenough1"},
	})

	if out.Kind() != KindServerRejected || out.Detail() != "duplicate" {
		t.Fatalf("outcome = %s (%s), want server_rejected duplicate", out.Kind(), out.Detail())
	}
}

func TestRun_MissingRequiredNeverSubmits(t *testing.T) {
	for _, missing := range []string{"username", "password"} {
		sub := &fakeSubmitter{outcome: Success(nil)}
		p := registerPipeline(sub)

		raw := url.Values{
			"username": {"alice"},
			"password": {"longenough1"},
		}
		delete(raw, missing)

		out := p.Run(context.Background(), raw)
		if out.Kind() != KindValidationFailed {
			t.Fatalf("missing %s: outcome = %s, want validation_failed", missing, out.Kind())
		}
		if sub.calls != 0 {
			t.Fatalf("missing %s: submitter invoked", missing)
		}

		found := false
		for _, e := range out.FieldErrors() {
			if e.Field == missing && e.Rule == "required" {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing %s: no required error in %+v", missing, out.FieldErrors())
		}
	}
}
