// internal/pipeline/submit_test.go
//
// Unit-tests for the HTTP submit stage using httptest.
//
// Covered mappings:
//
//   • 2xx                      → Success with response payload
//   • non-2xx with JSON reason → KindServerRejected carrying the reason
//   • refused connection       → KindTransport
//   • client timeout           → KindTransport
//   • context cancellation     → KindCancelled, never a hung outcome

package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// canonical builds a minimal valid CanonicalRequest for submit tests.
func canonical(t *testing.T) CanonicalRequest {
	t.Helper()
	vd := sealDraft(t,
		[]FieldSpec{{Name: "username"}},
		url.Values{"username": {"alice"}})
	return NewTransformer("POST", "/api/v1/register",
		[]FieldTransform{{Field: "username"}}, nil).Transform(vd)
}

func TestSubmit_SuccessOn200(t *testing.T) {
	var gotBody map[string]string
	var gotPath, gotMethod, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()

	sub := NewHTTPSubmitter(srv.URL, srv.Client(), http.Header{
		"Authorization": {"Bearer sekrit"},
	})

	out := sub.Submit(context.Background(), canonical(t))
	if !out.OK() {
		t.Fatalf("outcome = %s (%s), want success", out.Kind(), out.Detail())
	}
	if string(out.Payload()) != `{"id":42}` {
		t.Fatalf("payload = %s", out.Payload())
	}
	if gotMethod != "POST" || gotPath != "/api/v1/register" {
		t.Fatalf("upstream saw %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer sekrit" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody["username"] != "alice" {
		t.Fatalf("upstream body = %+v", gotBody)
	}
}

func TestSubmit_ServerRejectedCarriesReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"duplicate"}`))
	}))
	defer srv.Close()

	out := NewHTTPSubmitter(srv.URL, srv.Client(), nil).
		Submit(context.Background(), canonical(t))

	if out.OK() || out.Kind() != KindServerRejected {
		t.Fatalf("outcome = %s, want server_rejected", out.Kind())
	}
	if out.Detail() != "duplicate" {
		t.Fatalf("detail = %q, want duplicate", out.Detail())
	}
}

func TestSubmit_TransportErrorOnRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close() // nothing listening any more

	out := NewHTTPSubmitter(base, &http.Client{}, nil).
		Submit(context.Background(), canonical(t))

	if out.Kind() != KindTransport {
		t.Fatalf("outcome = %s (%s), want transport_error", out.Kind(), out.Detail())
	}
}

func TestSubmit_TransportErrorOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	out := NewHTTPSubmitter(srv.URL, client, nil).
		Submit(context.Background(), canonical(t))

	if out.Kind() != KindTransport {
		t.Fatalf("outcome = %s (%s), want transport_error", out.Kind(), out.Detail())
	}
}

func TestServerReason_TruncatesOnRuneBoundary(t *testing.T) {
	// 200 three-byte runes = 600 bytes; a byte-count cut at 512 would land
	// mid-rune (512 % 3 != 0) and tear the character.
	body := []byte(strings.Repeat("€", 200))

	got := serverReason(http.StatusBadGateway, body)

	if len(got) > maxReasonBytes {
		t.Fatalf("reason is %d bytes, cap is %d", len(got), maxReasonBytes)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("reason is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("€", 170); got != want {
		t.Fatalf("reason = %d bytes, want 170 whole runes (510 bytes)", len(got))
	}
}

func TestSubmit_CancelledMidFlight(t *testing.T) {
	inFlight := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect; otherwise r.Context() is never cancelled and
		// srv.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		close(inFlight)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-inFlight
		cancel()
	}()

	req := canonical(t)
	done := make(chan Outcome, 1)
	go func() {
		done <- NewHTTPSubmitter(srv.URL, srv.Client(), nil).Submit(ctx, req)
	}()

	select {
	case out := <-done:
		if out.Kind() != KindCancelled {
			t.Fatalf("outcome = %s (%s), want cancelled", out.Kind(), out.Detail())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("submit hung after cancellation")
	}
}
