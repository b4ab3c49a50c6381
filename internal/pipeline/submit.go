// internal/pipeline/submit.go
//
// Formgate – Submission pipeline: submit stage.
//
// Context
//   The Submitter performs exactly one network exchange per call and maps
//   the raw result into a typed Outcome.  It never retries; wrapping a
//   Submitter with a retry policy is the caller's business.  The exchange is
//   the pipeline's only suspension point, so it must honor context
//   cancellation and map an abort to KindCancelled rather than leave the
//   caller hanging.
//
// Workflow
//   •  Build one request from the CanonicalRequest's method, path, and JSON
//      body, against the configured base URL.
//   •  client.Do errors: cancellation → KindCancelled, everything else
//      (timeout, refused, DNS) → KindTransport.
//   •  2xx → Success with the response body as payload.
//   •  Any other status → KindServerRejected carrying the server's reason.
//
//------------------------------------------------------------------------------

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Submitter performs the network exchange for one canonical request.
type Submitter interface {
	Submit(ctx context.Context, req CanonicalRequest) Outcome
}

// Doer is the slice of http.Client the HTTPSubmitter needs.  Tests inject a
// fake; production passes a *http.Client with a sane timeout.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPSubmitter posts canonical requests to an upstream base URL.
type HTTPSubmitter struct {
	base   string
	client Doer
	header http.Header
}

// maxReasonBytes caps how much of an upstream error body is carried into an
// Outcome detail.
const maxReasonBytes = 512

// NewHTTPSubmitter builds a Submitter against base (scheme://host[/prefix]).
// Extra headers, e.g. an Authorization bearer, are sent on every exchange.
func NewHTTPSubmitter(base string, client Doer, header http.Header) *HTTPSubmitter {
	return &HTTPSubmitter{
		base:   strings.TrimRight(base, "/"),
		client: client,
		header: header,
	}
}

// Submit performs the single upstream exchange for req.
func (s *HTTPSubmitter) Submit(ctx context.Context, req CanonicalRequest) Outcome {
	body, err := req.EncodeBody()
	if err != nil {
		// Unreachable for string-valued bodies; kept so a future body type
		// cannot silently send garbage.
		return Failure(KindTransport, fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), s.base+req.Path(), bytes.NewReader(body))
	if err != nil {
		return Failure(KindTransport, fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range s.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if cancelled(ctx, err) {
			return Failure(KindCancelled, "submission cancelled")
		}
		return Failure(KindTransport, err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if cancelled(ctx, err) {
			return Failure(KindCancelled, "submission cancelled")
		}
		return Failure(KindTransport, fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Success(json.RawMessage(payload))
	}
	return Failure(KindServerRejected, serverReason(resp.StatusCode, payload))
}

// cancelled reports whether err stems from the caller aborting the exchange.
// http.Client wraps the context error inside *url.Error, so check both the
// chain and the context itself.
func cancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled
}

// serverReason extracts a short human-readable reason from an upstream error
// response.  A JSON body with an "error" or "message" key wins; otherwise
// the trimmed body text, falling back to the bare status.
func serverReason(status int, body []byte) string {
	var probe struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err == nil {
		if probe.Error != "" {
			return probe.Error
		}
		if probe.Message != "" {
			return probe.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if text != "" && utf8.ValidString(text) {
		if len(text) > maxReasonBytes {
			// Back off to a rune boundary so the cut never yields a torn
			// multi-byte character.
			cut := maxReasonBytes
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		return text
	}
	return fmt.Sprintf("upstream status %d", status)
}
