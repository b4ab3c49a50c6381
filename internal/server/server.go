// internal/server/server.go
//
// Formgate – HTTP surface.
//
// Context
//   The server is the upstream caller of the submission pipeline.  It owns
//   everything the pipeline deliberately does not: routing, logging,
//   metrics, journaling, and the mapping from Outcome to HTTP status.
//   Concurrency control for repeat submissions (disabling a submit button)
//   stays with the submitting client; the gateway treats every POST as one
//   independent pipeline run.
//
// Workflow
//   •  POST /forms/{component}/{form} parses the body, resolves the
//      compiled pipeline for the form ID, runs it with the request context,
//      and renders the Outcome as JSON.
//   •  Compiled pipelines are cached in an LRU keyed by form ID; cold
//      compiles collapse through singleflight so a popular form is compiled
//      once, not once per concurrent request.
//   •  GET /forms/{component}/{form}/journal serves recent journal rows to
//      operators when the journal is enabled.
//
//------------------------------------------------------------------------------

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/formgate/internal/cache"
	"github.com/yanizio/formgate/internal/formdef"
	"github.com/yanizio/formgate/internal/journal"
	"github.com/yanizio/formgate/internal/metrics"
	"github.com/yanizio/formgate/internal/pipeline"
	"github.com/yanizio/formgate/internal/requestinfo"
)

// pipelineCacheSize bounds the compiled-pipeline LRU.  Deployments rarely
// exceed a few hundred forms; evicted entries simply recompile.
const pipelineCacheSize = 512

// Server carries the wiring for the HTTP surface.  Construct with New.
type Server struct {
	registry  *formdef.Registry
	submitter pipeline.Submitter
	pepper    []byte
	store     *journal.Store // nil when the journal is disabled
	geo       *requestinfo.DB
	log       *zap.SugaredLogger

	pipes *cache.LRU[string, *pipeline.Pipeline]
	sf    singleflight.Group
}

// New wires a Server.  store may be nil (journal disabled); geo may be a
// lookup-disabled handle.
func New(reg *formdef.Registry, sub pipeline.Submitter, pepper []byte,
	store *journal.Store, geo *requestinfo.DB, log *zap.SugaredLogger) *Server {
	return &Server{
		registry:  reg,
		submitter: sub,
		pepper:    pepper,
		store:     store,
		geo:       geo,
		log:       log,
		pipes:     cache.New[string, *pipeline.Pipeline](pipelineCacheSize),
	}
}

// Router builds the chi router: submission routes, operator journal route,
// health, and Prometheus metrics.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich(s.geo))

	r.Post("/forms/{component}/{form}", s.handleSubmit)
	r.Get("/forms/{component}/{form}/journal", s.handleJournal)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

/*──────────────────────────── submission path ──────────────────────────────*/

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "component") + "/" + chi.URLParam(r, "form")

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok": false, "kind": "bad_request", "detail": "malformed form body",
		})
		return
	}

	p, err := s.pipelineFor(formID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	start := time.Now()
	out := p.Run(r.Context(), r.PostForm)
	elapsed := time.Since(start)

	s.observe(r, formID, out, elapsed)
	writeOutcome(w, out)
}

// pipelineFor returns the compiled pipeline for formID, compiling and
// caching on first use.  Concurrent cold lookups collapse to one compile.
func (s *Server) pipelineFor(formID string) (*pipeline.Pipeline, error) {
	if p, ok := s.pipes.Get(formID); ok {
		return p, nil
	}

	v, err, _ := s.sf.Do(formID, func() (any, error) {
		if p, ok := s.pipes.Get(formID); ok {
			return p, nil
		}

		def, ok := s.registry.Get(formID)
		if !ok {
			return nil, fmt.Errorf("unknown form %q", formID)
		}
		p, err := formdef.Compile(def, s.submitter, s.pepper)
		if err != nil {
			return nil, err
		}

		metrics.PipelineCompileTotal.Inc()
		s.pipes.Add(formID, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pipeline.Pipeline), nil
}

// observe records metrics and, when enabled, one journal row.  Journal
// failures are logged and swallowed; the submitter's response is already
// decided.
func (s *Server) observe(r *http.Request, formID string, out pipeline.Outcome, elapsed time.Duration) {
	outcome := "success"
	detail := ""
	if !out.OK() {
		outcome = out.Kind().String()
		detail = out.Detail()
	}

	metrics.SubmissionsTotal.WithLabelValues(formID, outcome).Inc()
	metrics.SubmissionDuration.Observe(elapsed.Seconds())

	if s.store == nil {
		return
	}

	e := journal.Entry{
		FormID:     formID,
		Outcome:    outcome,
		Detail:     detail,
		DurationMS: elapsed.Milliseconds(),
	}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		e.Browser = info.UA.Browser
		e.OS = info.UA.OS
		e.Device = info.UA.Device
		e.Country = info.Geo.CountryISO
	}

	// The request context may already be cancelled (KindCancelled); journal
	// with a detached context so the row still lands.
	ctx, cancel := journalContext()
	defer cancel()
	if err := s.store.Record(ctx, e); err != nil {
		metrics.JournalErrorsTotal.Inc()
		s.log.Errorw("journal insert failed", "form", formID, "err", err)
	}
}

// journalContext detaches the journal write from the request lifetime while
// still bounding it.
func journalContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

/*──────────────────────────── operator path ────────────────────────────────*/

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}

	formID := chi.URLParam(r, "component") + "/" + chi.URLParam(r, "form")
	if _, ok := s.registry.Get(formID); !ok {
		http.NotFound(w, r)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := s.store.RecentByForm(r.Context(), formID, limit)
	if err != nil {
		s.log.Errorw("journal query failed", "form", formID, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

/*──────────────────────────── rendering helpers ────────────────────────────*/

// statusFor maps a terminal Outcome onto an HTTP status.  499 follows the
// nginx convention for client-closed requests.
func statusFor(out pipeline.Outcome) int {
	switch {
	case out.OK():
		return http.StatusOK
	case out.Kind() == pipeline.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case out.Kind() == pipeline.KindCancelled:
		return 499
	default: // transport, server rejected
		return http.StatusBadGateway
	}
}

func writeOutcome(w http.ResponseWriter, out pipeline.Outcome) {
	if out.OK() {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"payload": out.Payload(),
		})
		return
	}

	body := map[string]any{
		"ok":   false,
		"kind": out.Kind().String(),
	}
	if errs := out.FieldErrors(); len(errs) > 0 {
		body["errors"] = errs
	} else {
		body["detail"] = out.Detail()
	}
	writeJSON(w, statusFor(out), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
