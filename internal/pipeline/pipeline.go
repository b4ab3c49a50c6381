// internal/pipeline/pipeline.go
//
// Formgate – Submission pipeline: orchestrator.
//
// Context
//   Run is the one place that knows the stage order: Collector → Validator →
//   Transformer → Submitter.  A draft that fails validation short-circuits
//   to a typed Outcome without touching the later stages; the Submitter is
//   therefore never invoked with anything but a CanonicalRequest built from
//   a valid draft.  Each stage is injected at construction so tests can
//   swap in fakes, and a Pipeline holds no per-run state: concurrent runs
//   each own their Draft and CanonicalRequest.
//
//   The pipeline itself does not log, retry, or serialize callers.  Those
//   are collaborator concerns.
//
//------------------------------------------------------------------------------

package pipeline

import (
	"context"
	"net/url"
)

// Pipeline sequences the four submission stages.
type Pipeline struct {
	collector   *Collector
	validator   *Validator
	transformer *Transformer
	submitter   Submitter
}

// New wires a Pipeline from its stages.  All four are required.
func New(c *Collector, v *Validator, t *Transformer, s Submitter) *Pipeline {
	return &Pipeline{collector: c, validator: v, transformer: t, submitter: s}
}

// Run executes one submission attempt over raw posted input and returns its
// terminal Outcome.  Invalid input returns Invalid(errors) immediately; the
// Transformer and Submitter are not invoked.
func (p *Pipeline) Run(ctx context.Context, raw url.Values) Outcome {
	draft := p.collector.Collect(raw)

	res := p.validator.Validate(draft)
	vd, ok := res.Valid()
	if !ok {
		return Invalid(res.Errors())
	}

	req := p.transformer.Transform(vd)

	return p.submitter.Submit(ctx, req)
}
