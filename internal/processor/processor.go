// Package processor drains the interpretation queue: it leases entries,
// renders their templates and hands the output to the delivery collaborator.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aims/internal/store"
	"aims/internal/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds processing limits and backoff policy.
type Config struct {
	BatchSize   int
	Concurrency int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Result counts the outcomes of one drain pass.
type Result struct {
	Processed    int
	Failed       int
	DeadLettered int
	Reclaimed    int64
}

// Processor runs the drain algorithm against the store.
type Processor struct {
	events    store.EventStore
	queue     store.Queue
	templates store.TemplateCatalog
	deliverer Deliverer
	config    Config
	log       *slog.Logger
	now       func() time.Time

	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// New creates a Processor. Zero config fields fall back to safe defaults.
func New(events store.EventStore, queue store.Queue, templates store.TemplateCatalog, deliverer Deliverer, config Config, log *slog.Logger) *Processor {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = DefaultBackoffBase
	}
	if config.BackoffCap <= 0 {
		config.BackoffCap = DefaultBackoffCap
	}
	if log == nil {
		log = slog.Default()
	}

	meter := otel.Meter("aims-processor")
	outcomes, err := meter.Int64Counter("aims.processor.entries",
		metric.WithDescription("Queue entries processed, by outcome"))
	if err != nil {
		log.Warn("failed to register processor metric", "error", err)
	}

	return &Processor{
		events:    events,
		queue:     queue,
		templates: templates,
		deliverer: deliverer,
		config:    config,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		tracer:    otel.Tracer("aims-processor"),
		outcomes:  outcomes,
	}
}

type outcome int

const (
	outcomeAcked outcome = iota
	outcomeRetried
	outcomeDeadLettered
)

// Drain runs one processing pass: reclaim lapsed leases, lease a batch and
// process each entry. A single entry's failure never aborts the pass.
// Cancellation is honored between entries, never mid-entry.
func (p *Processor) Drain(ctx context.Context) (Result, error) {
	var result Result

	reclaimed, err := p.queue.ReclaimExpired(ctx, p.now())
	if err != nil {
		p.log.Error("lease reclamation failed", "error", err)
	} else if reclaimed > 0 {
		p.log.Info("reclaimed expired leases", "count", reclaimed)
	}
	result.Reclaimed = reclaimed

	entries, err := p.queue.LeaseBatch(ctx, p.config.BatchSize, p.now())
	if err != nil {
		return result, fmt.Errorf("lease batch failed: %w", err)
	}
	if len(entries) == 0 {
		return result, nil
	}

	p.log.Info("draining queue", "leased", len(entries))

	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, entry := range entries {
		if ctx.Err() != nil {
			// Stop dispatching; leased entries not yet started fall back
			// to lease-expiry reclamation.
			p.log.Warn("drain cancelled, abandoning remaining entries")
			wg.Wait()
			return result, ctx.Err()
		}
		select {
		case <-ctx.Done():
			p.log.Warn("drain cancelled, abandoning remaining entries")
			wg.Wait()
			return result, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(entry store.QueueEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			out := p.processEntry(ctx, entry)

			mu.Lock()
			switch out {
			case outcomeAcked:
				result.Processed++
			case outcomeRetried:
				result.Failed++
			case outcomeDeadLettered:
				result.DeadLettered++
			}
			mu.Unlock()
		}(entry)
	}

	wg.Wait()
	return result, nil
}

// processEntry resolves, renders and delivers a single leased entry and
// records its terminal or retry state. It never panics the batch: all
// errors collapse to an outcome.
func (p *Processor) processEntry(ctx context.Context, entry store.QueueEntry) outcome {
	ctx, span := p.tracer.Start(ctx, "processor.entry",
		trace.WithAttributes(
			attribute.String("entry.id", entry.ID.String()),
			attribute.Int("entry.attempt", entry.Attempt),
		))
	defer span.End()

	log := p.log.With("entry_id", entry.ID, "event_id", entry.EventID, "attempt", entry.Attempt)

	ev, err := p.events.GetEvent(ctx, entry.EventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return p.deadLetter(ctx, entry, log, fmt.Sprintf("event %s not found", entry.EventID))
		}
		return p.retry(ctx, entry, log, fmt.Sprintf("event lookup failed: %v", err))
	}

	tmpl, err := p.resolveTemplate(ctx, ev)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return p.deadLetter(ctx, entry, log, fmt.Sprintf("no template for event type %q", ev.Type))
		}
		return p.retry(ctx, entry, log, fmt.Sprintf("template resolve failed: %v", err))
	}

	rendered, err := template.Render(tmpl, p.buildVariables(ev))
	if err != nil {
		var missing *template.MissingVariableError
		if errors.As(err, &missing) {
			return p.deadLetter(ctx, entry, log, missing.Error())
		}
		return p.retry(ctx, entry, log, fmt.Sprintf("render failed: %v", err))
	}

	err = p.deliverer.Deliver(ctx, Delivery{
		EventID:         ev.ID,
		EventType:       ev.Type,
		Subject:         ev.Subject,
		TemplateKey:     tmpl.Key,
		TemplateVersion: tmpl.Version,
		Output:          rendered,
	})
	if err != nil {
		var devErr *DeliveryError
		if errors.As(err, &devErr) && devErr.Permanent {
			return p.deadLetter(ctx, entry, log, err.Error())
		}
		// Unclassified failures are treated as transient up to the
		// attempt ceiling so no event is silently lost.
		return p.retry(ctx, entry, log, err.Error())
	}

	if err := p.queue.Ack(ctx, entry.ID); err != nil {
		log.Error("ack failed", "error", err)
		return p.retry(ctx, entry, log, fmt.Sprintf("ack failed: %v", err))
	}
	if err := p.events.Transition(ctx, ev.ID, store.EventStateProcessing, store.EventStateDone, ""); err != nil {
		// The entry is acked; a racing transition is not worth a retry.
		log.Warn("event transition to done failed", "error", err)
	}

	log.Info("entry processed", "template", tmpl.Key, "version", tmpl.Version)
	p.count(ctx, "processed")
	return outcomeAcked
}

// resolveTemplate selects the template for an event's type, honoring an
// explicit version pin in the payload.
func (p *Processor) resolveTemplate(ctx context.Context, ev *store.Event) (*store.Template, error) {
	if pin, ok := ev.Payload["_template_version"]; ok {
		if version, ok := pin.(float64); ok && version > 0 {
			return p.templates.ResolveVersion(ctx, ev.Type, int(version))
		}
	}
	return p.templates.Resolve(ctx, ev.Type)
}

// buildVariables merges the event payload with builtin context variables.
func (p *Processor) buildVariables(ev *store.Event) map[string]any {
	now := p.now()
	vars := make(map[string]any, len(ev.Payload)+3)
	for k, v := range ev.Payload {
		vars[k] = v
	}
	vars["subject"] = ev.Subject
	vars["today"] = now.Format("2006-01-02")
	vars["timestamp"] = now.Format(time.RFC3339)
	return vars
}

func (p *Processor) retry(ctx context.Context, entry store.QueueEntry, log *slog.Logger, reason string) outcome {
	delay := Backoff(p.config.BackoffBase, p.config.BackoffCap, entry.Attempt)
	log.Warn("entry failed, scheduling retry", "reason", reason, "delay", delay)

	deadLettered, err := p.queue.Retry(ctx, entry.ID, delay, reason)
	if err != nil {
		log.Error("retry scheduling failed", "error", err)
	}
	if deadLettered {
		log.Error("attempt ceiling reached, entry dead-lettered", "reason", reason)
		p.count(ctx, "dead_lettered")
		return outcomeDeadLettered
	}
	p.count(ctx, "failed")
	return outcomeRetried
}

func (p *Processor) deadLetter(ctx context.Context, entry store.QueueEntry, log *slog.Logger, reason string) outcome {
	log.Error("entry dead-lettered", "reason", reason)

	if err := p.queue.DeadLetter(ctx, entry.ID, reason); err != nil {
		log.Error("dead-letter failed", "error", err)
	}
	p.count(ctx, "dead_lettered")
	return outcomeDeadLettered
}

func (p *Processor) count(ctx context.Context, outcome string) {
	if p.outcomes == nil {
		return
	}
	p.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
