// Package registry implements the per-process Subscription Registry
// (spec.md §4.5): a subject -> handler-list map, with a wildcard subject
// that receives every dispatched envelope. Grounded on the teacher's
// internal/broker.Topic (a name plus an ordered []*Connection of
// subscribers), collapsed from network subscriptions to in-process
// function handlers per spec.md §9's "callback-style subscription ->
// bounded-buffer channel plus dispatcher task" note.
package registry

import (
	"context"
	"log"
	"strconv"
	"sync"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/metrics"
)

// Wildcard is the special subject that receives every dispatched envelope
// (spec.md §4.5).
const Wildcard = "*"

// Metadata accompanies a dispatched envelope with fabric-observed facts
// the handler didn't put there itself (who sent it, was it verified).
type Metadata struct {
	FromAccountID string
	Verified      bool
}

// Handler processes one dispatched envelope. Handlers are plain functions,
// per spec.md §9 ("handlers are plain functions on the envelope type").
type Handler func(ctx context.Context, e *envelope.Envelope, meta Metadata)

// Registry is the append-only, per-process subscription map. Readers never
// block each other (spec.md §5); the only mutations are Subscribe and
// Teardown, guarded by a mutex exactly as the teacher guards its topicsMux.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Subscribe appends handler for subject. Duplicate subscriptions are
// allowed by caller discipline (spec.md §4.5) — the registry does not
// deduplicate.
func (r *Registry) Subscribe(subject string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[subject] = append(r.handlers[subject], handler)
}

// Dispatch calls subject-specific handlers first, then wildcard handlers.
// Each handler in a single Dispatch call runs sequentially — so their
// relative ordering is observable, per spec.md §5's open question resolved
// here as "sequential within one dispatch". A handler panic/error is
// caught and logged without affecting siblings (spec.md §4.5, §7
// HandlerError).
func (r *Registry) Dispatch(ctx context.Context, e *envelope.Envelope, meta Metadata) {
	r.mu.RLock()
	subjectHandlers := append([]Handler(nil), r.handlers[e.Subject]...)
	wildcardHandlers := append([]Handler(nil), r.handlers[Wildcard]...)
	r.mu.RUnlock()

	if len(subjectHandlers)+len(wildcardHandlers) > 0 {
		metrics.MessagesDispatched.WithLabelValues(strconv.FormatBool(meta.Verified)).Inc()
	}

	for _, h := range subjectHandlers {
		runHandler(ctx, h, e, meta)
	}
	for _, h := range wildcardHandlers {
		runHandler(ctx, h, e, meta)
	}
}

func runHandler(ctx context.Context, h Handler, e *envelope.Envelope, meta Metadata) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("registry: handler panic for subject %s: %v", e.Subject, r)
		}
	}()
	h(ctx, e, meta)
}

// Subjects returns the distinct subjects with at least one registered
// handler, used by FabricRuntime.ConnectionStatus (spec.md §6).
func (r *Registry) Subjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for subject := range r.handlers {
		out = append(out, subject)
	}
	return out
}

// Teardown clears the registry (spec.md §4.5 lifecycle).
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]Handler)
}
