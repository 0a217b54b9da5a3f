package command

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Handler executes one directive. The returned text becomes the value of
// that directive's report line. Returning an error drops the line and is
// logged; it never fails the dispatch. Handlers that want an error
// surfaced to the conversation should return it as text instead.
type Handler interface {
	Handle(ctx context.Context, inv Invocation) (string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv Invocation) (string, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, inv Invocation) (string, error) {
	return f(ctx, inv)
}

// MemorySurfacer is an optional Handler interface. Handlers whose output
// already contains stored memories implement it so the dispatcher can
// flag the turn and the caller skips its normal memory injection.
type MemorySurfacer interface {
	SurfacesMemory() bool
}

// Result is the outcome of dispatching one batch of invocations.
type Result struct {
	// Report holds the newline-joined "NAME: value" lines, one per
	// distinct invoked name, in first-seen order.
	Report string

	// SuppressMemoryInjection is set when a handler surfaced stored
	// memories directly, so per-turn recall should not repeat them.
	SuppressMemoryInjection bool
}

// Dispatcher routes parsed invocations to handlers registered by name.
// Names match case-sensitively. Unknown names are skipped silently,
// which keeps old dispatchers forward-compatible with directives they
// don't implement yet.
//
// Register all handlers before the first Dispatch; registration is not
// synchronized against concurrent dispatches.
type Dispatcher struct {
	handlers map[string]Handler
	log      zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger. The default discards logs.
func WithLogger(log zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a handler to a directive name, replacing any previous
// binding for that name.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Dispatch runs each invocation's handler in order and assembles the
// report. The per-call output map is keyed by name: a later invocation
// sharing a name overwrites the earlier value but keeps its position.
// Dispatch itself never fails; every handler problem degrades to a
// dropped or descriptive report line.
func (d *Dispatcher) Dispatch(ctx context.Context, invs []Invocation) Result {
	var res Result
	var order []string
	outputs := make(map[string]string)

	for _, inv := range invs {
		h, ok := d.handlers[inv.Name]
		if !ok {
			d.log.Debug().Str("command", inv.Name).Msg("no handler registered, skipping")
			continue
		}
		out, err := h.Handle(ctx, inv)
		if err != nil {
			d.log.Warn().Err(err).Str("command", inv.Name).Msg("handler failed")
			continue
		}
		if _, seen := outputs[inv.Name]; !seen {
			order = append(order, inv.Name)
		}
		outputs[inv.Name] = out
		if s, ok := h.(MemorySurfacer); ok && s.SurfacesMemory() {
			res.SuppressMemoryInjection = true
		}
	}

	lines := make([]string, 0, len(order))
	for _, name := range order {
		lines = append(lines, name+": "+outputs[name])
	}
	res.Report = strings.Join(lines, "\n")
	return res
}

// Process parses text and dispatches whatever directives it contains.
func (d *Dispatcher) Process(ctx context.Context, text string) Result {
	return d.Dispatch(ctx, Parse(text))
}
