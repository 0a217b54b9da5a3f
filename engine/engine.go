// Package engine runs the conversation loop: each turn parses in-band
// directives from the user text, enriches the system prompt with
// recalled and recent memories plus directive results, calls the model,
// and processes directives the model emitted in its reply.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/memoirplus/memoir-go/command"
	"github.com/memoirplus/memoir-go/memory"
)

const (
	defaultModel        = "claude-sonnet-4-20250514"
	defaultMaxTokens    = 4096
	defaultRecentWindow = 24 * time.Hour
)

// DefaultSystemPrompt teaches the model the directive syntax so it can
// drive fetching, loading and memory itself.
const DefaultSystemPrompt = `You can embed directives in square brackets anywhere in your reply:
[GET_URL=<url>|<mode>] fetches a web page (mode: output, links or raw),
[FILE_LOAD=<path-or-url>] loads a file, directory or page into memory,
[REVIEW_RAG=<query>] retrieves stored memories matching the query,
[INSERT_RAG=<title>,<text>] stores a fact for later.
Directive results are returned to you in the next system prompt.`

// MemoryStore is the slice of the memory API the engine uses. A nil
// store disables memory enrichment and recording.
type MemoryStore interface {
	Store(ctx context.Context, rec memory.Record) error
	Recall(ctx context.Context, query string) ([]string, error)
	RecentSince(ctx context.Context, window time.Duration) []string
}

// Engine drives one conversation turn at a time. It is stateless across
// turns; callers carry the history.
type Engine struct {
	client       *anthropic.Client
	dispatcher   *command.Dispatcher
	store        MemoryStore
	recentWindow time.Duration
	log          zerolog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithMemory enables memory enrichment and exchange recording.
func WithMemory(store MemoryStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithRecentWindow sets how far back the recent-memory block reaches.
func WithRecentWindow(window time.Duration) Option {
	return func(e *Engine) {
		if window > 0 {
			e.recentWindow = window
		}
	}
}

// WithLogger sets the engine's logger. The default discards logs.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an engine. dispatcher may be nil to disable directive
// handling entirely.
func New(client *anthropic.Client, dispatcher *command.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		client:       client,
		dispatcher:   dispatcher,
		recentWindow: defaultRecentWindow,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one conversation turn.
type Input struct {
	// UserMessage is the user's message to process.
	UserMessage string

	// History contains previous messages in the conversation.
	History []anthropic.MessageParam

	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string

	// Model is the model to use.
	Model string

	// MaxTokens is the maximum response tokens.
	MaxTokens int64

	// StreamCallback receives text chunks as they arrive; done is set on
	// the final call. Nil disables streaming.
	StreamCallback func(chunk string, done bool)
}

// Output is the result of one turn.
type Output struct {
	// Text is the assistant's reply, including any directive report the
	// reply triggered.
	Text string

	// CommandReport holds the results of directives found in the user's
	// message, already injected into the model's system prompt.
	CommandReport string

	// TurnID uniquely identifies this turn in logs.
	TurnID string
}

// ProcessTurn runs one full turn.
func (e *Engine) ProcessTurn(ctx context.Context, input *Input) (*Output, error) {
	turnID := uuid.NewString()
	log := e.log.With().Str("turn_id", turnID).Logger()

	// Directives in the user's message run before the model sees it.
	var userResult command.Result
	if e.dispatcher != nil {
		userResult = e.dispatcher.Process(ctx, input.UserMessage)
		if userResult.Report != "" {
			log.Debug().Str("report", userResult.Report).Msg("user directives dispatched")
		}
	}

	systemPrompt := input.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if block := e.memoryBlock(ctx, input.UserMessage, userResult.SuppressMemoryInjection); block != "" {
		systemPrompt += "\n\n" + block
	}
	if userResult.Report != "" {
		systemPrompt += "\n\nCommand results:\n" + userResult.Report
	}

	model := input.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := input.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := append([]anthropic.MessageParam{}, input.History...)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(input.UserMessage)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}

	var resp *anthropic.Message
	var err error
	if input.StreamCallback != nil {
		resp, err = e.createMessageStreaming(ctx, params, input.StreamCallback)
	} else {
		resp, err = e.client.Messages.New(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	reply := text.String()

	// The model may emit directives of its own; their report is appended
	// to the reply so the caller sees what happened.
	if e.dispatcher != nil {
		assistantResult := e.dispatcher.Process(ctx, reply)
		if assistantResult.Report != "" {
			reply += "\n\n" + assistantResult.Report
		}
	}

	e.recordExchange(ctx, input.UserMessage, log)

	return &Output{
		Text:          reply,
		CommandReport: userResult.Report,
		TurnID:        turnID,
	}, nil
}

// memoryBlock assembles the recalled and recent memory sections for the
// system prompt. Suppressed when a directive already surfaced memories
// this turn.
func (e *Engine) memoryBlock(ctx context.Context, userMessage string, suppress bool) string {
	if e.store == nil || suppress || userMessage == "" {
		return ""
	}

	var sections []string
	recalled, err := e.store.Recall(ctx, userMessage)
	if err != nil {
		e.log.Warn().Err(err).Msg("memory recall failed")
	} else if len(recalled) > 0 {
		sections = append(sections, "Relevant memories:\n"+strings.Join(recalled, "\n"))
	}

	if recent := e.store.RecentSince(ctx, e.recentWindow); len(recent) > 0 {
		sections = append(sections, "Recent memories:\n"+strings.Join(recent, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// recordExchange persists the user's message so later turns can recall
// it. Failures are logged, never surfaced; losing one memory is better
// than failing the turn.
func (e *Engine) recordExchange(ctx context.Context, userMessage string, log zerolog.Logger) {
	if e.store == nil || userMessage == "" {
		return
	}
	rec := memory.Record{
		Text:      userMessage,
		Timestamp: time.Now().UTC(),
	}
	if err := e.store.Store(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("recording exchange failed")
	}
}

// createMessageStreaming runs the request as a stream, forwarding text
// deltas to callback while accumulating the full message.
func (e *Engine) createMessageStreaming(ctx context.Context, params anthropic.MessageNewParams, callback func(string, bool)) (*anthropic.Message, error) {
	stream := e.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			e.log.Debug().Err(err).Msg("stream accumulate")
		}
		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := evt.Delta.AsAny().(anthropic.TextDelta); ok {
				callback(delta.Text, false)
			}
		case anthropic.MessageStopEvent:
			callback("", true)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &message, nil
}
