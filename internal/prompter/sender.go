// Package prompter implements the structured response acquisition protocol:
// it sends a persona-prefixed conversation to the model, validates the
// structured payload that comes back, and retries with corrective guidance
// until the payload conforms or the attempt budget is exhausted.
package prompter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/schema"
)

// Persona is the fixed system role prepended to every top-level call.
const Persona = "You are a compliance auditor for ISO 26262 and Automotive SPICE (ASPICE) " +
	"in software and hardware development in an automotive company, advising on how to " +
	"fulfill the standards necessary for developing a new system."

// ChatClient is the remote chat completion boundary.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.Reply, error)
}

// Archiver records exchanged messages into a category bucket.
type Archiver interface {
	Append(cat schema.Category, role, content string) error
}

var (
	// ErrMalformedMessage reports a caller message missing role or content.
	// It is raised before any network call.
	ErrMalformedMessage = errors.New("message must carry both role and content")

	// ErrNoResponse reports an unconstrained call that yielded no text.
	ErrNoResponse = errors.New("model returned no content")
)

// ExhaustedError is terminal: every attempt failed validation. The caller
// must abandon the unit of work; there is no partial result to fall back on.
type ExhaustedError struct {
	Schema     string
	Attempts   int
	LastReason string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no valid %s payload after %d attempts: %s", e.Schema, e.Attempts, e.LastReason)
}

// Options configures a Sender. MaxTries is the number of corrective retries
// after the initial attempt; zero means a single attempt.
type Options struct {
	Model       string
	Temperature float64
	MaxTries    int
}

// Sender issues schema-constrained (or free-text) prompts. All calls are
// sequential and blocking; retries follow immediately with no backoff, and
// only validation failures are retried — transport errors surface as-is.
type Sender struct {
	client  ChatClient
	archive Archiver
	opts    Options
	logger  *slog.Logger
}

// New creates a Sender. archive may be nil to disable transcript recording.
func New(client ChatClient, archive Archiver, opts Options) *Sender {
	if opts.MaxTries < 0 {
		opts.MaxTries = 0
	}
	return &Sender{
		client:  client,
		archive: archive,
		opts:    opts,
		logger:  slog.Default(),
	}
}

// Result is the outcome of a successful Send. Value holds the typed payload
// for schema-constrained calls; NoInfo marks the no-information alternative
// of extraction schemas; Raw is the payload text (or the free-text reply).
type Result struct {
	Value  schema.Validator
	NoInfo bool
	Raw    string
}

// Send dispatches messages to the model, prefixed with the persona message.
//
// With a descriptor, Send either returns a validated Result or fails
// terminally — it never returns an unvalidated payload. Without one, the
// first reply's text is returned as-is. The caller's slice is not modified.
func (s *Sender) Send(ctx context.Context, messages []llm.Message, desc *schema.Descriptor) (Result, error) {
	for i, m := range messages {
		if m.Role == "" || m.Content == "" {
			return Result{}, fmt.Errorf("message %d: %w", i, ErrMalformedMessage)
		}
	}

	cat := schema.CategoryUnclassified
	if desc != nil {
		cat = desc.Category
	}

	convo := make([]llm.Message, 0, len(messages)+1)
	convo = append(convo, llm.Message{Role: llm.RoleSystem, Content: Persona})
	convo = append(convo, messages...)

	var tools []llm.Tool
	if desc != nil {
		tools = append(tools, toolFor(desc))
		if desc.Extraction {
			tools = append(tools, toolFor(schema.NoInfoDescriptor(desc.Category)))
		}
	}

	for _, m := range messages {
		s.append(cat, m.Role, m.Content)
	}

	reply, err := s.call(ctx, convo, tools)
	if err != nil {
		return Result{}, err
	}

	if desc == nil {
		if reply.Content == "" {
			return Result{}, ErrNoResponse
		}
		s.append(cat, llm.RoleSystem, reply.Content)
		return Result{Raw: reply.Content}, nil
	}

	res, reason := s.validate(reply, desc)
	if reason == "" {
		s.recordResult(cat, res)
		return res, nil
	}
	s.append(cat, llm.RoleAssistant, replyDump(reply))

	lastReason := reason
	for attempt := 1; attempt <= s.opts.MaxTries; attempt++ {
		// The previous raw output is quoted back only after the very
		// first attempt; later retries repeat the schema alone.
		guidance := buildGuidance(desc, reply, attempt == 1)
		convo = append(convo, llm.Message{Role: llm.RoleSystem, Content: guidance})
		s.append(cat, llm.RoleSystem, guidance)

		s.logger.Warn("structured output did not validate, retrying",
			"schema", desc.Name, "attempt", attempt, "reason", lastReason)

		reply, err = s.call(ctx, convo, tools)
		if err != nil {
			return Result{}, err
		}

		res, reason = s.validate(reply, desc)
		if reason == "" {
			s.recordResult(cat, res)
			return res, nil
		}
		s.append(cat, llm.RoleAssistant, replyDump(reply))
		lastReason = reason
	}

	return Result{}, &ExhaustedError{
		Schema:     desc.Name,
		Attempts:   s.opts.MaxTries + 1,
		LastReason: lastReason,
	}
}

// validate classifies one attempt. An empty reason means success; any other
// reason feeds the next corrective message. Transport concerns never reach
// this point.
func (s *Sender) validate(reply llm.Reply, desc *schema.Descriptor) (Result, string) {
	if desc.Extraction {
		for _, call := range reply.ToolCalls {
			if call.Function.Name != schema.NoInfoName {
				continue
			}
			v, err := schema.NoInfoDescriptor(desc.Category).Decode(call.Function.Arguments)
			if err != nil {
				return Result{}, fmt.Sprintf("no-information payload invalid: %v", err)
			}
			return Result{Value: v, NoInfo: true, Raw: call.Function.Arguments}, ""
		}
	}

	if len(reply.ToolCalls) == 0 {
		return Result{}, "response contains no tool call"
	}
	if len(reply.ToolCalls) > 1 {
		s.logger.Debug("multiple tool calls in one reply, validating the first",
			"schema", desc.Name, "count", len(reply.ToolCalls))
	}

	call := reply.ToolCalls[0]
	v, err := desc.Decode(call.Function.Arguments)
	if err != nil {
		return Result{}, err.Error()
	}
	return Result{Value: v, Raw: call.Function.Arguments}, ""
}

func (s *Sender) call(ctx context.Context, msgs []llm.Message, tools []llm.Tool) (llm.Reply, error) {
	return s.client.Chat(ctx, llm.ChatRequest{
		Model:       s.opts.Model,
		Messages:    msgs,
		Temperature: s.opts.Temperature,
		Tools:       tools,
	})
}

func (s *Sender) recordResult(cat schema.Category, res Result) {
	if res.NoInfo {
		s.append(cat, llm.RoleSystem, "Nothing found")
		return
	}
	s.append(cat, llm.RoleSystem, res.Raw)
}

// append is best-effort: a transcript write failure must not fail the call.
func (s *Sender) append(cat schema.Category, role, content string) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Append(cat, role, content); err != nil {
		s.logger.Warn("transcript append failed", "category", cat, "error", err)
	}
}

func buildGuidance(desc *schema.Descriptor, prev llm.Reply, includeRaw bool) string {
	var sb strings.Builder
	sb.WriteString("Please ensure the response follows the structured outcome format " +
		"defined earlier. Use the provided schema and correct any deviations in format " +
		"or content.\n")
	fmt.Fprintf(&sb, "The expected outcome structure is:\n%s\n", desc.JSONSchema())
	if desc.Extraction {
		fmt.Fprintf(&sb, "\nHowever, if no information is found, invoke the function %s "+
			"with no_information_found set to true.", schema.NoInfoName)
	}
	if includeRaw && prev.Content != "" {
		fmt.Fprintf(&sb, "\nYou generated this before:\n%s", prev.Content)
	}
	return sb.String()
}

func toolFor(desc *schema.Descriptor) llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.JSONSchema(),
		},
	}
}

func replyDump(reply llm.Reply) string {
	if reply.Content != "" {
		return reply.Content
	}
	if len(reply.ToolCalls) > 0 {
		return reply.ToolCalls[0].Function.Arguments
	}
	return "(no response)"
}
