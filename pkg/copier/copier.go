// Package copier implements the copy orchestrator: given one or more target
// elements it resolves machine-readable context, writes the clipboard with
// layered fallback, and reports the outcome through optional hooks and the
// page-global broadcast.
package copier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/logging"
	"github.com/entrhq/grab/pkg/types"
)

// tokenEncoding is the encoding used to estimate copied-context size.
const tokenEncoding = "cl100k_base"

// Hooks is the optional observer surface around a copy operation. Any field
// may be nil. BeforeCopy runs first and is awaited; AfterCopy always runs
// last, success or failure.
type Hooks struct {
	BeforeCopy func(ctx context.Context, elements []dom.Element)
	OnSuccess  func(result Result)
	OnError    func(err error)
	AfterCopy  func(elements []dom.Element, copied bool)
}

// Result describes one finished copy operation.
type Result struct {
	// Copied reports whether any clipboard write succeeded.
	Copied bool

	// Text is the final text placed on the clipboard.
	Text string

	// Feedback is the user-facing summary ("<button>", "3 elements").
	Feedback string

	// TokenCount estimates the copied text's size in LLM tokens.
	// Zero when estimation is unavailable.
	TokenCount int
}

// Copier orchestrates context resolution and clipboard writes.
// It is stateless across invocations: repeated identical copies perform
// repeated independent writes.
type Copier struct {
	adapter     dom.Adapter
	hooks       Hooks
	maxLines    int
	broadcaster *types.Broadcaster
	logger      *logging.Logger

	countTokens func(string) int
	encOnce     sync.Once
	enc         *tiktoken.Tiktoken
}

// Option customizes a Copier.
type Option func(*Copier)

// WithHooks sets the observer hooks.
func WithHooks(hooks Hooks) Option {
	return func(c *Copier) { c.hooks = hooks }
}

// WithMaxContextLines bounds each element's context snippet.
func WithMaxContextLines(n int) Option {
	return func(c *Copier) { c.maxLines = n }
}

// WithBroadcaster sets the page-global broadcaster notified on every copy.
func WithBroadcaster(b *types.Broadcaster) Option {
	return func(c *Copier) { c.broadcaster = b }
}

// WithLogger sets the component logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Copier) { c.logger = logger }
}

// WithTokenCounter replaces the default tiktoken-based estimator.
func WithTokenCounter(count func(string) int) Option {
	return func(c *Copier) { c.countTokens = count }
}

// New creates a copier over the given adapter.
func New(adapter dom.Adapter, opts ...Option) *Copier {
	c := &Copier{
		adapter: adapter,
		logger:  logging.NewNopLogger("copier"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.countTokens == nil {
		c.countTokens = c.tiktokenCount
	}
	return c
}

// Copy resolves context for the elements and writes the clipboard once,
// trying the structured path first and plain text as fallback. It never
// returns an error: total failure is reported as Copied=false. An empty
// element list is a no-op: no hooks, no write.
func (c *Copier) Copy(ctx context.Context, elements []dom.Element, instruction string) Result {
	if len(elements) == 0 {
		return Result{}
	}

	if c.hooks.BeforeCopy != nil {
		c.hooks.BeforeCopy(ctx, elements)
	}

	text, copied := c.attemptStructuredThenPlain(ctx, elements, instruction)

	result := Result{Copied: copied}
	if copied {
		result.Text = text
		result.Feedback = feedbackText(elements)
		result.TokenCount = c.countTokens(text)
		c.broadcast(elements)
		if c.hooks.OnSuccess != nil {
			c.hooks.OnSuccess(result)
		}
	}

	if c.hooks.AfterCopy != nil {
		c.hooks.AfterCopy(elements, copied)
	}
	return result
}

// attemptStructuredThenPlain runs the layered fallback. A panic anywhere in
// the structured path is recovered, surfaced via the error hook, and
// answered with one more plain-text attempt.
func (c *Copier) attemptStructuredThenPlain(ctx context.Context, elements []dom.Element, instruction string) (text string, copied bool) {
	var structuredPanic error

	func() {
		defer func() {
			if r := recover(); r != nil {
				structuredPanic = fmt.Errorf("structured copy path failed: %v", r)
			}
		}()

		if structured := c.resolveStructured(ctx, elements); structured != "" {
			candidate := prefixInstruction(instruction, structured)
			if err := c.adapter.WriteClipboard(ctx, candidate); err == nil {
				text, copied = candidate, true
				return
			} else {
				c.logger.Warnf("structured clipboard write failed: %v", err)
			}
		}

		text, copied = c.attemptPlain(ctx, elements, instruction)
	}()

	if structuredPanic != nil {
		c.logger.Errorf("%v", structuredPanic)
		if c.hooks.OnError != nil {
			c.hooks.OnError(structuredPanic)
		}
		// One more plain-text attempt before giving up.
		text, copied = c.attemptPlain(ctx, elements, instruction)
	}
	return text, copied
}

// resolveStructured requests every element's context snippet concurrently.
// Individual failures are ignored; partial results are acceptable. A panic
// in any lookup is re-raised on the calling goroutine so the orchestrator's
// recovery path sees it.
func (c *Copier) resolveStructured(ctx context.Context, elements []dom.Element) string {
	snippets := make([]string, len(elements))

	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicked interface{}
	)
	for i, el := range elements {
		wg.Add(1)
		go func(i int, el dom.Element) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					if panicked == nil {
						panicked = r
					}
					panicMu.Unlock()
				}
			}()
			snippet, err := c.adapter.ElementContext(ctx, el, dom.ContextOptions{MaxLines: c.maxLines})
			if err != nil {
				c.logger.Debugf("context snippet for %s failed: %v", el.TagName(), err)
				return
			}
			snippets[i] = snippet
		}(i, el)
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return joinNonEmpty(snippets)
}

// attemptPlain concatenates rendered text content and writes it.
func (c *Copier) attemptPlain(ctx context.Context, elements []dom.Element, instruction string) (string, bool) {
	parts := make([]string, len(elements))
	for i, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			c.logger.Debugf("text content for %s failed: %v", el.TagName(), err)
			continue
		}
		parts[i] = strings.TrimSpace(text)
	}

	joined := joinNonEmpty(parts)
	if joined == "" {
		return "", false
	}

	candidate := prefixInstruction(instruction, joined)
	if err := c.adapter.WriteClipboard(ctx, candidate); err != nil {
		c.logger.Warnf("plain clipboard write failed: %v", err)
		return "", false
	}
	return candidate, true
}

func (c *Copier) broadcast(elements []dom.Element) {
	if c.broadcaster == nil {
		return
	}
	c.broadcaster.Publish(types.GrabEvent{
		Type:     types.EventTypeElementsGrabbed,
		TagNames: dom.TagNames(elements),
	})
}

// tiktokenCount estimates token count, degrading to 0 when the encoding
// cannot be initialized.
func (c *Copier) tiktokenCount(text string) int {
	c.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			c.logger.Warnf("token encoding unavailable: %v", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// feedbackText summarizes the selection for user feedback.
func feedbackText(elements []dom.Element) string {
	if len(elements) == 1 {
		if tag := elements[0].TagName(); tag != "" {
			return "<" + tag + ">"
		}
		return "1 element"
	}
	return fmt.Sprintf("%d elements", len(elements))
}

func prefixInstruction(instruction, text string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return text
	}
	return instruction + "\n\n" + text
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
