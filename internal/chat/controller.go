// Package chat drives one conversation: it appends user and assistant
// messages, persists after every change, asks a Generator for replies and
// reports each change to subscribers as an Event.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/RichardoC/quanta/internal/models"
	"go.uber.org/zap"
)

const (
	WelcomeText  = "Welcome! Ask me anything, or try the quick actions above."
	NewChatText  = "New chat started. How can I help?"
	MaxDraftLen  = 3000
	errorMessage = "Sorry, I encountered an error: %s. Please try again or check your connection."
)

var (
	ErrClosed     = errors.New("chat: controller closed")
	ErrEmptyReply = errors.New("empty reply")
)

// Generator produces the assistant reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store is the durable copy of the conversation. Load never fails.
type Store interface {
	Load(ctx context.Context) []models.Message
	Save(ctx context.Context, messages []models.Message) error
	Clear(ctx context.Context) error
}

type State int

const (
	Idle State = iota
	Composing
	AwaitingReply
)

func (s State) String() string {
	switch s {
	case Composing:
		return "composing"
	case AwaitingReply:
		return "awaiting_reply"
	default:
		return "idle"
	}
}

type Options struct {
	Logger *zap.Logger

	// Timeout bounds a single Generate call. Defaults to 60s.
	Timeout time.Duration

	// Delay is the pause before a successful reply is shown. Defaults to
	// ReplyDelay.
	Delay func(reply string) time.Duration

	Now func() time.Time
}

// ReplyDelay paces a reply by its length: 450ms plus 8ms per character,
// with the per-character part kept within [200ms, 1200ms].
func ReplyDelay(reply string) time.Duration {
	perChar := time.Duration(utf8.RuneCountInString(reply)) * 8 * time.Millisecond
	perChar = min(max(perChar, 200*time.Millisecond), 1200*time.Millisecond)
	return 450*time.Millisecond + perChar
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	Messages []models.Message
	State    State
	Draft    string
}

type Controller struct {
	store  Store
	gen    Generator
	logger *zap.Logger
	opts   Options

	mu    sync.Mutex
	conv  *Conversation
	state State
	draft string

	lmu       sync.Mutex
	listeners map[int]func(Event)
	nextID    int

	qmu    sync.Mutex
	queue  []job
	closed bool
	wake   chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New loads the saved conversation, seeds a welcome message if it is empty
// and starts processing submissions.
func New(ctx context.Context, store Store, gen Generator, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Delay == nil {
		opts.Delay = ReplyDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Controller{
		store:     store,
		gen:       gen,
		logger:    opts.Logger,
		opts:      opts,
		conv:      NewConversation(store.Load(ctx)),
		listeners: make(map[int]func(Event)),
		wake:      make(chan struct{}, 1),
		ctx:       runCtx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}

	if c.conv.Len() == 0 {
		c.mu.Lock()
		c.conv.Append(c.newMessage(models.RoleAssistant, WelcomeText))
		c.persist()
		c.mu.Unlock()
	}
	c.logger.Info("Conversation loaded", zap.Int("messages", c.conv.Len()))

	go c.loop()
	return c
}

// SetDraft records the composer text, truncated to MaxDraftLen characters.
func (c *Controller) SetDraft(text string) string {
	if utf8.RuneCountInString(text) > MaxDraftLen {
		text = string([]rune(text)[:MaxDraftLen])
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
	if c.state != AwaitingReply {
		c.state = c.restingState()
	}
	return text
}

// CharCount is the composer counter, e.g. "12/3,000".
func (c *Controller) CharCount() string {
	c.mu.Lock()
	n := utf8.RuneCountInString(c.draft)
	c.mu.Unlock()
	return fmt.Sprintf("%s/%s", groupThousands(n), groupThousands(MaxDraftLen))
}

// Submit queues raw for sending. Blank input is ignored and reported with
// ok == false. The returned Exchange resolves once the assistant reply has
// been appended and persisted.
func (c *Controller) Submit(raw string) (ex *Exchange, ok bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}

	c.mu.Lock()
	c.draft = ""
	if c.state == Composing {
		c.state = Idle
	}
	c.mu.Unlock()

	ex = newExchange(text)
	c.enqueue(&submitJob{ex: ex})
	return ex, true
}

// Reset clears the stored and in-memory conversation and seeds a new
// welcome message. It waits for earlier submissions to finish. Storage
// failures are logged, not returned.
func (c *Controller) Reset(ctx context.Context) error {
	j := &resetJob{done: make(chan error, 1)}
	c.enqueue(j)
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Messages: c.conv.Messages(),
		State:    c.state,
		Draft:    c.draft,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every future event. Events are delivered in
// order from the controller's worker goroutine, so fn must not call Reset,
// Close or Exchange.Wait; those wait on the worker and would never return.
// Snapshot, State, SetDraft and Submit are safe to call from fn.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.lmu.Unlock()

	return func() {
		c.lmu.Lock()
		delete(c.listeners, id)
		c.lmu.Unlock()
	}
}

// Close stops the controller. A reply still in flight is dropped and every
// pending exchange resolves with ErrClosed.
func (c *Controller) Close() {
	c.cancel()
	<-c.stopped
}

func (c *Controller) emit(ev Event) {
	c.lmu.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.lmu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// newMessage stamps a message no earlier than the last one. Callers hold mu.
func (c *Controller) newMessage(role models.Role, content string) models.Message {
	msg := models.NewMessage(role, content, c.opts.Now())
	if last, ok := c.conv.Last(); ok && last.TS > msg.TS {
		msg.TS = last.TS
	}
	return msg
}

// persist writes the whole conversation. Callers hold mu. Failures are
// logged and returned, never raised.
func (c *Controller) persist() error {
	if err := c.store.Save(c.ctx, c.conv.Messages()); err != nil {
		c.logger.Warn("Failed to persist conversation", zap.Error(err))
		return err
	}
	return nil
}

// appendMessage adds a message and persists it before anyone else can observe it.
func (c *Controller) appendMessage(role models.Role, content string) (models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.newMessage(role, content)
	c.conv.Append(msg)
	return msg, c.persist()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	if s == Idle {
		s = c.restingState()
	}
	c.state = s
	c.mu.Unlock()
}

// restingState is Idle or Composing depending on the draft. Callers hold mu.
func (c *Controller) restingState() State {
	if strings.TrimSpace(c.draft) != "" {
		return Composing
	}
	return Idle
}

func (c *Controller) exchange(ex *Exchange) {
	var res Result

	user, err := c.appendMessage(models.RoleUser, ex.Prompt)
	res.User = user
	res.SaveErr = err
	c.setState(AwaitingReply)
	c.emit(Event{Kind: EventAppended, Message: user})
	c.emit(Event{Kind: EventTyping, Typing: true})

	content, genErr := c.generate(ex.Prompt)
	if c.ctx.Err() != nil {
		c.logger.Debug("Dropping reply after close", zap.String("prompt", ex.Prompt))
		ex.resolve(res, ErrClosed)
		return
	}
	res.GenerateErr = genErr

	if genErr == nil {
		if !c.sleep(c.opts.Delay(content)) {
			ex.resolve(res, ErrClosed)
			return
		}
	}

	reply, err := c.appendMessage(models.RoleAssistant, content)
	res.Reply = reply
	if res.SaveErr == nil {
		res.SaveErr = err
	}
	c.emit(Event{Kind: EventAppended, Message: reply})
	c.setState(Idle)
	c.emit(Event{Kind: EventTyping, Typing: false})
	ex.resolve(res, nil)
}

// generate returns the reply text, or the apology shown in its place.
func (c *Controller) generate(prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.Timeout)
	defer cancel()

	reply, err := c.gen.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s: %w", c.opts.Timeout, err)
		}
		c.logger.Warn("Reply generation failed", zap.Error(err))
		return fmt.Sprintf(errorMessage, strings.TrimSuffix(err.Error(), ".")), err
	}
	return reply, nil
}

// sleep waits d on a timer. It reports false if the controller closed first.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Controller) reset() error {
	c.mu.Lock()
	err := c.store.Clear(c.ctx)
	if err != nil {
		c.logger.Warn("Failed to clear stored conversation", zap.Error(err))
	}
	c.conv.clear()
	welcome := c.newMessage(models.RoleAssistant, NewChatText)
	c.conv.Append(welcome)
	if saveErr := c.persist(); err == nil {
		err = saveErr
	}
	c.mu.Unlock()

	c.logger.Info("New chat started")
	c.emit(Event{Kind: EventReset})
	c.emit(Event{Kind: EventAppended, Message: welcome})
	return err
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
