package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// SystemPrompt is the fixed persona sent ahead of every user message.
const SystemPrompt = `You are QuantaAI, an advanced AI assistant designed to act like a professional, reliable, and conversational chatbot.

1. Identity & Personality
   - You are QuantaAI: futuristic, intelligent, and approachable.
   - Maintain a professional yet friendly tone.
   - Be concise, clear, and helpful in every response.
   - Use structured formatting (lists, steps) to improve readability.

2. Core Capabilities
   - Answer questions in Computer Science, AI/ML, Data Science, and Web Development.
   - Provide working code snippets when asked for technical help.
   - Support brainstorming, creative writing, summaries, and career guidance.

3. Response Style
   - Use short paragraphs with clear formatting.
   - For technical queries, show step-by-step solutions and clean code snippets.
   - For general queries, keep answers conversational but accurate.`

// UpstreamError is a failed call to the chat completion API. StatusCode is
// zero when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream returned status %d: %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

var ErrEmptyCompletion = errors.New("upstream returned no completion")

type Options struct {
	BaseURL     string
	Token       string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type Service struct {
	llm     llms.Model
	opts    Options
	timeout time.Duration
}

func New(opts Options) (*Service, error) {
	if opts.Token == "" {
		// The client refuses to start without a token; the upstream answers
		// with 401, which callers already handle.
		opts.Token = "missing"
	}
	llm, err := openai.New(
		openai.WithToken(opts.Token),
		openai.WithBaseURL(opts.BaseURL),
		openai.WithModel(opts.Model),
		openai.WithHTTPClient(&statusRecorder{client: &http.Client{}}),
	)
	if err != nil {
		return nil, err
	}
	return newService(llm, opts), nil
}

func newService(model llms.Model, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{llm: model, opts: opts, timeout: timeout}
}

// Generate sends prompt to the upstream model behind the system persona and
// returns the reply text.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var status int
	ctx = withStatus(ctx, &status)

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, SystemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	callOpts := []llms.CallOption{llms.WithTopP(1)}
	if s.opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(s.opts.Temperature))
	}
	if s.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(s.opts.MaxTokens))
	}

	resp, err := s.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", &UpstreamError{StatusCode: status, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{StatusCode: status, Err: ErrEmptyCompletion}
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

type statusKey struct{}

func withStatus(ctx context.Context, status *int) context.Context {
	return context.WithValue(ctx, statusKey{}, status)
}

// statusRecorder copies the upstream HTTP status into the request context
// so failures can be told apart without parsing error strings.
type statusRecorder struct {
	client *http.Client
}

func (r *statusRecorder) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if status, ok := req.Context().Value(statusKey{}).(*int); ok {
		*status = resp.StatusCode
	}
	return resp, nil
}
