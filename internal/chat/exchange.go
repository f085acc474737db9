package chat

import (
	"context"

	"github.com/RichardoC/quanta/internal/models"
)

// Result is the outcome of one submission.
type Result struct {
	User  models.Message
	Reply models.Message
	// GenerateErr is set when Reply carries an error explanation instead of
	// generated text.
	GenerateErr error
	// SaveErr is the first persistence failure of the exchange, if any.
	SaveErr error
}

// Exchange is a queued submission. It resolves exactly once.
type Exchange struct {
	Prompt string

	done   chan struct{}
	result Result
	err    error
}

func newExchange(prompt string) *Exchange {
	return &Exchange{Prompt: prompt, done: make(chan struct{})}
}

// Done is closed when the exchange has resolved.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the exchange resolves or ctx ends. The error is
// ErrClosed when the controller shut down first; generator failures are
// reported in Result.GenerateErr instead.
func (e *Exchange) Wait(ctx context.Context) (Result, error) {
	select {
	case <-e.done:
		return e.result, e.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (e *Exchange) resolve(res Result, err error) {
	e.result = res
	e.err = err
	close(e.done)
}
