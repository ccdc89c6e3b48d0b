package textsource

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// DefaultDelay is the pacing delay between chunks.
const DefaultDelay = 200 * time.Millisecond

// DefaultContent is the demonstration text streamed by a Fixed source.
const DefaultContent = "This is a streamed response from the server, delivered one piece at a time."

// Source produces the chunk sequence for a prompt. The sequence ends early,
// without error, once ctx is done.
type Source interface {
	Stream(ctx context.Context, prompt string) iter.Seq[string]
}

// Fixed ignores the prompt and always streams Content.
type Fixed struct {
	Content  string
	Delay    time.Duration
	Tokenize Tokenizer
}

var _ Source = (*Fixed)(nil)

// Stream implements Source.
func (f *Fixed) Stream(ctx context.Context, _ string) iter.Seq[string] {
	return Paced(ctx, f.Delay, tokenizerOrDefault(f.Tokenize)(f.Content))
}

// Echo streams the prompt back to the caller.
type Echo struct {
	Delay    time.Duration
	Tokenize Tokenizer
}

var _ Source = (*Echo)(nil)

// Stream implements Source.
func (e *Echo) Stream(ctx context.Context, prompt string) iter.Seq[string] {
	return Paced(ctx, e.Delay, tokenizerOrDefault(e.Tokenize)(prompt))
}

// Paced yields units in order, waiting delay before each one. The context
// is checked before the wait and again before the unit is yielded.
func Paced(ctx context.Context, delay time.Duration, units []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var timer *time.Timer
		if delay > 0 {
			timer = time.NewTimer(delay)
			timer.Stop()
			defer timer.Stop()
		}

		for _, u := range units {
			if ctx.Err() != nil {
				return
			}
			if timer != nil {
				timer.Reset(delay)
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
			}
			if ctx.Err() != nil {
				return
			}
			if !yield(u) {
				return
			}
		}
	}
}

// Config selects and parameterizes a Source.
type Config struct {
	Kind      string        // "fixed" or "echo"
	Content   string        // fixed only; DefaultContent when empty
	Tokenizer string        // "characters" or "words"
	Delay     time.Duration // pacing delay; zero disables pacing
}

// New builds a Source from cfg.
func New(cfg Config) (Source, error) {
	tok, err := TokenizerByName(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("delay must not be negative, got %s", cfg.Delay)
	}

	switch cfg.Kind {
	case "", "fixed":
		content := cfg.Content
		if content == "" {
			content = DefaultContent
		}
		return &Fixed{Content: content, Delay: cfg.Delay, Tokenize: tok}, nil
	case "echo":
		return &Echo{Delay: cfg.Delay, Tokenize: tok}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
