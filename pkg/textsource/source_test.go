package textsource

import (
	"context"
	"slices"
	"testing"
	"time"
)

func collect(seq func(func(string) bool)) []string {
	var out []string
	seq(func(s string) bool {
		out = append(out, s)
		return true
	})
	return out
}

func TestFixedStreamsContentInOrder(t *testing.T) {
	src := &Fixed{Content: "hello"}

	got := collect(src.Stream(context.Background(), "ignored"))
	want := []string{"h", "e", "l", "l", "o"}
	if !slices.Equal(got, want) {
		t.Errorf("chunks = %q, want %q", got, want)
	}
}

func TestEchoStreamsPrompt(t *testing.T) {
	src := &Echo{Tokenize: Words}

	got := collect(src.Stream(context.Background(), "say it back"))
	want := []string{"say ", "it ", "back"}
	if !slices.Equal(got, want) {
		t.Errorf("chunks = %q, want %q", got, want)
	}
}

func TestStreamIsRestartable(t *testing.T) {
	src := &Fixed{Content: "abc"}
	seq := src.Stream(context.Background(), "")

	first := collect(seq)
	second := collect(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second pass = %q, want %q", second, first)
	}
	third := collect(src.Stream(context.Background(), ""))
	if !slices.Equal(first, third) {
		t.Errorf("fresh stream = %q, want %q", third, first)
	}
}

func TestPacedWaitsBetweenChunks(t *testing.T) {
	const delay = 20 * time.Millisecond
	src := &Fixed{Content: "hello", Delay: delay}

	start := time.Now()
	var stamps []time.Duration
	for range src.Stream(context.Background(), "") {
		stamps = append(stamps, time.Since(start))
	}

	if len(stamps) != 5 {
		t.Fatalf("got %d chunks, want 5", len(stamps))
	}
	for i, at := range stamps {
		earliest := time.Duration(i+1) * delay
		if at < earliest {
			t.Errorf("chunk %d emitted at %s, want >= %s", i, at, earliest)
		}
	}
}

func TestCancelledBeforeStartYieldsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := collect((&Fixed{Content: "hello", Delay: time.Millisecond}).Stream(ctx, ""))
	if len(got) != 0 {
		t.Errorf("chunks = %q, want none", got)
	}
}

func TestCancelDuringDelayStopsBeforeNextChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &Fixed{Content: "hello", Delay: 40 * time.Millisecond}

	var got []string
	for chunk := range src.Stream(ctx, "") {
		got = append(got, chunk)
		if len(got) == 1 {
			time.AfterFunc(10*time.Millisecond, cancel)
		}
	}

	if !slices.Equal(got, []string{"h"}) {
		t.Errorf("chunks = %q, want [\"h\"]", got)
	}
}

func TestConsumerBreakStopsSequence(t *testing.T) {
	src := &Fixed{Content: "hello"}

	var got []string
	for chunk := range src.Stream(context.Background(), "") {
		got = append(got, chunk)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"h", "e"}) {
		t.Errorf("chunks = %q, want [\"h\" \"e\"]", got)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default fixed", Config{}, false},
		{"echo words", Config{Kind: "echo", Tokenizer: "words"}, false},
		{"unknown kind", Config{Kind: "llm"}, true},
		{"unknown tokenizer", Config{Tokenizer: "bpe"}, true},
		{"negative delay", Config{Delay: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("New() = nil error, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if src == nil {
				t.Fatal("New() returned nil source")
			}
		})
	}
}

func TestNewFixedDefaultsContent(t *testing.T) {
	src, err := New(Config{Kind: "fixed"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f := src.(*Fixed)
	if f.Content != DefaultContent {
		t.Errorf("Content = %q, want DefaultContent", f.Content)
	}
}
