package leaderboard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadMissingFileIsEmptyBoard(t *testing.T) {
	t.Parallel()
	b := New(filepath.Join(t.TempDir(), "does-not-exist.txt"), zerolog.Nop())
	if err := b.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leaderboard.txt")

	b := New(path, zerolog.Nop())
	b.TryAdd("alice", "01:30:00", false)
	b.TryAdd("bob", "01:20:00", false)
	b.TryAdd("Carol X", "01:25:05", false)

	loaded := New(path, zerolog.Nop())
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := loaded.RenderRanked(), b.RenderRanked(); got != want {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestLoadResortsHandEditedFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leaderboard.txt")
	content := "alice\t01:30:00\nbob\t01:20:00\n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b := New(path, zerolog.Nop())
	if err := b.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "#1. bob — 01:20:00\n#2. alice — 01:30:00"
	if got := b.RenderRanked(); got != want {
		t.Fatalf("RenderRanked = %q, want %q", got, want)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{name: "no separator", content: "alice 01:30:00\n"},
		{name: "bad duration", content: "alice\tnot-a-time\n"},
		{name: "empty name", content: "\t01:30:00\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "leaderboard.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			b := New(path, zerolog.Nop())
			err := b.Load()
			if !errors.Is(err, ErrCorruptState) {
				t.Fatalf("Load error = %v, want ErrCorruptState", err)
			}
			if b.Len() != 0 {
				t.Fatalf("board populated from corrupt file: %d entries", b.Len())
			}
		})
	}
}

func TestFlushWritesRankedOrder(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leaderboard.txt")
	b := New(path, zerolog.Nop())
	b.TryAdd("alice", "01:30:00", false)
	b.TryAdd("bob", "01:20:00", false)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "bob\t01:20:00\nalice\t01:30:00\n"
	if string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
}
