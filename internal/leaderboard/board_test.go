package leaderboard

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "leaderboard.txt"), zerolog.Nop())
}

func TestTryAddFresh(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	if got := b.TryAdd("carol", "01:00:00", false); got != AddOK {
		t.Fatalf("TryAdd = %v, want AddOK", got)
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
	if !strings.Contains(b.RenderRanked(), "carol") {
		t.Fatalf("rendered listing missing carol: %q", b.RenderRanked())
	}
}

func TestTryAddInvalidFormatNoMutation(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	if got := b.TryAdd("carol", "bad-time", false); got != AddInvalidFormat {
		t.Fatalf("TryAdd = %v, want AddInvalidFormat", got)
	}
	if b.Len() != 0 {
		t.Fatalf("board mutated on invalid input: %d entries", b.Len())
	}
}

func TestTryAddDuplicateWithoutOverwrite(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	if got := b.TryAdd("alice", "01:30:00", false); got != AddOK {
		t.Fatalf("first TryAdd = %v, want AddOK", got)
	}
	if got := b.TryAdd("alice", "01:00:00", false); got != AddDuplicate {
		t.Fatalf("second TryAdd = %v, want AddDuplicate", got)
	}
	d, ok := b.Duration("alice")
	if !ok || d != 90*time.Minute {
		t.Fatalf("existing entry changed: %v %v", d, ok)
	}
}

func TestTryAddDuplicateIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	b.TryAdd("Alice", "01:30:00", false)
	if got := b.TryAdd("ALICE", "01:00:00", false); got != AddDuplicate {
		t.Fatalf("TryAdd with different case = %v, want AddDuplicate", got)
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
}

func TestTryAddOverwriteReplacesAndResorts(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	b.TryAdd("alice", "01:30:00", false)
	b.TryAdd("bob", "01:20:00", false)
	if got := b.TryAdd("alice", "01:00:00", true); got != AddOK {
		t.Fatalf("overwrite TryAdd = %v, want AddOK", got)
	}
	want := "#1. alice — 01:00:00\n#2. bob — 01:20:00"
	if got := b.RenderRanked(); got != want {
		t.Fatalf("RenderRanked = %q, want %q", got, want)
	}
}

func TestTryAddOverwriteMovesBehindEqualDuration(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	b.TryAdd("alice", "01:00:00", false)
	b.TryAdd("bob", "01:00:00", false)
	// alice re-submits the same duration: as a fresh record she now
	// tie-breaks behind bob.
	if got := b.TryAdd("alice", "01:00:00", true); got != AddOK {
		t.Fatalf("overwrite TryAdd = %v, want AddOK", got)
	}
	want := "#1. bob — 01:00:00\n#2. alice — 01:00:00"
	if got := b.RenderRanked(); got != want {
		t.Fatalf("RenderRanked = %q, want %q", got, want)
	}
}

func TestRenderRankedScenario(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	b.TryAdd("alice", "01:30:00", false)
	b.TryAdd("bob", "01:20:00", false)
	want := "#1. bob — 01:20:00\n#2. alice — 01:30:00"
	if got := b.RenderRanked(); got != want {
		t.Fatalf("RenderRanked = %q, want %q", got, want)
	}
}

func TestRankingNonDecreasing(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	for _, sub := range [][2]string{
		{"a", "02:00:00"}, {"b", "00:30:00"}, {"c", "01:15:00"},
		{"d", "00:30:00"}, {"e", "10:00:00"},
	} {
		if got := b.TryAdd(sub[0], sub[1], false); got != AddOK {
			t.Fatalf("TryAdd(%q) = %v", sub[0], got)
		}
	}
	entries := b.Snapshot()
	for i := 1; i < len(entries); i++ {
		if entries[i].Duration < entries[i-1].Duration {
			t.Fatalf("ranking decreases at %d: %v < %v", i, entries[i].Duration, entries[i-1].Duration)
		}
	}
	// Stable tie-break: b submitted before d.
	if entries[0].Name != "b" || entries[1].Name != "d" {
		t.Fatalf("tie-break order wrong: %v", entries)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	b := newTestBoard(t)
	b.TryAdd("alice", "01:30:00", false)
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len after reset = %d, want 0", b.Len())
	}
	if got := b.RenderRanked(); got != "" {
		t.Fatalf("RenderRanked after reset = %q, want empty", got)
	}
}
