package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AddResult classifies the outcome of a TryAdd call.
type AddResult int

const (
	AddOK AddResult = iota
	AddInvalidFormat
	AddDuplicate
)

// Entry is one participant's best submitted race time.
type Entry struct {
	Name     string
	Duration time.Duration
}

// Board holds at most one entry per participant (case-insensitive on name),
// kept sorted ascending by duration with stable insertion-order tie-breaks.
//
// Every mutation persists synchronously to the backing file while holding
// the board lock, so readers never observe a half-applied state and the
// file never lags by more than one failed write.
type Board struct {
	mu      sync.Mutex
	entries []Entry
	path    string
	log     zerolog.Logger
}

func New(path string, log zerolog.Logger) *Board {
	return &Board{path: path, log: log.With().Str("comp", "leaderboard").Logger()}
}

// TryAdd parses raw and inserts or replaces the participant's entry.
//
// A replacement is treated as a fresh record: the old entry is removed and
// the new one appended before the stable re-sort, so among equal durations
// an overwritten entry ranks after entries that were already present.
func (b *Board) TryAdd(name, raw string, overwrite bool) AddResult {
	d, err := ParseTime(raw)
	if err != nil {
		return AddInvalidFormat
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(name); i >= 0 {
		if !overwrite {
			return AddDuplicate
		}
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
	}
	b.entries = append(b.entries, Entry{Name: name, Duration: d})
	sort.SliceStable(b.entries, func(i, j int) bool {
		return b.entries[i].Duration < b.entries[j].Duration
	})

	if err := b.saveLocked(); err != nil {
		// In-memory state stays authoritative for the running session.
		b.log.Warn().Err(err).Str("path", b.path).Msg("leaderboard persist failed")
	}
	return AddOK
}

// Reset removes every entry and persists the empty board.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	if err := b.saveLocked(); err != nil {
		b.log.Warn().Err(err).Str("path", b.path).Msg("leaderboard persist failed")
	}
}

// Duration reports the participant's current entry, if any.
func (b *Board) Duration(name string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(name); i >= 0 {
		return b.entries[i].Duration, true
	}
	return 0, false
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Snapshot returns a copy of the current ranking.
func (b *Board) Snapshot() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// RenderRanked produces the human-readable listing, one entry per line:
//
//	#1. bob — 01:20:00
//	#2. alice — 01:30:00
func (b *Board) RenderRanked() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "#%d. %s — %s", i+1, e.Name, FormatDuration(e.Duration))
	}
	return sb.String()
}

// indexLocked finds the entry for name, comparing case-insensitively.
func (b *Board) indexLocked(name string) int {
	for i, e := range b.entries {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}
