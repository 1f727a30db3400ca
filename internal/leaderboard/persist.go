package leaderboard

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrCorruptState marks a leaderboard file that exists but cannot be parsed.
var ErrCorruptState = errors.New("corrupt leaderboard state")

// Load hydrates the board from its backing file.
//
// A missing file is not an error: the board simply starts empty. An
// existing file with an unparsable line returns ErrCorruptState (wrapped
// with the offending line number) and leaves the board empty; the startup
// policy for that case belongs to the caller.
func (b *Board) Load() error {
	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", b.path, err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		name, rawTime, ok := strings.Cut(text, "\t")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s line %d: %w", b.path, line, ErrCorruptState)
		}
		d, err := ParseTime(rawTime)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", b.path, line, ErrCorruptState)
		}
		entries = append(entries, Entry{Name: name, Duration: d})
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", b.path, err)
	}

	// File order is already ranked order, but re-sort to restore the
	// invariant even if the file was edited by hand.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Duration < entries[j].Duration
	})

	b.mu.Lock()
	b.entries = entries
	b.mu.Unlock()
	b.log.Info().Int("entries", len(entries)).Str("path", b.path).Msg("leaderboard loaded")
	return nil
}

// Flush writes the current state to disk. Used at shutdown; regular
// mutations persist on their own.
func (b *Board) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveLocked()
}

// saveLocked writes the ranked entries as flat text, one
// "name<TAB>hh:mm:ss" line per entry, via tmp + rename so a crash never
// leaves a truncated file behind.
func (b *Board) saveLocked() error {
	if strings.TrimSpace(b.path) == "" {
		return errors.New("leaderboard path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}

	var sb strings.Builder
	for _, e := range b.entries {
		sb.WriteString(e.Name)
		sb.WriteByte('\t')
		sb.WriteString(FormatDuration(e.Duration))
		sb.WriteByte('\n')
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
