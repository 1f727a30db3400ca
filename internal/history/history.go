// Package history keeps an append-only audit of accepted leaderboard
// submissions. It is optional: the default driver is "none".
package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrDisabled = errors.New("history disabled")

// Config selects the history backend.
//
// Driver values:
//   - "" or "none": disabled
//   - "sqlite": SQLite database file (requires the sqlite build tag)
type Config struct {
	Driver string
	Path   string
}

// Record is one accepted submission. PrevSeconds is -1 when the
// participant had no prior entry.
type Record struct {
	At          time.Time
	Name        string
	Seconds     int64
	PrevSeconds int64
	Overwrite   bool
}

// Store is the minimal persistence API the interpreter writes to.
type Store interface {
	Append(ctx context.Context, r Record) error
	Close() error
}

// Open initializes the configured store. It returns (nil, nil) when
// history is disabled.
func Open(cfg Config, log zerolog.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none":
		return nil, nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log.With().Str("comp", "history").Logger())
	default:
		return nil, errors.New("unknown history driver: " + driver)
	}
}
