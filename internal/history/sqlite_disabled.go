//go:build !sqlite
// +build !sqlite

package history

import (
	"errors"

	"github.com/rs/zerolog"
)

func openSQLite(cfg Config, log zerolog.Logger) (Store, error) {
	return nil, errors.New("sqlite history driver not built in (rebuild with -tags sqlite)")
}
