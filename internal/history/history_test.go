package history

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE", "  none  "} {
		st, err := Open(Config{Driver: driver}, zerolog.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) returned a store, want nil", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
