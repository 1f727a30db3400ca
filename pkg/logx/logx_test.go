package logx

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "trace", want: zerolog.TraceLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: "info", want: zerolog.InfoLevel},
		{in: "WARN", want: zerolog.WarnLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "bogus", want: zerolog.InfoLevel},
		{in: "  Debug  ", want: zerolog.DebugLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithFileSink(t *testing.T) {
	path := t.TempDir() + "/bot.log"
	log, closer, err := New(Config{
		Level:   "debug",
		Console: false,
		File:    FileConfig{Enabled: true, Path: path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if closer == nil {
		t.Fatal("closer = nil, want open file sink")
	}
	log.Info().Str("k", "v").Msg("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
