package leaderboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFormat is returned for race-time tokens that are not three
// colon-separated non-negative integers.
var ErrInvalidFormat = errors.New("invalid time format")

// ParseTime converts an hh:mm:ss token into a duration.
//
// Only the structure is validated: minute/second components >= 60 are
// accepted and folded in arithmetically, so "1:90:00" parses to 2h30m.
func ParseTime(token string) (time.Duration, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty token: %w", ErrInvalidFormat)
	}
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%q: want hh:mm:ss: %w", token, ErrInvalidFormat)
	}
	var secs int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%q: component %d not a non-negative integer: %w", token, i+1, ErrInvalidFormat)
		}
		switch i {
		case 0:
			secs += n * 3600
		case 1:
			secs += n * 60
		case 2:
			secs += n
		}
	}
	return time.Duration(secs) * time.Second, nil
}

// FormatDuration renders a duration in the canonical zero-padded hh:mm:ss
// form used for both chat output and the persisted leaderboard file.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
