// Package seed fetches freshly generated randomizer seed permalinks from
// the community seed-generation service.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher produces a shareable permalink for a newly generated seed.
type Fetcher interface {
	NewSeed(ctx context.Context) (string, error)
}

// FetchError is a transient failure talking to the seed service.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("seed fetch: unexpected status %d", e.Status)
	}
	return "seed fetch: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is (or wraps) a seed-service failure.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

type Config struct {
	URL     string
	Params  map[string]string // static generator form values
	Timeout time.Duration
}

// HTTPFetcher POSTs the configured generator form and decodes the
// {"permalink": "..."} response body.
type HTTPFetcher struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

func NewHTTPFetcher(cfg Config, log zerolog.Logger) (*HTTPFetcher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("seed.url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("comp", "seed").Logger(),
	}, nil
}

func (f *HTTPFetcher) NewSeed(ctx context.Context) (string, error) {
	form := url.Values{}
	for k, v := range f.cfg.Params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &FetchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{Status: resp.StatusCode}
	}

	var body struct {
		Permalink string `json:"permalink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &FetchError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if strings.TrimSpace(body.Permalink) == "" {
		return "", &FetchError{Err: errors.New("response carried no permalink")}
	}

	f.log.Debug().Dur("took", time.Since(start)).Msg("seed generated")
	return body.Permalink, nil
}
