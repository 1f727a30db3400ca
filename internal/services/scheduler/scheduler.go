// Package scheduler wraps robfig/cron with the small amount of policy this
// bot needs: timezone support, panic recovery, and an at-most-one-in-flight
// guarantee per registered job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Config struct {
	Timezone string // IANA TZ, e.g. "America/New_York"; empty = local
}

type Service struct {
	mu  sync.Mutex
	log zerolog.Logger
	cfg Config

	parser cron.Parser
	c      *cron.Cron
	defs   []*jobDef

	runCtx context.Context
}

type jobDef struct {
	name    string
	spec    string
	job     func(ctx context.Context) error
	running atomic.Bool
}

func New(cfg Config, log zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		log:    log.With().Str("comp", "scheduler").Logger(),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// AddCron registers job under a 5-field cron spec (descriptors like
// "@hourly" work too). Ticks that land while a previous fire of the same
// job is still running are skipped.
func (s *Service) AddCron(name, spec string, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("schedule name required")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("schedule %s: bad spec %q: %w", name, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := &jobDef{name: name, spec: spec, job: job}
	s.defs = append(s.defs, d)
	if s.c != nil {
		return s.registerLocked(d)
	}
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("scheduler timezone %q: %w", tz, err)
		}
		loc = l
	}

	s.runCtx = ctx
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for _, d := range s.defs {
		if err := s.registerLocked(d); err != nil {
			s.c = nil
			return err
		}
	}
	s.c.Start()
	s.log.Info().Int("jobs", len(s.defs)).Str("tz", loc.String()).Msg("scheduler started")
	return nil
}

// Stop halts tick delivery and waits for any in-flight job, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		s.log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop deadline reached; abandoning in-flight job")
	}
}

func (s *Service) registerLocked(d *jobDef) error {
	_, err := s.c.AddFunc(d.spec, func() { s.fire(d) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", d.name, err)
	}
	s.log.Debug().Str("name", d.name).Str("spec", d.spec).Msg("schedule registered")
	return nil
}

func (s *Service) fire(d *jobDef) {
	if !d.running.CompareAndSwap(false, true) {
		s.log.Warn().Str("name", d.name).Msg("previous fire still running; tick skipped")
		return
	}
	defer d.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("name", d.name).Interface("panic", r).
				Str("stack", string(debug.Stack())).Msg("scheduled job panicked")
		}
	}()

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	if err := d.job(ctx); err != nil {
		s.log.Error().Str("name", d.name).Err(err).Dur("took", time.Since(start)).Msg("scheduled job failed")
		return
	}
	s.log.Debug().Str("name", d.name).Dur("took", time.Since(start)).Msg("scheduled job done")
}
