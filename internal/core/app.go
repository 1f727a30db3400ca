// Package core wires the bot together: transport adapter, leaderboard,
// command interpreter, seed schedule, and lifecycle management.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pboyer84/IOGRDiscord/internal/adapters/discord"
	"github.com/pboyer84/IOGRDiscord/internal/config"
	"github.com/pboyer84/IOGRDiscord/internal/history"
	"github.com/pboyer84/IOGRDiscord/internal/leaderboard"
	"github.com/pboyer84/IOGRDiscord/internal/seed"
	"github.com/pboyer84/IOGRDiscord/internal/services/scheduler"
	"github.com/pboyer84/IOGRDiscord/internal/telemetry"
	"github.com/pboyer84/IOGRDiscord/internal/transport"
	"github.com/pboyer84/IOGRDiscord/pkg/logx"
)

const seedJobName = "seed.roll"

type App struct {
	cfgPath string
	cfg     *config.Config
	log     zerolog.Logger

	adapter transport.Adapter
	board   *leaderboard.Board
	fetcher seed.Fetcher
	sched   *scheduler.Service
	hist    history.Store
	interp  *Interpreter
	debug   *debugServer
	sup     *Supervisor

	cmdTarget      transport.ChatTarget
	announceTarget transport.ChatTarget

	updates  chan transport.Update
	stopReq  chan struct{}
	stopOnce sync.Once
}

func New(cfgPath string, cfg *config.Config, log zerolog.Logger) (*App, error) {
	telemetry.Init()

	ad, err := discord.New(discord.Config{
		Token:      cfg.Discord.Token,
		RatePerSec: cfg.Discord.RatePerSec,
	}, log)
	if err != nil {
		return nil, err
	}

	seedTimeout, err := cfg.SeedTimeout()
	if err != nil {
		return nil, err
	}
	fetcher, err := seed.NewHTTPFetcher(seed.Config{
		URL:     cfg.Seed.URL,
		Params:  cfg.Seed.Params,
		Timeout: seedTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(history.Config{
		Driver: cfg.History.Driver,
		Path:   cfg.History.Path,
	}, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfgPath: cfgPath,
		cfg:     cfg,
		log:     log.With().Str("comp", "app").Logger(),
		adapter: ad,
		board:   leaderboard.New(cfg.Storage.Path, log),
		fetcher: fetcher,
		sched:   scheduler.New(scheduler.Config{Timezone: cfg.Seed.Timezone}, log),
		hist:    hist,
		debug:   newDebugServer(log),
		updates: make(chan transport.Update, 256),
		stopReq: make(chan struct{}),
	}, nil
}

// StopRequested is closed when an admin issues the sleep command.
func (a *App) StopRequested() <-chan struct{} { return a.stopReq }

// Done is closed when a supervised loop fails fatally.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, a.log)

	if err := a.board.Load(); err != nil {
		if !errors.Is(err, leaderboard.ErrCorruptState) {
			return err
		}
		if a.cfg.Storage.Strict {
			return fmt.Errorf("refusing to start on corrupt leaderboard state: %w", err)
		}
		a.log.Error().Err(err).Msg("leaderboard state is corrupt; CONTINUING WITH AN EMPTY BOARD")
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	cmdT, err := a.adapter.ResolveChannel(a.cfg.Discord.Channels.Commands)
	if err != nil {
		return err
	}
	annT, err := a.adapter.ResolveChannel(a.cfg.Discord.Channels.Announce)
	if err != nil {
		return err
	}
	boardT, err := a.adapter.ResolveChannel(a.cfg.Discord.Channels.Leaderboard)
	if err != nil {
		return err
	}
	a.cmdTarget = cmdT
	a.announceTarget = annT

	a.interp = NewInterpreter(InterpreterDeps{
		Adapter:     a.adapter,
		Board:       a.board,
		Fetcher:     a.fetcher,
		History:     a.hist,
		CmdTarget:   cmdT,
		BoardTarget: boardT,
		Prefix:      a.cfg.Commands.Prefix,
		RequestStop: a.RequestStop,
	}, a.log)
	a.interp.SetAdminCheck(AdminByName(a.cfg.Discord.Admin))

	if err := a.sched.AddCron(seedJobName, a.cfg.Seed.Schedule, a.rollSeed); err != nil {
		return err
	}
	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("commands.dispatch", a.dispatchLoop)
	a.sup.Go("config.watch", func(c context.Context) error {
		return config.Watch(c, a.cfgPath, a.log, a.applyConfig)
	})

	if a.cfg.Debug.Enabled {
		if err := a.debug.Start(a.cfg.Debug.Addr); err != nil {
			a.log.Warn().Err(err).Str("addr", a.cfg.Debug.Addr).Msg("debug server start failed")
		}
	}

	a.log.Info().Msg("app started")
	return nil
}

// RequestStop asks the process to shut down (used by the sleep command).
func (a *App) RequestStop() {
	a.stopOnce.Do(func() { close(a.stopReq) })
}

// dispatchLoop applies the input-filtering precondition (right channel,
// prefix present; own messages never leave the adapter) and hands the rest
// to the interpreter.
func (a *App) dispatchLoop(ctx context.Context) error {
	prefix := a.cfg.Commands.Prefix
	for {
		select {
		case <-ctx.Done():
			return nil
		case up := <-a.updates:
			if up.Kind != transport.UpdateMessage || up.Message == nil {
				continue
			}
			m := up.Message
			if m.ChannelID != a.cmdTarget.ChannelID {
				continue
			}
			if !strings.HasPrefix(m.Text, prefix) {
				continue
			}
			a.interp.Handle(ctx, m)
		}
	}
}

// rollSeed is the scheduled announcement trigger: one fetch, one broadcast.
// Overlap protection lives in the scheduler service.
func (a *App) rollSeed(ctx context.Context) error {
	link, err := a.fetcher.NewSeed(ctx)
	if err != nil {
		telemetry.SeedRollsFailed.Inc()
		// Visible failure by policy; the next tick retries naturally.
		if _, serr := a.adapter.SendText(ctx, a.announceTarget, "Scheduled seed generation failed."); serr != nil {
			a.log.Warn().Err(serr).Msg("could not announce seed failure")
		}
		return err
	}
	telemetry.SeedRollsSucceeded.Inc()
	_, err = a.adapter.SendText(ctx, a.announceTarget, "A new seed is up: "+link)
	return err
}

// applyConfig hot-applies the safe subset of a reloaded config: log level
// and admin identity. Everything else requires a restart.
func (a *App) applyConfig(cfg *config.Config) {
	logx.SetLevel(cfg.Logging.Level)
	if a.interp != nil {
		a.interp.SetAdminCheck(AdminByName(cfg.Discord.Admin))
	}
	a.log.Info().Msg("log level and admin identity hot-applied; other changes need a restart")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info().Msg("stopping")
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		start := time.Now()
		if err := fn(stepCtx); err != nil {
			a.log.Warn().Str("name", name).Err(err).Msg("stop step error")
		}
		a.log.Debug().Str("name", name).Dur("took", logx.Elapsed(start)).Msg("stop step done")
	}

	step("scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 3*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("leaderboard.flush", 2*time.Second, func(context.Context) error { return a.board.Flush() })
	if a.hist != nil {
		step("history", time.Second, func(context.Context) error { return a.hist.Close() })
	}
	step("debug", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info().Msg("stopped")
	return nil
}
