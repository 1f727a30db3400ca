package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pboyer84/IOGRDiscord/internal/history"
	"github.com/pboyer84/IOGRDiscord/internal/leaderboard"
	"github.com/pboyer84/IOGRDiscord/internal/seed"
	"github.com/pboyer84/IOGRDiscord/internal/telemetry"
	"github.com/pboyer84/IOGRDiscord/internal/transport"
)

const (
	replyPong          = "pong!"
	replyBadTimeFormat = "Invalid time format. Use hh:mm:ss"
	replyDuplicate     = "You already have a time on the board. Re-submit with -o to overwrite."
	replyBadSwitches   = "Unrecognized switches."
	replySeedFailed    = "Seed generation failed. Try again in a bit."
	replyResetDone     = "Leaderboard has been reset."
	replySleep         = "Going to sleep. Goodbye!"
)

// Interpreter classifies one pre-filtered chat line and executes the
// matching verb. The caller guarantees the line came from the command
// channel, carries the prefix, and was not authored by the bot itself.
type Interpreter struct {
	log     zerolog.Logger
	adapter transport.Adapter
	board   *leaderboard.Board
	fetcher seed.Fetcher
	hist    history.Store

	cmdTarget   transport.ChatTarget // command channel, used for public replies
	boardTarget transport.ChatTarget // leaderboard display channel

	prefix   string
	helpText string

	mu      sync.RWMutex
	isAdmin func(identity string) bool

	requestStop func()
}

type InterpreterDeps struct {
	Adapter     transport.Adapter
	Board       *leaderboard.Board
	Fetcher     seed.Fetcher
	History     history.Store
	CmdTarget   transport.ChatTarget
	BoardTarget transport.ChatTarget
	Prefix      string
	RequestStop func()
}

func NewInterpreter(deps InterpreterDeps, log zerolog.Logger) *Interpreter {
	telemetry.Init()
	it := &Interpreter{
		log:         log.With().Str("comp", "commands").Logger(),
		adapter:     deps.Adapter,
		board:       deps.Board,
		fetcher:     deps.Fetcher,
		hist:        deps.History,
		cmdTarget:   deps.CmdTarget,
		boardTarget: deps.BoardTarget,
		prefix:      deps.Prefix,
		requestStop: deps.RequestStop,
		isAdmin:     func(string) bool { return false },
	}
	it.helpText = buildHelpText(deps.Prefix)
	return it
}

// SetAdminCheck swaps the admin predicate. Safe during hot-reload.
func (it *Interpreter) SetAdminCheck(pred func(identity string) bool) {
	it.mu.Lock()
	it.isAdmin = pred
	it.mu.Unlock()
}

// AdminByName returns the default predicate: case-insensitive username
// equality against the configured admin identity.
func AdminByName(admin string) func(string) bool {
	return func(identity string) bool {
		return strings.EqualFold(identity, admin)
	}
}

func buildHelpText(prefix string) string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	fmt.Fprintf(&sb, "%sping - check that the bot is alive\n", prefix)
	fmt.Fprintf(&sb, "%snewseed - generate a fresh seed and post the permalink\n", prefix)
	fmt.Fprintf(&sb, "%ssubmit hh:mm:ss [-o] - submit your completion time; -o overwrites an existing one\n", prefix)
	fmt.Fprintf(&sb, "%shelp - this text", prefix)
	return sb.String()
}

// Handle processes a single command line. Each line is independent; there
// is no multi-turn state.
func (it *Interpreter) Handle(ctx context.Context, msg *transport.Message) {
	line := strings.TrimPrefix(msg.Text, it.prefix)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		it.replyHelp(ctx)
		return
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	start := time.Now()
	resolved := it.dispatch(ctx, verb, args, msg)
	telemetry.CommandsHandled.WithLabelValues(resolved).Inc()
	it.log.Debug().Str("verb", resolved).Str("from", msg.AuthorName).
		Dur("took", time.Since(start)).Msg("command handled")
}

// dispatch returns the verb it actually executed ("help" for unrecognized
// or insufficiently privileged input).
func (it *Interpreter) dispatch(ctx context.Context, verb string, args []string, msg *transport.Message) string {
	adminOnly := map[string]bool{"reset": true, "sleep": true}
	if adminOnly[verb] && !it.admin(msg.AuthorName) {
		// Admin verbs from non-admins are indistinguishable from typos.
		it.replyHelp(ctx)
		return "help"
	}

	switch verb {
	case "ping":
		it.sendPublic(ctx, replyPong)
	case "newseed":
		it.handleNewSeed(ctx)
	case "submit":
		it.handleSubmit(ctx, args, msg)
	case "reset":
		it.handleReset(ctx, msg)
	case "sleep":
		it.handleSleep(ctx)
	default:
		it.replyHelp(ctx)
		return "help"
	}
	return verb
}

func (it *Interpreter) handleNewSeed(ctx context.Context) {
	link, err := it.fetcher.NewSeed(ctx)
	if err != nil {
		telemetry.SeedRollsFailed.Inc()
		it.log.Error().Err(err).Msg("seed fetch failed")
		it.sendPublic(ctx, replySeedFailed)
		return
	}
	telemetry.SeedRollsSucceeded.Inc()
	it.sendPublic(ctx, "New seed: "+link)
}

func (it *Interpreter) handleSubmit(ctx context.Context, args []string, msg *transport.Message) {
	// The submit request itself is removed from the channel whatever the
	// outcome, so the command channel stays readable.
	defer func() {
		if err := it.adapter.DeleteMessage(ctx, msg.Ref()); err != nil {
			it.log.Warn().Err(err).Str("msg", msg.ID).Msg("could not delete submit message")
		}
	}()

	if len(args) == 0 {
		telemetry.SubmissionsRejected.Inc()
		it.sendDirect(ctx, msg.AuthorID, replyBadTimeFormat)
		return
	}
	rawTime := args[0]
	overwrite := false
	unknown := false
	for _, f := range args[1:] {
		if f == "-o" {
			overwrite = true
		} else {
			unknown = true
		}
	}
	if unknown {
		// Quirk kept on purpose: a stray switch warns but the submission
		// still goes through.
		it.sendPublic(ctx, replyBadSwitches)
	}

	prev, hadPrev := it.board.Duration(msg.AuthorName)

	switch it.board.TryAdd(msg.AuthorName, rawTime, overwrite) {
	case leaderboard.AddInvalidFormat:
		telemetry.SubmissionsRejected.Inc()
		it.sendDirect(ctx, msg.AuthorID, replyBadTimeFormat)
	case leaderboard.AddDuplicate:
		telemetry.SubmissionsRejected.Inc()
		it.sendDirect(ctx, msg.AuthorID, replyDuplicate)
	case leaderboard.AddOK:
		telemetry.SubmissionsAccepted.Inc()
		d, _ := it.board.Duration(msg.AuthorName)
		it.sendPublic(ctx, fmt.Sprintf("%s submitted a time of %s.", msg.AuthorName, leaderboard.FormatDuration(d)))
		it.publishBoard(ctx)
		it.recordSubmission(ctx, msg.AuthorName, d, prev, hadPrev)
	}
}

func (it *Interpreter) handleReset(ctx context.Context, msg *transport.Message) {
	it.board.Reset()
	it.log.Info().Str("by", msg.AuthorName).Msg("leaderboard reset")
	it.sendDirect(ctx, msg.AuthorID, replyResetDone)
}

func (it *Interpreter) handleSleep(ctx context.Context) {
	it.sendPublic(ctx, replySleep)
	if it.requestStop != nil {
		it.requestStop()
	}
}

// publishBoard pushes the full ranked listing to the display channel.
func (it *Interpreter) publishBoard(ctx context.Context) {
	listing := it.board.RenderRanked()
	if listing == "" {
		listing = "The leaderboard is empty."
	}
	if _, err := it.adapter.SendText(ctx, it.boardTarget, listing); err != nil {
		it.log.Warn().Err(err).Msg("could not publish leaderboard")
	}
}

func (it *Interpreter) recordSubmission(ctx context.Context, name string, d, prev time.Duration, hadPrev bool) {
	if it.hist == nil {
		return
	}
	prevSecs := int64(-1)
	if hadPrev {
		prevSecs = int64(prev / time.Second)
	}
	rec := history.Record{
		At:          time.Now(),
		Name:        name,
		Seconds:     int64(d / time.Second),
		PrevSeconds: prevSecs,
		Overwrite:   hadPrev,
	}
	if err := it.hist.Append(ctx, rec); err != nil {
		it.log.Warn().Err(err).Msg("history append failed")
	}
}

func (it *Interpreter) admin(identity string) bool {
	it.mu.RLock()
	pred := it.isAdmin
	it.mu.RUnlock()
	return pred != nil && pred(identity)
}

func (it *Interpreter) replyHelp(ctx context.Context) {
	it.sendPublic(ctx, it.helpText)
}

func (it *Interpreter) sendPublic(ctx context.Context, text string) {
	if _, err := it.adapter.SendText(ctx, it.cmdTarget, text); err != nil {
		it.log.Warn().Err(err).Msg("public reply failed")
	}
}

func (it *Interpreter) sendDirect(ctx context.Context, userID, text string) {
	if err := it.adapter.SendDirect(ctx, userID, text); err != nil {
		it.log.Warn().Err(err).Str("user", userID).Msg("direct reply failed")
	}
}
