// Package discord implements the transport.Adapter seam over a discordgo
// session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pboyer84/IOGRDiscord/internal/transport"
)

type Config struct {
	Token string
	// RatePerSec caps outbound sends locally, on top of discordgo's own
	// HTTP rate-limit handling. 0 means 5/s.
	RatePerSec int
}

type Adapter struct {
	log     zerolog.Logger
	session *discordgo.Session
	limiter *rate.Limiter

	runMu   sync.Mutex
	running bool
	out     chan<- transport.Update
	detach  func()

	chanMu   sync.Mutex
	channels map[string]string // lowercased channel name -> channel ID

	// droppedUpdates counts inbound messages dropped because the consumer
	// was slower than the gateway. Logged periodically, not per message.
	droppedUpdates atomic.Uint64
	dropLogStop    chan struct{}
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	return &Adapter{
		log:      log.With().Str("comp", "discord").Logger(),
		session:  s,
		limiter:  rate.NewLimiter(rate.Limit(perSec), perSec),
		channels: map[string]string{},
	}, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.out = out

	a.detach = a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
			return
		}
		up := transport.Update{
			Kind: transport.UpdateMessage,
			Message: &transport.Message{
				ID:         m.ID,
				ChannelID:  m.ChannelID,
				AuthorID:   m.Author.ID,
				AuthorName: m.Author.Username,
				Text:       m.Content,
			},
		}
		select {
		case out <- up:
		default:
			a.droppedUpdates.Add(1)
		}
	})

	if err := a.session.Open(); err != nil {
		a.detach()
		a.detach = nil
		return fmt.Errorf("discord gateway open: %w", err)
	}

	a.dropLogStop = make(chan struct{})
	go a.dropLogLoop(ctx, cap(out))

	a.running = true
	a.log.Info().Msg("discord adapter started")
	return nil
}

func (a *Adapter) dropLogLoop(ctx context.Context, chanCap int) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	flush := func() {
		if n := a.droppedUpdates.Swap(0); n > 0 {
			a.log.Warn().Uint64("count", n).Int("chan_cap", chanCap).Msg("inbound messages dropped (channel full)")
		}
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-a.dropLogStop:
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
	close(a.dropLogStop)
	err := a.session.Close()
	a.log.Info().Msg("discord adapter stopped")
	return err
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string) (transport.MessageRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	m, err := a.session.ChannelMessageSend(to.ChannelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return transport.MessageRef{}, fmt.Errorf("send to %s: %w", to.ChannelID, err)
	}
	return transport.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

func (a *Adapter) SendDirect(ctx context.Context, userID string, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	ch, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM with %s: %w", userID, err)
	}
	_, err = a.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return err
}

func (a *Adapter) DeleteMessage(ctx context.Context, ref transport.MessageRef) error {
	return a.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
}

// ResolveChannel finds a guild text channel by name across the guilds the
// bot is a member of. Results are cached for the session's lifetime.
func (a *Adapter) ResolveChannel(name string) (transport.ChatTarget, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	if key == "" {
		return transport.ChatTarget{}, errors.New("channel name is empty")
	}

	a.chanMu.Lock()
	defer a.chanMu.Unlock()
	if id, ok := a.channels[key]; ok {
		return transport.ChatTarget{ChannelID: id}, nil
	}

	for _, g := range a.session.State.Guilds {
		chans, err := a.session.GuildChannels(g.ID)
		if err != nil {
			return transport.ChatTarget{}, fmt.Errorf("list channels of guild %s: %w", g.ID, err)
		}
		for _, ch := range chans {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			a.channels[strings.ToLower(ch.Name)] = ch.ID
		}
	}

	if id, ok := a.channels[key]; ok {
		return transport.ChatTarget{ChannelID: id}, nil
	}
	return transport.ChatTarget{}, fmt.Errorf("channel %q not found in any joined guild", name)
}
