// Package transport defines the platform-neutral seam between the bot core
// and a concrete chat network. The core never imports a chat SDK directly.
package transport

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

// Message is one inbound chat line, already stripped of platform detail.
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Text       string
}

// ChatTarget addresses a channel for outbound sends.
type ChatTarget struct {
	ChannelID string
}

// MessageRef addresses a specific message, e.g. for deletion.
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (m *Message) Ref() MessageRef {
	return MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
}

// Adapter is the contract a chat backend implements. Start delivers inbound
// updates on out until ctx is canceled or Stop is called; the adapter owns
// the connection lifecycle.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string) (MessageRef, error)
	// SendDirect delivers text to a user's private channel.
	SendDirect(ctx context.Context, userID string, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// ResolveChannel maps a configured channel name to a send target.
	ResolveChannel(name string) (ChatTarget, error)
}
