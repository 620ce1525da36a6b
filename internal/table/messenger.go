package table

import "context"

// Handle identifies a posted message so it can be edited or removed.
type Handle string

// Message is what a table posts. Info is attached to status messages so
// structured surfaces can render the table themselves.
type Message struct {
	Text string
	Info *Info
}

// Messenger is the chat surface a table reports to.
type Messenger interface {
	Post(ctx context.Context, channel string, msg Message) (Handle, error)
	Update(ctx context.Context, h Handle, msg Message) error
	Delete(ctx context.Context, h Handle) error
	PostPrivate(ctx context.Context, channel, userID string, msg Message) error
}

// NopMessenger discards everything.
type NopMessenger struct{}

func (NopMessenger) Post(context.Context, string, Message) (Handle, error) { return "", nil }
func (NopMessenger) Update(context.Context, Handle, Message) error         { return nil }
func (NopMessenger) Delete(context.Context, Handle) error                  { return nil }
func (NopMessenger) PostPrivate(context.Context, string, string, Message) error {
	return nil
}
