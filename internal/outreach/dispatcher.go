package outreach

import (
	"context"
	"fmt"

	"realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/platform/logger"
)

// Dispatcher delivers a composed message over one channel. Implementations
// must be safe for concurrent use; the cadence runner fans out across leads.
type Dispatcher interface {
	Send(ctx context.Context, channel repository.Channel, destination, subject, content string) error
}

// ChannelSender is the narrow contract a single channel client fulfils.
type ChannelSender interface {
	Send(ctx context.Context, destination, subject, content string) error
}

// MultiDispatcher routes by channel to the configured senders. A channel
// without a sender yields an error rather than a silent drop so the failure
// shows up in the message log.
type MultiDispatcher struct {
	senders map[repository.Channel]ChannelSender
	log     *logger.Logger
}

func NewMultiDispatcher(log *logger.Logger) *MultiDispatcher {
	return &MultiDispatcher{
		senders: make(map[repository.Channel]ChannelSender),
		log:     log,
	}
}

// Register wires a sender for a channel. Nil senders are ignored so callers
// can pass optionally-configured clients straight through.
func (d *MultiDispatcher) Register(channel repository.Channel, sender ChannelSender) {
	if sender == nil {
		return
	}
	d.senders[channel] = sender
}

func (d *MultiDispatcher) Send(ctx context.Context, channel repository.Channel, destination, subject, content string) error {
	sender, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("channel %q not configured", channel)
	}
	if err := sender.Send(ctx, destination, subject, content); err != nil {
		return fmt.Errorf("send via %s: %w", channel, err)
	}
	return nil
}

// NoopDispatcher accepts every message without delivering it. Used in
// development and in environments where no channel credentials exist.
type NoopDispatcher struct {
	log *logger.Logger
}

func NewNoopDispatcher(log *logger.Logger) *NoopDispatcher {
	return &NoopDispatcher{log: log}
}

func (d *NoopDispatcher) Send(_ context.Context, channel repository.Channel, destination, subject, _ string) error {
	if d.log != nil {
		d.log.Info("noop dispatch",
			"channel", string(channel),
			"destination", destination,
			"subject", subject,
		)
	}
	return nil
}
