package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Outgoing is one rendered message addressed to one recipient.
type Outgoing struct {
	Channel     string
	To          string
	Subject     string
	Body        string
	MessageID   string
	RecipientID string
}

// Sender hands a message to a delivery channel.
type Sender interface {
	Send(ctx context.Context, msg Outgoing) error
}

// LogSender records deliveries in the log instead of calling a provider.
type LogSender struct {
	Log logrus.FieldLogger
}

func (s *LogSender) Send(ctx context.Context, msg Outgoing) error {
	s.Log.WithFields(logrus.Fields{
		"channel":      msg.Channel,
		"to":           msg.To,
		"message_id":   msg.MessageID,
		"recipient_id": msg.RecipientID,
		"length":       len(msg.Body),
	}).Info("message delivered")
	return nil
}

// ChannelSender routes by channel, falling back to Default.
type ChannelSender struct {
	Channels map[string]Sender
	Default  Sender
}

func (s *ChannelSender) Send(ctx context.Context, msg Outgoing) error {
	if sender, ok := s.Channels[msg.Channel]; ok {
		return sender.Send(ctx, msg)
	}
	return s.Default.Send(ctx, msg)
}
