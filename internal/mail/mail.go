// Package mail delivers customer notifications.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gomail "github.com/wneessen/go-mail"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender hands a message to a transport. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrNoRecipient    = errors.New("mail: no recipient")
	ErrInvalidAddress = errors.New("mail: invalid address")
)

// ValidateAddress checks a recipient with the same parser the SMTP sender uses.
func ValidateAddress(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return ErrNoRecipient
	}
	if err := gomail.NewMsg().To(addr); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidAddress, addr, err)
	}
	return nil
}

func validate(msg Message) error {
	return ValidateAddress(msg.To)
}

// LogSender writes messages to the log instead of sending them.
// Used when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "mail not sent, smtp disabled", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Sent returns the messages seen so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
