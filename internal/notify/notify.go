package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/mind-engage/mindengage-academy/internal/logger"
)

// Message is a plain-text notification for a list of recipients.
type Message struct {
	Subject string
	Body    string
	To      []string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to the log instead of sending them. It is the
// fallback when no mail provider is configured.
type Log struct {
	log *logger.Logger
}

func NewLog(l *logger.Logger) *Log {
	return &Log{log: l.With("service", "LogNotifier")}
}

func (n *Log) Notify(_ context.Context, msg Message) error {
	n.log.Info("notification", "subject", msg.Subject, "to", strings.Join(msg.To, ","), "body", msg.Body)
	return nil
}

// clean drops empty and duplicate recipients, keeping order.
func clean(to []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(to))
	for _, addr := range to {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[strings.ToLower(addr)] {
			continue
		}
		seen[strings.ToLower(addr)] = true
		out = append(out, addr)
	}
	return out
}
