package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-academy/internal/certify"
	"github.com/mind-engage/mindengage-academy/internal/notify"
)

// MailAdmins tells the site administrators about every new certificate.
func MailAdmins(n notify.Notifier, admins []string, publicURL string) certify.Listener {
	base := strings.TrimRight(publicURL, "/")
	return certify.ListenerFunc(func(ctx context.Context, ev certify.Issued) error {
		if len(admins) == 0 {
			return nil
		}
		name := ev.User.DisplayName()
		url := fmt.Sprintf("%s/certificates/%d", base, ev.Certificate.ID)
		return n.Notify(ctx, notify.Message{
			Subject: "New academy certificate – " + name,
			Body: fmt.Sprintf("%s has passed '%s' – module '%s' with a score of %d%%.\n\nCertificate number: %s\nView/print the certificate here: %s\n",
				name, ev.Course.Title, ev.Module.Title, ev.Certificate.Score, ev.Certificate.CertificateNumber, url),
			To: admins,
		})
	})
}

// RecordIssued appends certificate.issued to the event log.
func RecordIssued(sink EventSink) certify.Listener {
	return certify.ListenerFunc(func(ctx context.Context, ev certify.Issued) error {
		_, err := sink.Record(ctx, certify.EventCertificateIssued, ev.Certificate.CertificateNumber, issuedPayload(ev), ev.Certificate.IssuedAt)
		return err
	})
}

// Broadcast publishes certificate.issued on the event bus.
func Broadcast(bus notify.Bus) certify.Listener {
	return certify.ListenerFunc(func(ctx context.Context, ev certify.Issued) error {
		raw, err := json.Marshal(issuedPayload(ev))
		if err != nil {
			return err
		}
		return bus.Publish(ctx, notify.Event{
			Type: certify.EventCertificateIssued,
			Key:  strconv.FormatInt(ev.Certificate.ID, 10),
			Data: raw,
			At:   ev.Certificate.IssuedAt,
		})
	})
}

func issuedPayload(ev certify.Issued) map[string]any {
	return map[string]any{
		"certificate_id":     ev.Certificate.ID,
		"certificate_number": ev.Certificate.CertificateNumber,
		"user_id":            ev.Certificate.UserID,
		"course_id":          ev.Certificate.CourseID,
		"module_id":          ev.Certificate.ModuleID,
		"score":              ev.Certificate.Score,
	}
}
