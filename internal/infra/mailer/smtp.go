// internal/infra/mailer/smtp.go
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"obligation_engine/internal/domain/report"

	"github.com/sirupsen/logrus"
)

// SMTPSender delivers run reports over plain SMTP to the office operators.
// Delivery is best-effort by the Sender contract; callers log a failure and
// carry on.
type SMTPSender struct {
	addr       string // host:port
	from       string
	recipients []string
	logger     *logrus.Logger
}

func NewSMTPSender(addr, from string, recipients []string, logger *logrus.Logger) *SMTPSender {
	return &SMTPSender{
		addr:       addr,
		from:       from,
		recipients: recipients,
		logger:     logger,
	}
}

func (s *SMTPSender) SendRunReport(ctx context.Context, summary *report.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run report not sent: %w", err)
	}

	subject := fmt.Sprintf("Obligation generation report %s", summary.Period())
	if summary.DryRun {
		subject += " (dry run)"
	}
	if len(summary.Errors) > 0 {
		subject += fmt.Sprintf(" - %d errors", len(summary.Errors))
	}

	msg := buildMessage(s.from, s.recipients, subject, summary.Text())
	if err := smtp.SendMail(s.addr, nil, s.from, s.recipients, msg); err != nil {
		return fmt.Errorf("failed to send run report via %s: %w", s.addr, err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":     summary.RunID,
		"recipients": len(s.recipients),
	}).Info("Run report sent")
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message. SMTP requires CRLF
// line endings; the body is normalized on the way in.
func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
