package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"dealwatch/config"
	"dealwatch/models"
)

var sendRetryDelay = 5 * time.Second

type Mailer struct {
	cfg  *config.MailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func New(cfg *config.MailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.smtpSend
	return m
}

// SendReport emails one message per recipient: an HTML summary plus the
// three CSV tables as attachments. A failed send is retried once after a
// pause; a second failure is logged and the remaining recipients still
// get their copies. Returns how many sends succeeded and failed.
func (m *Mailer) SendReport(ctx context.Context, csvs map[string][]byte, bundle *models.ReportBundle, totalDeals int, label string, recipients []string) (sent, failed int) {
	for i, recipient := range recipients {
		msg, err := m.compose(recipient, csvs, bundle, totalDeals, label)
		if err != nil {
			log.Printf("mailer: compose for %s failed: %v", recipient, err)
			failed++
			continue
		}

		if err := m.send(ctx, msg); err != nil {
			log.Printf("mailer: send to %s failed, retrying in %s: %v", recipient, sendRetryDelay, err)
			select {
			case <-time.After(sendRetryDelay):
			case <-ctx.Done():
				// The current recipient plus everyone not yet
				// attempted counts as failed.
				remaining := len(recipients) - i
				failed += remaining
				log.Printf("mailer: context cancelled, %d recipients unsent", remaining)
				return sent, failed
			}
			if err := m.send(ctx, msg); err != nil {
				log.Printf("mailer: retry to %s failed, giving up: %v", recipient, err)
				failed++
				continue
			}
		}

		log.Printf("mailer: report sent to %s (%s)", recipient, label)
		sent++
	}
	return sent, failed
}

func (m *Mailer) compose(recipient string, csvs map[string][]byte, bundle *models.ReportBundle, totalDeals int, label string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.Username); err != nil {
		return nil, err
	}
	if err := msg.To(recipient); err != nil {
		return nil, err
	}

	msg.Subject(fmt.Sprintf("%s | %s Deal Property Change Report (%d deals monitored)",
		m.cfg.Brand, label, totalDeals))
	msg.SetBodyString(mail.TypeTextHTML, m.body(recipient, bundle, label))

	for _, key := range models.BundleKeys {
		name := key + "_changes.csv"
		if err := msg.AttachReader(name, bytes.NewReader(csvs[key])); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

func (m *Mailer) body(recipient string, bundle *models.ReportBundle, label string) string {
	return fmt.Sprintf(`
<html>
  <body>
    <p>Hi %s,</p>
    <p>Here is your %s summary of deal property changes from the CRM:</p>
    <ul>
      <li>Deal Type changes: %d</li>
      <li>Deal Stage changes: %d</li>
      <li>Expected Close Date changes: %d</li>
    </ul>
    <p>Details are attached in CSV files.</p>
    <p>Best regards,<br>%s</p>
  </body>
</html>
`,
		Greeting(recipient),
		strings.ToLower(label),
		bundle.Count("deal_type"),
		bundle.Count("dealstage"),
		bundle.Count("expected_close_date"),
		m.cfg.Brand)
}

func (m *Mailer) smtpSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Greeting derives a first name from the mailbox local-part: everything
// before the first '.' or '_', capitalized.
func Greeting(recipient string) string {
	local := recipient
	if at := strings.IndexByte(recipient, '@'); at >= 0 {
		local = recipient[:at]
	}
	if idx := strings.IndexAny(local, "._"); idx >= 0 {
		local = local[:idx]
	}
	if local == "" {
		return local
	}
	return strings.ToUpper(local[:1]) + strings.ToLower(local[1:])
}
